// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlite

import (
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/types"
)

func TestTags(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	parent := &types.Tag{GUID: pointer.ToString(guid1), Name: pointer.ToString("Parent")}
	require.NoError(t, s.AddTag(ctx, parent))

	child := &types.Tag{Name: pointer.ToString("Child"), ParentLocalID: pointer.ToString(parent.LocalID), Dirty: true}
	require.NoError(t, s.AddTag(ctx, child))
	assert.Equal(t, guid1, *child.ParentGUID)

	actual, err := s.FindTagByLocalID(ctx, child.LocalID)
	require.NoError(t, err)
	assert.Equal(t, child, actual)

	actual, err = s.FindTagByName(ctx, "CHILD", nil)
	require.NoError(t, err)
	assert.Equal(t, child.LocalID, actual.LocalID)

	// parent guid alone is kept for not synchronized parents
	orphan := &types.Tag{Name: pointer.ToString("Orphan"), ParentGUID: pointer.ToString(guid2)}
	require.NoError(t, s.AddTag(ctx, orphan))
	assert.Nil(t, orphan.ParentLocalID)

	err = s.AddTag(ctx, &types.Tag{Name: pointer.ToString("Lost"), ParentLocalID: pointer.ToString("missing")})
	assertCode(t, err, storageerrors.ErrorCodeNotFound)

	err = s.AddTag(ctx, &types.Tag{Name: pointer.ToString("parent")})
	assertCode(t, err, storageerrors.ErrorCodeAlreadyExists)

	err = s.AddTag(ctx, &types.Tag{Name: pointer.ToString("a,b")})
	assertCode(t, err, storageerrors.ErrorCodeValidation)

	n, err := s.CountTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.DeleteTag(ctx, orphan.LocalID))

	n, err = s.CountTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	actual, err = s.FindTagByLocalID(ctx, orphan.LocalID)
	require.NoError(t, err)
	assert.True(t, actual.Deleted)

	list, err := s.ListTags(ctx, &localstorage.ListOptions[localstorage.TagOrder]{
		Flags: localstorage.ListDirty,
		Order: localstorage.TagOrderByName,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, child.LocalID, list[0].LocalID)

	// children are expunged with the parent
	require.NoError(t, s.ExpungeTag(ctx, parent.LocalID))

	_, err = s.FindTagByLocalID(ctx, child.LocalID)
	assertCode(t, err, storageerrors.ErrorCodeNotFound)

	err = s.ExpungeTag(ctx, parent.LocalID)
	assertCode(t, err, storageerrors.ErrorCodeNotFound)
}

func TestSavedSearches(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	ss := &types.SavedSearch{
		GUID:           pointer.ToString(guid1),
		Name:           pointer.ToString("Todo"),
		Query:          pointer.ToString("todo:false"),
		Format:         pointer.To(types.QueryFormatUser),
		IncludeAccount: pointer.ToBool(true),
		Favorited:      true,
	}
	require.NoError(t, s.AddSavedSearch(ctx, ss))

	actual, err := s.FindSavedSearchByGUID(ctx, guid1)
	require.NoError(t, err)
	assert.Equal(t, ss, actual)

	actual, err = s.FindSavedSearchByName(ctx, "TODO")
	require.NoError(t, err)
	assert.Equal(t, ss, actual)

	err = s.AddSavedSearch(ctx, &types.SavedSearch{Name: pointer.ToString("todo")})
	assertCode(t, err, storageerrors.ErrorCodeAlreadyExists)

	err = s.AddSavedSearch(ctx, &types.SavedSearch{Name: pointer.ToString("Bad"), Format: pointer.To(types.QueryFormat(2))})
	assertCode(t, err, storageerrors.ErrorCodeValidation)

	ss.Query = pointer.ToString("tag:work")
	require.NoError(t, s.UpdateSavedSearch(ctx, ss))

	actual, err = s.FindSavedSearchByLocalID(ctx, ss.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "tag:work", *actual.Query)

	list, err := s.ListSavedSearches(ctx, &localstorage.ListOptions[localstorage.SavedSearchOrder]{
		Flags: localstorage.ListFavorited,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.ExpungeSavedSearch(ctx, ss.LocalID))

	n, err := s.CountSavedSearches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUsers(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	u := &types.User{
		ID:        1,
		Username:  pointer.ToString("alice"),
		Email:     pointer.ToString("alice@example.com"),
		Privilege: pointer.To(types.PrivilegePremium),
		Created:   pointer.ToInt64(1_600_000_000_000),
		Active:    pointer.ToBool(true),
		Attributes: &types.UserAttributes{
			DefaultLatitude:       pointer.ToFloat64(52.5),
			ViewedPromotions:      []string{"b", "a"},
			RecentMailedAddresses: []string{"bob@example.com"},
		},
		Accounting: &types.Accounting{
			PremiumServiceSKU: pointer.ToString("sku"),
		},
		Dirty: true,
	}
	require.NoError(t, s.AddUser(ctx, u))

	actual, err := s.FindUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, u, actual)

	err = s.AddUser(ctx, u)
	assertCode(t, err, storageerrors.ErrorCodeAlreadyExists)

	u.Attributes = nil
	u.Accounting = nil
	require.NoError(t, s.UpdateUser(ctx, u))

	actual, err = s.FindUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, u, actual)

	err = s.UpdateUser(ctx, &types.User{ID: 2})
	assertCode(t, err, storageerrors.ErrorCodeNotFound)

	require.NoError(t, s.AddUser(ctx, &types.User{ID: 2, Username: pointer.ToString("bob")}))

	list, err := s.ListUsers(ctx, &localstorage.ListOptions[localstorage.UserOrder]{
		Flags:     localstorage.ListAll,
		Order:     localstorage.UserOrderByUsername,
		Direction: localstorage.Descending,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int32(2), list[0].ID)
	assert.Equal(t, int32(1), list[1].ID)

	require.NoError(t, s.DeleteUser(ctx, 1))

	actual, err = s.FindUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, actual.Deleted)
	assert.False(t, *actual.Active)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.ExpungeUser(ctx, 1))

	_, err = s.FindUser(ctx, 1)
	assertCode(t, err, storageerrors.ErrorCodeNotFound)
}
