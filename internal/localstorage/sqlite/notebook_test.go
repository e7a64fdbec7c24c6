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

const (
	guid1 = "00000000-0000-0000-0000-000000000001"
	guid2 = "00000000-0000-0000-0000-000000000002"
	guid3 = "00000000-0000-0000-0000-000000000003"
)

func TestNotebookRoundTrip(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	nb := &types.Notebook{
		GUID:              pointer.ToString(guid1),
		UpdateSequenceNum: pointer.ToInt32(42),
		Name:              pointer.ToString("Work"),
		DefaultNotebook:   pointer.ToBool(true),
		Created:           pointer.ToInt64(1_600_000_000_000),
		Stack:             pointer.ToString("Projects"),
		Publishing: &types.Publishing{
			URI:       pointer.ToString("work"),
			Ascending: pointer.ToBool(false),
		},
		Restrictions: &types.NotebookRestrictions{
			NoCreateTags: pointer.ToBool(true),
		},
		SharedNotebooks: []types.SharedNotebook{
			{ID: pointer.ToInt64(2), Email: pointer.ToString("b@example.com")},
			{ID: pointer.ToInt64(1), Email: pointer.ToString("a@example.com")},
		},
		Dirty:     true,
		Favorited: true,
	}

	require.NoError(t, s.AddNotebook(ctx, nb))
	require.NotEmpty(t, nb.LocalID)

	actual, err := s.FindNotebookByLocalID(ctx, nb.LocalID)
	require.NoError(t, err)
	assert.Equal(t, nb, actual)

	actual, err = s.FindNotebookByGUID(ctx, guid1)
	require.NoError(t, err)
	assert.Equal(t, nb, actual)

	actual, err = s.FindNotebookByName(ctx, "WORK", nil)
	require.NoError(t, err)
	assert.Equal(t, nb.LocalID, actual.LocalID)

	actual, err = s.FindDefaultNotebook(ctx)
	require.NoError(t, err)
	assert.Equal(t, nb.LocalID, actual.LocalID)

	nb.Publishing = nil
	nb.Restrictions = nil
	nb.SharedNotebooks = nil
	nb.Stack = nil
	require.NoError(t, s.UpdateNotebook(ctx, nb))

	actual, err = s.FindNotebookByLocalID(ctx, nb.LocalID)
	require.NoError(t, err)
	assert.Equal(t, nb, actual)

	n, err := s.CountNotebooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNotebookConstraints(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	nb := &types.Notebook{GUID: pointer.ToString(guid1), Name: pointer.ToString("Personal"), DefaultNotebook: pointer.ToBool(true)}
	require.NoError(t, s.AddNotebook(ctx, nb))

	t.Run("DuplicateName", func(t *testing.T) {
		err := s.AddNotebook(ctx, &types.Notebook{Name: pointer.ToString("personal")})
		assertCode(t, err, storageerrors.ErrorCodeAlreadyExists)
	})

	t.Run("DuplicateGUID", func(t *testing.T) {
		err := s.AddNotebook(ctx, &types.Notebook{GUID: pointer.ToString(guid1), Name: pointer.ToString("Other")})
		assertCode(t, err, storageerrors.ErrorCodeAlreadyExists)
	})

	t.Run("SecondDefault", func(t *testing.T) {
		err := s.AddNotebook(ctx, &types.Notebook{Name: pointer.ToString("Other"), DefaultNotebook: pointer.ToBool(true)})
		assertCode(t, err, storageerrors.ErrorCodeAlreadyExists)
	})

	t.Run("ChangedGUID", func(t *testing.T) {
		update := *nb
		update.GUID = pointer.ToString(guid2)

		err := s.UpdateNotebook(ctx, &update)
		assertCode(t, err, storageerrors.ErrorCodeValidation)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := s.UpdateNotebook(ctx, &types.Notebook{LocalID: "missing", Name: pointer.ToString("Missing")})
		assertCode(t, err, storageerrors.ErrorCodeNotFound)
	})

	t.Run("InvalidName", func(t *testing.T) {
		err := s.AddNotebook(ctx, &types.Notebook{Name: pointer.ToString(" padded ")})
		assertCode(t, err, storageerrors.ErrorCodeValidation)
	})

	t.Run("ExpungeMissing", func(t *testing.T) {
		err := s.ExpungeNotebook(ctx, "missing")
		assertCode(t, err, storageerrors.ErrorCodeNotFound)
	})

	n, err := s.CountNotebooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListNotebooks(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	require.NoError(t, s.AddLinkedNotebook(ctx, &types.LinkedNotebook{GUID: pointer.ToString(guid2), ShareName: pointer.ToString("Shared")}))

	for _, nb := range []*types.Notebook{
		{LocalID: "a", Name: pointer.ToString("Charlie"), Dirty: true},
		{LocalID: "b", Name: pointer.ToString("alpha"), GUID: pointer.ToString(guid1)},
		{LocalID: "c", Name: pointer.ToString("Bravo"), Dirty: true, Favorited: true},
		{LocalID: "d", Name: pointer.ToString("Delta"), LinkedNotebookGUID: pointer.ToString(guid2)},
	} {
		require.NoError(t, s.AddNotebook(ctx, nb))
	}

	for name, tc := range map[string]struct {
		opts     localstorage.ListOptions[localstorage.NotebookOrder]
		expected []string
	}{
		"All": {
			opts:     localstorage.ListOptions[localstorage.NotebookOrder]{Flags: localstorage.ListAll},
			expected: []string{"a", "b", "c", "d"},
		},
		"ByName": {
			opts: localstorage.ListOptions[localstorage.NotebookOrder]{
				Flags: localstorage.ListAll,
				Order: localstorage.NotebookOrderByName,
			},
			expected: []string{"b", "c", "a", "d"},
		},
		"ByNameDescendingPage": {
			opts: localstorage.ListOptions[localstorage.NotebookOrder]{
				Flags:     localstorage.ListAll,
				Order:     localstorage.NotebookOrderByName,
				Direction: localstorage.Descending,
				Limit:     2,
				Offset:    1,
			},
			expected: []string{"a", "c"},
		},
		"Dirty": {
			opts:     localstorage.ListOptions[localstorage.NotebookOrder]{Flags: localstorage.ListDirty},
			expected: []string{"a", "c"},
		},
		"BothDirtyFlags": {
			opts:     localstorage.ListOptions[localstorage.NotebookOrder]{Flags: localstorage.ListDirty | localstorage.ListNonDirty},
			expected: []string{"a", "b", "c", "d"},
		},
		"DirtyNonFavorited": {
			opts: localstorage.ListOptions[localstorage.NotebookOrder]{
				Flags: localstorage.ListDirty | localstorage.ListNonFavorited,
			},
			expected: []string{"a"},
		},
		"WithGUID": {
			opts:     localstorage.ListOptions[localstorage.NotebookOrder]{Flags: localstorage.ListElementsWithGUID},
			expected: []string{"b"},
		},
		"UserOwn": {
			opts: localstorage.ListOptions[localstorage.NotebookOrder]{
				Flags:              localstorage.ListAll,
				LinkedNotebookGUID: pointer.ToString(""),
			},
			expected: []string{"a", "b", "c"},
		},
		"Linked": {
			opts: localstorage.ListOptions[localstorage.NotebookOrder]{
				Flags:              localstorage.ListAll,
				LinkedNotebookGUID: pointer.ToString(guid2),
			},
			expected: []string{"d"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := tc.opts

			res, err := s.ListNotebooks(ctx, &opts)
			require.NoError(t, err)

			actual := make([]string, len(res))
			for i, nb := range res {
				actual[i] = nb.LocalID
			}

			assert.Equal(t, tc.expected, actual)
		})
	}

	_, err := s.ListNotebooks(ctx, &localstorage.ListOptions[localstorage.NotebookOrder]{})
	assertCode(t, err, storageerrors.ErrorCodeFilter)
}

func TestExpungeLinkedNotebook(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	ln := &types.LinkedNotebook{GUID: pointer.ToString(guid1), ShareName: pointer.ToString("Team"), Username: pointer.ToString("bob")}
	require.NoError(t, s.AddLinkedNotebook(ctx, ln))

	nb := &types.Notebook{Name: pointer.ToString("Team"), LinkedNotebookGUID: pointer.ToString(guid1)}
	require.NoError(t, s.AddNotebook(ctx, nb))

	// the same name is allowed in another scope
	require.NoError(t, s.AddNotebook(ctx, &types.Notebook{Name: pointer.ToString("Team")}))

	actual, err := s.FindNotebookByName(ctx, "team", pointer.ToString(guid1))
	require.NoError(t, err)
	assert.Equal(t, nb.LocalID, actual.LocalID)

	err = s.AddNotebook(ctx, &types.Notebook{Name: pointer.ToString("Orphan"), LinkedNotebookGUID: pointer.ToString(guid3)})
	assertCode(t, err, storageerrors.ErrorCodeNotFound)

	foundLN, err := s.FindLinkedNotebook(ctx, guid1)
	require.NoError(t, err)
	assert.Equal(t, ln, foundLN)

	require.NoError(t, s.ExpungeLinkedNotebook(ctx, guid1))

	_, err = s.FindNotebookByLocalID(ctx, nb.LocalID)
	assertCode(t, err, storageerrors.ErrorCodeNotFound)

	n, err := s.CountNotebooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
