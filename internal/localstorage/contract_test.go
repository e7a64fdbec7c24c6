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

package localstorage

import (
	"context"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notestore/notestore/internal/search"
	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/testutil"
)

// recordingStorage records calls that passed the contract.
//
// Methods that are not overridden panic on the nil embedded interface.
type recordingStorage struct {
	Storage

	calls []string
	q     *search.Query
	opts  *FindNoteOptions
}

func (rs *recordingStorage) Close() error {
	rs.calls = append(rs.calls, "Close")
	return nil
}

func (rs *recordingStorage) AddNotebook(ctx context.Context, notebook *types.Notebook) error {
	rs.calls = append(rs.calls, "AddNotebook")
	return nil
}

func (rs *recordingStorage) AddNote(ctx context.Context, note *types.Note) error {
	rs.calls = append(rs.calls, "AddNote")
	return nil
}

func (rs *recordingStorage) ListTags(ctx context.Context, opts *ListOptions[TagOrder]) ([]*types.Tag, error) {
	rs.calls = append(rs.calls, "ListTags")
	return nil, nil
}

func (rs *recordingStorage) FindNoteByLocalID(ctx context.Context, localID string, opts *FindNoteOptions) (*types.Note, error) {
	rs.calls = append(rs.calls, "FindNoteByLocalID")
	rs.opts = opts

	return nil, storageerrors.Errorf(storageerrors.ErrorCodeNotFound, "note %q not found", localID)
}

func (rs *recordingStorage) FindNoteLocalIDsWithSearchQuery(ctx context.Context, q *search.Query) ([]string, error) {
	rs.calls = append(rs.calls, "FindNoteLocalIDsWithSearchQuery")
	rs.q = q

	return nil, nil
}

func TestStorageContract(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	rs := new(recordingStorage)
	s := StorageContract(rs)

	err := s.AddNotebook(ctx, &types.Notebook{})
	assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeValidation), "%v", err)

	require.NoError(t, s.AddNotebook(ctx, &types.Notebook{Name: pointer.ToString("Valid")}))

	err = s.AddNote(ctx, &types.Note{NotebookLocalID: "nb", TagLocalIDs: []string{"t", "t"}})
	assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeValidation), "%v", err)

	_, err = s.ListTags(ctx, nil)
	assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeFilter), "%v", err)

	_, err = s.ListTags(ctx, &ListOptions[TagOrder]{Flags: ListAll, Offset: 1})
	assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeValidation), "%v", err)

	_, err = s.ListTags(ctx, &ListOptions[TagOrder]{Flags: ListAll, Limit: -1})
	assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeValidation), "%v", err)

	_, err = s.ListTags(ctx, &ListOptions[TagOrder]{})
	assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeFilter), "%v", err)

	_, err = s.ListTags(ctx, &ListOptions[TagOrder]{Flags: ListAll})
	require.NoError(t, err)

	_, err = s.FindNoteByLocalID(ctx, "", nil)
	assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeValidation), "%v", err)

	_, err = s.FindNoteByLocalID(ctx, "note", nil)
	assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeNotFound), "%v", err)
	assert.Equal(t, new(FindNoteOptions), rs.opts)

	_, err = s.FindNoteLocalIDsWithSearchQuery(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, new(search.Query), rs.q)

	require.NoError(t, s.Close())

	expected := []string{"AddNotebook", "ListTags", "FindNoteByLocalID", "FindNoteLocalIDsWithSearchQuery", "Close"}
	assert.Equal(t, expected, rs.calls)
}
