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
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/search"
	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/teststress"
)

const recognition = `<recoIndex><item><t w="90">Invoice</t><t w="20">lnvoice</t></item></recoIndex>`

// addNotebook adds the notebook with the given name and returns its local id.
func addNotebook(tb testing.TB, ctx context.Context, s localstorage.Storage, name string) string { //nolint:revive // for consistency
	tb.Helper()

	nb := &types.Notebook{Name: pointer.ToString(name)}
	require.NoError(tb, s.AddNotebook(ctx, nb))

	return nb.LocalID
}

// addTag adds the tag with the given name and returns its local id.
func addTag(tb testing.TB, ctx context.Context, s localstorage.Storage, name string) string { //nolint:revive // for consistency
	tb.Helper()

	tag := &types.Tag{Name: pointer.ToString(name)}
	require.NoError(tb, s.AddTag(ctx, tag))

	return tag.LocalID
}

func TestNoteRoundTrip(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	nb := &types.Notebook{GUID: pointer.ToString(guid1), Name: pointer.ToString("Inbox")}
	require.NoError(t, s.AddNotebook(ctx, nb))

	tag1 := addTag(t, ctx, s, "first")
	tag2 := addTag(t, ctx, s, "second")

	note := &types.Note{
		GUID:            pointer.ToString(guid2),
		NotebookLocalID: nb.LocalID,
		Title:           pointer.ToString("Hello"),
		Content:         pointer.ToString(`<en-note><div>Hello world</div><en-todo checked="true"/></en-note>`),
		Created:         pointer.ToInt64(1_600_000_000_000),
		Attributes: &types.NoteAttributes{
			Author: pointer.ToString("me"),
			ApplicationData: &types.LazyMap{
				KeysOnly: []string{"key2", "key1"},
				FullMap:  map[string]string{"key1": "value"},
			},
			Classifications: map[string]string{"class": "value"},
		},
		TagLocalIDs: []string{tag2, tag1},
		Resources: []types.Resource{
			{
				Mime:        pointer.ToString("image/png"),
				Data:        &types.Data{Body: []byte("png"), Size: pointer.ToInt32(3)},
				Recognition: &types.Data{Body: []byte(recognition)},
			},
			{
				GUID: pointer.ToString(guid3),
				Mime: pointer.ToString("application/pdf"),
				Data: &types.Data{Body: []byte("pdf")},
				Attributes: &types.ResourceAttributes{
					FileName:   pointer.ToString("doc.pdf"),
					Attachment: pointer.ToBool(true),
				},
			},
		},
		Dirty: true,
	}

	require.NoError(t, s.AddNote(ctx, note))
	require.NotEmpty(t, note.LocalID)
	assert.Equal(t, guid1, *note.NotebookGUID)

	for _, r := range note.Resources {
		assert.NotEmpty(t, r.LocalID)
		assert.Equal(t, note.LocalID, r.NoteLocalID)
		assert.Equal(t, guid2, *r.NoteGUID)
	}

	actual, err := s.FindNoteByLocalID(ctx, note.LocalID, &localstorage.FindNoteOptions{WithResourceBinaryData: true})
	require.NoError(t, err)
	assert.Equal(t, note, actual)

	actual, err = s.FindNoteByGUID(ctx, guid2, nil)
	require.NoError(t, err)
	require.Len(t, actual.Resources, 2)
	require.NotNil(t, actual.Resources[0].Data)
	assert.Nil(t, actual.Resources[0].Data.Body)
	assert.Equal(t, pointer.ToInt32(3), actual.Resources[0].Data.Size)

	resource, err := s.FindResourceByGUID(ctx, guid3, true)
	require.NoError(t, err)
	assert.Equal(t, &note.Resources[1], resource)

	n, err := s.CountResources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// the removed resource is expunged, side tables are rewritten
	note.Resources = note.Resources[1:]
	note.TagLocalIDs = []string{tag1}
	note.Attributes = nil
	note.Content = pointer.ToString("<en-note>Goodbye</en-note>")
	require.NoError(t, s.UpdateNote(ctx, note))

	actual, err = s.FindNoteByLocalID(ctx, note.LocalID, &localstorage.FindNoteOptions{WithResourceBinaryData: true})
	require.NoError(t, err)
	assert.Equal(t, note, actual)

	n, err = s.CountResources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountNotesPerTag(ctx, tag2)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.CountNotesPerTag(ctx, tag1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tags, err := s.ListTags(ctx, &localstorage.ListOptions[localstorage.TagOrder]{
		Flags:       localstorage.ListAll,
		NoteLocalID: note.LocalID,
	})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tag1, tags[0].LocalID)
}

func TestNoteConstraints(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	restricted := &types.Notebook{
		Name: pointer.ToString("Read only"),
		Restrictions: &types.NotebookRestrictions{
			NoCreateNotes: pointer.ToBool(true),
			NoUpdateNotes: pointer.ToBool(true),
		},
	}
	require.NoError(t, s.AddNotebook(ctx, restricted))

	open := addNotebook(t, ctx, s, "Open")

	t.Run("Restricted", func(t *testing.T) {
		err := s.AddNote(ctx, &types.Note{NotebookLocalID: restricted.LocalID, Title: pointer.ToString("Forbidden")})
		assertCode(t, err, storageerrors.ErrorCodeConstraint)

		n, err := s.CountNotesPerNotebook(ctx, restricted.LocalID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("MovedToRestricted", func(t *testing.T) {
		note := &types.Note{NotebookLocalID: open, Title: pointer.ToString("Movable")}
		require.NoError(t, s.AddNote(ctx, note))

		note.NotebookLocalID = restricted.LocalID
		note.NotebookGUID = nil
		err := s.UpdateNote(ctx, note)
		assertCode(t, err, storageerrors.ErrorCodeConstraint)
	})

	t.Run("MissingNotebook", func(t *testing.T) {
		err := s.AddNote(ctx, &types.Note{NotebookLocalID: "missing"})
		assertCode(t, err, storageerrors.ErrorCodeNotFound)

		err = s.AddNote(ctx, &types.Note{NotebookGUID: pointer.ToString(guid3)})
		assertCode(t, err, storageerrors.ErrorCodeNotFound)
	})

	t.Run("NoNotebook", func(t *testing.T) {
		err := s.AddNote(ctx, &types.Note{Title: pointer.ToString("Lost")})
		assertCode(t, err, storageerrors.ErrorCodeValidation)
	})

	t.Run("MissingTag", func(t *testing.T) {
		err := s.AddNote(ctx, &types.Note{NotebookLocalID: open, TagLocalIDs: []string{"missing"}})
		assertCode(t, err, storageerrors.ErrorCodeNotFound)
	})

	t.Run("ResourceOfAnotherNote", func(t *testing.T) {
		first := &types.Note{NotebookLocalID: open, Resources: []types.Resource{{LocalID: "shared"}}}
		require.NoError(t, s.AddNote(ctx, first))

		second := &types.Note{NotebookLocalID: open, Resources: []types.Resource{{LocalID: "shared"}}}
		err := s.AddNote(ctx, second)
		assertCode(t, err, storageerrors.ErrorCodeAlreadyExists)
	})

	t.Run("DuplicateLocalID", func(t *testing.T) {
		note := &types.Note{LocalID: "note", NotebookLocalID: open}
		require.NoError(t, s.AddNote(ctx, note))

		err := s.AddNote(ctx, &types.Note{LocalID: "note", NotebookLocalID: open})
		assertCode(t, err, storageerrors.ErrorCodeAlreadyExists)
	})

	n, err := s.CountNotesPerNotebook(ctx, restricted.LocalID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.CountNotesPerNotebook(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNoteDeleteExpunge(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	nb := addNotebook(t, ctx, s, "Trash test")
	tag := addTag(t, ctx, s, "tag")

	note := &types.Note{
		NotebookLocalID: nb,
		Title:           pointer.ToString("Doomed"),
		TagLocalIDs:     []string{tag},
		Resources:       []types.Resource{{Mime: pointer.ToString("text/plain"), Data: &types.Data{Body: []byte("x")}}},
	}
	require.NoError(t, s.AddNote(ctx, note))

	kept := &types.Note{NotebookLocalID: nb, Title: pointer.ToString("Kept")}
	require.NoError(t, s.AddNote(ctx, kept))

	require.NoError(t, s.DeleteNote(ctx, note.LocalID))

	actual, err := s.FindNoteByLocalID(ctx, note.LocalID, nil)
	require.NoError(t, err)
	assert.False(t, actual.IsActive())
	assert.NotNil(t, actual.Deleted)

	n, err := s.CountNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountNotesPerTag(ctx, tag)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// deleted notes are still listed
	notes, err := s.ListNotes(ctx, &localstorage.ListOptions[localstorage.NoteOrder]{
		Flags: localstorage.ListAll,
		Order: localstorage.NoteOrderByTitle,
	}, nil)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, note.LocalID, notes[0].LocalID)
	assert.Equal(t, kept.LocalID, notes[1].LocalID)

	notes, err = s.ListNotes(ctx, &localstorage.ListOptions[localstorage.NoteOrder]{
		Flags:      localstorage.ListAll,
		TagLocalID: tag,
	}, nil)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, note.LocalID, notes[0].LocalID)

	require.NoError(t, s.ExpungeNote(ctx, note.LocalID))

	_, err = s.FindNoteByLocalID(ctx, note.LocalID, nil)
	assertCode(t, err, storageerrors.ErrorCodeNotFound)

	n, err = s.CountResources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	err = s.DeleteNote(ctx, note.LocalID)
	assertCode(t, err, storageerrors.ErrorCodeNotFound)

	// notes are expunged with the notebook
	require.NoError(t, s.ExpungeNotebook(ctx, nb))

	n, err = s.CountNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestResources(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	nb := addNotebook(t, ctx, s, "Resources")

	first := &types.Note{NotebookLocalID: nb, GUID: pointer.ToString(guid1)}
	require.NoError(t, s.AddNote(ctx, first))

	second := &types.Note{NotebookLocalID: nb}
	require.NoError(t, s.AddNote(ctx, second))

	r1 := &types.Resource{NoteGUID: pointer.ToString(guid1), Mime: pointer.ToString("image/png")}
	require.NoError(t, s.AddResource(ctx, r1))
	assert.Equal(t, first.LocalID, r1.NoteLocalID)

	r2 := &types.Resource{NoteLocalID: first.LocalID, Mime: pointer.ToString("image/jpeg")}
	require.NoError(t, s.AddResource(ctx, r2))

	err := s.AddResource(ctx, &types.Resource{NoteLocalID: "missing"})
	assertCode(t, err, storageerrors.ErrorCodeNotFound)

	err = s.AddResource(ctx, &types.Resource{Mime: pointer.ToString("image/png")})
	assertCode(t, err, storageerrors.ErrorCodeValidation)

	err = s.AddResource(ctx, &types.Resource{
		NoteLocalID: first.LocalID,
		Recognition: &types.Data{Body: []byte("<recoIndex>")},
	})
	assertCode(t, err, storageerrors.ErrorCodeValidation)

	actual, err := s.FindNoteByLocalID(ctx, first.LocalID, nil)
	require.NoError(t, err)
	require.Len(t, actual.Resources, 2)
	assert.Equal(t, r1.LocalID, actual.Resources[0].LocalID)
	assert.Equal(t, r2.LocalID, actual.Resources[1].LocalID)

	// moved resource is appended
	r1.NoteLocalID = second.LocalID
	r1.NoteGUID = nil
	require.NoError(t, s.UpdateResource(ctx, r1))

	list, err := s.ListResources(ctx, &localstorage.ListOptions[localstorage.ResourceOrder]{
		Flags:       localstorage.ListAll,
		NoteLocalID: second.LocalID,
	}, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r1.LocalID, list[0].LocalID)

	list, err = s.ListResources(ctx, &localstorage.ListOptions[localstorage.ResourceOrder]{
		Flags:     localstorage.ListAll,
		Order:     localstorage.ResourceOrderByMime,
		Direction: localstorage.Descending,
	}, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, r1.LocalID, list[0].LocalID)
	assert.Equal(t, r2.LocalID, list[1].LocalID)

	require.NoError(t, s.ExpungeResource(ctx, r2.LocalID))

	_, err = s.FindResourceByLocalID(ctx, r2.LocalID, false)
	assertCode(t, err, storageerrors.ErrorCodeNotFound)
}

func TestConcurrentNotes(t *testing.T) {
	t.Parallel()

	ctx, s := setup(t)

	nb := addNotebook(t, ctx, s, "Inbox")
	tag := addTag(t, ctx, s, "shared")

	n := teststress.Stress(t, func(i int, ready chan<- struct{}, start <-chan struct{}) {
		note := &types.Note{
			NotebookLocalID: nb,
			Title:           pointer.ToString(fmt.Sprintf("Note %d", i)),
			Content:         pointer.ToString(fmt.Sprintf("<en-note>concurrent %d</en-note>", i)),
			TagLocalIDs:     []string{tag},
		}

		ready <- struct{}{}
		<-start

		assert.NoError(t, s.AddNote(ctx, note))
		assert.NotEmpty(t, note.LocalID)
	})

	count, err := s.CountNotesPerTag(ctx, tag)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	q, err := search.Parse("concurrent", time.Now())
	require.NoError(t, err)

	ids, err := s.FindNoteLocalIDsWithSearchQuery(ctx, q)
	require.NoError(t, err)
	assert.Len(t, ids, n)
}
