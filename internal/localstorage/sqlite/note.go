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
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/notestore/notestore/internal/enml"
	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/fsql"
)

// noteAttributesColumns are stored in the Notes table.
var noteAttributesColumns = []string{
	"subjectDate", "latitude", "longitude", "altitude", "author", "source", "sourceUrl", "sourceApplication",
	"shareDate", "reminderOrder", "reminderDoneTime", "reminderTime", "placeName", "contentClass", "lastEditedBy",
	"creatorId", "lastEditorId", "sharedWithBusiness", "conflictSourceNoteGuid", "noteTitleQuality",
}

var noteColumns = append(append([]string{
	"localUid", "guid", "localNotebook", "notebookGuid", "updateSequenceNumber", "title", "titleNormalized",
	"content", "contentLength", "contentHash",
	"contentPlainText", "contentListOfWords",
	"contentContainsFinishedToDo", "contentContainsUnfinishedToDo", "contentContainsEncryption",
	"creationTimestamp", "modificationTimestamp", "deletionTimestamp", "isActive", "thumbnail",
}, noteAttributesColumns...), "isDirty", "isLocal", "isFavorited")

var noteSelect = "SELECT localUid, guid, localNotebook, notebookGuid, updateSequenceNumber, title, " +
	"content, contentLength, contentHash, creationTimestamp, modificationTimestamp, deletionTimestamp, isActive, thumbnail, " +
	strings.Join(noteAttributesColumns, ", ") + ", isDirty, isLocal, isFavorited FROM Notes"

var noteFlags = &flagColumns{dirty: "isDirty", guid: "guid", local: "isLocal", favorited: "isFavorited"}

// activeNote is the condition selecting notes that are not in the trash.
const activeNote = "(Notes.isActive IS NULL OR Notes.isActive = 1)"

// resolveNoteNotebook checks that the note notebook exists, fills the missing notebook identifier,
// and returns notebook restrictions.
func resolveNoteNotebook(ctx context.Context, tx *fsql.Tx, n *types.Note) (*types.NotebookRestrictions, error) {
	if n.NotebookLocalID == "" {
		localID, err := notebookIdentity.localIDOf(ctx, tx, *n.NotebookGUID)
		if err != nil {
			return nil, err
		}

		if localID == "" {
			return nil, notFound("notebook", "guid", *n.NotebookGUID)
		}

		n.NotebookLocalID = localID
	} else {
		exists, guid, err := notebookIdentity.guidOf(ctx, tx, n.NotebookLocalID)
		if err != nil {
			return nil, err
		}

		if !exists {
			return nil, notFound("notebook", "local id", n.NotebookLocalID)
		}

		if n.NotebookGUID == nil {
			n.NotebookGUID = guid
		}
	}

	return readRestrictions(ctx, tx, n.NotebookLocalID)
}

// writeNote upserts the note row and rewrites its tags, attributes and resources.
func writeNote(ctx context.Context, tx *fsql.Tx, n *types.Note) error {
	analysis := new(enml.Analysis)

	if n.Content != nil {
		var err error
		if analysis, err = enml.Analyze(*n.Content); err != nil {
			return storageerrors.Errorf(storageerrors.ErrorCodeValidation, "note %q: content: %s", n.LocalID, err)
		}
	}

	var plainText, listOfWords *string
	if n.Content != nil {
		words := analysis.ListOfWords()
		plainText, listOfWords = &analysis.PlainText, &words
	}

	var a types.NoteAttributes
	if n.Attributes != nil {
		a = *n.Attributes
	}

	args := []any{
		n.LocalID, arg(n.GUID), n.NotebookLocalID, arg(n.NotebookGUID), arg(n.UpdateSequenceNum),
		arg(n.Title), arg(nameLower(n.Title)),
		arg(n.Content), arg(n.ContentLength), blobArg(n.ContentHash),
		arg(plainText), arg(listOfWords),
		boolArg(analysis.ContainsFinishedToDo), boolArg(analysis.ContainsUnfinishedToDo), boolArg(analysis.ContainsEncryption),
		arg(n.Created), arg(n.Updated), arg(n.Deleted), arg(n.Active), blobArg(n.ThumbnailData),
		arg(a.SubjectDate), arg(a.Latitude), arg(a.Longitude), arg(a.Altitude), arg(a.Author), arg(a.Source),
		arg(a.SourceURL), arg(a.SourceApplication), arg(a.ShareDate), arg(a.ReminderOrder), arg(a.ReminderDoneTime),
		arg(a.ReminderTime), arg(a.PlaceName), arg(a.ContentClass), arg(a.LastEditedBy), arg(a.CreatorID),
		arg(a.LastEditorID), arg(a.SharedWithBusiness), arg(a.ConflictSourceNoteGUID), arg(a.NoteTitleQuality),
		boolArg(n.Dirty), boolArg(n.Local), boolArg(n.Favorited),
	}

	if _, err := exec(ctx, tx, "Notes/upsert", upsert("Notes", "localUid", noteColumns), args...); err != nil {
		return err
	}

	if err := clearRows(ctx, tx, "NoteTags", "localNote", n.LocalID); err != nil {
		return err
	}

	for i, tag := range n.TagLocalIDs {
		q := "INSERT INTO NoteTags(localNote, localTag, indexInNote) VALUES (?, ?, ?)"
		if _, err := exec(ctx, tx, "NoteTags/insert", q, n.LocalID, tag, int64(i)); err != nil {
			return err
		}
	}

	if err := noteApplicationData.write(ctx, tx, n.LocalID, a.ApplicationData); err != nil {
		return err
	}

	if err := noteClassifications.write(ctx, tx, n.LocalID, a.Classifications); err != nil {
		return err
	}

	return writeNoteResources(ctx, tx, n)
}

// writeNoteResources replaces note resources; resources that are not in the note anymore are expunged.
func writeNoteResources(ctx context.Context, tx *fsql.Tx, n *types.Note) error {
	ids := make([]any, 0, len(n.Resources)+1)
	ids = append(ids, n.LocalID)

	for i := range n.Resources {
		r := &n.Resources[i]
		r.NoteLocalID = n.LocalID

		if r.NoteGUID == nil {
			r.NoteGUID = n.GUID
		}

		if err := resolveResourceOfNote(ctx, tx, n.LocalID, r); err != nil {
			return err
		}

		ids = append(ids, r.LocalID)
	}

	q := "DELETE FROM Resources WHERE localNote = ?"
	if len(ids) > 1 {
		q += " AND localUid NOT IN (" + placeholders(len(ids)-1) + ")"
	}

	if _, err := tx.ExecContext(ctx, q, ids...); err != nil {
		return sqlError("Resources/deleteStale", err)
	}

	for i := range n.Resources {
		if err := writeResource(ctx, tx, &n.Resources[i], i); err != nil {
			return err
		}
	}

	return nil
}

// noteTagIDs returns local ids of note tags in the stored order.
func noteTagIDs(ctx context.Context, tx *fsql.Tx, noteLocalID string) ([]string, error) {
	const sid = "NoteTags/select"

	stmt, err := tx.Stmt(ctx, sid, "SELECT localTag FROM NoteTags WHERE localNote = ? ORDER BY indexInNote")
	if err != nil {
		return nil, sqlError(sid, err)
	}

	return queryStrings(ctx, stmt, sid, noteLocalID)
}

// findNote returns the note matching the condition with tags, attributes and resources, or NotFound error.
func findNote(ctx context.Context, tx *fsql.Tx, key, where, value string, opts *localstorage.FindNoteOptions) (*types.Note, error) { //nolint:lll // for readability
	sid := "Notes/find/" + key

	stmt, err := tx.Stmt(ctx, sid, noteSelect+" WHERE "+where)
	if err != nil {
		return nil, sqlError(sid, err)
	}

	var n types.Note
	var a types.NoteAttributes

	err = stmt.QueryRowContext(ctx, value).Scan(
		&n.LocalID, &n.GUID, &n.NotebookLocalID, &n.NotebookGUID, &n.UpdateSequenceNum, &n.Title,
		&n.Content, &n.ContentLength, &n.ContentHash, &n.Created, &n.Updated, &n.Deleted, &n.Active, &n.ThumbnailData,
		&a.SubjectDate, &a.Latitude, &a.Longitude, &a.Altitude, &a.Author, &a.Source, &a.SourceURL,
		&a.SourceApplication, &a.ShareDate, &a.ReminderOrder, &a.ReminderDoneTime, &a.ReminderTime, &a.PlaceName,
		&a.ContentClass, &a.LastEditedBy, &a.CreatorID, &a.LastEditorID, &a.SharedWithBusiness,
		&a.ConflictSourceNoteGUID, &a.NoteTitleQuality,
		&n.Dirty, &n.Local, &n.Favorited,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound("note", key, value)
	case err != nil:
		return nil, sqlError(sid, err)
	}

	if n.TagLocalIDs, err = noteTagIDs(ctx, tx, n.LocalID); err != nil {
		return nil, err
	}

	if a.ApplicationData, err = noteApplicationData.read(ctx, tx, n.LocalID); err != nil {
		return nil, err
	}

	if a.Classifications, err = noteClassifications.read(ctx, tx, n.LocalID); err != nil {
		return nil, err
	}

	present := anyNotNil(
		a.SubjectDate, a.Latitude, a.Longitude, a.Altitude, a.Author, a.Source, a.SourceURL,
		a.SourceApplication, a.ShareDate, a.ReminderOrder, a.ReminderDoneTime, a.ReminderTime, a.PlaceName,
		a.ContentClass, a.LastEditedBy, a.CreatorID, a.LastEditorID, a.SharedWithBusiness,
		a.ConflictSourceNoteGUID, a.NoteTitleQuality, a.ApplicationData, a.Classifications,
	)
	if present {
		n.Attributes = &a
	}

	resourceIDs, err := noteResourceIDs(ctx, tx, n.LocalID)
	if err != nil {
		return nil, err
	}

	for _, id := range resourceIDs {
		r, err := findResource(ctx, tx, "local id", "localUid = ?", id, opts.WithResourceBinaryData)
		if err != nil {
			return nil, err
		}

		n.Resources = append(n.Resources, *r)
	}

	return &n, nil
}

// CountNotes implements localstorage.Storage interface.
func (s *storage) CountNotes(ctx context.Context) (int, error) {
	var res int

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = count(ctx, tx, "Notes/count", "SELECT COUNT(*) FROM Notes WHERE "+activeNote)

		return err
	})

	return res, err
}

// CountNotesPerNotebook implements localstorage.Storage interface.
func (s *storage) CountNotesPerNotebook(ctx context.Context, notebookLocalID string) (int, error) {
	var res int

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = count(
			ctx, tx, "Notes/countPerNotebook",
			"SELECT COUNT(*) FROM Notes WHERE localNotebook = ? AND "+activeNote,
			notebookLocalID,
		)

		return err
	})

	return res, err
}

// CountNotesPerTag implements localstorage.Storage interface.
func (s *storage) CountNotesPerTag(ctx context.Context, tagLocalID string) (int, error) {
	var res int

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = count(
			ctx, tx, "Notes/countPerTag",
			"SELECT COUNT(*) FROM Notes INNER JOIN NoteTags ON NoteTags.localNote = Notes.localUid "+
				"WHERE NoteTags.localTag = ? AND "+activeNote,
			tagLocalID,
		)

		return err
	})

	return res, err
}

// AddNote implements localstorage.Storage interface.
func (s *storage) AddNote(ctx context.Context, note *types.Note) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := noteIdentity.resolveAdd(ctx, tx, note.LocalID, note.GUID)
		if err != nil {
			return err
		}

		restrictions, err := resolveNoteNotebook(ctx, tx, note)
		if err != nil {
			return err
		}

		if !restrictions.CanCreateNotes() {
			return storageerrors.Errorf(
				storageerrors.ErrorCodeConstraint, "notebook %q restrictions forbid creating notes", note.NotebookLocalID,
			)
		}

		note.LocalID = localID

		return writeNote(ctx, tx, note)
	})
}

// UpdateNote implements localstorage.Storage interface.
func (s *storage) UpdateNote(ctx context.Context, note *types.Note) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := noteIdentity.resolveUpdate(ctx, tx, note.LocalID, note.GUID)
		if err != nil {
			return err
		}

		restrictions, err := resolveNoteNotebook(ctx, tx, note)
		if err != nil {
			return err
		}

		if !restrictions.CanUpdateNotes() {
			return storageerrors.Errorf(
				storageerrors.ErrorCodeConstraint, "notebook %q restrictions forbid updating notes", note.NotebookLocalID,
			)
		}

		note.LocalID = localID

		return writeNote(ctx, tx, note)
	})
}

// FindNoteByLocalID implements localstorage.Storage interface.
func (s *storage) FindNoteByLocalID(ctx context.Context, localID string, opts *localstorage.FindNoteOptions) (*types.Note, error) { //nolint:lll // for readability
	var res *types.Note

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findNote(ctx, tx, "local id", "localUid = ?", localID, opts)

		return err
	})

	return res, err
}

// FindNoteByGUID implements localstorage.Storage interface.
func (s *storage) FindNoteByGUID(ctx context.Context, guid string, opts *localstorage.FindNoteOptions) (*types.Note, error) { //nolint:lll // for readability
	var res *types.Note

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findNote(ctx, tx, "guid", "guid = ?", guid, opts)

		return err
	})

	return res, err
}

// noteOrderColumn returns the sort column.
func noteOrderColumn(order localstorage.NoteOrder) string {
	switch order {
	case localstorage.NoteOrderByUpdateSequenceNumber:
		return "updateSequenceNumber"
	case localstorage.NoteOrderByTitle:
		return "titleNormalized"
	case localstorage.NoteOrderByCreationTimestamp:
		return "creationTimestamp"
	case localstorage.NoteOrderByModificationTimestamp:
		return "modificationTimestamp"
	case localstorage.NoteOrderByDeletionTimestamp:
		return "deletionTimestamp"
	case localstorage.NoteOrderByAuthor:
		return "author"
	case localstorage.NoteOrderBySource:
		return "source"
	case localstorage.NoteOrderBySourceApplication:
		return "sourceApplication"
	case localstorage.NoteOrderByReminderTime:
		return "reminderTime"
	case localstorage.NoteOrderByPlaceName:
		return "placeName"
	default:
		return ""
	}
}

// ListNotes implements localstorage.Storage interface.
func (s *storage) ListNotes(ctx context.Context, opts *localstorage.ListOptions[localstorage.NoteOrder], findOpts *localstorage.FindNoteOptions) ([]*types.Note, error) { //nolint:lll // for readability
	var res []*types.Note

	err := s.read(ctx, func(tx *fsql.Tx) error {
		lq := newListQuery("Notes", "localUid", noteFlags, noteOrderColumn(opts.Order), opts)

		if opts.NotebookLocalID != "" {
			lq.where = append(lq.where, "localNotebook = ?")
			lq.args = append(lq.args, opts.NotebookLocalID)
		}

		if opts.TagLocalID != "" {
			lq.where = append(lq.where, "localUid IN (SELECT localNote FROM NoteTags WHERE localTag = ?)")
			lq.args = append(lq.args, opts.TagLocalID)
		}

		ids, err := lq.keys(ctx, tx)
		if err != nil {
			return err
		}

		res, err = findNotes(ctx, tx, ids, findOpts)

		return err
	})

	return res, err
}

// findNotes returns notes with the given local ids.
func findNotes(ctx context.Context, tx *fsql.Tx, ids []string, opts *localstorage.FindNoteOptions) ([]*types.Note, error) {
	res := make([]*types.Note, 0, len(ids))

	for _, id := range ids {
		n, err := findNote(ctx, tx, "local id", "localUid = ?", id, opts)
		if err != nil {
			return nil, err
		}

		res = append(res, n)
	}

	return res, nil
}

// DeleteNote implements localstorage.Storage interface.
//
// The deletion timestamp is kept if it is already set.
func (s *storage) DeleteNote(ctx context.Context, localID string) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		n, err := exec(
			ctx, tx, "Notes/delete",
			"UPDATE Notes SET isActive = 0, deletionTimestamp = COALESCE(deletionTimestamp, ?) WHERE localUid = ?",
			time.Now().UnixMilli(), localID,
		)
		if err != nil {
			return err
		}

		if n == 0 {
			return notFound("note", "local id", localID)
		}

		return nil
	})
}

// ExpungeNote implements localstorage.Storage interface.
//
// Resources, tag associations and attributes are removed by foreign key actions.
func (s *storage) ExpungeNote(ctx context.Context, localID string) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		return noteIdentity.expunge(ctx, tx, "localUid", localID)
	})
}
