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

	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/fsql"
)

var notebookWriteColumns = []string{
	"localUid", "guid", "linkedNotebookGuid", "updateSequenceNumber", "name", "nameLower", "isDefault",
	"creationTimestamp", "modificationTimestamp", "isPublished", "stack",
	"publishingUri", "publishingNoteSortOrder", "publishingAscendingSort", "publicDescription",
	"businessNotebookDescription", "businessNotebookPrivilegeLevel", "businessNotebookIsRecommended",
	"isDirty", "isLocal", "isFavorited",
}

const notebookSelect = "SELECT localUid, guid, linkedNotebookGuid, updateSequenceNumber, name, isDefault, " +
	"creationTimestamp, modificationTimestamp, isPublished, stack, " +
	"publishingUri, publishingNoteSortOrder, publishingAscendingSort, publicDescription, " +
	"businessNotebookDescription, businessNotebookPrivilegeLevel, businessNotebookIsRecommended, " +
	"isDirty, isLocal, isFavorited FROM Notebooks"

var restrictionsColumns = []string{
	"localNotebook",
	"noReadNotes", "noCreateNotes", "noUpdateNotes", "noExpungeNotes", "noShareNotes", "noEmailNotes",
	"noSendMessageToRecipients", "noUpdateNotebook", "noExpungeNotebook", "noSetDefaultNotebook",
	"noSetNotebookStack", "noPublishToPublic", "noPublishToBusinessLibrary", "noCreateTags", "noUpdateTags",
	"noExpungeTags", "noSetParentTag", "noCreateSharedNotebooks",
	"updateWhichSharedNotebookRestrictions", "expungeWhichSharedNotebookRestrictions",
}

var sharedNotebookColumns = []string{
	"localNotebook", "indexInNotebook",
	"shareId", "userId", "notebookGuid", "email", "privilegeLevel", "creationTimestamp", "modificationTimestamp",
	"globalId", "username", "sharerUserId", "recipientReminderNotifyEmail", "recipientReminderNotifyInApp",
}

var notebookFlags = &flagColumns{dirty: "isDirty", guid: "guid", local: "isLocal", favorited: "isFavorited"}

// nameLower returns the lower-cased name used for case-insensitive lookups.
func nameLower(name *string) *string {
	if name == nil {
		return nil
	}

	res := strings.ToLower(*name)

	return &res
}

// scope returns linked notebook guid as stored in the natural key index.
func scope(linkedNotebookGUID *string) string {
	if linkedNotebookGUID == nil {
		return ""
	}

	return *linkedNotebookGUID
}

// writeNotebook upserts the notebook row and rewrites its side tables.
func writeNotebook(ctx context.Context, tx *fsql.Tx, nb *types.Notebook) error {
	var p types.Publishing
	if nb.Publishing != nil {
		p = *nb.Publishing
	}

	var b types.BusinessNotebook
	if nb.BusinessNotebook != nil {
		b = *nb.BusinessNotebook
	}

	args := []any{
		nb.LocalID, arg(nb.GUID), arg(nb.LinkedNotebookGUID), arg(nb.UpdateSequenceNum),
		arg(nb.Name), arg(nameLower(nb.Name)), arg(nb.DefaultNotebook),
		arg(nb.Created), arg(nb.Updated), arg(nb.Published), arg(nb.Stack),
		arg(p.URI), arg(p.Order), arg(p.Ascending), arg(p.PublicDescription),
		arg(b.Description), arg(b.Privilege), arg(b.Recommended),
		boolArg(nb.Dirty), boolArg(nb.Local), boolArg(nb.Favorited),
	}

	if _, err := exec(ctx, tx, "Notebooks/upsert", upsert("Notebooks", "localUid", notebookWriteColumns), args...); err != nil {
		return err
	}

	if err := clearRows(ctx, tx, "NotebookRestrictions", "localNotebook", nb.LocalID); err != nil {
		return err
	}

	if r := nb.Restrictions; r != nil {
		args = []any{
			nb.LocalID,
			arg(r.NoReadNotes), arg(r.NoCreateNotes), arg(r.NoUpdateNotes), arg(r.NoExpungeNotes),
			arg(r.NoShareNotes), arg(r.NoEmailNotes), arg(r.NoSendMessageToRecipients), arg(r.NoUpdateNotebook),
			arg(r.NoExpungeNotebook), arg(r.NoSetDefaultNotebook), arg(r.NoSetNotebookStack),
			arg(r.NoPublishToPublic), arg(r.NoPublishToBusinessLibrary), arg(r.NoCreateTags),
			arg(r.NoUpdateTags), arg(r.NoExpungeTags), arg(r.NoSetParentTag), arg(r.NoCreateSharedNotebooks),
			arg(r.UpdateWhichSharedNotebookRestrictions), arg(r.ExpungeWhichSharedNotebookRestrictions),
		}

		if _, err := exec(ctx, tx, "NotebookRestrictions/insert", insert("NotebookRestrictions", restrictionsColumns), args...); err != nil {
			return err
		}
	}

	if err := clearRows(ctx, tx, "SharedNotebooks", "localNotebook", nb.LocalID); err != nil {
		return err
	}

	for i, sn := range nb.SharedNotebooks {
		args = []any{
			nb.LocalID, int64(i),
			arg(sn.ID), arg(sn.UserID), arg(sn.NotebookGUID), arg(sn.Email), arg(sn.Privilege),
			arg(sn.Created), arg(sn.Updated), arg(sn.GlobalID), arg(sn.Username), arg(sn.SharerUserID),
			arg(sn.RecipientReminderNotifyEmail), arg(sn.RecipientReminderNotifyInApp),
		}

		if _, err := exec(ctx, tx, "SharedNotebooks/insert", insert("SharedNotebooks", sharedNotebookColumns), args...); err != nil {
			return err
		}
	}

	return nil
}

// scanNotebook scans the main notebook row selected by notebookSelect.
func scanNotebook(row rowScanner) (*types.Notebook, error) {
	var nb types.Notebook
	var p types.Publishing
	var b types.BusinessNotebook

	err := row.Scan(
		&nb.LocalID, &nb.GUID, &nb.LinkedNotebookGUID, &nb.UpdateSequenceNum, &nb.Name, &nb.DefaultNotebook,
		&nb.Created, &nb.Updated, &nb.Published, &nb.Stack,
		&p.URI, &p.Order, &p.Ascending, &p.PublicDescription,
		&b.Description, &b.Privilege, &b.Recommended,
		&nb.Dirty, &nb.Local, &nb.Favorited,
	)
	if err != nil {
		return nil, err
	}

	if anyNotNil(p.URI, p.Order, p.Ascending, p.PublicDescription) {
		nb.Publishing = &p
	}

	if anyNotNil(b.Description, b.Privilege, b.Recommended) {
		nb.BusinessNotebook = &b
	}

	return &nb, nil
}

// readRestrictions returns notebook restrictions, or nil if there are none.
func readRestrictions(ctx context.Context, tx *fsql.Tx, localID string) (*types.NotebookRestrictions, error) {
	const sid = "NotebookRestrictions/select"

	q := "SELECT " + strings.Join(restrictionsColumns[1:], ", ") + " FROM NotebookRestrictions WHERE localNotebook = ?"

	stmt, err := tx.Stmt(ctx, sid, q)
	if err != nil {
		return nil, sqlError(sid, err)
	}

	var r types.NotebookRestrictions

	err = stmt.QueryRowContext(ctx, localID).Scan(
		&r.NoReadNotes, &r.NoCreateNotes, &r.NoUpdateNotes, &r.NoExpungeNotes,
		&r.NoShareNotes, &r.NoEmailNotes, &r.NoSendMessageToRecipients, &r.NoUpdateNotebook,
		&r.NoExpungeNotebook, &r.NoSetDefaultNotebook, &r.NoSetNotebookStack,
		&r.NoPublishToPublic, &r.NoPublishToBusinessLibrary, &r.NoCreateTags,
		&r.NoUpdateTags, &r.NoExpungeTags, &r.NoSetParentTag, &r.NoCreateSharedNotebooks,
		&r.UpdateWhichSharedNotebookRestrictions, &r.ExpungeWhichSharedNotebookRestrictions,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, sqlError(sid, err)
	default:
		return &r, nil
	}
}

// readSharedNotebooks returns shared notebooks in the stored order.
func readSharedNotebooks(ctx context.Context, tx *fsql.Tx, localID string) ([]types.SharedNotebook, error) {
	const sid = "SharedNotebooks/select"

	q := "SELECT " + strings.Join(sharedNotebookColumns[2:], ", ") +
		" FROM SharedNotebooks WHERE localNotebook = ? ORDER BY indexInNotebook"

	stmt, err := tx.Stmt(ctx, sid, q)
	if err != nil {
		return nil, sqlError(sid, err)
	}

	rows, err := stmt.QueryContext(ctx, localID)
	if err != nil {
		return nil, sqlError(sid, err)
	}
	defer rows.Close()

	var res []types.SharedNotebook

	for rows.Next() {
		var sn types.SharedNotebook

		err = rows.Scan(
			&sn.ID, &sn.UserID, &sn.NotebookGUID, &sn.Email, &sn.Privilege, &sn.Created, &sn.Updated,
			&sn.GlobalID, &sn.Username, &sn.SharerUserID, &sn.RecipientReminderNotifyEmail, &sn.RecipientReminderNotifyInApp,
		)
		if err != nil {
			return nil, sqlError(sid, err)
		}

		res = append(res, sn)
	}

	if err = rows.Err(); err != nil {
		return nil, sqlError(sid, err)
	}

	return res, nil
}

// findNotebook returns the notebook matching the condition with side tables, or NotFound error.
func findNotebook(ctx context.Context, tx *fsql.Tx, key, where string, args ...any) (*types.Notebook, error) {
	sid := "Notebooks/find/" + key

	stmt, err := tx.Stmt(ctx, sid, notebookSelect+" WHERE "+where)
	if err != nil {
		return nil, sqlError(sid, err)
	}

	nb, err := scanNotebook(stmt.QueryRowContext(ctx, args...))

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound("notebook", key, args[0])
	case err != nil:
		return nil, sqlError(sid, err)
	}

	if nb.Restrictions, err = readRestrictions(ctx, tx, nb.LocalID); err != nil {
		return nil, err
	}

	if nb.SharedNotebooks, err = readSharedNotebooks(ctx, tx, nb.LocalID); err != nil {
		return nil, err
	}

	return nb, nil
}

// CountNotebooks implements localstorage.Storage interface.
func (s *storage) CountNotebooks(ctx context.Context) (int, error) {
	var res int

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = count(ctx, tx, "Notebooks/count", "SELECT COUNT(*) FROM Notebooks")

		return err
	})

	return res, err
}

// AddNotebook implements localstorage.Storage interface.
func (s *storage) AddNotebook(ctx context.Context, notebook *types.Notebook) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := notebookIdentity.resolveAdd(ctx, tx, notebook.LocalID, notebook.GUID)
		if err != nil {
			return err
		}

		notebook.LocalID = localID

		return writeNotebook(ctx, tx, notebook)
	})
}

// UpdateNotebook implements localstorage.Storage interface.
func (s *storage) UpdateNotebook(ctx context.Context, notebook *types.Notebook) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := notebookIdentity.resolveUpdate(ctx, tx, notebook.LocalID, notebook.GUID)
		if err != nil {
			return err
		}

		notebook.LocalID = localID

		return writeNotebook(ctx, tx, notebook)
	})
}

// FindNotebookByLocalID implements localstorage.Storage interface.
func (s *storage) FindNotebookByLocalID(ctx context.Context, localID string) (*types.Notebook, error) {
	var res *types.Notebook

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findNotebook(ctx, tx, "local id", "localUid = ?", localID)

		return err
	})

	return res, err
}

// FindNotebookByGUID implements localstorage.Storage interface.
func (s *storage) FindNotebookByGUID(ctx context.Context, guid string) (*types.Notebook, error) {
	var res *types.Notebook

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findNotebook(ctx, tx, "guid", "guid = ?", guid)

		return err
	})

	return res, err
}

// FindNotebookByName implements localstorage.Storage interface.
func (s *storage) FindNotebookByName(ctx context.Context, name string, linkedNotebookGUID *string) (*types.Notebook, error) { //nolint:lll // for readability
	var res *types.Notebook

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findNotebook(
			ctx, tx, "name", "nameLower = ? AND COALESCE(linkedNotebookGuid, '') = ?",
			strings.ToLower(name), scope(linkedNotebookGUID),
		)

		return err
	})

	return res, err
}

// FindDefaultNotebook implements localstorage.Storage interface.
func (s *storage) FindDefaultNotebook(ctx context.Context) (*types.Notebook, error) {
	var res *types.Notebook

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findNotebook(ctx, tx, "default flag", "isDefault = ?", int64(1))

		return err
	})

	return res, err
}

// notebookOrderColumn returns the sort column.
func notebookOrderColumn(order localstorage.NotebookOrder) string {
	switch order {
	case localstorage.NotebookOrderByUpdateSequenceNumber:
		return "updateSequenceNumber"
	case localstorage.NotebookOrderByName:
		return "nameLower"
	case localstorage.NotebookOrderByCreationTimestamp:
		return "creationTimestamp"
	case localstorage.NotebookOrderByModificationTimestamp:
		return "modificationTimestamp"
	default:
		return ""
	}
}

// ListNotebooks implements localstorage.Storage interface.
func (s *storage) ListNotebooks(ctx context.Context, opts *localstorage.ListOptions[localstorage.NotebookOrder]) ([]*types.Notebook, error) { //nolint:lll // for readability
	var res []*types.Notebook

	err := s.read(ctx, func(tx *fsql.Tx) error {
		lq := newListQuery("Notebooks", "localUid", notebookFlags, notebookOrderColumn(opts.Order), opts)
		lq.where, lq.args = linkedNotebookCondition(opts.LinkedNotebookGUID, lq.where, lq.args)

		ids, err := lq.keys(ctx, tx)
		if err != nil {
			return err
		}

		for _, id := range ids {
			nb, err := findNotebook(ctx, tx, "local id", "localUid = ?", id)
			if err != nil {
				return err
			}

			res = append(res, nb)
		}

		return nil
	})

	return res, err
}

// ExpungeNotebook implements localstorage.Storage interface.
func (s *storage) ExpungeNotebook(ctx context.Context, localID string) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		return notebookIdentity.expunge(ctx, tx, "localUid", localID)
	})
}
