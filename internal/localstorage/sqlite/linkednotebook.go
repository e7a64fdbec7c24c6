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

var linkedNotebookColumns = []string{
	"localUid", "guid", "updateSequenceNumber", "shareName", "username", "shardId", "sharedNotebookGlobalId",
	"uri", "noteStoreUrl", "webApiUrlPrefix", "stack", "businessId", "isDirty",
}

var linkedNotebookFlags = &flagColumns{dirty: "isDirty", guid: "guid"}

// findLinkedNotebook returns the linked notebook with the given guid, or NotFound error.
func findLinkedNotebook(ctx context.Context, tx *fsql.Tx, guid string) (*types.LinkedNotebook, error) {
	const sid = "LinkedNotebooks/find"

	stmt, err := tx.Stmt(ctx, sid, "SELECT "+strings.Join(linkedNotebookColumns, ", ")+" FROM LinkedNotebooks WHERE guid = ?")
	if err != nil {
		return nil, sqlError(sid, err)
	}

	var ln types.LinkedNotebook

	err = stmt.QueryRowContext(ctx, guid).Scan(
		&ln.LocalID, &ln.GUID, &ln.UpdateSequenceNum, &ln.ShareName, &ln.Username, &ln.ShardID,
		&ln.SharedNotebookGlobalID, &ln.URI, &ln.NoteStoreURL, &ln.WebAPIURLPrefix, &ln.Stack, &ln.BusinessID,
		&ln.Dirty,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound("linked notebook", "guid", guid)
	case err != nil:
		return nil, sqlError(sid, err)
	default:
		return &ln, nil
	}
}

// writeLinkedNotebook upserts the linked notebook row.
func writeLinkedNotebook(ctx context.Context, tx *fsql.Tx, ln *types.LinkedNotebook) error {
	args := []any{
		ln.LocalID, arg(ln.GUID), arg(ln.UpdateSequenceNum), arg(ln.ShareName), arg(ln.Username), arg(ln.ShardID),
		arg(ln.SharedNotebookGlobalID), arg(ln.URI), arg(ln.NoteStoreURL), arg(ln.WebAPIURLPrefix), arg(ln.Stack),
		arg(ln.BusinessID), boolArg(ln.Dirty),
	}

	_, err := exec(ctx, tx, "LinkedNotebooks/upsert", upsert("LinkedNotebooks", "localUid", linkedNotebookColumns), args...)

	return err
}

// CountLinkedNotebooks implements localstorage.Storage interface.
func (s *storage) CountLinkedNotebooks(ctx context.Context) (int, error) {
	var res int

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = count(ctx, tx, "LinkedNotebooks/count", "SELECT COUNT(*) FROM LinkedNotebooks")

		return err
	})

	return res, err
}

// AddLinkedNotebook implements localstorage.Storage interface.
func (s *storage) AddLinkedNotebook(ctx context.Context, linkedNotebook *types.LinkedNotebook) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := linkedNotebookIdentity.resolveAdd(ctx, tx, linkedNotebook.LocalID, linkedNotebook.GUID)
		if err != nil {
			return err
		}

		linkedNotebook.LocalID = localID

		return writeLinkedNotebook(ctx, tx, linkedNotebook)
	})
}

// UpdateLinkedNotebook implements localstorage.Storage interface.
func (s *storage) UpdateLinkedNotebook(ctx context.Context, linkedNotebook *types.LinkedNotebook) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := linkedNotebookIdentity.resolveUpdate(ctx, tx, linkedNotebook.LocalID, linkedNotebook.GUID)
		if err != nil {
			return err
		}

		linkedNotebook.LocalID = localID

		return writeLinkedNotebook(ctx, tx, linkedNotebook)
	})
}

// FindLinkedNotebook implements localstorage.Storage interface.
func (s *storage) FindLinkedNotebook(ctx context.Context, guid string) (*types.LinkedNotebook, error) {
	var res *types.LinkedNotebook

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findLinkedNotebook(ctx, tx, guid)

		return err
	})

	return res, err
}

// linkedNotebookOrderColumn returns the sort column.
func linkedNotebookOrderColumn(order localstorage.LinkedNotebookOrder) string {
	switch order {
	case localstorage.LinkedNotebookOrderByUpdateSequenceNumber:
		return "updateSequenceNumber"
	case localstorage.LinkedNotebookOrderByShareName:
		return "shareName"
	case localstorage.LinkedNotebookOrderByUsername:
		return "username"
	default:
		return ""
	}
}

// ListLinkedNotebooks implements localstorage.Storage interface.
func (s *storage) ListLinkedNotebooks(ctx context.Context, opts *localstorage.ListOptions[localstorage.LinkedNotebookOrder]) ([]*types.LinkedNotebook, error) { //nolint:lll // for readability
	var res []*types.LinkedNotebook

	err := s.read(ctx, func(tx *fsql.Tx) error {
		lq := newListQuery("LinkedNotebooks", "guid", linkedNotebookFlags, linkedNotebookOrderColumn(opts.Order), opts)

		guids, err := lq.keys(ctx, tx)
		if err != nil {
			return err
		}

		for _, guid := range guids {
			ln, err := findLinkedNotebook(ctx, tx, guid)
			if err != nil {
				return err
			}

			res = append(res, ln)
		}

		return nil
	})

	return res, err
}

// ExpungeLinkedNotebook implements localstorage.Storage interface.
//
// Notebooks and tags of the linked notebook are removed by foreign key actions.
func (s *storage) ExpungeLinkedNotebook(ctx context.Context, guid string) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		return linkedNotebookIdentity.expunge(ctx, tx, "guid", guid)
	})
}
