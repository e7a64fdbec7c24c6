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

var tagColumns = []string{
	"localUid", "guid", "linkedNotebookGuid", "updateSequenceNumber", "name", "nameLower",
	"parentGuid", "parentLocalUid", "isDirty", "isLocal", "isFavorited", "isDeleted",
}

const tagSelect = "SELECT localUid, guid, linkedNotebookGuid, updateSequenceNumber, name, " +
	"parentGuid, parentLocalUid, isDirty, isLocal, isFavorited, isDeleted FROM Tags"

var tagFlags = &flagColumns{dirty: "isDirty", guid: "guid", local: "isLocal", favorited: "isFavorited"}

// resolveParent fills the missing parent identifier from the parent row when it exists.
func resolveParent(ctx context.Context, tx *fsql.Tx, tag *types.Tag) error {
	switch {
	case tag.ParentLocalID != nil && tag.ParentGUID == nil:
		exists, guid, err := tagIdentity.guidOf(ctx, tx, *tag.ParentLocalID)
		if err != nil {
			return err
		}

		if !exists {
			return notFound("parent tag", "local id", *tag.ParentLocalID)
		}

		tag.ParentGUID = guid

	case tag.ParentLocalID == nil && tag.ParentGUID != nil:
		localID, err := tagIdentity.localIDOf(ctx, tx, *tag.ParentGUID)
		if err != nil {
			return err
		}

		// the parent could be not synchronized yet
		if localID != "" {
			tag.ParentLocalID = &localID
		}
	}

	return nil
}

// writeTag upserts the tag row.
func writeTag(ctx context.Context, tx *fsql.Tx, tag *types.Tag) error {
	if err := resolveParent(ctx, tx, tag); err != nil {
		return err
	}

	args := []any{
		tag.LocalID, arg(tag.GUID), arg(tag.LinkedNotebookGUID), arg(tag.UpdateSequenceNum),
		arg(tag.Name), arg(nameLower(tag.Name)), arg(tag.ParentGUID), arg(tag.ParentLocalID),
		boolArg(tag.Dirty), boolArg(tag.Local), boolArg(tag.Favorited), boolArg(tag.Deleted),
	}

	_, err := exec(ctx, tx, "Tags/upsert", upsert("Tags", "localUid", tagColumns), args...)

	return err
}

// findTag returns the tag matching the condition, or NotFound error.
func findTag(ctx context.Context, tx *fsql.Tx, key, where string, args ...any) (*types.Tag, error) {
	sid := "Tags/find/" + key

	stmt, err := tx.Stmt(ctx, sid, tagSelect+" WHERE "+where)
	if err != nil {
		return nil, sqlError(sid, err)
	}

	var tag types.Tag

	err = stmt.QueryRowContext(ctx, args...).Scan(
		&tag.LocalID, &tag.GUID, &tag.LinkedNotebookGUID, &tag.UpdateSequenceNum, &tag.Name,
		&tag.ParentGUID, &tag.ParentLocalID, &tag.Dirty, &tag.Local, &tag.Favorited, &tag.Deleted,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound("tag", key, args[0])
	case err != nil:
		return nil, sqlError(sid, err)
	default:
		return &tag, nil
	}
}

// CountTags implements localstorage.Storage interface.
func (s *storage) CountTags(ctx context.Context) (int, error) {
	var res int

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = count(ctx, tx, "Tags/count", "SELECT COUNT(*) FROM Tags WHERE isDeleted = 0")

		return err
	})

	return res, err
}

// AddTag implements localstorage.Storage interface.
func (s *storage) AddTag(ctx context.Context, tag *types.Tag) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := tagIdentity.resolveAdd(ctx, tx, tag.LocalID, tag.GUID)
		if err != nil {
			return err
		}

		tag.LocalID = localID

		return writeTag(ctx, tx, tag)
	})
}

// UpdateTag implements localstorage.Storage interface.
func (s *storage) UpdateTag(ctx context.Context, tag *types.Tag) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := tagIdentity.resolveUpdate(ctx, tx, tag.LocalID, tag.GUID)
		if err != nil {
			return err
		}

		tag.LocalID = localID

		return writeTag(ctx, tx, tag)
	})
}

// FindTagByLocalID implements localstorage.Storage interface.
func (s *storage) FindTagByLocalID(ctx context.Context, localID string) (*types.Tag, error) {
	var res *types.Tag

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findTag(ctx, tx, "local id", "localUid = ?", localID)

		return err
	})

	return res, err
}

// FindTagByGUID implements localstorage.Storage interface.
func (s *storage) FindTagByGUID(ctx context.Context, guid string) (*types.Tag, error) {
	var res *types.Tag

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findTag(ctx, tx, "guid", "guid = ?", guid)

		return err
	})

	return res, err
}

// FindTagByName implements localstorage.Storage interface.
func (s *storage) FindTagByName(ctx context.Context, name string, linkedNotebookGUID *string) (*types.Tag, error) {
	var res *types.Tag

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findTag(
			ctx, tx, "name", "nameLower = ? AND COALESCE(linkedNotebookGuid, '') = ?",
			strings.ToLower(name), scope(linkedNotebookGUID),
		)

		return err
	})

	return res, err
}

// tagOrderColumn returns the sort column.
func tagOrderColumn(order localstorage.TagOrder) string {
	switch order {
	case localstorage.TagOrderByUpdateSequenceNumber:
		return "updateSequenceNumber"
	case localstorage.TagOrderByName:
		return "nameLower"
	default:
		return ""
	}
}

// ListTags implements localstorage.Storage interface.
func (s *storage) ListTags(ctx context.Context, opts *localstorage.ListOptions[localstorage.TagOrder]) ([]*types.Tag, error) {
	var res []*types.Tag

	err := s.read(ctx, func(tx *fsql.Tx) error {
		lq := newListQuery("Tags", "localUid", tagFlags, tagOrderColumn(opts.Order), opts)
		lq.where, lq.args = linkedNotebookCondition(opts.LinkedNotebookGUID, lq.where, lq.args)

		if opts.NoteLocalID != "" {
			lq.where = append(lq.where, "localUid IN (SELECT localTag FROM NoteTags WHERE localNote = ?)")
			lq.args = append(lq.args, opts.NoteLocalID)
		}

		ids, err := lq.keys(ctx, tx)
		if err != nil {
			return err
		}

		for _, id := range ids {
			tag, err := findTag(ctx, tx, "local id", "localUid = ?", id)
			if err != nil {
				return err
			}

			res = append(res, tag)
		}

		return nil
	})

	return res, err
}

// DeleteTag implements localstorage.Storage interface.
func (s *storage) DeleteTag(ctx context.Context, localID string) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		n, err := exec(ctx, tx, "Tags/delete", "UPDATE Tags SET isDeleted = 1 WHERE localUid = ?", localID)
		if err != nil {
			return err
		}

		if n == 0 {
			return notFound("tag", "local id", localID)
		}

		return nil
	})
}

// ExpungeTag implements localstorage.Storage interface.
//
// Child tags and note associations are removed by foreign key actions.
func (s *storage) ExpungeTag(ctx context.Context, localID string) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		return tagIdentity.expunge(ctx, tx, "localUid", localID)
	})
}
