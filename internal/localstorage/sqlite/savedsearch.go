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

var savedSearchColumns = []string{
	"localUid", "guid", "updateSequenceNumber", "name", "nameLower", "query", "format",
	"includeAccount", "includePersonalLinkedNotebooks", "includeBusinessLinkedNotebooks",
	"isDirty", "isLocal", "isFavorited",
}

const savedSearchSelect = "SELECT localUid, guid, updateSequenceNumber, name, query, format, " +
	"includeAccount, includePersonalLinkedNotebooks, includeBusinessLinkedNotebooks, " +
	"isDirty, isLocal, isFavorited FROM SavedSearches"

var savedSearchFlags = &flagColumns{dirty: "isDirty", guid: "guid", local: "isLocal", favorited: "isFavorited"}

// writeSavedSearch upserts the saved search row.
func writeSavedSearch(ctx context.Context, tx *fsql.Tx, ss *types.SavedSearch) error {
	args := []any{
		ss.LocalID, arg(ss.GUID), arg(ss.UpdateSequenceNum), arg(ss.Name), arg(nameLower(ss.Name)),
		arg(ss.Query), arg(ss.Format),
		arg(ss.IncludeAccount), arg(ss.IncludePersonalLinkedNotebooks), arg(ss.IncludeBusinessLinkedNotebooks),
		boolArg(ss.Dirty), boolArg(ss.Local), boolArg(ss.Favorited),
	}

	_, err := exec(ctx, tx, "SavedSearches/upsert", upsert("SavedSearches", "localUid", savedSearchColumns), args...)

	return err
}

// findSavedSearch returns the saved search matching the condition, or NotFound error.
func findSavedSearch(ctx context.Context, tx *fsql.Tx, key, where string, value string) (*types.SavedSearch, error) {
	sid := "SavedSearches/find/" + key

	stmt, err := tx.Stmt(ctx, sid, savedSearchSelect+" WHERE "+where)
	if err != nil {
		return nil, sqlError(sid, err)
	}

	var ss types.SavedSearch

	err = stmt.QueryRowContext(ctx, value).Scan(
		&ss.LocalID, &ss.GUID, &ss.UpdateSequenceNum, &ss.Name, &ss.Query, &ss.Format,
		&ss.IncludeAccount, &ss.IncludePersonalLinkedNotebooks, &ss.IncludeBusinessLinkedNotebooks,
		&ss.Dirty, &ss.Local, &ss.Favorited,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound("saved search", key, value)
	case err != nil:
		return nil, sqlError(sid, err)
	default:
		return &ss, nil
	}
}

// CountSavedSearches implements localstorage.Storage interface.
func (s *storage) CountSavedSearches(ctx context.Context) (int, error) {
	var res int

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = count(ctx, tx, "SavedSearches/count", "SELECT COUNT(*) FROM SavedSearches")

		return err
	})

	return res, err
}

// AddSavedSearch implements localstorage.Storage interface.
func (s *storage) AddSavedSearch(ctx context.Context, savedSearch *types.SavedSearch) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := savedSearchIdentity.resolveAdd(ctx, tx, savedSearch.LocalID, savedSearch.GUID)
		if err != nil {
			return err
		}

		savedSearch.LocalID = localID

		return writeSavedSearch(ctx, tx, savedSearch)
	})
}

// UpdateSavedSearch implements localstorage.Storage interface.
func (s *storage) UpdateSavedSearch(ctx context.Context, savedSearch *types.SavedSearch) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := savedSearchIdentity.resolveUpdate(ctx, tx, savedSearch.LocalID, savedSearch.GUID)
		if err != nil {
			return err
		}

		savedSearch.LocalID = localID

		return writeSavedSearch(ctx, tx, savedSearch)
	})
}

// FindSavedSearchByLocalID implements localstorage.Storage interface.
func (s *storage) FindSavedSearchByLocalID(ctx context.Context, localID string) (*types.SavedSearch, error) {
	var res *types.SavedSearch

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findSavedSearch(ctx, tx, "local id", "localUid = ?", localID)

		return err
	})

	return res, err
}

// FindSavedSearchByGUID implements localstorage.Storage interface.
func (s *storage) FindSavedSearchByGUID(ctx context.Context, guid string) (*types.SavedSearch, error) {
	var res *types.SavedSearch

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findSavedSearch(ctx, tx, "guid", "guid = ?", guid)

		return err
	})

	return res, err
}

// FindSavedSearchByName implements localstorage.Storage interface.
func (s *storage) FindSavedSearchByName(ctx context.Context, name string) (*types.SavedSearch, error) {
	var res *types.SavedSearch

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findSavedSearch(ctx, tx, "name", "nameLower = ?", strings.ToLower(name))

		return err
	})

	return res, err
}

// savedSearchOrderColumn returns the sort column.
func savedSearchOrderColumn(order localstorage.SavedSearchOrder) string {
	switch order {
	case localstorage.SavedSearchOrderByUpdateSequenceNumber:
		return "updateSequenceNumber"
	case localstorage.SavedSearchOrderByName:
		return "nameLower"
	case localstorage.SavedSearchOrderByFormat:
		return "format"
	default:
		return ""
	}
}

// ListSavedSearches implements localstorage.Storage interface.
func (s *storage) ListSavedSearches(ctx context.Context, opts *localstorage.ListOptions[localstorage.SavedSearchOrder]) ([]*types.SavedSearch, error) { //nolint:lll // for readability
	var res []*types.SavedSearch

	err := s.read(ctx, func(tx *fsql.Tx) error {
		lq := newListQuery("SavedSearches", "localUid", savedSearchFlags, savedSearchOrderColumn(opts.Order), opts)

		ids, err := lq.keys(ctx, tx)
		if err != nil {
			return err
		}

		for _, id := range ids {
			ss, err := findSavedSearch(ctx, tx, "local id", "localUid = ?", id)
			if err != nil {
				return err
			}

			res = append(res, ss)
		}

		return nil
	})

	return res, err
}

// ExpungeSavedSearch implements localstorage.Storage interface.
func (s *storage) ExpungeSavedSearch(ctx context.Context, localID string) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		return savedSearchIdentity.expunge(ctx, tx, "localUid", localID)
	})
}
