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

	"github.com/google/uuid"

	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/util/fsql"
)

// identity resolves local ids and guids of entities stored in the table
// with "localUid" and "guid" columns.
type identity struct {
	entity string
	table  string
}

var (
	notebookIdentity       = &identity{entity: "notebook", table: "Notebooks"}
	linkedNotebookIdentity = &identity{entity: "linked notebook", table: "LinkedNotebooks"}
	noteIdentity           = &identity{entity: "note", table: "Notes"}
	tagIdentity            = &identity{entity: "tag", table: "Tags"}
	resourceIdentity       = &identity{entity: "resource", table: "Resources"}
	savedSearchIdentity    = &identity{entity: "saved search", table: "SavedSearches"}
)

// guidOf returns the guid of the row with the given local id.
// The first returned value is false if there is no such row.
func (id *identity) guidOf(ctx context.Context, tx *fsql.Tx, localID string) (bool, *string, error) {
	q := "SELECT guid FROM " + id.table + " WHERE localUid = ?"
	sid := id.table + "/guidOf"

	stmt, err := tx.Stmt(ctx, sid, q)
	if err != nil {
		return false, nil, sqlError(sid, err)
	}

	var guid *string

	err = stmt.QueryRowContext(ctx, localID).Scan(&guid)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil, nil
	case err != nil:
		return false, nil, sqlError(sid, err)
	default:
		return true, guid, nil
	}
}

// localIDOf returns the local id of the row with the given guid, or empty string if there is no such row.
func (id *identity) localIDOf(ctx context.Context, tx *fsql.Tx, guid string) (string, error) {
	q := "SELECT localUid FROM " + id.table + " WHERE guid = ?"
	sid := id.table + "/localIDOf"

	stmt, err := tx.Stmt(ctx, sid, q)
	if err != nil {
		return "", sqlError(sid, err)
	}

	var localID string

	err = stmt.QueryRowContext(ctx, guid).Scan(&localID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", sqlError(sid, err)
	default:
		return localID, nil
	}
}

// resolveAdd checks that neither the local id nor the guid are used
// and returns the local id for the new row, generating it if empty.
func (id *identity) resolveAdd(ctx context.Context, tx *fsql.Tx, localID string, guid *string) (string, error) {
	if localID != "" {
		exists, _, err := id.guidOf(ctx, tx, localID)
		if err != nil {
			return "", err
		}

		if exists {
			return "", storageerrors.Errorf(
				storageerrors.ErrorCodeAlreadyExists, "%s with local id %q already exists", id.entity, localID,
			)
		}
	}

	if guid != nil {
		existing, err := id.localIDOf(ctx, tx, *guid)
		if err != nil {
			return "", err
		}

		if existing != "" {
			return "", storageerrors.Errorf(
				storageerrors.ErrorCodeAlreadyExists, "%s with guid %q already exists", id.entity, *guid,
			)
		}
	}

	if localID == "" {
		localID = uuid.NewString()
	}

	return localID, nil
}

// resolveUpdate returns the local id of the existing row, looking it up by guid if the local id is empty.
//
// Once assigned, the guid can't be changed.
func (id *identity) resolveUpdate(ctx context.Context, tx *fsql.Tx, localID string, guid *string) (string, error) {
	if localID == "" {
		if guid == nil {
			return "", storageerrors.Errorf(
				storageerrors.ErrorCodeNotFound, "%s has neither local id nor guid", id.entity,
			)
		}

		existing, err := id.localIDOf(ctx, tx, *guid)
		if err != nil {
			return "", err
		}

		if existing == "" {
			return "", notFound(id.entity, "guid", *guid)
		}

		return existing, nil
	}

	exists, existingGUID, err := id.guidOf(ctx, tx, localID)
	if err != nil {
		return "", err
	}

	if !exists {
		return "", notFound(id.entity, "local id", localID)
	}

	if existingGUID != nil && (guid == nil || *guid != *existingGUID) {
		return "", storageerrors.Errorf(
			storageerrors.ErrorCodeValidation, "%s %q: guid %q can't be changed", id.entity, localID, *existingGUID,
		)
	}

	return localID, nil
}

// expunge permanently removes the row with the given value of the key column;
// dependent rows are removed by foreign key actions.
func (id *identity) expunge(ctx context.Context, tx *fsql.Tx, key, value string) error {
	sid := id.table + "/expunge/" + key
	q := "DELETE FROM " + id.table + " WHERE " + key + " = ?"

	n, err := exec(ctx, tx, sid, q, value)
	if err != nil {
		return err
	}

	if n == 0 {
		return notFound(id.entity, key, value)
	}

	return nil
}
