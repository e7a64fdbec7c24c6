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

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/fsql"
)

// clearRows removes all rows of the side table owned by the given entity.
func clearRows(ctx context.Context, tx *fsql.Tx, table, owner string, ownerID any) error {
	_, err := exec(ctx, tx, table+"/clear", "DELETE FROM "+table+" WHERE "+owner+" = ?", ownerID)
	return err
}

// mapTable stores map[string]string attribute.
type mapTable struct {
	table string
	owner string
}

// write replaces stored map with the given one.
func (t *mapTable) write(ctx context.Context, tx *fsql.Tx, ownerID string, m map[string]string) error {
	if err := clearRows(ctx, tx, t.table, t.owner, ownerID); err != nil {
		return err
	}

	keys := maps.Keys(m)
	slices.Sort(keys)

	q := "INSERT INTO " + t.table + "(" + t.owner + ", key, value) VALUES (?, ?, ?)"

	for _, k := range keys {
		if _, err := exec(ctx, tx, t.table+"/insert", q, ownerID, k, m[k]); err != nil {
			return err
		}
	}

	return nil
}

// read returns stored map, or nil if it is empty.
func (t *mapTable) read(ctx context.Context, tx *fsql.Tx, ownerID string) (map[string]string, error) {
	sid := t.table + "/select"

	stmt, err := tx.Stmt(ctx, sid, "SELECT key, value FROM "+t.table+" WHERE "+t.owner+" = ?")
	if err != nil {
		return nil, sqlError(sid, err)
	}

	rows, err := stmt.QueryContext(ctx, ownerID)
	if err != nil {
		return nil, sqlError(sid, err)
	}
	defer rows.Close()

	var res map[string]string

	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, sqlError(sid, err)
		}

		if res == nil {
			res = make(map[string]string)
		}

		res[k] = v
	}

	if err = rows.Err(); err != nil {
		return nil, sqlError(sid, err)
	}

	return res, nil
}

// lazyMapTables store [types.LazyMap] attribute in a pair of tables.
type lazyMapTables struct {
	keysOnly string
	fullMap  *mapTable
}

// newLazyMapTables returns tables with the given prefix.
func newLazyMapTables(prefix, owner string) *lazyMapTables {
	return &lazyMapTables{
		keysOnly: prefix + "KeysOnly",
		fullMap:  &mapTable{table: prefix + "FullMap", owner: owner},
	}
}

var (
	noteApplicationData     = newLazyMapTables("NoteApplicationData", "localNote")
	resourceApplicationData = newLazyMapTables("ResourceApplicationData", "localResource")
	noteClassifications     = &mapTable{table: "NoteClassifications", owner: "localNote"}
)

// write replaces stored lazy map with the given one; nil m clears it.
func (t *lazyMapTables) write(ctx context.Context, tx *fsql.Tx, ownerID string, m *types.LazyMap) error {
	owner := t.fullMap.owner

	if err := clearRows(ctx, tx, t.keysOnly, owner, ownerID); err != nil {
		return err
	}

	var keysOnly []string
	var fullMap map[string]string

	if m != nil {
		keysOnly, fullMap = m.KeysOnly, m.FullMap
	}

	q := "INSERT INTO " + t.keysOnly + "(" + owner + ", key) VALUES (?, ?)"

	for _, k := range keysOnly {
		if _, err := exec(ctx, tx, t.keysOnly+"/insert", q, ownerID, k); err != nil {
			return err
		}
	}

	return t.fullMap.write(ctx, tx, ownerID, fullMap)
}

// read returns stored lazy map, or nil if it is empty.
func (t *lazyMapTables) read(ctx context.Context, tx *fsql.Tx, ownerID string) (*types.LazyMap, error) {
	sid := t.keysOnly + "/select"

	stmt, err := tx.Stmt(ctx, sid, "SELECT key FROM "+t.keysOnly+" WHERE "+t.fullMap.owner+" = ? ORDER BY rowid")
	if err != nil {
		return nil, sqlError(sid, err)
	}

	keysOnly, err := queryStrings(ctx, stmt, sid, ownerID)
	if err != nil {
		return nil, err
	}

	fullMap, err := t.fullMap.read(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	if keysOnly == nil && fullMap == nil {
		return nil, nil
	}

	return &types.LazyMap{
		KeysOnly: keysOnly,
		FullMap:  fullMap,
	}, nil
}

// listTable stores ordered []string attribute of the user.
type listTable struct {
	table string
}

var (
	userViewedPromotions      = &listTable{table: "UserViewedPromotions"}
	userRecentMailedAddresses = &listTable{table: "UserRecentMailedAddresses"}
)

// write replaces stored list with the given one.
func (t *listTable) write(ctx context.Context, tx *fsql.Tx, id int32, values []string) error {
	if err := clearRows(ctx, tx, t.table, "id", int64(id)); err != nil {
		return err
	}

	q := "INSERT INTO " + t.table + "(id, indexInList, value) VALUES (?, ?, ?)"

	for i, v := range values {
		if _, err := exec(ctx, tx, t.table+"/insert", q, int64(id), int64(i), v); err != nil {
			return err
		}
	}

	return nil
}

// read returns stored list, or nil if it is empty.
func (t *listTable) read(ctx context.Context, tx *fsql.Tx, id int32) ([]string, error) {
	sid := t.table + "/select"

	stmt, err := tx.Stmt(ctx, sid, "SELECT value FROM "+t.table+" WHERE id = ? ORDER BY indexInList")
	if err != nil {
		return nil, sqlError(sid, err)
	}

	return queryStrings(ctx, stmt, sid, int64(id))
}

// queryStrings returns values of the only column of the statement result.
func queryStrings(ctx context.Context, stmt *fsql.Stmt, sid string, args ...any) ([]string, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, sqlError(sid, err)
	}
	defer rows.Close()

	var res []string

	for rows.Next() {
		var v string
		if err = rows.Scan(&v); err != nil {
			return nil, sqlError(sid, err)
		}

		res = append(res, v)
	}

	if err = rows.Err(); err != nil {
		return nil, sqlError(sid, err)
	}

	return res, nil
}
