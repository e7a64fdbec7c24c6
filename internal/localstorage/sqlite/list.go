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
	"strings"

	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/util/fsql"
)

// flagColumns are columns filtered by list flags; empty column disables filtering on that axis.
type flagColumns struct {
	dirty     string
	guid      string
	local     string
	favorited string
}

// flagConditions returns WHERE conditions for the given list flags.
//
// When both flags of a pair are set, or none of them, that axis is not filtered.
func flagConditions(flags localstorage.ListFlags, cols *flagColumns) []string {
	if flags.Has(localstorage.ListAll) {
		return nil
	}

	var res []string

	pair := func(col string, pos, neg localstorage.ListFlags, posCond, negCond string) {
		if col == "" {
			return
		}

		p, n := flags.Has(pos), flags.Has(neg)
		switch {
		case p && !n:
			res = append(res, col+posCond)
		case n && !p:
			res = append(res, col+negCond)
		}
	}

	pair(cols.dirty, localstorage.ListDirty, localstorage.ListNonDirty, " = 1", " = 0")
	pair(cols.guid, localstorage.ListElementsWithGUID, localstorage.ListElementsWithoutGUID, " IS NOT NULL", " IS NULL")
	pair(cols.local, localstorage.ListLocal, localstorage.ListNonLocal, " = 1", " = 0")
	pair(cols.favorited, localstorage.ListFavorited, localstorage.ListNonFavorited, " = 1", " = 0")

	return res
}

// linkedNotebookCondition narrows notebooks and tags to the linked notebook scope.
func linkedNotebookCondition(guid *string, where []string, args []any) ([]string, []any) {
	switch {
	case guid == nil:
	case *guid == "":
		where = append(where, "linkedNotebookGuid IS NULL")
	default:
		where = append(where, "linkedNotebookGuid = ?")
		args = append(args, *guid)
	}

	return where, args
}

// listQuery represents a query returning keys of listed rows.
type listQuery struct {
	table string
	key   string
	cols  *flagColumns
	order string // empty for insertion order
	where []string
	args  []any

	flags  localstorage.ListFlags
	desc   bool
	limit  int
	offset int
}

// newListQuery creates a new list query for the given options.
func newListQuery[O localstorage.Order](table, key string, flags *flagColumns, order string, opts *localstorage.ListOptions[O]) *listQuery { //nolint:lll // for readability
	return &listQuery{
		table:  table,
		key:    key,
		cols:   flags,
		order:  order,
		flags:  opts.Flags,
		desc:   opts.Direction == localstorage.Descending,
		limit:  opts.Limit,
		offset: opts.Offset,
	}
}

// sql returns the query text and arguments.
func (lq *listQuery) sql() (string, []any) {
	where := append(flagConditions(lq.flags, lq.cols), lq.where...)
	args := append([]any{}, lq.args...)

	var b strings.Builder
	b.WriteString("SELECT " + lq.key + " FROM " + lq.table)

	if len(where) > 0 {
		b.WriteString(" WHERE (" + strings.Join(where, ") AND (") + ")")
	}

	order := lq.order
	if order == "" {
		order = "rowid"
	}

	b.WriteString(" ORDER BY " + order)

	if lq.desc {
		b.WriteString(" DESC")
	}

	if lq.order != "" {
		// stable order for equal values
		b.WriteString(", rowid")
	}

	if lq.limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, int64(lq.limit), int64(lq.offset))
	}

	return b.String(), args
}

// keys runs the query and returns keys of listed rows.
func (lq *listQuery) keys(ctx context.Context, tx *fsql.Tx) ([]string, error) {
	q, args := lq.sql()

	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, sqlError(lq.table+"/list", err)
	}
	defer rows.Close()

	var res []string

	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, sqlError(lq.table+"/list", err)
		}

		res = append(res, key)
	}

	if err = rows.Err(); err != nil {
		return nil, sqlError(lq.table+"/list", err)
	}

	return res, nil
}
