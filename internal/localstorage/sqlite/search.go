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
	"unicode"

	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/search"
	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/fsql"
)

// resolver implements search.Resolver within a transaction.
type resolver struct {
	tx *fsql.Tx
}

// check interfaces
var _ search.Resolver = (*resolver)(nil)

// nameLookup describes how names of some entity are resolved.
type nameLookup struct {
	id     string // statement id prefix
	table  string
	column string // lower-cased name column
	fts    string
}

var (
	notebookNames = &nameLookup{id: "Notebooks/resolve", table: "Notebooks", column: "nameLower", fts: "NotebookFTS"}
	tagNames      = &nameLookup{id: "Tags/resolve", table: "Tags", column: "nameLower", fts: "TagFTS"}
	mimeNames     = &nameLookup{id: "Resources/resolve", table: "Resources", column: "mime", fts: "ResourceMimeFTS"}
)

// useEquality returns true if the name can't be matched with full-text search.
func useEquality(name string) bool {
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return true
	}

	return strings.IndexFunc(name, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) < 0
}

// lookup returns local ids and lower-cased names of rows matching the lower-cased name.
func (nl *nameLookup) lookup(ctx context.Context, tx *fsql.Tx, name string) ([]string, []string, error) {
	var sid, q, a string

	switch {
	case useEquality(name) && strings.Contains(name, "*"):
		sid = nl.id + "/like"
		q = "SELECT localUid, " + nl.column + " FROM " + nl.table + " WHERE " + nl.column + ` LIKE ? ESCAPE '\' ORDER BY rowid`
		a = search.LikePattern(name)
	case useEquality(name):
		sid = nl.id + "/equal"
		q = "SELECT localUid, " + nl.column + " FROM " + nl.table + " WHERE " + nl.column + " = ? ORDER BY rowid"
		a = name
	default:
		sid = nl.id + "/match"
		q = "SELECT localUid, " + nl.column + " FROM " + nl.fts + " WHERE " + nl.fts + " MATCH ? ORDER BY rowid"
		a = "{" + nl.column + "} : " + search.FTSPhrase(name)
	}

	stmt, err := tx.Stmt(ctx, sid, q)
	if err != nil {
		return nil, nil, sqlError(sid, err)
	}

	rows, err := stmt.QueryContext(ctx, a)
	if err != nil {
		return nil, nil, sqlError(sid, err)
	}
	defer rows.Close()

	var ids, names []string

	for rows.Next() {
		var id string
		var n *string

		if err = rows.Scan(&id, &n); err != nil {
			return nil, nil, sqlError(sid, err)
		}

		ids = append(ids, id)

		if n == nil {
			names = append(names, "")
		} else {
			names = append(names, strings.ToLower(*n))
		}
	}

	if err = rows.Err(); err != nil {
		return nil, nil, sqlError(sid, err)
	}

	return ids, names, nil
}

// resolve returns local ids of rows matching the lower-cased name.
//
// Rows named exactly the same are preferred unless the name contains a wildcard,
// so "x" does not also resolve to "x-ray".
func (nl *nameLookup) resolve(ctx context.Context, tx *fsql.Tx, name string) ([]string, error) {
	ids, names, err := nl.lookup(ctx, tx, name)
	if err != nil || strings.Contains(name, "*") {
		return ids, err
	}

	var exact []string

	for i, n := range names {
		if n == name {
			exact = append(exact, ids[i])
		}
	}

	if exact != nil {
		return exact, nil
	}

	return ids, nil
}

// NotebookLocalID implements search.Resolver interface.
//
// Notebook with exactly matching name is preferred; otherwise the first matching one is used.
func (r *resolver) NotebookLocalID(ctx context.Context, name string) (string, error) {
	name = strings.ToLower(name)

	ids, names, err := notebookNames.lookup(ctx, r.tx, name)
	if err != nil {
		return "", err
	}

	if len(ids) == 0 {
		return "", notFound("notebook", "name", name)
	}

	for i, n := range names {
		if n == name {
			return ids[i], nil
		}
	}

	return ids[0], nil
}

// TagLocalIDs implements search.Resolver interface.
func (r *resolver) TagLocalIDs(ctx context.Context, name string) ([]string, error) {
	return tagNames.resolve(ctx, r.tx, strings.ToLower(name))
}

// ResourceLocalIDsByMime implements search.Resolver interface.
func (r *resolver) ResourceLocalIDsByMime(ctx context.Context, mime string) ([]string, error) {
	return mimeNames.resolve(ctx, r.tx, strings.ToLower(mime))
}

// searchNotes compiles the query and returns local ids of matching notes.
func searchNotes(ctx context.Context, tx *fsql.Tx, q *search.Query) ([]string, error) {
	query, args, err := search.Compile(ctx, q, &resolver{tx: tx})
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqlError("Notes/search", err)
	}
	defer rows.Close()

	var res []string

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, sqlError("Notes/search", err)
		}

		res = append(res, id)
	}

	if err = rows.Err(); err != nil {
		return nil, sqlError("Notes/search", err)
	}

	return res, nil
}

// FindNoteLocalIDsWithSearchQuery implements localstorage.Storage interface.
func (s *storage) FindNoteLocalIDsWithSearchQuery(ctx context.Context, q *search.Query) ([]string, error) {
	var res []string

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = searchNotes(ctx, tx, q)

		return err
	})

	return res, err
}

// FindNotesWithSearchQuery implements localstorage.Storage interface.
func (s *storage) FindNotesWithSearchQuery(ctx context.Context, q *search.Query, opts *localstorage.FindNoteOptions) ([]*types.Note, error) { //nolint:lll // for readability
	var res []*types.Note

	err := s.read(ctx, func(tx *fsql.Tx) error {
		ids, err := searchNotes(ctx, tx, q)
		if err != nil {
			return err
		}

		res, err = findNotes(ctx, tx, ids, opts)

		return err
	})

	return res, err
}
