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

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notestore/notestore/internal/storageerrors"
)

// fakeResolver resolves names using maps.
type fakeResolver struct {
	notebooks map[string]string
	tags      map[string][]string
	mimes     map[string][]string
}

func (r *fakeResolver) NotebookLocalID(_ context.Context, name string) (string, error) {
	id, ok := r.notebooks[name]
	if !ok {
		return "", storageerrors.NewError(storageerrors.ErrorCodeNotFound, errors.New(name))
	}

	return id, nil
}

func (r *fakeResolver) TagLocalIDs(_ context.Context, name string) ([]string, error) {
	return r.tags[name], nil
}

func (r *fakeResolver) ResourceLocalIDsByMime(_ context.Context, mime string) ([]string, error) {
	return r.mimes[mime], nil
}

func TestCompile(t *testing.T) {
	t.Parallel()

	const prefix = "SELECT DISTINCT NoteFTS.localUid FROM NoteFTS INNER JOIN Notes ON Notes.localUid = NoteFTS.localUid"

	r := &fakeResolver{
		notebooks: map[string]string{"Beta": "nb2"},
		tags:      map[string][]string{"x": {"t1"}, "y": {"t2"}, "x*": {"t1", "t3"}},
		mimes:     map[string][]string{"image/*": {"r1", "r2"}, "application/pdf": {"r3"}},
	}

	for name, tc := range map[string]struct {
		q    Query
		sql  string
		args []any
	}{
		"AllTags": {
			q: Query{Tags: StringFilter{Values: []string{"x", "y"}}},
			sql: prefix + " WHERE NoteFTS.localUid IN " +
				"(SELECT localNote FROM NoteTags WHERE localTag IN (?, ?) GROUP BY localNote HAVING COUNT(*) = ?)",
			args: []any{"t1", "t2", 2},
		},
		"AnyTags": {
			q: Query{Any: true, Tags: StringFilter{Values: []string{"X", "y"}}},
			sql: prefix + " LEFT OUTER JOIN NoteTags ON NoteTags.localNote = NoteFTS.localUid" +
				" WHERE NoteTags.localTag IN (?, ?)",
			args: []any{"t1", "t2"},
		},
		"UnknownTag": {
			q:    Query{Tags: StringFilter{Values: []string{"x", "z"}}},
			sql:  prefix + " WHERE 0",
			args: []any{},
		},
		"UnknownNegatedTag": {
			q:    Query{Tags: StringFilter{Negated: []string{"z"}}},
			sql:  prefix + " WHERE 1",
			args: []any{},
		},
		"NegatedTags": {
			q:    Query{Tags: StringFilter{Negated: []string{"x", "y"}}},
			sql:  prefix + " WHERE NoteFTS.localUid NOT IN (SELECT localNote FROM NoteTags WHERE localTag IN (?, ?))",
			args: []any{"t1", "t2"},
		},
		"AnyNegatedTags": {
			q: Query{Any: true, Tags: StringFilter{Negated: []string{"x", "y"}}},
			sql: prefix + " WHERE NoteFTS.localUid NOT IN " +
				"(SELECT localNote FROM NoteTags WHERE localTag IN (?, ?) GROUP BY localNote HAVING COUNT(*) = ?)",
			args: []any{"t1", "t2", 2},
		},
		"TagGroups": {
			q: Query{Tags: StringFilter{Values: []string{"x*", "y"}}},
			sql: prefix + " WHERE (" +
				"NoteFTS.localUid IN (SELECT localNote FROM NoteTags WHERE localTag IN (?, ?)) AND " +
				"NoteFTS.localUid IN (SELECT localNote FROM NoteTags WHERE localTag IN (?)))",
			args: []any{"t1", "t3", "t2"},
		},
		"SameTagTwice": {
			q: Query{Tags: StringFilter{Values: []string{"x", "x*"}}},
			sql: prefix + " WHERE (" +
				"NoteFTS.localUid IN (SELECT localNote FROM NoteTags WHERE localTag IN (?)) AND " +
				"NoteFTS.localUid IN (SELECT localNote FROM NoteTags WHERE localTag IN (?, ?)))",
			args: []any{"t1", "t1", "t3"},
		},
		"AnyNegatedTagGroups": {
			q: Query{Any: true, Tags: StringFilter{Negated: []string{"x*", "y"}}},
			sql: prefix + " WHERE (" +
				"NoteFTS.localUid NOT IN (SELECT localNote FROM NoteTags WHERE localTag IN (?, ?)) OR " +
				"NoteFTS.localUid NOT IN (SELECT localNote FROM NoteTags WHERE localTag IN (?)))",
			args: []any{"t1", "t3", "t2"},
		},
		"NegatedTitlePhrase": {
			q: Query{Titles: StringFilter{Negated: []string{"Weekly report"}}},
			sql: prefix + ` WHERE NOT (COALESCE(Notes.titleNormalized, '') LIKE ? ESCAPE '\')`,
			args: []any{"%weekly report%"},
		},
		"HasTags": {
			q:    Query{Tags: StringFilter{NegatedAny: true}},
			sql:  prefix + " WHERE NoteFTS.localUid NOT IN (SELECT localNote FROM NoteTags)",
			args: []any{},
		},
		"Mimes": {
			q: Query{ResourceMimeTypes: StringFilter{Values: []string{"image/*", "application/pdf"}}},
			sql: prefix + " WHERE (" +
				"NoteFTS.localUid IN (SELECT localNote FROM NoteResources WHERE localResource IN (?, ?)) AND " +
				"NoteFTS.localUid IN (SELECT localNote FROM NoteResources WHERE localResource IN (?)))",
			args: []any{"r1", "r2", "r3"},
		},
		"AnyMimes": {
			q: Query{Any: true, ResourceMimeTypes: StringFilter{Values: []string{"image/*", "application/pdf"}}},
			sql: prefix + " LEFT OUTER JOIN NoteResources ON NoteResources.localNote = NoteFTS.localUid" +
				" WHERE NoteResources.localResource IN (?, ?, ?)",
			args: []any{"r1", "r2", "r3"},
		},
		"NotebookAndPrefix": {
			q: Query{Notebook: "Beta", ContentTerms: []string{"Hel*"}},
			sql: prefix + " WHERE (Notes.localNotebook = ? AND (" +
				"NoteFTS.localUid IN (SELECT localUid FROM NoteFTS WHERE NoteFTS MATCH ?) OR " +
				"NoteFTS.localUid IN (SELECT localUid FROM NoteFTS WHERE NoteFTS MATCH ?) OR " +
				"NoteFTS.localUid IN (SELECT noteLocalUid FROM ResourceRecognitionDataFTS WHERE ResourceRecognitionDataFTS MATCH ?) OR " +
				"NoteFTS.localUid IN (SELECT localNote FROM NoteTags WHERE localTag IN " +
				"(SELECT localUid FROM TagFTS WHERE TagFTS MATCH ?))))",
			args: []any{"nb2", `{contentListOfWords} : "hel"*`, `{titleNormalized} : "hel"*`, `"hel"*`, `"hel"*`},
		},
		"EmbeddedWildcard": {
			q: Query{ContentTerms: []string{"wor*ld"}},
			sql: prefix + ` WHERE (COALESCE(Notes.contentListOfWords, '') LIKE ? ESCAPE '\' OR ` +
				`COALESCE(Notes.titleNormalized, '') LIKE ? ESCAPE '\' OR ` +
				`NoteFTS.localUid IN (SELECT noteLocalUid FROM ResourceRecognitionData WHERE recognitionData LIKE ? ESCAPE '\') OR ` +
				`NoteFTS.localUid IN (SELECT localNote FROM NoteTags WHERE localTag IN ` +
				`(SELECT localUid FROM Tags WHERE nameLower LIKE ? ESCAPE '\')))`,
			args: []any{"%wor%ld%", "%wor%ld%", "%wor%ld%", "%wor%ld%"},
		},
		"Numeric": {
			q: Query{
				Created:  NumericFilter[int64]{Values: []int64{10, 20}},
				Latitude: NumericFilter[float64]{Negated: []float64{1, 5}},
			},
			sql:  prefix + " WHERE (Notes.creationTimestamp >= ? AND Notes.latitude < ?)",
			args: []any{int64(20), float64(1)},
		},
		"AnyNumeric": {
			q: Query{
				Any:      true,
				Created:  NumericFilter[int64]{Values: []int64{10, 20}},
				Latitude: NumericFilter[float64]{Negated: []float64{1, 5}},
			},
			sql:  prefix + " WHERE (Notes.creationTimestamp >= ? OR Notes.latitude < ?)",
			args: []any{int64(10), float64(5)},
		},
		"Attributes": {
			q: Query{
				Authors: StringFilter{Values: []string{"Bo*"}},
				Sources: StringFilter{Negated: []string{"web_clip"}},
			},
			sql: prefix + ` WHERE (Notes.author LIKE ? ESCAPE '\' AND ` +
				`(Notes.source IS NULL OR NOT (Notes.source LIKE ? ESCAPE '\')))`,
			args: []any{"Bo%", `web\_clip`},
		},
		"ToDoAndEncryption": {
			q: Query{ToDo: ToDoFilter{Any: true}, NegatedEncryption: true},
			sql: prefix + " WHERE ((Notes.contentContainsFinishedToDo = ? OR Notes.contentContainsUnfinishedToDo = ?) AND " +
				"Notes.contentContainsEncryption = ?)",
			args: []any{1, 1, 0},
		},
		"Title": {
			q:    Query{Titles: StringFilter{Values: []string{"Report"}, NegatedAny: true}},
			sql:  prefix + " WHERE (NoteFTS.localUid IN (SELECT localUid FROM NoteFTS WHERE NoteFTS MATCH ?) AND Notes.title IS NULL)",
			args: []any{`{titleNormalized} : "report"`},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			sql, args, err := Compile(context.Background(), &tc.q, r)
			require.NoError(t, err)
			assert.Equal(t, tc.sql, sql)
			assert.Equal(t, tc.args, args)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	r := &fakeResolver{}

	_, _, err := Compile(context.Background(), &Query{Any: true}, r)
	assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeQueryCompilation), "%v", err)

	_, _, err = Compile(context.Background(), &Query{Notebook: "Gamma"}, r)
	assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeNotFound), "%v", err)
}
