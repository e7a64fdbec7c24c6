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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		expr Expr
		sql  string
		args []any
	}{
		"EmptyAnd": {
			expr: And{},
			sql:  "1",
			args: []any{},
		},
		"EmptyOr": {
			expr: Or{},
			sql:  "0",
			args: []any{},
		},
		"Nested": {
			expr: And{
				Cmp{Column: "a", Op: OpEq, Value: 1},
				Or{
					IsNull{Column: "b"},
					Not{Like{Column: "b", Pattern: "x%"}},
				},
			},
			sql:  `(a = ? AND (b IS NULL OR NOT (b LIKE ? ESCAPE '\')))`,
			args: []any{1, "x%"},
		},
		"NegatedLikeNullAsEmpty": {
			expr: Not{Like{Column: "b", Pattern: "%x%", NullAsEmpty: true}},
			sql:  `NOT (COALESCE(b, '') LIKE ? ESCAPE '\')`,
			args: []any{"%x%"},
		},
		"EmptyIn": {
			expr: In{Column: "a"},
			sql:  "0",
			args: []any{},
		},
		"Subquery": {
			expr: InSelect{
				Column: "id",
				Not:    true,
				Select: &Select{
					Column:  "note",
					From:    "t",
					Where:   In{Column: "tag", Values: []any{"x", "y"}},
					GroupBy: "note",
					Having:  Cmp{Column: "COUNT(*)", Op: OpEq, Value: 2},
				},
			},
			sql:  "id NOT IN (SELECT note FROM t WHERE tag IN (?, ?) GROUP BY note HAVING COUNT(*) = ?)",
			args: []any{"x", "y", 2},
		},
		"Match": {
			expr: Match{Table: "fts", Query: `"x"*`},
			sql:  "fts MATCH ?",
			args: []any{`"x"*`},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			sql, args := Render(tc.expr)
			assert.Equal(t, tc.sql, sql)
			assert.Equal(t, tc.args, args)
		})
	}

	assert.Panics(t, func() { Render(Cmp{Column: "a", Op: "; DROP TABLE", Value: 1}) })
}

func TestFolding(t *testing.T) {
	t.Parallel()

	x := IsNull{Column: "x"}

	assert.Nil(t, all())
	assert.Nil(t, all(nil, nil))
	assert.Equal(t, Const(true), all(Const(true), nil))
	assert.Equal(t, Const(false), all(x, Const(false)))
	assert.Equal(t, x, all(x, Const(true)))
	assert.Equal(t, And{x, x}, all(x, nil, x))

	assert.Nil(t, anyOf())
	assert.Equal(t, Const(false), anyOf(Const(false), nil))
	assert.Equal(t, Const(true), anyOf(x, Const(true)))
	assert.Equal(t, x, anyOf(x, Const(false)))
	assert.Equal(t, Or{x, x}, anyOf(x, x))
}

func TestTerms(t *testing.T) {
	t.Parallel()

	for term, expected := range map[string]struct {
		like    bool
		phrase  string
		pattern string
	}{
		"hello":       {like: false, phrase: `"hello"`, pattern: "hello"},
		"hel*":        {like: false, phrase: `"hel"*`, pattern: "hel%"},
		"wor*ld":      {like: true, phrase: `"wor*ld"`, pattern: "wor%ld"},
		"hello world": {like: true, phrase: `"hello world"`, pattern: "hello world"},
		`50%_off`:     {like: false, phrase: `"50%_off"`, pattern: `50\%\_off`},
		`say"hi"`:     {like: false, phrase: `"say""hi"""`, pattern: `say"hi"`},
	} {
		assert.Equal(t, expected.like, useLike(term), term)
		assert.Equal(t, expected.phrase, FTSPhrase(term), term)
		assert.Equal(t, expected.pattern, LikePattern(term), term)
	}
}
