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
	"fmt"
	"strings"
)

// Expr is a node of a predicate tree rendered to SQL with "?" placeholders.
//
// Column and table names are always static; values are always passed as arguments.
type Expr interface {
	writeSQL(b *strings.Builder, args *[]any)
}

// And is a conjunction; an empty And is true.
type And []Expr

// Or is a disjunction; an empty Or is false.
type Or []Expr

// Not is a negation.
type Not struct {
	Expr Expr
}

// Const is a constant predicate.
type Const bool

// Op is a comparison operator.
type Op string

// Comparison operators.
const (
	OpEq Op = "="
	OpNe Op = "<>"
	OpGe Op = ">="
	OpLt Op = "<"
)

// Cmp compares the column with the value.
type Cmp struct {
	Column string
	Op     Op
	Value  any
}

// IsNull checks that the column is NULL (or NOT NULL).
type IsNull struct {
	Column string
	Not    bool
}

// Like matches the column against the LIKE pattern with '\' escape character.
type Like struct {
	Column  string
	Pattern string

	// NullAsEmpty matches NULL as an empty string, so that negation of Like is never NULL.
	NullAsEmpty bool
}

// In checks that the column is one of values; empty values are never matched.
type In struct {
	Column string
	Values []any
}

// InSelect checks that the column is (or is NOT) in the subquery result.
type InSelect struct {
	Column string
	Not    bool
	Select *Select
}

// Match is a full-text query against the FTS5 table.
type Match struct {
	Table string
	Query string
}

// Select is a single-column subquery.
type Select struct {
	Column  string
	From    string
	Where   Expr   // may be nil
	GroupBy string // may be empty
	Having  Expr   // may be nil
}

// Render returns SQL text and arguments for the given expression.
func Render(e Expr) (string, []any) {
	var b strings.Builder
	args := []any{}

	e.writeSQL(&b, &args)

	return b.String(), args
}

// all returns a conjunction of non-nil expressions, folding constants.
//
// It returns nil if all expressions are nil.
func all(exprs ...Expr) Expr {
	var res And
	var seen bool

	for _, e := range exprs {
		switch e := e.(type) {
		case nil:
			continue
		case Const:
			if !e {
				return Const(false)
			}

			seen = true

			continue
		}

		res = append(res, e)
	}

	switch len(res) {
	case 0:
		if seen {
			return Const(true)
		}

		return nil
	case 1:
		return res[0]
	default:
		return res
	}
}

// anyOf returns a disjunction of non-nil expressions, folding constants.
//
// It returns nil if all expressions are nil.
func anyOf(exprs ...Expr) Expr {
	var res Or
	var seen bool

	for _, e := range exprs {
		switch e := e.(type) {
		case nil:
			continue
		case Const:
			if e {
				return Const(true)
			}

			seen = true

			continue
		}

		res = append(res, e)
	}

	switch len(res) {
	case 0:
		if seen {
			return Const(false)
		}

		return nil
	case 1:
		return res[0]
	default:
		return res
	}
}

func (e And) writeSQL(b *strings.Builder, args *[]any) {
	writeList(b, args, []Expr(e), " AND ", "1")
}

func (e Or) writeSQL(b *strings.Builder, args *[]any) {
	writeList(b, args, []Expr(e), " OR ", "0")
}

// writeList writes parenthesized list of expressions joined by sep, or empty for an empty list.
func writeList(b *strings.Builder, args *[]any, exprs []Expr, sep, empty string) {
	switch len(exprs) {
	case 0:
		b.WriteString(empty)
	case 1:
		exprs[0].writeSQL(b, args)
	default:
		b.WriteByte('(')

		for i, e := range exprs {
			if i > 0 {
				b.WriteString(sep)
			}

			e.writeSQL(b, args)
		}

		b.WriteByte(')')
	}
}

func (e Not) writeSQL(b *strings.Builder, args *[]any) {
	b.WriteString("NOT (")
	e.Expr.writeSQL(b, args)
	b.WriteByte(')')
}

func (e Const) writeSQL(b *strings.Builder, _ *[]any) {
	if e {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
}

func (e Cmp) writeSQL(b *strings.Builder, args *[]any) {
	switch e.Op {
	case OpEq, OpNe, OpGe, OpLt:
	default:
		panic(fmt.Sprintf("unexpected operator %q", e.Op))
	}

	b.WriteString(e.Column + " " + string(e.Op) + " ?")
	*args = append(*args, e.Value)
}

func (e IsNull) writeSQL(b *strings.Builder, _ *[]any) {
	if e.Not {
		b.WriteString(e.Column + " IS NOT NULL")
	} else {
		b.WriteString(e.Column + " IS NULL")
	}
}

func (e Like) writeSQL(b *strings.Builder, args *[]any) {
	col := e.Column
	if e.NullAsEmpty {
		col = "COALESCE(" + col + ", '')"
	}

	b.WriteString(col + ` LIKE ? ESCAPE '\'`)
	*args = append(*args, e.Pattern)
}

func (e In) writeSQL(b *strings.Builder, args *[]any) {
	if len(e.Values) == 0 {
		b.WriteByte('0')
		return
	}

	b.WriteString(e.Column + " IN (")

	for i, v := range e.Values {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteByte('?')
		*args = append(*args, v)
	}

	b.WriteByte(')')
}

func (e InSelect) writeSQL(b *strings.Builder, args *[]any) {
	b.WriteString(e.Column)

	if e.Not {
		b.WriteString(" NOT")
	}

	b.WriteString(" IN (")
	e.Select.writeSQL(b, args)
	b.WriteByte(')')
}

func (e Match) writeSQL(b *strings.Builder, args *[]any) {
	b.WriteString(e.Table + " MATCH ?")
	*args = append(*args, e.Query)
}

func (s *Select) writeSQL(b *strings.Builder, args *[]any) {
	b.WriteString("SELECT " + s.Column + " FROM " + s.From)

	if s.Where != nil {
		b.WriteString(" WHERE ")
		s.Where.writeSQL(b, args)
	}

	if s.GroupBy != "" {
		b.WriteString(" GROUP BY " + s.GroupBy)
	}

	if s.Having != nil {
		b.WriteString(" HAVING ")
		s.Having.writeSQL(b, args)
	}
}

// stringValues converts strings to arguments.
func stringValues(s []string) []any {
	res := make([]any, len(s))
	for i, v := range s {
		res[i] = v
	}

	return res
}

// check interfaces
var (
	_ Expr = And(nil)
	_ Expr = Or(nil)
	_ Expr = Not{}
	_ Expr = Const(false)
	_ Expr = Cmp{}
	_ Expr = IsNull{}
	_ Expr = Like{}
	_ Expr = In{}
	_ Expr = InSelect{}
	_ Expr = Match{}
	_ Expr = (*Select)(nil)
)
