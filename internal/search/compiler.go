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
	"strings"
	"unicode"

	"golang.org/x/exp/slices"

	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/util/lazyerrors"
	"github.com/notestore/notestore/internal/util/observability"
)

// Resolver resolves names used in search expressions to local identifiers.
//
// Names containing whitespace are compared for (case-insensitive) equality;
// other names are matched with full-text search where a trailing '*' is a prefix wildcard.
type Resolver interface {
	// NotebookLocalID returns the local id of the best matching notebook,
	// or a NotFound error if there is none.
	NotebookLocalID(ctx context.Context, name string) (string, error)

	// TagLocalIDs returns local ids of matching tags; empty if there are none.
	TagLocalIDs(ctx context.Context, name string) ([]string, error)

	// ResourceLocalIDsByMime returns local ids of resources with matching mime type; empty if there are none.
	ResourceLocalIDsByMime(ctx context.Context, mime string) ([]string, error)
}

// Tables and columns used by the compiled statement.
const (
	noteID = "NoteFTS.localUid"
	from   = "NoteFTS INNER JOIN Notes ON Notes.localUid = NoteFTS.localUid"

	joinTags      = " LEFT OUTER JOIN NoteTags ON NoteTags.localNote = NoteFTS.localUid"
	joinResources = " LEFT OUTER JOIN NoteResources ON NoteResources.localNote = NoteFTS.localUid"
)

// compiler holds the state of a single compilation.
type compiler struct {
	ctx context.Context
	r   Resolver
	any bool

	joinTags      bool
	joinResources bool
}

// Compile compiles the query to a single SELECT statement returning distinct local ids of matching notes.
//
// An empty query is a QueryCompilation error.
// Unknown notebook is a NotFound error.
func Compile(ctx context.Context, q *Query, r Resolver) (string, []any, error) {
	defer observability.FuncCall(ctx)()

	if q.IsEmpty() {
		return "", nil, storageerrors.NewError(
			storageerrors.ErrorCodeQueryCompilation,
			errors.New("search query has neither modifiers nor content terms"),
		)
	}

	c := &compiler{
		ctx: ctx,
		r:   r,
		any: q.Any,
	}

	where, err := c.compile(q)
	if err != nil {
		var e *storageerrors.Error
		if errors.As(err, &e) {
			return "", nil, e
		}

		return "", nil, storageerrors.NewError(storageerrors.ErrorCodeQueryCompilation, lazyerrors.Error(err))
	}

	var b strings.Builder
	b.WriteString("SELECT DISTINCT " + noteID + " FROM " + from)

	if c.joinTags {
		b.WriteString(joinTags)
	}

	if c.joinResources {
		b.WriteString(joinResources)
	}

	if where == nil {
		where = Const(true)
	}

	w, args := Render(where)
	b.WriteString(" WHERE " + w)

	return b.String(), args, nil
}

// compile returns the predicate for the whole query.
func (c *compiler) compile(q *Query) (Expr, error) {
	var notebook Expr

	if q.Notebook != "" {
		id, err := c.r.NotebookLocalID(c.ctx, q.Notebook)
		if err != nil {
			return nil, err
		}

		notebook = Cmp{Column: "Notes.localNotebook", Op: OpEq, Value: id}
	}

	tags, err := c.tags(&q.Tags)
	if err != nil {
		return nil, err
	}

	mimes, err := c.mimes(&q.ResourceMimeTypes)
	if err != nil {
		return nil, err
	}

	categories := []Expr{
		tags,
		mimes,
		c.titles(&q.Titles),
		c.attribute("Notes.author", &q.Authors),
		c.attribute("Notes.source", &q.Sources),
		c.attribute("Notes.sourceApplication", &q.SourceApplications),
		c.attribute("Notes.contentClass", &q.ContentClasses),
		c.attribute("Notes.placeName", &q.PlaceNames),
		c.applicationData(&q.ApplicationData),
		numeric(c, "Notes.creationTimestamp", &q.Created),
		numeric(c, "Notes.modificationTimestamp", &q.Updated),
		numeric(c, "Notes.subjectDate", &q.SubjectDate),
		numeric(c, "Notes.latitude", &q.Latitude),
		numeric(c, "Notes.longitude", &q.Longitude),
		numeric(c, "Notes.altitude", &q.Altitude),
		numeric(c, "Notes.reminderOrder", &q.ReminderOrder),
		numeric(c, "Notes.reminderTime", &q.ReminderTime),
		numeric(c, "Notes.reminderDoneTime", &q.ReminderDoneTime),
		c.toDo(&q.ToDo),
		c.encryption(q),
		c.content(q.ContentTerms, q.NegatedContentTerms),
	}

	// notebook scope is always required
	return all(notebook, c.unite(categories...)), nil
}

// unite combines expressions with AND, or with OR if "any:" is set.
func (c *compiler) unite(exprs ...Expr) Expr {
	if c.any {
		return anyOf(exprs...)
	}

	return all(exprs...)
}

// resolve resolves names with the given function; unresolved names are counted.
func (c *compiler) resolve(names []string, f func(context.Context, string) ([]string, error)) ([][]string, int, error) {
	res := make([][]string, len(names))
	var unresolved int

	for i, name := range names {
		ids, err := f(c.ctx, strings.ToLower(name))
		if err != nil {
			return nil, 0, err
		}

		if len(ids) == 0 {
			unresolved++
		}

		res[i] = ids
	}

	return res, unresolved, nil
}

// flatten returns distinct ids of all groups.
func flatten(groups [][]string) []string {
	var res []string

	for _, ids := range groups {
		for _, id := range ids {
			if !slices.Contains(res, id) {
				res = append(res, id)
			}
		}
	}

	return res
}

// noteTags returns a subquery of notes having tags from ids;
// if exact is set, notes should have all of them.
func noteTags(ids []string, exact bool) *Select {
	s := &Select{
		Column: "localNote",
		From:   "NoteTags",
		Where:  In{Column: "localTag", Values: stringValues(ids)},
	}

	if exact {
		// (localNote, localTag) is a primary key, so rows are never duplicated
		s.GroupBy = "localNote"
		s.Having = Cmp{Column: "COUNT(*)", Op: OpEq, Value: len(ids)}
	}

	return s
}

// tagGroups returns a predicate of notes having a tag from every group,
// or, if not is set, of notes lacking all tags of at least one group.
//
// When every group is a single distinct tag, one exact-set subquery is used.
func tagGroups(groups [][]string, not bool) Expr {
	ids := flatten(groups)

	single := len(ids) == len(groups)
	for _, g := range groups {
		if len(g) != 1 {
			single = false
			break
		}
	}

	if single {
		return InSelect{Column: noteID, Not: not, Select: noteTags(ids, true)}
	}

	sets := make([]Expr, len(groups))
	for i, g := range groups {
		sets[i] = InSelect{Column: noteID, Not: not, Select: noteTags(g, false)}
	}

	if not {
		return anyOf(sets...)
	}

	return all(sets...)
}

// tags compiles tag: modifiers.
//
// Each tag name (possibly with wildcard) matches a group of tags.
func (c *compiler) tags(f *StringFilter) (Expr, error) {
	var parts []Expr

	if len(f.Values) > 0 {
		groups, unresolved, err := c.resolve(f.Values, c.r.TagLocalIDs)
		if err != nil {
			return nil, err
		}

		ids := flatten(groups)

		switch {
		case c.any && len(ids) == 0:
			parts = append(parts, Const(false))
		case c.any:
			c.joinTags = true
			parts = append(parts, In{Column: "NoteTags.localTag", Values: stringValues(ids)})
		case unresolved > 0:
			parts = append(parts, Const(false))
		default:
			parts = append(parts, tagGroups(groups, false))
		}
	}

	if len(f.Negated) > 0 {
		groups, unresolved, err := c.resolve(f.Negated, c.r.TagLocalIDs)
		if err != nil {
			return nil, err
		}

		ids := flatten(groups)

		switch {
		case len(ids) == 0:
			parts = append(parts, Const(true))
		case c.any && unresolved > 0:
			// note trivially lacks an unknown tag
			parts = append(parts, Const(true))
		case c.any:
			parts = append(parts, tagGroups(groups, true))
		default:
			parts = append(parts, InSelect{Column: noteID, Not: true, Select: noteTags(ids, false)})
		}
	}

	allTags := &Select{Column: "localNote", From: "NoteTags"}

	if f.Any {
		parts = append(parts, InSelect{Column: noteID, Select: allTags})
	}

	if f.NegatedAny {
		parts = append(parts, InSelect{Column: noteID, Not: true, Select: allTags})
	}

	return c.unite(parts...), nil
}

// noteResources returns a subquery of notes having any of the given resources.
func noteResources(ids []string) *Select {
	return &Select{
		Column: "localNote",
		From:   "NoteResources",
		Where:  In{Column: "localResource", Values: stringValues(ids)},
	}
}

// mimes compiles resource: modifiers.
//
// Each mime type (possibly with wildcard) matches a set of resources;
// without "any:" a note should have a resource from every set.
func (c *compiler) mimes(f *StringFilter) (Expr, error) {
	var parts []Expr

	if len(f.Values) > 0 {
		groups, unresolved, err := c.resolve(f.Values, c.r.ResourceLocalIDsByMime)
		if err != nil {
			return nil, err
		}

		switch {
		case c.any:
			ids := flatten(groups)
			if len(ids) == 0 {
				parts = append(parts, Const(false))
				break
			}

			c.joinResources = true
			parts = append(parts, In{Column: "NoteResources.localResource", Values: stringValues(ids)})

		case unresolved > 0:
			parts = append(parts, Const(false))

		default:
			var sets []Expr
			for _, ids := range groups {
				sets = append(sets, InSelect{Column: noteID, Select: noteResources(ids)})
			}

			parts = append(parts, all(sets...))
		}
	}

	if len(f.Negated) > 0 {
		groups, unresolved, err := c.resolve(f.Negated, c.r.ResourceLocalIDsByMime)
		if err != nil {
			return nil, err
		}

		switch {
		case c.any && unresolved > 0:
			parts = append(parts, Const(true))

		case c.any:
			var sets []Expr
			for _, ids := range groups {
				sets = append(sets, InSelect{Column: noteID, Not: true, Select: noteResources(ids)})
			}

			parts = append(parts, anyOf(sets...))

		default:
			ids := flatten(groups)
			if len(ids) == 0 {
				parts = append(parts, Const(true))
				break
			}

			parts = append(parts, InSelect{Column: noteID, Not: true, Select: noteResources(ids)})
		}
	}

	allResources := &Select{Column: "localNote", From: "NoteResources"}

	if f.Any {
		parts = append(parts, InSelect{Column: noteID, Select: allResources})
	}

	if f.NegatedAny {
		parts = append(parts, InSelect{Column: noteID, Not: true, Select: allResources})
	}

	return c.unite(parts...), nil
}

// attribute compiles string modifiers for the given column of the Notes table.
//
// Values are matched case-insensitively; '*' is a wildcard.
func (c *compiler) attribute(column string, f *StringFilter) Expr {
	var parts []Expr

	for _, v := range f.Values {
		parts = append(parts, Like{Column: column, Pattern: LikePattern(v)})
	}

	var negated []Expr
	for _, v := range f.Negated {
		negated = append(negated, anyOf(
			IsNull{Column: column},
			Not{Like{Column: column, Pattern: LikePattern(v)}},
		))
	}

	// without "any:" a note should have none of values; with it - lack at least one
	if c.any {
		parts = append(parts, anyOf(negated...))
	} else {
		parts = append(parts, all(negated...))
	}

	if f.Any {
		parts = append(parts, IsNull{Column: column, Not: true})
	}

	if f.NegatedAny {
		parts = append(parts, IsNull{Column: column})
	}

	return c.unite(parts...)
}

// titles compiles intitle: modifiers.
func (c *compiler) titles(f *StringFilter) Expr {
	var parts []Expr

	for _, v := range f.Values {
		parts = append(parts, titleTerm(strings.ToLower(v)))
	}

	var negated []Expr
	for _, v := range f.Negated {
		negated = append(negated, Not{titleTerm(strings.ToLower(v))})
	}

	if c.any {
		parts = append(parts, anyOf(negated...))
	} else {
		parts = append(parts, all(negated...))
	}

	if f.Any {
		parts = append(parts, IsNull{Column: "Notes.title", Not: true})
	}

	if f.NegatedAny {
		parts = append(parts, IsNull{Column: "Notes.title"})
	}

	return c.unite(parts...)
}

// applicationData compiles applicationData: modifiers matched against application data keys.
func (c *compiler) applicationData(f *StringFilter) Expr {
	keys := func(key string) Expr {
		var keysOnlyWhere, fullMapWhere Expr
		if key != "" {
			keysOnlyWhere = Like{Column: "key", Pattern: LikePattern(key)}
			fullMapWhere = keysOnlyWhere
		}

		return anyOf(
			InSelect{Column: noteID, Select: &Select{Column: "localNote", From: "NoteApplicationDataKeysOnly", Where: keysOnlyWhere}},
			InSelect{Column: noteID, Select: &Select{Column: "localNote", From: "NoteApplicationDataFullMap", Where: fullMapWhere}},
		)
	}

	var parts []Expr

	for _, v := range f.Values {
		parts = append(parts, keys(v))
	}

	var negated []Expr
	for _, v := range f.Negated {
		negated = append(negated, Not{keys(v)})
	}

	if c.any {
		parts = append(parts, anyOf(negated...))
	} else {
		parts = append(parts, all(negated...))
	}

	if f.Any {
		parts = append(parts, keys(""))
	}

	if f.NegatedAny {
		parts = append(parts, Not{keys("")})
	}

	return c.unite(parts...)
}

// numeric compiles numeric modifiers for the given column.
//
// Only one extreme value is used:
// without "any:" a note should satisfy all values, with it - at least one.
func numeric[T Number](c *compiler, column string, f *NumericFilter[T]) Expr {
	var parts []Expr

	if len(f.Values) > 0 {
		v := slices.Max(f.Values)
		if c.any {
			v = slices.Min(f.Values)
		}

		parts = append(parts, Cmp{Column: column, Op: OpGe, Value: v})
	}

	if len(f.Negated) > 0 {
		v := slices.Min(f.Negated)
		if c.any {
			v = slices.Max(f.Negated)
		}

		parts = append(parts, Cmp{Column: column, Op: OpLt, Value: v})
	}

	if f.Any {
		parts = append(parts, IsNull{Column: column, Not: true})
	}

	if f.NegatedAny {
		parts = append(parts, IsNull{Column: column})
	}

	return c.unite(parts...)
}

// toDo compiles todo: modifiers.
func (c *compiler) toDo(f *ToDoFilter) Expr {
	const (
		finished   = "Notes.contentContainsFinishedToDo"
		unfinished = "Notes.contentContainsUnfinishedToDo"
	)

	var parts []Expr

	if f.Finished {
		parts = append(parts, Cmp{Column: finished, Op: OpEq, Value: 1})
	}

	if f.NegatedFinished {
		parts = append(parts, Cmp{Column: finished, Op: OpEq, Value: 0})
	}

	if f.Unfinished {
		parts = append(parts, Cmp{Column: unfinished, Op: OpEq, Value: 1})
	}

	if f.NegatedUnfinished {
		parts = append(parts, Cmp{Column: unfinished, Op: OpEq, Value: 0})
	}

	if f.Any {
		parts = append(parts, anyOf(
			Cmp{Column: finished, Op: OpEq, Value: 1},
			Cmp{Column: unfinished, Op: OpEq, Value: 1},
		))
	}

	if f.NegatedAny {
		parts = append(parts, all(
			Cmp{Column: finished, Op: OpEq, Value: 0},
			Cmp{Column: unfinished, Op: OpEq, Value: 0},
		))
	}

	return c.unite(parts...)
}

// encryption compiles encryption: modifiers.
func (c *compiler) encryption(q *Query) Expr {
	const column = "Notes.contentContainsEncryption"

	var parts []Expr

	if q.Encryption {
		parts = append(parts, Cmp{Column: column, Op: OpEq, Value: 1})
	}

	if q.NegatedEncryption {
		parts = append(parts, Cmp{Column: column, Op: OpEq, Value: 0})
	}

	return c.unite(parts...)
}

// content compiles content terms.
func (c *compiler) content(terms, negated []string) Expr {
	var parts []Expr

	for _, t := range terms {
		parts = append(parts, contentTerm(strings.ToLower(t)))
	}

	for _, t := range negated {
		parts = append(parts, Not{contentTerm(strings.ToLower(t))})
	}

	return c.unite(parts...)
}

// contentTerm matches the term against the note word list, the note title,
// resource recognition data, and tag names.
func contentTerm(term string) Expr {
	if useLike(term) {
		p := "%" + LikePattern(term) + "%"

		return Or{
			Like{Column: "Notes.contentListOfWords", Pattern: p, NullAsEmpty: true},
			Like{Column: "Notes.titleNormalized", Pattern: p, NullAsEmpty: true},
			InSelect{Column: noteID, Select: &Select{
				Column: "noteLocalUid",
				From:   "ResourceRecognitionData",
				Where:  Like{Column: "recognitionData", Pattern: p},
			}},
			InSelect{Column: noteID, Select: &Select{
				Column: "localNote",
				From:   "NoteTags",
				Where: InSelect{Column: "localTag", Select: &Select{
					Column: "localUid",
					From:   "Tags",
					Where:  Like{Column: "nameLower", Pattern: p},
				}},
			}},
		}
	}

	phrase := FTSPhrase(term)

	return Or{
		noteFTS("contentListOfWords", phrase),
		noteFTS("titleNormalized", phrase),
		InSelect{Column: noteID, Select: &Select{
			Column: "noteLocalUid",
			From:   "ResourceRecognitionDataFTS",
			Where:  Match{Table: "ResourceRecognitionDataFTS", Query: phrase},
		}},
		InSelect{Column: noteID, Select: &Select{
			Column: "localNote",
			From:   "NoteTags",
			Where: InSelect{Column: "localTag", Select: &Select{
				Column: "localUid",
				From:   "TagFTS",
				Where:  Match{Table: "TagFTS", Query: phrase},
			}},
		}},
	}
}

// titleTerm matches the term against the note title.
func titleTerm(term string) Expr {
	if useLike(term) {
		return Like{Column: "Notes.titleNormalized", Pattern: "%" + LikePattern(term) + "%", NullAsEmpty: true}
	}

	return noteFTS("titleNormalized", FTSPhrase(term))
}

// noteFTS matches the FTS5 phrase against the given NoteFTS column.
func noteFTS(column, phrase string) Expr {
	return InSelect{Column: noteID, Select: &Select{
		Column: "localUid",
		From:   "NoteFTS",
		Where:  Match{Table: "NoteFTS", Query: "{" + column + "} : " + phrase},
	}}
}

// useLike returns true if the term can't be expressed as FTS5 MATCH query:
// it contains whitespace or a wildcard not at the end.
func useLike(term string) bool {
	if strings.IndexFunc(term, unicode.IsSpace) >= 0 {
		return true
	}

	i := strings.IndexByte(term, '*')

	return i >= 0 && i != len(term)-1
}

// FTSPhrase returns FTS5 phrase for the term; a trailing '*' becomes a prefix query.
func FTSPhrase(term string) string {
	prefix := strings.HasSuffix(term, "*")
	term = strings.TrimSuffix(term, "*")

	res := `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	if prefix {
		res += "*"
	}

	return res
}

// LikePattern returns LIKE pattern for the value: '%', '_' and '\' are escaped, '*' becomes '%'.
func LikePattern(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `%`)
	return r.Replace(v)
}
