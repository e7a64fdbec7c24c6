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

// Package search provides search expressions over notes and their compilation to SQL.
//
// A [Query] is usually produced by [Parse] from a search expression like
//
//	notebook:Work any: tag:urgent -tag:done intitle:report "quarterly plan" budg*
//
// and is compiled by [Compile] into a single SELECT statement returning local identifiers of matching notes.
package search

// StringFilter represents string-valued modifiers of one kind like tag: or -tag:.
type StringFilter struct {
	// Values are given without negation (tag:x).
	Values []string

	// Negated values are given with negation (-tag:x).
	Negated []string

	// Any is set for "field:*": a note should have any value.
	Any bool

	// NegatedAny is set for "-field:*": a note should have no value.
	NegatedAny bool
}

// IsEmpty returns true if filter has no constraints.
func (f *StringFilter) IsEmpty() bool {
	return len(f.Values) == 0 && len(f.Negated) == 0 && !f.Any && !f.NegatedAny
}

// Number is a type of numeric modifier value.
type Number interface {
	int64 | float64
}

// NumericFilter represents numeric-valued modifiers of one kind like created: or -created:.
type NumericFilter[T Number] struct {
	Values     []T
	Negated    []T
	Any        bool
	NegatedAny bool
}

// IsEmpty returns true if filter has no constraints.
func (f *NumericFilter[T]) IsEmpty() bool {
	return len(f.Values) == 0 && len(f.Negated) == 0 && !f.Any && !f.NegatedAny
}

// ToDoFilter represents todo: modifiers.
type ToDoFilter struct {
	Finished          bool // todo:true
	NegatedFinished   bool // -todo:true
	Unfinished        bool // todo:false
	NegatedUnfinished bool // -todo:false
	Any               bool // todo:*
	NegatedAny        bool // -todo:*
}

// IsEmpty returns true if filter has no constraints.
func (f *ToDoFilter) IsEmpty() bool {
	return *f == ToDoFilter{}
}

// Query represents a structured search expression.
//
// Timestamps are milliseconds since the Unix epoch.
//
//nolint:vet // for readability
type Query struct {
	// Notebook is a name of the notebook to search in; empty for all notebooks.
	Notebook string

	// Any switches the operator that unites modifiers from AND to OR.
	Any bool

	Tags               StringFilter
	Titles             StringFilter
	Authors            StringFilter
	Sources            StringFilter
	SourceApplications StringFilter
	ContentClasses     StringFilter
	PlaceNames         StringFilter
	ApplicationData    StringFilter
	ResourceMimeTypes  StringFilter

	Created          NumericFilter[int64]
	Updated          NumericFilter[int64]
	SubjectDate      NumericFilter[int64]
	ReminderOrder    NumericFilter[int64]
	ReminderTime     NumericFilter[int64]
	ReminderDoneTime NumericFilter[int64]
	Latitude         NumericFilter[float64]
	Longitude        NumericFilter[float64]
	Altitude         NumericFilter[float64]

	ToDo ToDoFilter

	Encryption        bool // encryption:
	NegatedEncryption bool // -encryption:

	// ContentTerms are lower-cased words or phrases; a trailing or embedded '*' is a wildcard.
	ContentTerms        []string
	NegatedContentTerms []string
}

// stringFilters returns all string filters.
func (q *Query) stringFilters() []*StringFilter {
	return []*StringFilter{
		&q.Tags, &q.Titles, &q.Authors, &q.Sources, &q.SourceApplications,
		&q.ContentClasses, &q.PlaceNames, &q.ApplicationData, &q.ResourceMimeTypes,
	}
}

// IsEmpty returns true if query has neither modifiers nor content terms.
func (q *Query) IsEmpty() bool {
	if q.Notebook != "" || q.Encryption || q.NegatedEncryption || !q.ToDo.IsEmpty() {
		return false
	}

	if len(q.ContentTerms) > 0 || len(q.NegatedContentTerms) > 0 {
		return false
	}

	for _, f := range q.stringFilters() {
		if !f.IsEmpty() {
			return false
		}
	}

	for _, f := range []*NumericFilter[int64]{
		&q.Created, &q.Updated, &q.SubjectDate, &q.ReminderOrder, &q.ReminderTime, &q.ReminderDoneTime,
	} {
		if !f.IsEmpty() {
			return false
		}
	}

	for _, f := range []*NumericFilter[float64]{&q.Latitude, &q.Longitude, &q.Altitude} {
		if !f.IsEmpty() {
			return false
		}
	}

	return true
}
