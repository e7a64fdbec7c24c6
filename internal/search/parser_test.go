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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notestore/notestore/internal/storageerrors"
)

func TestParse(t *testing.T) {
	t.Parallel()

	// Wednesday
	now := time.Date(2024, time.March, 13, 15, 4, 5, 0, time.UTC)

	ms := func(year int, month time.Month, day, hour int) int64 {
		return time.Date(year, month, day, hour, 0, 0, 0, time.UTC).UnixMilli()
	}

	for name, tc := range map[string]struct {
		expr     string
		expected Query
	}{
		"Empty": {
			expr:     "",
			expected: Query{},
		},
		"LoneWildcard": {
			expr:     "  *  ",
			expected: Query{},
		},
		"Tags": {
			expr: "tag:x -tag:y TAG:* -tag:*",
			expected: Query{
				Tags: StringFilter{Values: []string{"x"}, Negated: []string{"y"}, Any: true, NegatedAny: true},
			},
		},
		"Any": {
			expr: "any: tag:x tag:y",
			expected: Query{
				Any:  true,
				Tags: StringFilter{Values: []string{"x", "y"}},
			},
		},
		"Notebook": {
			expr: `notebook:"My notes" hello`,
			expected: Query{
				Notebook:     "My notes",
				ContentTerms: []string{"hello"},
			},
		},
		"Terms": {
			expr: `"Hello World" -Foo wor*ld -"bar baz"`,
			expected: Query{
				ContentTerms:        []string{"hello world", "wor*ld"},
				NegatedContentTerms: []string{"foo", "bar baz"},
			},
		},
		"ColonInQuotes": {
			expr: `"author: x"`,
			expected: Query{
				ContentTerms: []string{"author: x"},
			},
		},
		"UnknownModifier": {
			expr: "http://example.com",
			expected: Query{
				ContentTerms: []string{"http://example.com"},
			},
		},
		"Attributes": {
			expr: `author:Bob -source:web.clip intitle:report resource:image/* applicationData:myapp ` +
				`sourceApplication:x contentClass:y placeName:"New York"`,
			expected: Query{
				Authors:            StringFilter{Values: []string{"Bob"}},
				Sources:            StringFilter{Negated: []string{"web.clip"}},
				Titles:             StringFilter{Values: []string{"report"}},
				ResourceMimeTypes:  StringFilter{Values: []string{"image/*"}},
				ApplicationData:    StringFilter{Values: []string{"myapp"}},
				SourceApplications: StringFilter{Values: []string{"x"}},
				ContentClasses:     StringFilter{Values: []string{"y"}},
				PlaceNames:         StringFilter{Values: []string{"New York"}},
			},
		},
		"AbsoluteDates": {
			expr: "created:20240101 subjectDate:20240101T120000Z reminderTime:*",
			expected: Query{
				Created:      NumericFilter[int64]{Values: []int64{ms(2024, time.January, 1, 0)}},
				SubjectDate:  NumericFilter[int64]{Values: []int64{ms(2024, time.January, 1, 12)}},
				ReminderTime: NumericFilter[int64]{Any: true},
			},
		},
		"RelativeDates": {
			expr: "-updated:day-1 created:week updated:month+1 subjectDate:year-2 reminderDoneTime:day",
			expected: Query{
				Updated: NumericFilter[int64]{
					Values:  []int64{ms(2024, time.April, 1, 0)},
					Negated: []int64{ms(2024, time.March, 12, 0)},
				},
				Created:          NumericFilter[int64]{Values: []int64{ms(2024, time.March, 10, 0)}},
				SubjectDate:      NumericFilter[int64]{Values: []int64{ms(2022, time.January, 1, 0)}},
				ReminderDoneTime: NumericFilter[int64]{Values: []int64{ms(2024, time.March, 13, 0)}},
			},
		},
		"Numbers": {
			expr: "latitude:10.5 -longitude:-20 altitude:* reminderOrder:3",
			expected: Query{
				Latitude:      NumericFilter[float64]{Values: []float64{10.5}},
				Longitude:     NumericFilter[float64]{Negated: []float64{-20}},
				Altitude:      NumericFilter[float64]{Any: true},
				ReminderOrder: NumericFilter[int64]{Values: []int64{3}},
			},
		},
		"ToDo": {
			expr: "todo:true -todo:false todo:*",
			expected: Query{
				ToDo: ToDoFilter{Finished: true, NegatedUnfinished: true, Any: true},
			},
		},
		"Encryption": {
			expr: "-encryption:",
			expected: Query{
				NegatedEncryption: true,
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			actual, err := Parse(tc.expr, now)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, *actual)
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	now := time.Now()

	for name, expr := range map[string]string{
		"TwoNotebooks":    "notebook:a notebook:b",
		"NegatedNotebook": "-notebook:a",
		"EmptyNotebook":   "notebook:",
		"BadDate":         "created:yesterday",
		"BadToDo":         "todo:maybe",
		"Unterminated":    `"hello`,
		"BadNumber":       "latitude:north",
		"AnyWithValue":    "any:x",
		"EncryptionValue": "encryption:yes",
		"EmptyTag":        "tag:",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(expr, now)
			require.Error(t, err)
			assert.True(t, storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeQueryCompilation), "%v", err)
		})
	}
}

func TestQueryIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, new(Query).IsEmpty())
	assert.False(t, (&Query{Notebook: "x"}).IsEmpty())
	assert.False(t, (&Query{Altitude: NumericFilter[float64]{Any: true}}).IsEmpty())
	assert.False(t, (&Query{NegatedContentTerms: []string{"x"}}).IsEmpty())
	assert.False(t, (&Query{ToDo: ToDoFilter{NegatedAny: true}}).IsEmpty())

	// "any:" alone is not a constraint
	assert.True(t, (&Query{Any: true}).IsEmpty())
}
