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
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/notestore/notestore/internal/storageerrors"
)

// token is a single element of a search expression.
type token struct {
	negated bool
	key     string // lower-cased modifier name; empty for content terms
	value   string
}

// rawToken is a token before its modifier is recognized.
type rawToken struct {
	text    string
	quoteAt int // byte offset of the first quote in text, or -1
}

// tokenize splits the expression into whitespace-separated tokens.
//
// Double quotes group words with whitespace; they are removed from the result.
func tokenize(expr string) ([]rawToken, error) {
	var res []rawToken

	var cur strings.Builder
	var inQuotes, started bool
	quoteAt := -1

	flush := func() {
		if started {
			res = append(res, rawToken{text: cur.String(), quoteAt: quoteAt})
		}

		cur.Reset()
		started = false
		quoteAt = -1
	}

	for _, r := range expr {
		switch {
		case r == '"':
			if quoteAt < 0 {
				quoteAt = cur.Len()
			}

			inQuotes = !inQuotes
			started = true

		case unicode.IsSpace(r) && !inQuotes:
			flush()

		default:
			cur.WriteRune(r)
			started = true
		}
	}

	if inQuotes {
		return nil, fmt.Errorf("unmatched quote")
	}

	flush()

	return res, nil
}

// splitToken splits raw token into negation, modifier name and value.
//
// A colon inside quotes does not start a modifier.
func splitToken(raw rawToken) token {
	t := token{value: raw.text}
	quoteAt := raw.quoteAt

	if len(t.value) > 1 && t.value[0] == '-' {
		t.negated = true
		t.value = t.value[1:]
		quoteAt--
	}

	i := strings.IndexByte(t.value, ':')
	if i <= 0 || (raw.quoteAt >= 0 && quoteAt <= i) {
		return t
	}

	key := strings.ToLower(t.value[:i])
	if _, ok := modifiers[key]; ok {
		t.key = key
		t.value = t.value[i+1:]
	}

	return t
}

// modifier applies a single modifier to the query.
type modifier func(q *Query, negated bool, value string, now time.Time) error

// modifiers maps lower-cased modifier names to their handlers.
var modifiers map[string]modifier

func init() {
	modifiers = map[string]modifier{
		"any":      parseAny,
		"notebook": parseNotebook,

		"tag":               stringModifier(func(q *Query) *StringFilter { return &q.Tags }),
		"intitle":           stringModifier(func(q *Query) *StringFilter { return &q.Titles }),
		"author":            stringModifier(func(q *Query) *StringFilter { return &q.Authors }),
		"source":            stringModifier(func(q *Query) *StringFilter { return &q.Sources }),
		"sourceapplication": stringModifier(func(q *Query) *StringFilter { return &q.SourceApplications }),
		"contentclass":      stringModifier(func(q *Query) *StringFilter { return &q.ContentClasses }),
		"placename":         stringModifier(func(q *Query) *StringFilter { return &q.PlaceNames }),
		"applicationdata":   stringModifier(func(q *Query) *StringFilter { return &q.ApplicationData }),
		"resource":          stringModifier(func(q *Query) *StringFilter { return &q.ResourceMimeTypes }),

		"created":          dateModifier(func(q *Query) *NumericFilter[int64] { return &q.Created }),
		"updated":          dateModifier(func(q *Query) *NumericFilter[int64] { return &q.Updated }),
		"subjectdate":      dateModifier(func(q *Query) *NumericFilter[int64] { return &q.SubjectDate }),
		"remindertime":     dateModifier(func(q *Query) *NumericFilter[int64] { return &q.ReminderTime }),
		"reminderdonetime": dateModifier(func(q *Query) *NumericFilter[int64] { return &q.ReminderDoneTime }),

		"reminderorder": numberModifier(
			func(q *Query) *NumericFilter[int64] { return &q.ReminderOrder },
			func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
		),
		"latitude":  floatModifier(func(q *Query) *NumericFilter[float64] { return &q.Latitude }),
		"longitude": floatModifier(func(q *Query) *NumericFilter[float64] { return &q.Longitude }),
		"altitude":  floatModifier(func(q *Query) *NumericFilter[float64] { return &q.Altitude }),

		"todo":       parseToDo,
		"encryption": parseEncryption,
	}
}

// Parse parses the search expression.
//
// Now is used for relative dates like "day-1" and as the location of absolute dates without "Z" suffix.
// Syntax errors are returned as QueryCompilation errors.
func Parse(expr string, now time.Time) (*Query, error) {
	raws, err := tokenize(expr)
	if err != nil {
		return nil, storageerrors.Errorf(storageerrors.ErrorCodeQueryCompilation, "%q: %s", expr, err)
	}

	var q Query

	for _, raw := range raws {
		t := splitToken(raw)

		if t.key == "" {
			addTerm(&q, t)
			continue
		}

		if err = modifiers[t.key](&q, t.negated, t.value, now); err != nil {
			return nil, storageerrors.Errorf(storageerrors.ErrorCodeQueryCompilation, "%q: %s: %s", expr, raw.text, err)
		}
	}

	return &q, nil
}

// addTerm adds a content term to the query.
func addTerm(q *Query, t token) {
	v := strings.ToLower(strings.TrimSpace(t.value))

	// a lone wildcard matches everything and is not a constraint
	if strings.Trim(v, "*") == "" {
		return
	}

	if t.negated {
		q.NegatedContentTerms = append(q.NegatedContentTerms, v)
		return
	}

	q.ContentTerms = append(q.ContentTerms, v)
}

// parseAny handles "any:".
func parseAny(q *Query, negated bool, value string, _ time.Time) error {
	if negated || value != "" {
		return fmt.Errorf("any: takes no value and can't be negated")
	}

	q.Any = true

	return nil
}

// parseNotebook handles "notebook:".
func parseNotebook(q *Query, negated bool, value string, _ time.Time) error {
	switch {
	case negated:
		return fmt.Errorf("notebook: can't be negated")
	case value == "":
		return fmt.Errorf("notebook name is empty")
	case q.Notebook != "":
		return fmt.Errorf("only one notebook: is allowed")
	}

	q.Notebook = value

	return nil
}

// parseToDo handles "todo:".
func parseToDo(q *Query, negated bool, value string, _ time.Time) error {
	f := &q.ToDo

	switch strings.ToLower(value) {
	case "true":
		if negated {
			f.NegatedFinished = true
		} else {
			f.Finished = true
		}
	case "false":
		if negated {
			f.NegatedUnfinished = true
		} else {
			f.Unfinished = true
		}
	case "*":
		if negated {
			f.NegatedAny = true
		} else {
			f.Any = true
		}
	default:
		return fmt.Errorf("unexpected value %q, expected true, false or *", value)
	}

	return nil
}

// parseEncryption handles "encryption:".
func parseEncryption(q *Query, negated bool, value string, _ time.Time) error {
	if value != "" {
		return fmt.Errorf("encryption: takes no value")
	}

	if negated {
		q.NegatedEncryption = true
	} else {
		q.Encryption = true
	}

	return nil
}

// stringModifier returns a handler for string modifiers.
func stringModifier(field func(*Query) *StringFilter) modifier {
	return func(q *Query, negated bool, value string, _ time.Time) error {
		if value == "" {
			return fmt.Errorf("value is empty")
		}

		f := field(q)

		switch {
		case value == "*" && negated:
			f.NegatedAny = true
		case value == "*":
			f.Any = true
		case negated:
			f.Negated = append(f.Negated, value)
		default:
			f.Values = append(f.Values, value)
		}

		return nil
	}
}

// numberModifier returns a handler for numeric modifiers with the given value parser.
func numberModifier[T Number](field func(*Query) *NumericFilter[T], parse func(string) (T, error)) modifier {
	return func(q *Query, negated bool, value string, _ time.Time) error {
		f := field(q)

		if value == "*" {
			if negated {
				f.NegatedAny = true
			} else {
				f.Any = true
			}

			return nil
		}

		v, err := parse(value)
		if err != nil {
			return fmt.Errorf("invalid number %q", value)
		}

		if negated {
			f.Negated = append(f.Negated, v)
		} else {
			f.Values = append(f.Values, v)
		}

		return nil
	}
}

// floatModifier returns a handler for floating point modifiers.
func floatModifier(field func(*Query) *NumericFilter[float64]) modifier {
	return numberModifier(field, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// dateModifier returns a handler for date modifiers.
func dateModifier(field func(*Query) *NumericFilter[int64]) modifier {
	return func(q *Query, negated bool, value string, now time.Time) error {
		parse := func(s string) (int64, error) { return parseDate(s, now) }
		return numberModifier(field, parse)(q, negated, value, now)
	}
}

var (
	relativeDateRE = regexp.MustCompile(`^(day|week|month|year)([-+][0-9]+)?$`)
	absoluteDateRE = regexp.MustCompile(`^[0-9]{8}(T[0-9]{6})?Z?$`)
)

// parseDate parses absolute (YYYYMMDD[THHMMSS][Z]) or relative (day|week|month|year[-+N]) date
// into milliseconds since the Unix epoch.
func parseDate(s string, now time.Time) (int64, error) {
	if m := relativeDateRE.FindStringSubmatch(strings.ToLower(s)); m != nil {
		var n int

		if m[2] != "" {
			var err error
			if n, err = strconv.Atoi(m[2]); err != nil {
				return 0, err
			}
		}

		y, mon, d := now.Date()
		day := time.Date(y, mon, d, 0, 0, 0, 0, now.Location())

		var t time.Time

		switch m[1] {
		case "day":
			t = day.AddDate(0, 0, n)
		case "week":
			t = day.AddDate(0, 0, -int(day.Weekday())+7*n)
		case "month":
			t = time.Date(y, mon, 1, 0, 0, 0, 0, now.Location()).AddDate(0, n, 0)
		case "year":
			t = time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location()).AddDate(n, 0, 0)
		}

		return t.UnixMilli(), nil
	}

	if !absoluteDateRE.MatchString(s) {
		return 0, fmt.Errorf("invalid date %q", s)
	}

	loc := now.Location()
	if strings.HasSuffix(s, "Z") {
		loc = time.UTC
		s = strings.TrimSuffix(s, "Z")
	}

	layout := "20060102"
	if len(s) > len(layout) {
		layout = "20060102T150405"
	}

	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return 0, err
	}

	return t.UnixMilli(), nil
}
