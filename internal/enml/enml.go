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

// Package enml analyses note content for search.
//
// Note content is ENML: an XHTML dialect with en-note root, en-todo checkboxes,
// en-crypt encrypted blocks and en-media resource references.
package enml

import (
	"errors"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/notestore/notestore/internal/util/lazyerrors"
)

// Analysis contains search-related properties of note content.
type Analysis struct {
	PlainText              string
	Words                  []string
	ContainsFinishedToDo   bool
	ContainsUnfinishedToDo bool
	ContainsEncryption     bool
}

// ListOfWords returns lower-cased words joined with spaces.
func (a *Analysis) ListOfWords() string {
	return strings.Join(a.Words, " ")
}

// blockElements produce line breaks in plain text.
var blockElements = map[atom.Atom]struct{}{
	atom.Br:         {},
	atom.Div:        {},
	atom.P:          {},
	atom.Li:         {},
	atom.Tr:         {},
	atom.H1:         {},
	atom.H2:         {},
	atom.H3:         {},
	atom.H4:         {},
	atom.H5:         {},
	atom.H6:         {},
	atom.Blockquote: {},
	atom.Pre:        {},
	atom.Hr:         {},
}

// Analyze extracts plain text, words, to-do and encryption markers from ENML content.
//
// Text of en-crypt elements is not included.
func Analyze(content string) (*Analysis, error) {
	var res Analysis
	var text strings.Builder
	var inCrypt int

	z := html.NewTokenizer(strings.NewReader(content))

	for {
		tt := z.Next()

		switch tt {
		case html.ErrorToken:
			err := z.Err()
			if errors.Is(err, io.EOF) {
				res.PlainText = strings.TrimSpace(text.String())
				res.Words = words(res.PlainText)

				return &res, nil
			}

			return nil, lazyerrors.Error(err)

		case html.TextToken:
			if inCrypt == 0 {
				text.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()

			switch string(name) {
			case "en-todo":
				if checked(z, hasAttr) {
					res.ContainsFinishedToDo = true
				} else {
					res.ContainsUnfinishedToDo = true
				}

				continue

			case "en-crypt":
				res.ContainsEncryption = true

				if tt == html.StartTagToken {
					inCrypt++
				}

				continue
			}

			if _, ok := blockElements[atom.Lookup(name)]; ok {
				text.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()

			if string(name) == "en-crypt" {
				if inCrypt > 0 {
					inCrypt--
				}

				continue
			}

			if _, ok := blockElements[atom.Lookup(name)]; ok {
				text.WriteByte('\n')
			}

		case html.CommentToken, html.DoctypeToken:
			// nothing
		}
	}
}

// checked returns true if the current en-todo tag has checked="true" attribute.
func checked(z *html.Tokenizer, hasAttr bool) bool {
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()

		if string(key) == "checked" {
			return strings.EqualFold(string(val), "true")
		}
	}

	return false
}

// words splits text into lower-cased words.
func words(text string) []string {
	res := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	if len(res) == 0 {
		return nil
	}

	return res
}
