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

package enml

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/notestore/notestore/internal/util/lazyerrors"
)

// recoIndex is a resource recognition document.
type recoIndex struct {
	XMLName xml.Name   `xml:"recoIndex"`
	Items   []recoItem `xml:"item"`
}

// recoItem is a recognized area with alternative texts.
type recoItem struct {
	Texts []struct {
		Weight int    `xml:"w,attr"`
		Value  string `xml:",chardata"`
	} `xml:"t"`
}

// RecognitionText returns all distinct recognized words of the recognition document, joined with spaces.
//
// All alternatives of every item are included so that any of them could be found.
func RecognitionText(body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}

	var doc recoIndex
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", lazyerrors.Error(err)
	}

	seen := make(map[string]struct{})

	var res []string

	for _, item := range doc.Items {
		for _, t := range item.Texts {
			v := strings.ToLower(strings.TrimSpace(t.Value))
			if v == "" {
				continue
			}

			if _, ok := seen[v]; ok {
				continue
			}

			seen[v] = struct{}{}
			res = append(res, v)
		}
	}

	return strings.Join(res, " "), nil
}
