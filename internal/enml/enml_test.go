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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		content  string
		expected Analysis
	}{
		"Simple": {
			content: `<?xml version="1.0" encoding="UTF-8"?>` +
				`<!DOCTYPE en-note SYSTEM "http://xml.evernote.com/pub/enml2.dtd">` +
				`<en-note><div>Hello World</div></en-note>`,
			expected: Analysis{
				PlainText: "Hello World",
				Words:     []string{"hello", "world"},
			},
		},
		"ToDo": {
			content: `<en-note><div><en-todo checked="true"/>Buy milk</div><div><en-todo/>Call Bob</div></en-note>`,
			expected: Analysis{
				PlainText:              "Buy milk\n\nCall Bob",
				Words:                  []string{"buy", "milk", "call", "bob"},
				ContainsFinishedToDo:   true,
				ContainsUnfinishedToDo: true,
			},
		},
		"Unchecked": {
			content: `<en-note><en-todo checked="false"/>x</en-note>`,
			expected: Analysis{
				PlainText:              "x",
				Words:                  []string{"x"},
				ContainsUnfinishedToDo: true,
			},
		},
		"Encryption": {
			content: `<en-note>Secret: <en-crypt hint="pet">AbCdEf==</en-crypt></en-note>`,
			expected: Analysis{
				PlainText:          "Secret:",
				Words:              []string{"secret"},
				ContainsEncryption: true,
			},
		},
		"Punctuation": {
			content: `<en-note>Don't&nbsp;panic, it's 42!</en-note>`,
			expected: Analysis{
				PlainText: "Don't\u00a0panic, it's 42!",
				Words:     []string{"don", "t", "panic", "it", "s", "42"},
			},
		},
		"Empty": {
			content:  `<en-note></en-note>`,
			expected: Analysis{},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			actual, err := Analyze(tc.content)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, *actual)
		})
	}
}

func TestListOfWords(t *testing.T) {
	t.Parallel()

	a, err := Analyze(`<en-note><p>Hello</p><p>WORLD</p></en-note>`)
	require.NoError(t, err)
	assert.Equal(t, "hello world", a.ListOfWords())
}

func TestRecognitionText(t *testing.T) {
	t.Parallel()

	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<recoIndex docType="handwritten" objType="image" objID="a284273e482578224145f2560b67bf45" engineVersion="3.0.17.14" recoType="client" lang="en" objWidth="1600" objHeight="2082">
  <item x="853" y="1611" w="232" h="80">
    <t w="32">LONDON</t>
    <t w="25">LONDAN</t>
  </item>
  <item x="1406" y="1597" w="145" h="80">
    <t w="31">london</t>
  </item>
</recoIndex>`)

	actual, err := RecognitionText(body)
	require.NoError(t, err)
	assert.Equal(t, "london londan", actual)

	actual, err = RecognitionText(nil)
	require.NoError(t, err)
	assert.Equal(t, "", actual)

	_, err = RecognitionText([]byte("<recoIndex"))
	assert.Error(t, err)
}
