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

package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/localstorage/sqlite"
	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/testutil"
)

func TestReport(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	dir := t.TempDir()
	account := &localstorage.Account{Name: "alice"}

	s, err := sqlite.Open(ctx, &sqlite.OpenParams{
		Dir:     dir,
		Account: account,
		L:       testutil.Logger(t),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	nb := &types.Notebook{Name: pointer.ToString("Inbox")}
	require.NoError(t, s.AddNotebook(ctx, nb))

	tag := &types.Tag{Name: pointer.ToString("work")}
	require.NoError(t, s.AddTag(ctx, tag))

	note := &types.Note{
		NotebookLocalID: nb.LocalID,
		Title:           pointer.ToString("Groceries"),
		Content:         pointer.ToString("<en-note>milk and bread</en-note>"),
		TagLocalIDs:     []string{tag.LocalID},
	}
	require.NoError(t, s.AddNote(ctx, note))
	require.NoError(t, s.AddNote(ctx, &types.Note{
		NotebookLocalID: nb.LocalID,
		Title:           pointer.ToString("Meeting"),
	}))

	r, err := buildReport(ctx, s, &reportParams{
		Account: account,
		Dir:     dir,
		Queries: []string{"milk", "tag:work", "notebook:missing", "todo:maybe"},
		Now:     time.Now(),
		L:       testutil.Logger(t),
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", r.Account)
	assert.Equal(t, filepath.Join(dir, "LocalAccounts", "alice", localstorage.DatabaseFile), r.Path)
	assert.Positive(t, r.Version)

	expectedCounts := counts{
		Notebooks: 1,
		Notes:     2,
		Tags:      1,
	}
	assert.Equal(t, expectedCounts, r.Counts)

	require.Len(t, r.Searches, 4)

	for i, expr := range []string{"milk", "tag:work"} {
		sr := r.Searches[i]
		assert.Equal(t, expr, sr.Query)
		assert.Empty(t, sr.Error)
		require.Len(t, sr.Notes, 1)
		assert.Equal(t, note.LocalID, sr.Notes[0].LocalID)
	}

	for _, sr := range r.Searches[2:] {
		assert.NotEmpty(t, sr.Error, sr.Query)
		assert.Empty(t, sr.Notes, sr.Query)
	}

	t.Run("YAML", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, r, "yaml"))

		var actual map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &actual))
		assert.Equal(t, "alice", actual["account"])
		assert.Equal(t, 2, actual["counts"].(map[string]any)["notes"])
		assert.Len(t, actual["searches"], 4)
	})

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, r, "json"))

		var actual map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &actual))
		assert.Equal(t, "alice", actual["account"])
		assert.Equal(t, float64(2), actual["counts"].(map[string]any)["notes"])
		assert.True(t, strings.HasSuffix(buf.String(), "}\n"))
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		t.Parallel()

		err := writeReport(new(bytes.Buffer), r, "xml")
		require.Error(t, err)
	})
}

func TestAccountFromFlags(t *testing.T) {
	// cli is a global variable
	cli.Account.Name = "bob"
	cli.Account.Type = "evernote"
	cli.Account.Host = "www.evernote.com"
	cli.Account.ID = 42

	t.Cleanup(func() {
		cli.Account.Type = ""
	})

	expected := &localstorage.Account{
		Name:   "bob",
		Type:   localstorage.AccountTypeEvernote,
		Host:   "www.evernote.com",
		UserID: 42,
	}
	assert.Equal(t, expected, accountFromFlags())
	require.NoError(t, accountFromFlags().Validate())

	cli.Account.Type = "local"
	assert.Equal(t, localstorage.AccountTypeLocal, accountFromFlags().Type)
}
