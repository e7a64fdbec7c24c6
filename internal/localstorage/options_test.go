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

package localstorage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notestore/notestore/internal/storageerrors"
)

func TestListOptionsValidate(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		opts ListOptions[NoteOrder]
		code storageerrors.ErrorCode // 0 for no error
	}{
		"All": {
			opts: ListOptions[NoteOrder]{Flags: ListAll},
		},
		"Pair": {
			opts: ListOptions[NoteOrder]{Flags: ListDirty | ListNonDirty},
		},
		"NoFlags": {
			opts: ListOptions[NoteOrder]{},
			code: storageerrors.ErrorCodeFilter,
		},
		"UnknownFlag": {
			opts: ListOptions[NoteOrder]{Flags: 1 << 20},
			code: storageerrors.ErrorCodeFilter,
		},
		"NegativeLimit": {
			opts: ListOptions[NoteOrder]{Flags: ListAll, Limit: -1},
			code: storageerrors.ErrorCodeValidation,
		},
		"NegativeOffset": {
			opts: ListOptions[NoteOrder]{Flags: ListAll, Limit: 10, Offset: -1},
			code: storageerrors.ErrorCodeValidation,
		},
		"OffsetWithoutLimit": {
			opts: ListOptions[NoteOrder]{Flags: ListAll, Offset: 10},
			code: storageerrors.ErrorCodeValidation,
		},
		"Page": {
			opts: ListOptions[NoteOrder]{Flags: ListAll, Limit: 10, Offset: 10},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.opts.Validate()
			if tc.code != 0 {
				assert.True(t, storageerrors.ErrorCodeIs(err, tc.code), "%v", err)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestListFlagsHas(t *testing.T) {
	t.Parallel()

	f := ListDirty | ListFavorited

	assert.True(t, f.Has(ListDirty))
	assert.True(t, f.Has(ListDirty|ListFavorited))
	assert.False(t, f.Has(ListDirty|ListLocal))
	assert.False(t, f.Has(ListAll))
}

func TestAccount(t *testing.T) {
	t.Parallel()

	root := filepath.Join("data", "notestore")

	for name, tc := range map[string]struct {
		account  Account
		expected string // empty if invalid
	}{
		"Local": {
			account:  Account{Name: "alice"},
			expected: filepath.Join(root, "LocalAccounts", "alice", DatabaseFile),
		},
		"Evernote": {
			account:  Account{Name: "bob", Type: AccountTypeEvernote, Host: "www.evernote.com", UserID: 42},
			expected: filepath.Join(root, "EvernoteAccounts", "bob_www.evernote.com_42", DatabaseFile),
		},
		"EmptyName": {
			account: Account{},
		},
		"Traversal": {
			account: Account{Name: ".."},
		},
		"Slash": {
			account: Account{Name: "a/b"},
		},
		"EvernoteWithoutHost": {
			account: Account{Name: "bob", Type: AccountTypeEvernote, UserID: 42},
		},
		"EvernoteWithoutUser": {
			account: Account{Name: "bob", Type: AccountTypeEvernote, Host: "www.evernote.com"},
		},
		"UnknownType": {
			account: Account{Name: "bob", Type: 5},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.account.Validate()
			if tc.expected == "" {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, tc.account.DatabasePath(root))
		})
	}

	assert.Equal(t, "local", AccountTypeLocal.String())
	assert.Equal(t, "evernote", AccountTypeEvernote.String())
	assert.Equal(t, "AccountType(5)", AccountType(5).String())
}
