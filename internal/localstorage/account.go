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
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// AccountType represents the kind of account.
type AccountType int

// Account types.
const (
	AccountTypeLocal AccountType = iota
	AccountTypeEvernote
)

// String implements fmt.Stringer.
func (t AccountType) String() string {
	switch t {
	case AccountTypeLocal:
		return "local"
	case AccountTypeEvernote:
		return "evernote"
	default:
		return "AccountType(" + strconv.Itoa(int(t)) + ")"
	}
}

// DatabaseFile is the name of the storage database file in the account directory.
const DatabaseFile = "qn.storage.sqlite"

// Account represents a user account that owns the storage.
type Account struct {
	Name string
	Type AccountType

	// Host and UserID are used only for Evernote accounts.
	Host   string
	UserID int32
}

// Validate checks that account could be used for path construction.
func (a *Account) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("account name is empty")
	}

	if strings.ContainsAny(a.Name, `/\`) || a.Name == "." || a.Name == ".." {
		return fmt.Errorf("account name %q is invalid", a.Name)
	}

	switch a.Type {
	case AccountTypeLocal:
		return nil
	case AccountTypeEvernote:
		if a.Host == "" || strings.ContainsAny(a.Host, `/\`) {
			return fmt.Errorf("account host %q is invalid", a.Host)
		}

		if a.UserID <= 0 {
			return fmt.Errorf("account user id %d is invalid", a.UserID)
		}

		return nil
	default:
		return fmt.Errorf("unexpected account type %s", a.Type)
	}
}

// Dir returns the account directory under the given root directory.
//
// Local accounts are stored in <root>/LocalAccounts/<name>,
// Evernote accounts are stored in <root>/EvernoteAccounts/<name>_<host>_<user id>.
func (a *Account) Dir(root string) string {
	if a.Type == AccountTypeEvernote {
		return filepath.Join(root, "EvernoteAccounts", fmt.Sprintf("%s_%s_%d", a.Name, a.Host, a.UserID))
	}

	return filepath.Join(root, "LocalAccounts", a.Name)
}

// DatabasePath returns the path of the storage database file under the given root directory.
func (a *Account) DatabasePath(root string) string {
	return filepath.Join(a.Dir(root), DatabaseFile)
}
