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

package types

// LinkedNotebook represents a notebook shared by another user and linked into this account.
//
// Notebooks and tags with matching LinkedNotebookGUID belong to it.
type LinkedNotebook struct {
	LocalID                string
	GUID                   *string
	UpdateSequenceNum      *int32
	ShareName              *string
	Username               *string
	ShardID                *string
	SharedNotebookGlobalID *string
	URI                    *string
	NoteStoreURL           *string
	WebAPIURLPrefix        *string
	Stack                  *string
	BusinessID             *int32

	Dirty bool
}

// Validate checks that linked notebook could be stored.
func (ln *LinkedNotebook) Validate() error {
	if ln.GUID == nil {
		return newValidationError("guid", "is required for a linked notebook")
	}

	if err := validateGUID("guid", ln.GUID); err != nil {
		return err
	}

	if err := validateString("shareName", ln.ShareName, nil, notebookNameLenMin, notebookNameLenMax); err != nil {
		return err
	}

	if err := validateString("username", ln.Username, usernameRE, usernameLenMin, usernameLenMax); err != nil {
		return err
	}

	if err := validateString("stack", ln.Stack, notebookNameRE, notebookNameLenMin, notebookNameLenMax); err != nil {
		return err
	}

	return nil
}
