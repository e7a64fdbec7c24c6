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

// Tag represents a label that could be attached to notes.
//
// Tags form a hierarchy through ParentLocalID.
type Tag struct {
	LocalID            string
	GUID               *string
	LinkedNotebookGUID *string
	UpdateSequenceNum  *int32
	Name               *string
	ParentGUID         *string
	ParentLocalID      *string

	Dirty     bool
	Local     bool
	Favorited bool
	Deleted   bool
}

// Validate checks that tag could be stored.
func (t *Tag) Validate() error {
	if err := validateGUID("guid", t.GUID); err != nil {
		return err
	}

	if err := validateGUID("linkedNotebookGuid", t.LinkedNotebookGUID); err != nil {
		return err
	}

	if err := validateGUID("parentGuid", t.ParentGUID); err != nil {
		return err
	}

	if t.Name == nil {
		return newValidationError("name", "is required")
	}

	if err := validateString("name", t.Name, tagNameRE, tagNameLenMin, tagNameLenMax); err != nil {
		return err
	}

	if t.ParentLocalID != nil && *t.ParentLocalID == t.LocalID {
		return newValidationError("parentLocalId", "tag can't be its own parent")
	}

	return nil
}
