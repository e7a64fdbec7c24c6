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

// QueryFormat represents saved search query format.
type QueryFormat int32

// QueryFormatUser is the only supported query format.
const QueryFormatUser QueryFormat = 1

// SavedSearch represents a named search expression.
type SavedSearch struct {
	LocalID                        string
	GUID                           *string
	UpdateSequenceNum              *int32
	Name                           *string
	Query                          *string
	Format                         *QueryFormat
	IncludeAccount                 *bool
	IncludePersonalLinkedNotebooks *bool
	IncludeBusinessLinkedNotebooks *bool

	Dirty     bool
	Local     bool
	Favorited bool
}

// Validate checks that saved search could be stored.
func (s *SavedSearch) Validate() error {
	if err := validateGUID("guid", s.GUID); err != nil {
		return err
	}

	if s.Name == nil {
		return newValidationError("name", "is required")
	}

	if err := validateString("name", s.Name, notebookNameRE, savedSearchNameLenMin, savedSearchNameLenMax); err != nil {
		return err
	}

	if err := validateString("query", s.Query, nil, searchQueryLenMin, searchQueryLenMax); err != nil {
		return err
	}

	if s.Format != nil && *s.Format != QueryFormatUser {
		return newValidationError("format", "is not supported")
	}

	return nil
}
