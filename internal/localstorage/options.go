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

import "github.com/notestore/notestore/internal/storageerrors"

// ListFlags is a bitmask of list filters.
//
// Flags come in pairs of opposite polarity; when both flags of a pair are set,
// that axis is not filtered.
type ListFlags uint

// List flags.
const (
	ListAll ListFlags = 1 << iota
	ListDirty
	ListNonDirty
	ListElementsWithoutGUID
	ListElementsWithGUID
	ListLocal
	ListNonLocal
	ListFavorited
	ListNonFavorited

	listKnownFlags = ListAll | ListDirty | ListNonDirty | ListElementsWithoutGUID | ListElementsWithGUID |
		ListLocal | ListNonLocal | ListFavorited | ListNonFavorited
)

// Has returns true if all given flags are set.
func (f ListFlags) Has(flags ListFlags) bool {
	return f&flags == flags
}

// Direction represents sort direction.
type Direction int

// Sort directions.
const (
	Ascending Direction = iota
	Descending
)

// UserOrder represents the sort column of users.
type UserOrder int

// User orders.
const (
	UserNoOrder UserOrder = iota
	UserOrderByUsername
	UserOrderByCreationTimestamp
)

// NotebookOrder represents the sort column of notebooks.
type NotebookOrder int

// Notebook orders.
const (
	NotebookNoOrder NotebookOrder = iota
	NotebookOrderByUpdateSequenceNumber
	NotebookOrderByName
	NotebookOrderByCreationTimestamp
	NotebookOrderByModificationTimestamp
)

// LinkedNotebookOrder represents the sort column of linked notebooks.
type LinkedNotebookOrder int

// Linked notebook orders.
const (
	LinkedNotebookNoOrder LinkedNotebookOrder = iota
	LinkedNotebookOrderByUpdateSequenceNumber
	LinkedNotebookOrderByShareName
	LinkedNotebookOrderByUsername
)

// NoteOrder represents the sort column of notes.
type NoteOrder int

// Note orders.
const (
	NoteNoOrder NoteOrder = iota
	NoteOrderByUpdateSequenceNumber
	NoteOrderByTitle
	NoteOrderByCreationTimestamp
	NoteOrderByModificationTimestamp
	NoteOrderByDeletionTimestamp
	NoteOrderByAuthor
	NoteOrderBySource
	NoteOrderBySourceApplication
	NoteOrderByReminderTime
	NoteOrderByPlaceName
)

// TagOrder represents the sort column of tags.
type TagOrder int

// Tag orders.
const (
	TagNoOrder TagOrder = iota
	TagOrderByUpdateSequenceNumber
	TagOrderByName
)

// ResourceOrder represents the sort column of resources.
type ResourceOrder int

// Resource orders.
const (
	ResourceNoOrder ResourceOrder = iota
	ResourceOrderByUpdateSequenceNumber
	ResourceOrderByMime
)

// SavedSearchOrder represents the sort column of saved searches.
type SavedSearchOrder int

// Saved search orders.
const (
	SavedSearchNoOrder SavedSearchOrder = iota
	SavedSearchOrderByUpdateSequenceNumber
	SavedSearchOrderByName
	SavedSearchOrderByFormat
)

// Order is a constraint for sort column types.
type Order interface {
	UserOrder | NotebookOrder | LinkedNotebookOrder | NoteOrder | TagOrder | ResourceOrder | SavedSearchOrder
}

// ListOptions represents options of List* methods.
type ListOptions[O Order] struct {
	Flags ListFlags

	// Limit of 0 means no limit.
	Limit  int
	Offset int

	Order     O
	Direction Direction

	// LinkedNotebookGUID narrows notebooks and tags to the given linked notebook;
	// a pointer to an empty string selects only those outside any linked notebook.
	LinkedNotebookGUID *string

	// NotebookLocalID narrows notes to the given notebook.
	NotebookLocalID string

	// TagLocalID narrows notes to those with the given tag.
	TagLocalID string

	// NoteLocalID narrows resources to the given note.
	NoteLocalID string
}

// Validate checks that options are consistent.
//
// It returns *storageerrors.Error with Filter code for unusable flags
// and with Validation code for bad limit or offset.
func (opts *ListOptions[O]) Validate() error {
	if opts.Flags&listKnownFlags == 0 {
		return storageerrors.Errorf(storageerrors.ErrorCodeFilter, "no known list flags in %#x", uint(opts.Flags))
	}

	if opts.Limit < 0 || opts.Offset < 0 {
		return storageerrors.Errorf(storageerrors.ErrorCodeValidation, "limit and offset must not be negative")
	}

	if opts.Offset > 0 && opts.Limit == 0 {
		return storageerrors.Errorf(storageerrors.ErrorCodeValidation, "offset requires limit")
	}

	return nil
}
