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

// Package localstorage provides the interface of the local note storage.
//
// # Design principles
//
//  1. Storage is a synchronous CRUD and search API over aggregates of the types package.
//  2. Every add and update replaces the whole aggregate: the main row and all side tables.
//  3. All returned errors are either *storageerrors.Error values or opaque internal errors.
//     Aggregates are validated before any SQL statement is executed.
//  4. Storage implementations should wrap themselves with [StorageContract].
//
// The only implementation is in the sqlite subpackage.
package localstorage

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notestore/notestore/internal/search"
	"github.com/notestore/notestore/internal/types"
)

// Storage is the interface of the local note storage.
//
// Methods are safe for concurrent use, but they are executed one at a time.
//
// See contract and its methods for additional details.
//
//nolint:interfacebloat // one method per entity operation
type Storage interface {
	prometheus.Collector

	Close() error
	Version(ctx context.Context) (int, error)

	CountUsers(ctx context.Context) (int, error)
	AddUser(ctx context.Context, user *types.User) error
	UpdateUser(ctx context.Context, user *types.User) error
	FindUser(ctx context.Context, id int32) (*types.User, error)
	ListUsers(ctx context.Context, opts *ListOptions[UserOrder]) ([]*types.User, error)
	DeleteUser(ctx context.Context, id int32) error
	ExpungeUser(ctx context.Context, id int32) error

	CountNotebooks(ctx context.Context) (int, error)
	AddNotebook(ctx context.Context, notebook *types.Notebook) error
	UpdateNotebook(ctx context.Context, notebook *types.Notebook) error
	FindNotebookByLocalID(ctx context.Context, localID string) (*types.Notebook, error)
	FindNotebookByGUID(ctx context.Context, guid string) (*types.Notebook, error)
	FindNotebookByName(ctx context.Context, name string, linkedNotebookGUID *string) (*types.Notebook, error)
	FindDefaultNotebook(ctx context.Context) (*types.Notebook, error)
	ListNotebooks(ctx context.Context, opts *ListOptions[NotebookOrder]) ([]*types.Notebook, error)
	ExpungeNotebook(ctx context.Context, localID string) error

	CountLinkedNotebooks(ctx context.Context) (int, error)
	AddLinkedNotebook(ctx context.Context, linkedNotebook *types.LinkedNotebook) error
	UpdateLinkedNotebook(ctx context.Context, linkedNotebook *types.LinkedNotebook) error
	FindLinkedNotebook(ctx context.Context, guid string) (*types.LinkedNotebook, error)
	ListLinkedNotebooks(ctx context.Context, opts *ListOptions[LinkedNotebookOrder]) ([]*types.LinkedNotebook, error)
	ExpungeLinkedNotebook(ctx context.Context, guid string) error

	CountNotes(ctx context.Context) (int, error)
	CountNotesPerNotebook(ctx context.Context, notebookLocalID string) (int, error)
	CountNotesPerTag(ctx context.Context, tagLocalID string) (int, error)
	AddNote(ctx context.Context, note *types.Note) error
	UpdateNote(ctx context.Context, note *types.Note) error
	FindNoteByLocalID(ctx context.Context, localID string, opts *FindNoteOptions) (*types.Note, error)
	FindNoteByGUID(ctx context.Context, guid string, opts *FindNoteOptions) (*types.Note, error)
	ListNotes(ctx context.Context, opts *ListOptions[NoteOrder], findOpts *FindNoteOptions) ([]*types.Note, error)
	DeleteNote(ctx context.Context, localID string) error
	ExpungeNote(ctx context.Context, localID string) error
	FindNoteLocalIDsWithSearchQuery(ctx context.Context, q *search.Query) ([]string, error)
	FindNotesWithSearchQuery(ctx context.Context, q *search.Query, opts *FindNoteOptions) ([]*types.Note, error)

	CountTags(ctx context.Context) (int, error)
	AddTag(ctx context.Context, tag *types.Tag) error
	UpdateTag(ctx context.Context, tag *types.Tag) error
	FindTagByLocalID(ctx context.Context, localID string) (*types.Tag, error)
	FindTagByGUID(ctx context.Context, guid string) (*types.Tag, error)
	FindTagByName(ctx context.Context, name string, linkedNotebookGUID *string) (*types.Tag, error)
	ListTags(ctx context.Context, opts *ListOptions[TagOrder]) ([]*types.Tag, error)
	DeleteTag(ctx context.Context, localID string) error
	ExpungeTag(ctx context.Context, localID string) error

	CountResources(ctx context.Context) (int, error)
	AddResource(ctx context.Context, resource *types.Resource) error
	UpdateResource(ctx context.Context, resource *types.Resource) error
	FindResourceByLocalID(ctx context.Context, localID string, withBinaryData bool) (*types.Resource, error)
	FindResourceByGUID(ctx context.Context, guid string, withBinaryData bool) (*types.Resource, error)
	ListResources(ctx context.Context, opts *ListOptions[ResourceOrder], withBinaryData bool) ([]*types.Resource, error)
	ExpungeResource(ctx context.Context, localID string) error

	CountSavedSearches(ctx context.Context) (int, error)
	AddSavedSearch(ctx context.Context, savedSearch *types.SavedSearch) error
	UpdateSavedSearch(ctx context.Context, savedSearch *types.SavedSearch) error
	FindSavedSearchByLocalID(ctx context.Context, localID string) (*types.SavedSearch, error)
	FindSavedSearchByGUID(ctx context.Context, guid string) (*types.SavedSearch, error)
	FindSavedSearchByName(ctx context.Context, name string) (*types.SavedSearch, error)
	ListSavedSearches(ctx context.Context, opts *ListOptions[SavedSearchOrder]) ([]*types.SavedSearch, error)
	ExpungeSavedSearch(ctx context.Context, localID string) error
}

// FindNoteOptions represents options of note lookups.
type FindNoteOptions struct {
	// WithResourceBinaryData loads bodies of resource data and alternate data.
	WithResourceBinaryData bool
}
