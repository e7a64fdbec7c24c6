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
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/slices"

	"github.com/notestore/notestore/internal/search"
	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/debugbuild"
	"github.com/notestore/notestore/internal/util/observability"
	"github.com/notestore/notestore/internal/util/resource"
)

// Error codes allowed for groups of operations.
var (
	addCodes = []storageerrors.ErrorCode{
		storageerrors.ErrorCodeValidation,
		storageerrors.ErrorCodeAlreadyExists,
		storageerrors.ErrorCodeNotFound,
		storageerrors.ErrorCodeConstraint,
		storageerrors.ErrorCodeSQLExecution,
	}
	updateCodes = addCodes
	findCodes   = []storageerrors.ErrorCode{
		storageerrors.ErrorCodeValidation,
		storageerrors.ErrorCodeNotFound,
		storageerrors.ErrorCodeSQLExecution,
	}
	removeCodes = findCodes
	listCodes   = []storageerrors.ErrorCode{
		storageerrors.ErrorCodeValidation,
		storageerrors.ErrorCodeFilter,
		storageerrors.ErrorCodeSQLExecution,
	}
	countCodes = []storageerrors.ErrorCode{
		storageerrors.ErrorCodeValidation,
		storageerrors.ErrorCodeSQLExecution,
	}
	searchCodes = []storageerrors.ErrorCode{
		storageerrors.ErrorCodeQueryCompilation,
		storageerrors.ErrorCodeNotFound,
		storageerrors.ErrorCodeSQLExecution,
	}
)

// storageContract implements Storage interface.
type storageContract struct {
	s     Storage
	token *resource.Token
}

// StorageContract wraps Storage and enforces its contract.
//
// All storage implementations should use that function when they create new Storage instances.
//
// Aggregates, identifiers and list options are validated before the wrapped method is called,
// so implementations never see invalid input.
// In debug builds, returned errors are checked against the set of codes allowed for the operation.
func StorageContract(s Storage) Storage {
	sc := &storageContract{
		s:     s,
		token: resource.NewToken(),
	}
	resource.Track(sc, sc.token)

	return sc
}

// checkError enforces error contract.
func checkError(err error, codes ...storageerrors.ErrorCode) {
	if !debugbuild.Enabled {
		return
	}

	if err == nil {
		return
	}

	e, ok := err.(*storageerrors.Error) //nolint:errorlint // do not inspect error chain
	if !ok {
		if errors.As(err, &e) {
			panic(fmt.Sprintf("error should not be wrapped: %v", err))
		}

		return
	}

	if len(codes) == 0 {
		panic(fmt.Sprintf("no allowed error codes: %v", err))
	}

	if !slices.Contains(codes, e.Code()) {
		panic(fmt.Sprintf("error code is not in %v: %v", codes, err))
	}
}

// validate converts an aggregate validation failure to Validation error.
func validate(v interface{ Validate() error }) error {
	if err := v.Validate(); err != nil {
		return storageerrors.NewError(storageerrors.ErrorCodeValidation, err)
	}

	return nil
}

// validID checks that local id or guid is not empty.
func validID(kind, id string) error {
	if id == "" {
		return storageerrors.Errorf(storageerrors.ErrorCodeValidation, "%s is empty", kind)
	}

	return nil
}

// validListOptions checks that list options are present and valid.
func validListOptions[O Order](opts *ListOptions[O]) error {
	if opts == nil {
		return storageerrors.Errorf(storageerrors.ErrorCodeFilter, "list options are nil")
	}

	if err := opts.Validate(); err != nil {
		return err
	}

	return nil
}

// Close closes the underlying database and frees all resources associated with the storage.
func (sc *storageContract) Close() error {
	err := sc.s.Close()

	resource.Untrack(sc, sc.token)

	return err
}

// Describe implements prometheus.Collector.
func (sc *storageContract) Describe(ch chan<- *prometheus.Desc) {
	sc.s.Describe(ch)
}

// Collect implements prometheus.Collector.
func (sc *storageContract) Collect(ch chan<- prometheus.Metric) {
	sc.s.Collect(ch)
}

// Version returns the schema version of the database.
func (sc *storageContract) Version(ctx context.Context) (int, error) {
	defer observability.FuncCall(ctx)()

	res, err := sc.s.Version(ctx)
	checkError(err, storageerrors.ErrorCodeSQLExecution)

	return res, err
}

// CountUsers returns the number of users that are not deleted.
func (sc *storageContract) CountUsers(ctx context.Context) (int, error) {
	defer observability.FuncCall(ctx)()

	res, err := sc.s.CountUsers(ctx)
	checkError(err, countCodes...)

	return res, err
}

// AddUser adds a new user.
func (sc *storageContract) AddUser(ctx context.Context, user *types.User) error {
	defer observability.FuncCall(ctx)()

	err := validate(user)
	if err == nil {
		err = sc.s.AddUser(ctx, user)
	}

	checkError(err, addCodes...)

	return err
}

// UpdateUser replaces an existing user.
func (sc *storageContract) UpdateUser(ctx context.Context, user *types.User) error {
	defer observability.FuncCall(ctx)()

	err := validate(user)
	if err == nil {
		err = sc.s.UpdateUser(ctx, user)
	}

	checkError(err, updateCodes...)

	return err
}

// FindUser returns the user with the given id.
func (sc *storageContract) FindUser(ctx context.Context, id int32) (*types.User, error) {
	defer observability.FuncCall(ctx)()

	res, err := sc.s.FindUser(ctx, id)
	checkError(err, findCodes...)

	return res, err
}

// ListUsers returns users matching options.
func (sc *storageContract) ListUsers(ctx context.Context, opts *ListOptions[UserOrder]) ([]*types.User, error) {
	defer observability.FuncCall(ctx)()

	var res []*types.User

	err := validListOptions(opts)
	if err == nil {
		res, err = sc.s.ListUsers(ctx, opts)
	}

	checkError(err, listCodes...)

	return res, err
}

// DeleteUser marks the user as deleted.
func (sc *storageContract) DeleteUser(ctx context.Context, id int32) error {
	defer observability.FuncCall(ctx)()

	err := sc.s.DeleteUser(ctx, id)
	checkError(err, removeCodes...)

	return err
}

// ExpungeUser permanently removes the user.
func (sc *storageContract) ExpungeUser(ctx context.Context, id int32) error {
	defer observability.FuncCall(ctx)()

	err := sc.s.ExpungeUser(ctx, id)
	checkError(err, removeCodes...)

	return err
}

// CountNotebooks returns the number of notebooks.
func (sc *storageContract) CountNotebooks(ctx context.Context) (int, error) {
	defer observability.FuncCall(ctx)()

	res, err := sc.s.CountNotebooks(ctx)
	checkError(err, countCodes...)

	return res, err
}

// AddNotebook adds a new notebook.
//
// Local id is assigned if it is empty.
func (sc *storageContract) AddNotebook(ctx context.Context, notebook *types.Notebook) error {
	defer observability.FuncCall(ctx)()

	err := validate(notebook)
	if err == nil {
		err = sc.s.AddNotebook(ctx, notebook)
	}

	checkError(err, addCodes...)

	return err
}

// UpdateNotebook replaces an existing notebook.
//
// If local id is empty, the notebook is looked up by guid.
func (sc *storageContract) UpdateNotebook(ctx context.Context, notebook *types.Notebook) error {
	defer observability.FuncCall(ctx)()

	err := validate(notebook)
	if err == nil {
		err = sc.s.UpdateNotebook(ctx, notebook)
	}

	checkError(err, updateCodes...)

	return err
}

// FindNotebookByLocalID returns the notebook with the given local id.
func (sc *storageContract) FindNotebookByLocalID(ctx context.Context, localID string) (*types.Notebook, error) {
	defer observability.FuncCall(ctx)()

	var res *types.Notebook

	err := validID("local id", localID)
	if err == nil {
		res, err = sc.s.FindNotebookByLocalID(ctx, localID)
	}

	checkError(err, findCodes...)

	return res, err
}

// FindNotebookByGUID returns the notebook with the given guid.
func (sc *storageContract) FindNotebookByGUID(ctx context.Context, guid string) (*types.Notebook, error) {
	defer observability.FuncCall(ctx)()

	var res *types.Notebook

	err := validID("guid", guid)
	if err == nil {
		res, err = sc.s.FindNotebookByGUID(ctx, guid)
	}

	checkError(err, findCodes...)

	return res, err
}

// FindNotebookByName returns the notebook with the given case-insensitive name
// within the given linked notebook (or outside any linked notebook if nil).
func (sc *storageContract) FindNotebookByName(ctx context.Context, name string, linkedNotebookGUID *string) (*types.Notebook, error) {
	defer observability.FuncCall(ctx)()

	var res *types.Notebook

	err := validID("name", name)
	if err == nil {
		res, err = sc.s.FindNotebookByName(ctx, name, linkedNotebookGUID)
	}

	checkError(err, findCodes...)

	return res, err
}

// FindDefaultNotebook returns the default notebook.
func (sc *storageContract) FindDefaultNotebook(ctx context.Context) (*types.Notebook, error) {
	defer observability.FuncCall(ctx)()

	res, err := sc.s.FindDefaultNotebook(ctx)
	checkError(err, findCodes...)

	return res, err
}

// ListNotebooks returns notebooks matching options.
func (sc *storageContract) ListNotebooks(ctx context.Context, opts *ListOptions[NotebookOrder]) ([]*types.Notebook, error) {
	defer observability.FuncCall(ctx)()

	var res []*types.Notebook

	err := validListOptions(opts)
	if err == nil {
		res, err = sc.s.ListNotebooks(ctx, opts)
	}

	checkError(err, listCodes...)

	return res, err
}

// ExpungeNotebook permanently removes the notebook with all its notes and their resources.
func (sc *storageContract) ExpungeNotebook(ctx context.Context, localID string) error {
	defer observability.FuncCall(ctx)()

	err := validID("local id", localID)
	if err == nil {
		err = sc.s.ExpungeNotebook(ctx, localID)
	}

	checkError(err, removeCodes...)

	return err
}

// CountLinkedNotebooks returns the number of linked notebooks.
func (sc *storageContract) CountLinkedNotebooks(ctx context.Context) (int, error) {
	defer observability.FuncCall(ctx)()

	res, err := sc.s.CountLinkedNotebooks(ctx)
	checkError(err, countCodes...)

	return res, err
}

// AddLinkedNotebook adds a new linked notebook.
func (sc *storageContract) AddLinkedNotebook(ctx context.Context, linkedNotebook *types.LinkedNotebook) error {
	defer observability.FuncCall(ctx)()

	err := validate(linkedNotebook)
	if err == nil {
		err = sc.s.AddLinkedNotebook(ctx, linkedNotebook)
	}

	checkError(err, addCodes...)

	return err
}

// UpdateLinkedNotebook replaces an existing linked notebook.
func (sc *storageContract) UpdateLinkedNotebook(ctx context.Context, linkedNotebook *types.LinkedNotebook) error {
	defer observability.FuncCall(ctx)()

	err := validate(linkedNotebook)
	if err == nil {
		err = sc.s.UpdateLinkedNotebook(ctx, linkedNotebook)
	}

	checkError(err, updateCodes...)

	return err
}

// FindLinkedNotebook returns the linked notebook with the given guid.
func (sc *storageContract) FindLinkedNotebook(ctx context.Context, guid string) (*types.LinkedNotebook, error) {
	defer observability.FuncCall(ctx)()

	var res *types.LinkedNotebook

	err := validID("guid", guid)
	if err == nil {
		res, err = sc.s.FindLinkedNotebook(ctx, guid)
	}

	checkError(err, findCodes...)

	return res, err
}

// ListLinkedNotebooks returns linked notebooks matching options.
func (sc *storageContract) ListLinkedNotebooks(ctx context.Context, opts *ListOptions[LinkedNotebookOrder]) ([]*types.LinkedNotebook, error) { //nolint:lll // for readability
	defer observability.FuncCall(ctx)()

	var res []*types.LinkedNotebook

	err := validListOptions(opts)
	if err == nil {
		res, err = sc.s.ListLinkedNotebooks(ctx, opts)
	}

	checkError(err, listCodes...)

	return res, err
}

// ExpungeLinkedNotebook permanently removes the linked notebook with notebooks and tags it scopes.
func (sc *storageContract) ExpungeLinkedNotebook(ctx context.Context, guid string) error {
	defer observability.FuncCall(ctx)()

	err := validID("guid", guid)
	if err == nil {
		err = sc.s.ExpungeLinkedNotebook(ctx, guid)
	}

	checkError(err, removeCodes...)

	return err
}

// CountNotes returns the number of active notes.
func (sc *storageContract) CountNotes(ctx context.Context) (int, error) {
	defer observability.FuncCall(ctx)()

	res, err := sc.s.CountNotes(ctx)
	checkError(err, countCodes...)

	return res, err
}

// CountNotesPerNotebook returns the number of active notes in the given notebook.
func (sc *storageContract) CountNotesPerNotebook(ctx context.Context, notebookLocalID string) (int, error) {
	defer observability.FuncCall(ctx)()

	var res int

	err := validID("notebook local id", notebookLocalID)
	if err == nil {
		res, err = sc.s.CountNotesPerNotebook(ctx, notebookLocalID)
	}

	checkError(err, countCodes...)

	return res, err
}

// CountNotesPerTag returns the number of active notes with the given tag.
func (sc *storageContract) CountNotesPerTag(ctx context.Context, tagLocalID string) (int, error) {
	defer observability.FuncCall(ctx)()

	var res int

	err := validID("tag local id", tagLocalID)
	if err == nil {
		res, err = sc.s.CountNotesPerTag(ctx, tagLocalID)
	}

	checkError(err, countCodes...)

	return res, err
}

// AddNote adds a new note with its tag associations and resources.
//
// The notebook must exist and allow note creation.
func (sc *storageContract) AddNote(ctx context.Context, note *types.Note) error {
	defer observability.FuncCall(ctx)()

	err := validate(note)
	if err == nil {
		err = sc.s.AddNote(ctx, note)
	}

	checkError(err, addCodes...)

	return err
}

// UpdateNote replaces an existing note with its tag associations and resources.
//
// The notebook must exist and allow note updates.
func (sc *storageContract) UpdateNote(ctx context.Context, note *types.Note) error {
	defer observability.FuncCall(ctx)()

	err := validate(note)
	if err == nil {
		err = sc.s.UpdateNote(ctx, note)
	}

	checkError(err, updateCodes...)

	return err
}

// FindNoteByLocalID returns the note with the given local id.
func (sc *storageContract) FindNoteByLocalID(ctx context.Context, localID string, opts *FindNoteOptions) (*types.Note, error) {
	defer observability.FuncCall(ctx)()

	if opts == nil {
		opts = new(FindNoteOptions)
	}

	var res *types.Note

	err := validID("local id", localID)
	if err == nil {
		res, err = sc.s.FindNoteByLocalID(ctx, localID, opts)
	}

	checkError(err, findCodes...)

	return res, err
}

// FindNoteByGUID returns the note with the given guid.
func (sc *storageContract) FindNoteByGUID(ctx context.Context, guid string, opts *FindNoteOptions) (*types.Note, error) {
	defer observability.FuncCall(ctx)()

	if opts == nil {
		opts = new(FindNoteOptions)
	}

	var res *types.Note

	err := validID("guid", guid)
	if err == nil {
		res, err = sc.s.FindNoteByGUID(ctx, guid, opts)
	}

	checkError(err, findCodes...)

	return res, err
}

// ListNotes returns notes matching options.
func (sc *storageContract) ListNotes(ctx context.Context, opts *ListOptions[NoteOrder], findOpts *FindNoteOptions) ([]*types.Note, error) { //nolint:lll // for readability
	defer observability.FuncCall(ctx)()

	if findOpts == nil {
		findOpts = new(FindNoteOptions)
	}

	var res []*types.Note

	err := validListOptions(opts)
	if err == nil {
		res, err = sc.s.ListNotes(ctx, opts, findOpts)
	}

	checkError(err, listCodes...)

	return res, err
}

// DeleteNote marks the note as inactive and sets its deletion timestamp.
func (sc *storageContract) DeleteNote(ctx context.Context, localID string) error {
	defer observability.FuncCall(ctx)()

	err := validID("local id", localID)
	if err == nil {
		err = sc.s.DeleteNote(ctx, localID)
	}

	checkError(err, removeCodes...)

	return err
}

// ExpungeNote permanently removes the note with its resources and tag associations.
func (sc *storageContract) ExpungeNote(ctx context.Context, localID string) error {
	defer observability.FuncCall(ctx)()

	err := validID("local id", localID)
	if err == nil {
		err = sc.s.ExpungeNote(ctx, localID)
	}

	checkError(err, removeCodes...)

	return err
}

// FindNoteLocalIDsWithSearchQuery returns local ids of notes matching the query.
func (sc *storageContract) FindNoteLocalIDsWithSearchQuery(ctx context.Context, q *search.Query) ([]string, error) {
	defer observability.FuncCall(ctx)()

	if q == nil {
		q = new(search.Query)
	}

	res, err := sc.s.FindNoteLocalIDsWithSearchQuery(ctx, q)
	checkError(err, searchCodes...)

	return res, err
}

// FindNotesWithSearchQuery returns notes matching the query.
func (sc *storageContract) FindNotesWithSearchQuery(ctx context.Context, q *search.Query, opts *FindNoteOptions) ([]*types.Note, error) { //nolint:lll // for readability
	defer observability.FuncCall(ctx)()

	if q == nil {
		q = new(search.Query)
	}

	if opts == nil {
		opts = new(FindNoteOptions)
	}

	res, err := sc.s.FindNotesWithSearchQuery(ctx, q, opts)
	checkError(err, searchCodes...)

	return res, err
}

// CountTags returns the number of tags that are not deleted.
func (sc *storageContract) CountTags(ctx context.Context) (int, error) {
	defer observability.FuncCall(ctx)()

	res, err := sc.s.CountTags(ctx)
	checkError(err, countCodes...)

	return res, err
}

// AddTag adds a new tag.
//
// Parent tag, if set, must exist.
func (sc *storageContract) AddTag(ctx context.Context, tag *types.Tag) error {
	defer observability.FuncCall(ctx)()

	err := validate(tag)
	if err == nil {
		err = sc.s.AddTag(ctx, tag)
	}

	checkError(err, addCodes...)

	return err
}

// UpdateTag replaces an existing tag.
func (sc *storageContract) UpdateTag(ctx context.Context, tag *types.Tag) error {
	defer observability.FuncCall(ctx)()

	err := validate(tag)
	if err == nil {
		err = sc.s.UpdateTag(ctx, tag)
	}

	checkError(err, updateCodes...)

	return err
}

// FindTagByLocalID returns the tag with the given local id.
func (sc *storageContract) FindTagByLocalID(ctx context.Context, localID string) (*types.Tag, error) {
	defer observability.FuncCall(ctx)()

	var res *types.Tag

	err := validID("local id", localID)
	if err == nil {
		res, err = sc.s.FindTagByLocalID(ctx, localID)
	}

	checkError(err, findCodes...)

	return res, err
}

// FindTagByGUID returns the tag with the given guid.
func (sc *storageContract) FindTagByGUID(ctx context.Context, guid string) (*types.Tag, error) {
	defer observability.FuncCall(ctx)()

	var res *types.Tag

	err := validID("guid", guid)
	if err == nil {
		res, err = sc.s.FindTagByGUID(ctx, guid)
	}

	checkError(err, findCodes...)

	return res, err
}

// FindTagByName returns the tag with the given case-insensitive name
// within the given linked notebook (or outside any linked notebook if nil).
func (sc *storageContract) FindTagByName(ctx context.Context, name string, linkedNotebookGUID *string) (*types.Tag, error) {
	defer observability.FuncCall(ctx)()

	var res *types.Tag

	err := validID("name", name)
	if err == nil {
		res, err = sc.s.FindTagByName(ctx, name, linkedNotebookGUID)
	}

	checkError(err, findCodes...)

	return res, err
}

// ListTags returns tags matching options.
func (sc *storageContract) ListTags(ctx context.Context, opts *ListOptions[TagOrder]) ([]*types.Tag, error) {
	defer observability.FuncCall(ctx)()

	var res []*types.Tag

	err := validListOptions(opts)
	if err == nil {
		res, err = sc.s.ListTags(ctx, opts)
	}

	checkError(err, listCodes...)

	return res, err
}

// DeleteTag marks the tag as deleted.
func (sc *storageContract) DeleteTag(ctx context.Context, localID string) error {
	defer observability.FuncCall(ctx)()

	err := validID("local id", localID)
	if err == nil {
		err = sc.s.DeleteTag(ctx, localID)
	}

	checkError(err, removeCodes...)

	return err
}

// ExpungeTag permanently removes the tag with its child tags and note associations.
func (sc *storageContract) ExpungeTag(ctx context.Context, localID string) error {
	defer observability.FuncCall(ctx)()

	err := validID("local id", localID)
	if err == nil {
		err = sc.s.ExpungeTag(ctx, localID)
	}

	checkError(err, removeCodes...)

	return err
}

// CountResources returns the number of resources.
func (sc *storageContract) CountResources(ctx context.Context) (int, error) {
	defer observability.FuncCall(ctx)()

	res, err := sc.s.CountResources(ctx)
	checkError(err, countCodes...)

	return res, err
}

// AddResource adds a new resource to the end of its note's resource list.
func (sc *storageContract) AddResource(ctx context.Context, r *types.Resource) error {
	defer observability.FuncCall(ctx)()

	err := validate(r)
	if err == nil {
		err = sc.s.AddResource(ctx, r)
	}

	checkError(err, addCodes...)

	return err
}

// UpdateResource replaces an existing resource keeping its position in the note.
func (sc *storageContract) UpdateResource(ctx context.Context, r *types.Resource) error {
	defer observability.FuncCall(ctx)()

	err := validate(r)
	if err == nil {
		err = sc.s.UpdateResource(ctx, r)
	}

	checkError(err, updateCodes...)

	return err
}

// FindResourceByLocalID returns the resource with the given local id.
func (sc *storageContract) FindResourceByLocalID(ctx context.Context, localID string, withBinaryData bool) (*types.Resource, error) { //nolint:lll // for readability
	defer observability.FuncCall(ctx)()

	var res *types.Resource

	err := validID("local id", localID)
	if err == nil {
		res, err = sc.s.FindResourceByLocalID(ctx, localID, withBinaryData)
	}

	checkError(err, findCodes...)

	return res, err
}

// FindResourceByGUID returns the resource with the given guid.
func (sc *storageContract) FindResourceByGUID(ctx context.Context, guid string, withBinaryData bool) (*types.Resource, error) { //nolint:lll // for readability
	defer observability.FuncCall(ctx)()

	var res *types.Resource

	err := validID("guid", guid)
	if err == nil {
		res, err = sc.s.FindResourceByGUID(ctx, guid, withBinaryData)
	}

	checkError(err, findCodes...)

	return res, err
}

// ListResources returns resources matching options.
func (sc *storageContract) ListResources(ctx context.Context, opts *ListOptions[ResourceOrder], withBinaryData bool) ([]*types.Resource, error) { //nolint:lll // for readability
	defer observability.FuncCall(ctx)()

	var res []*types.Resource

	err := validListOptions(opts)
	if err == nil {
		res, err = sc.s.ListResources(ctx, opts, withBinaryData)
	}

	checkError(err, listCodes...)

	return res, err
}

// ExpungeResource permanently removes the resource.
func (sc *storageContract) ExpungeResource(ctx context.Context, localID string) error {
	defer observability.FuncCall(ctx)()

	err := validID("local id", localID)
	if err == nil {
		err = sc.s.ExpungeResource(ctx, localID)
	}

	checkError(err, removeCodes...)

	return err
}

// CountSavedSearches returns the number of saved searches.
func (sc *storageContract) CountSavedSearches(ctx context.Context) (int, error) {
	defer observability.FuncCall(ctx)()

	res, err := sc.s.CountSavedSearches(ctx)
	checkError(err, countCodes...)

	return res, err
}

// AddSavedSearch adds a new saved search.
func (sc *storageContract) AddSavedSearch(ctx context.Context, savedSearch *types.SavedSearch) error {
	defer observability.FuncCall(ctx)()

	err := validate(savedSearch)
	if err == nil {
		err = sc.s.AddSavedSearch(ctx, savedSearch)
	}

	checkError(err, addCodes...)

	return err
}

// UpdateSavedSearch replaces an existing saved search.
func (sc *storageContract) UpdateSavedSearch(ctx context.Context, savedSearch *types.SavedSearch) error {
	defer observability.FuncCall(ctx)()

	err := validate(savedSearch)
	if err == nil {
		err = sc.s.UpdateSavedSearch(ctx, savedSearch)
	}

	checkError(err, updateCodes...)

	return err
}

// FindSavedSearchByLocalID returns the saved search with the given local id.
func (sc *storageContract) FindSavedSearchByLocalID(ctx context.Context, localID string) (*types.SavedSearch, error) {
	defer observability.FuncCall(ctx)()

	var res *types.SavedSearch

	err := validID("local id", localID)
	if err == nil {
		res, err = sc.s.FindSavedSearchByLocalID(ctx, localID)
	}

	checkError(err, findCodes...)

	return res, err
}

// FindSavedSearchByGUID returns the saved search with the given guid.
func (sc *storageContract) FindSavedSearchByGUID(ctx context.Context, guid string) (*types.SavedSearch, error) {
	defer observability.FuncCall(ctx)()

	var res *types.SavedSearch

	err := validID("guid", guid)
	if err == nil {
		res, err = sc.s.FindSavedSearchByGUID(ctx, guid)
	}

	checkError(err, findCodes...)

	return res, err
}

// FindSavedSearchByName returns the saved search with the given case-insensitive name.
func (sc *storageContract) FindSavedSearchByName(ctx context.Context, name string) (*types.SavedSearch, error) {
	defer observability.FuncCall(ctx)()

	var res *types.SavedSearch

	err := validID("name", name)
	if err == nil {
		res, err = sc.s.FindSavedSearchByName(ctx, name)
	}

	checkError(err, findCodes...)

	return res, err
}

// ListSavedSearches returns saved searches matching options.
func (sc *storageContract) ListSavedSearches(ctx context.Context, opts *ListOptions[SavedSearchOrder]) ([]*types.SavedSearch, error) { //nolint:lll // for readability
	defer observability.FuncCall(ctx)()

	var res []*types.SavedSearch

	err := validListOptions(opts)
	if err == nil {
		res, err = sc.s.ListSavedSearches(ctx, opts)
	}

	checkError(err, listCodes...)

	return res, err
}

// ExpungeSavedSearch permanently removes the saved search.
func (sc *storageContract) ExpungeSavedSearch(ctx context.Context, localID string) error {
	defer observability.FuncCall(ctx)()

	err := validID("local id", localID)
	if err == nil {
		err = sc.s.ExpungeSavedSearch(ctx, localID)
	}

	checkError(err, removeCodes...)

	return err
}

// check interfaces
var (
	_ Storage = (*storageContract)(nil)
)
