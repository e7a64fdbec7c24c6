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

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/notestore/notestore/internal/enml"
	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/fsql"
)

var resourceColumns = []string{
	"localUid", "guid", "localNote", "noteGuid", "updateSequenceNumber", "mime", "width", "height", "duration",
	"isActive",
	"dataBody", "dataSize", "dataHash",
	"recognitionDataBody", "recognitionDataSize", "recognitionDataHash",
	"alternateDataBody", "alternateDataSize", "alternateDataHash",
	"isDirty", "isLocal",
}

var resourceAttributesColumns = []string{
	"localResource", "sourceUrl", "timestamp", "latitude", "longitude", "altitude", "cameraMake", "cameraModel",
	"clientWillIndex", "recoType", "fileName", "isAttachment",
}

var resourceFlags = &flagColumns{dirty: "isDirty", guid: "guid", local: "isLocal"}

// resourceSelect returns the query selecting resource rows with or without bodies of binary data.
func resourceSelect(withBinaryData bool) string {
	cols := []string{"localUid", "guid", "localNote", "noteGuid", "updateSequenceNumber", "mime", "width", "height", "duration", "isActive"}

	for _, prefix := range []string{"data", "recognitionData", "alternateData"} {
		body := prefix + "Body"
		if !withBinaryData {
			body = "NULL"
		}

		cols = append(cols, body, prefix+"Size", prefix+"Hash", prefix+"Body IS NOT NULL")
	}

	cols = append(cols, "isDirty", "isLocal")

	return "SELECT " + strings.Join(cols, ", ") + " FROM Resources"
}

// dataArgs returns body, size and hash arguments.
func dataArgs(d *types.Data) []any {
	if d == nil {
		return []any{nil, nil, nil}
	}

	return []any{blobArg(d.Body), arg(d.Size), blobArg(d.BodyHash)}
}

// resourceOwner returns the guid and note local id of the existing resource.
// The first returned value is false if there is no such resource.
func resourceOwner(ctx context.Context, tx *fsql.Tx, localID string) (bool, *string, string, error) {
	const sid = "Resources/owner"

	stmt, err := tx.Stmt(ctx, sid, "SELECT guid, localNote FROM Resources WHERE localUid = ?")
	if err != nil {
		return false, nil, "", sqlError(sid, err)
	}

	var guid *string
	var note string

	err = stmt.QueryRowContext(ctx, localID).Scan(&guid, &note)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil, "", nil
	case err != nil:
		return false, nil, "", sqlError(sid, err)
	default:
		return true, guid, note, nil
	}
}

// resolveResourceOfNote assigns the local id to the resource written as a part of the note.
//
// Existing resource is matched by local id or guid; it must belong to the same note.
func resolveResourceOfNote(ctx context.Context, tx *fsql.Tx, noteLocalID string, r *types.Resource) error {
	if r.LocalID == "" && r.GUID != nil {
		localID, err := resourceIdentity.localIDOf(ctx, tx, *r.GUID)
		if err != nil {
			return err
		}

		r.LocalID = localID
	}

	if r.LocalID == "" {
		r.LocalID = uuid.NewString()
		return nil
	}

	exists, guid, note, err := resourceOwner(ctx, tx, r.LocalID)
	if err != nil {
		return err
	}

	if !exists {
		return nil
	}

	if note != noteLocalID {
		return storageerrors.Errorf(
			storageerrors.ErrorCodeAlreadyExists, "resource %q belongs to another note %q", r.LocalID, note,
		)
	}

	if guid != nil && (r.GUID == nil || *r.GUID != *guid) {
		return storageerrors.Errorf(
			storageerrors.ErrorCodeValidation, "resource %q: guid %q can't be changed", r.LocalID, *guid,
		)
	}

	return nil
}

// resolveResourceNote checks that the resource note exists and fills the missing note identifier.
func resolveResourceNote(ctx context.Context, tx *fsql.Tx, r *types.Resource) error {
	if r.NoteLocalID == "" {
		localID, err := noteIdentity.localIDOf(ctx, tx, *r.NoteGUID)
		if err != nil {
			return err
		}

		if localID == "" {
			return notFound("note", "guid", *r.NoteGUID)
		}

		r.NoteLocalID = localID

		return nil
	}

	exists, guid, err := noteIdentity.guidOf(ctx, tx, r.NoteLocalID)
	if err != nil {
		return err
	}

	if !exists {
		return notFound("note", "local id", r.NoteLocalID)
	}

	if r.NoteGUID == nil {
		r.NoteGUID = guid
	}

	return nil
}

// writeResource upserts the resource row at the given position in its note and rewrites its side tables.
func writeResource(ctx context.Context, tx *fsql.Tx, r *types.Resource, index int) error {
	args := []any{
		r.LocalID, arg(r.GUID), r.NoteLocalID, arg(r.NoteGUID), arg(r.UpdateSequenceNum), arg(r.Mime),
		arg(r.Width), arg(r.Height), arg(r.Duration), arg(r.Active),
	}
	args = append(args, dataArgs(r.Data)...)
	args = append(args, dataArgs(r.Recognition)...)
	args = append(args, dataArgs(r.AlternateData)...)
	args = append(args, boolArg(r.Dirty), boolArg(r.Local))

	if _, err := exec(ctx, tx, "Resources/upsert", upsert("Resources", "localUid", resourceColumns), args...); err != nil {
		return err
	}

	if err := clearRows(ctx, tx, "NoteResources", "localResource", r.LocalID); err != nil {
		return err
	}

	q := "INSERT INTO NoteResources(localNote, localResource, indexInNote) VALUES (?, ?, ?)"
	if _, err := exec(ctx, tx, "NoteResources/insert", q, r.NoteLocalID, r.LocalID, int64(index)); err != nil {
		return err
	}

	if err := clearRows(ctx, tx, "ResourceAttributes", "localResource", r.LocalID); err != nil {
		return err
	}

	var applicationData *types.LazyMap

	if a := r.Attributes; a != nil {
		args = []any{
			r.LocalID, arg(a.SourceURL), arg(a.Timestamp), arg(a.Latitude), arg(a.Longitude), arg(a.Altitude),
			arg(a.CameraMake), arg(a.CameraModel), arg(a.ClientWillIndex), arg(a.RecoType), arg(a.FileName),
			arg(a.Attachment),
		}

		if _, err := exec(ctx, tx, "ResourceAttributes/insert", insert("ResourceAttributes", resourceAttributesColumns), args...); err != nil { //nolint:lll // for readability
			return err
		}

		applicationData = a.ApplicationData
	}

	if err := resourceApplicationData.write(ctx, tx, r.LocalID, applicationData); err != nil {
		return err
	}

	return writeRecognitionData(ctx, tx, r)
}

// writeRecognitionData rewrites the searchable text of resource recognition data.
func writeRecognitionData(ctx context.Context, tx *fsql.Tx, r *types.Resource) error {
	if err := clearRows(ctx, tx, "ResourceRecognitionData", "localResource", r.LocalID); err != nil {
		return err
	}

	if r.Recognition == nil || len(r.Recognition.Body) == 0 {
		return nil
	}

	text, err := enml.RecognitionText(r.Recognition.Body)
	if err != nil {
		return storageerrors.Errorf(storageerrors.ErrorCodeValidation, "resource %q: recognition data: %s", r.LocalID, err)
	}

	if text == "" {
		return nil
	}

	q := "INSERT INTO ResourceRecognitionData(localResource, noteLocalUid, recognitionData) VALUES (?, ?, ?)"
	_, err = exec(ctx, tx, "ResourceRecognitionData/insert", q, r.LocalID, r.NoteLocalID, text)

	return err
}

// readResourceAttributes returns resource attributes, or nil if there are none.
func readResourceAttributes(ctx context.Context, tx *fsql.Tx, localID string) (*types.ResourceAttributes, error) {
	const sid = "ResourceAttributes/select"

	q := "SELECT " + strings.Join(resourceAttributesColumns[1:], ", ") + " FROM ResourceAttributes WHERE localResource = ?"

	stmt, err := tx.Stmt(ctx, sid, q)
	if err != nil {
		return nil, sqlError(sid, err)
	}

	var a types.ResourceAttributes

	err = stmt.QueryRowContext(ctx, localID).Scan(
		&a.SourceURL, &a.Timestamp, &a.Latitude, &a.Longitude, &a.Altitude, &a.CameraMake, &a.CameraModel,
		&a.ClientWillIndex, &a.RecoType, &a.FileName, &a.Attachment,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, sqlError(sid, err)
	}

	if a.ApplicationData, err = resourceApplicationData.read(ctx, tx, localID); err != nil {
		return nil, err
	}

	return &a, nil
}

// findResource returns the resource matching the condition with side tables, or NotFound error.
func findResource(ctx context.Context, tx *fsql.Tx, key, where, value string, withBinaryData bool) (*types.Resource, error) { //nolint:lll // for readability
	sid := "Resources/find/" + key
	if withBinaryData {
		sid += "/binary"
	}

	stmt, err := tx.Stmt(ctx, sid, resourceSelect(withBinaryData)+" WHERE "+where)
	if err != nil {
		return nil, sqlError(sid, err)
	}

	var r types.Resource
	var data, recognition, alternate types.Data
	var hasData, hasRecognition, hasAlternate bool

	err = stmt.QueryRowContext(ctx, value).Scan(
		&r.LocalID, &r.GUID, &r.NoteLocalID, &r.NoteGUID, &r.UpdateSequenceNum, &r.Mime,
		&r.Width, &r.Height, &r.Duration, &r.Active,
		&data.Body, &data.Size, &data.BodyHash, &hasData,
		&recognition.Body, &recognition.Size, &recognition.BodyHash, &hasRecognition,
		&alternate.Body, &alternate.Size, &alternate.BodyHash, &hasAlternate,
		&r.Dirty, &r.Local,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound("resource", key, value)
	case err != nil:
		return nil, sqlError(sid, err)
	}

	if hasData || anyNotNil(data.Size, data.BodyHash) {
		r.Data = &data
	}

	if hasRecognition || anyNotNil(recognition.Size, recognition.BodyHash) {
		r.Recognition = &recognition
	}

	if hasAlternate || anyNotNil(alternate.Size, alternate.BodyHash) {
		r.AlternateData = &alternate
	}

	if r.Attributes, err = readResourceAttributes(ctx, tx, r.LocalID); err != nil {
		return nil, err
	}

	if r.Attributes == nil {
		// application data could be stored without other attributes
		applicationData, err := resourceApplicationData.read(ctx, tx, r.LocalID)
		if err != nil {
			return nil, err
		}

		if applicationData != nil {
			r.Attributes = &types.ResourceAttributes{ApplicationData: applicationData}
		}
	}

	return &r, nil
}

// noteResourceIDs returns local ids of note resources in the stored order.
func noteResourceIDs(ctx context.Context, tx *fsql.Tx, noteLocalID string) ([]string, error) {
	const sid = "NoteResources/select"

	stmt, err := tx.Stmt(ctx, sid, "SELECT localResource FROM NoteResources WHERE localNote = ? ORDER BY indexInNote")
	if err != nil {
		return nil, sqlError(sid, err)
	}

	return queryStrings(ctx, stmt, sid, noteLocalID)
}

// resourceIndex returns the stored position of the resource in its note,
// or the position after the last resource if it is not stored yet.
func resourceIndex(ctx context.Context, tx *fsql.Tx, r *types.Resource) (int, error) {
	const sid = "NoteResources/index"

	q := "SELECT COALESCE(" +
		"(SELECT indexInNote FROM NoteResources WHERE localNote = ? AND localResource = ?), " +
		"(SELECT MAX(indexInNote) + 1 FROM NoteResources WHERE localNote = ?), " +
		"0)"

	stmt, err := tx.Stmt(ctx, sid, q)
	if err != nil {
		return 0, sqlError(sid, err)
	}

	var res int
	if err = stmt.QueryRowContext(ctx, r.NoteLocalID, r.LocalID, r.NoteLocalID).Scan(&res); err != nil {
		return 0, sqlError(sid, err)
	}

	return res, nil
}

// CountResources implements localstorage.Storage interface.
func (s *storage) CountResources(ctx context.Context) (int, error) {
	var res int

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = count(ctx, tx, "Resources/count", "SELECT COUNT(*) FROM Resources")

		return err
	})

	return res, err
}

// AddResource implements localstorage.Storage interface.
func (s *storage) AddResource(ctx context.Context, resource *types.Resource) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		if err := resolveResourceNote(ctx, tx, resource); err != nil {
			return err
		}

		localID, err := resourceIdentity.resolveAdd(ctx, tx, resource.LocalID, resource.GUID)
		if err != nil {
			return err
		}

		resource.LocalID = localID

		index, err := resourceIndex(ctx, tx, resource)
		if err != nil {
			return err
		}

		return writeResource(ctx, tx, resource, index)
	})
}

// UpdateResource implements localstorage.Storage interface.
//
// Resource moved to another note is appended to its resources.
func (s *storage) UpdateResource(ctx context.Context, resource *types.Resource) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		localID, err := resourceIdentity.resolveUpdate(ctx, tx, resource.LocalID, resource.GUID)
		if err != nil {
			return err
		}

		resource.LocalID = localID

		if err = resolveResourceNote(ctx, tx, resource); err != nil {
			return err
		}

		index, err := resourceIndex(ctx, tx, resource)
		if err != nil {
			return err
		}

		return writeResource(ctx, tx, resource, index)
	})
}

// FindResourceByLocalID implements localstorage.Storage interface.
func (s *storage) FindResourceByLocalID(ctx context.Context, localID string, withBinaryData bool) (*types.Resource, error) { //nolint:lll // for readability
	var res *types.Resource

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findResource(ctx, tx, "local id", "localUid = ?", localID, withBinaryData)

		return err
	})

	return res, err
}

// FindResourceByGUID implements localstorage.Storage interface.
func (s *storage) FindResourceByGUID(ctx context.Context, guid string, withBinaryData bool) (*types.Resource, error) {
	var res *types.Resource

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findResource(ctx, tx, "guid", "guid = ?", guid, withBinaryData)

		return err
	})

	return res, err
}

// resourceOrderColumn returns the sort column.
func resourceOrderColumn(order localstorage.ResourceOrder) string {
	switch order {
	case localstorage.ResourceOrderByUpdateSequenceNumber:
		return "updateSequenceNumber"
	case localstorage.ResourceOrderByMime:
		return "mime"
	default:
		return ""
	}
}

// ListResources implements localstorage.Storage interface.
func (s *storage) ListResources(ctx context.Context, opts *localstorage.ListOptions[localstorage.ResourceOrder], withBinaryData bool) ([]*types.Resource, error) { //nolint:lll // for readability
	var res []*types.Resource

	err := s.read(ctx, func(tx *fsql.Tx) error {
		lq := newListQuery("Resources", "localUid", resourceFlags, resourceOrderColumn(opts.Order), opts)

		if opts.NoteLocalID != "" {
			lq.where = append(lq.where, "localNote = ?")
			lq.args = append(lq.args, opts.NoteLocalID)
		}

		ids, err := lq.keys(ctx, tx)
		if err != nil {
			return err
		}

		for _, id := range ids {
			r, err := findResource(ctx, tx, "local id", "localUid = ?", id, withBinaryData)
			if err != nil {
				return err
			}

			res = append(res, r)
		}

		return nil
	})

	return res, err
}

// ExpungeResource implements localstorage.Storage interface.
func (s *storage) ExpungeResource(ctx context.Context, localID string) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		return resourceIdentity.expunge(ctx, tx, "localUid", localID)
	})
}
