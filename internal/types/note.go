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

import "golang.org/x/exp/slices"

// Note represents a note with its tag associations and resources.
type Note struct {
	LocalID           string
	GUID              *string
	NotebookLocalID   string
	NotebookGUID      *string
	UpdateSequenceNum *int32
	Title             *string
	Content           *string
	ContentHash       []byte
	ContentLength     *int32
	Created           *Timestamp
	Updated           *Timestamp
	Deleted           *Timestamp
	Active            *bool
	ThumbnailData     []byte

	Attributes *NoteAttributes

	// TagLocalIDs are ordered; the order is preserved by the storage.
	TagLocalIDs []string

	// Resources are ordered; the order is preserved by the storage.
	Resources []Resource

	Dirty     bool
	Local     bool
	Favorited bool
}

// NoteAttributes represents optional note attributes.
type NoteAttributes struct {
	SubjectDate            *Timestamp
	Latitude               *float64
	Longitude              *float64
	Altitude               *float64
	Author                 *string
	Source                 *string
	SourceURL              *string
	SourceApplication      *string
	ShareDate              *Timestamp
	ReminderOrder          *int64
	ReminderDoneTime       *Timestamp
	ReminderTime           *Timestamp
	PlaceName              *string
	ContentClass           *string
	ApplicationData        *LazyMap
	LastEditedBy           *string
	Classifications        map[string]string
	CreatorID              *int32
	LastEditorID           *int32
	SharedWithBusiness     *bool
	ConflictSourceNoteGUID *string
	NoteTitleQuality       *int32
}

// IsActive returns true if note is not in the trash.
func (n *Note) IsActive() bool {
	return n.Active == nil || *n.Active
}

// Validate checks that note could be stored.
//
// Resources are validated too.
func (n *Note) Validate() error {
	if err := validateGUID("guid", n.GUID); err != nil {
		return err
	}

	if err := validateGUID("notebookGuid", n.NotebookGUID); err != nil {
		return err
	}

	if n.NotebookLocalID == "" && n.NotebookGUID == nil {
		return newValidationError("notebookLocalId", "note must belong to a notebook")
	}

	if err := validateString("title", n.Title, noteTitleRE, noteTitleLenMin, noteTitleLenMax); err != nil {
		return err
	}

	if n.Content != nil && len(*n.Content) > noteContentLenMax {
		return newValidationError("content", "is too long")
	}

	if err := validateHash("contentHash", n.ContentHash); err != nil {
		return err
	}

	if a := n.Attributes; a != nil {
		if err := validateCoordinates("attributes", a.Latitude, a.Longitude); err != nil {
			return err
		}

		for field, v := range map[string]*string{
			"attributes.author":            a.Author,
			"attributes.source":            a.Source,
			"attributes.sourceURL":         a.SourceURL,
			"attributes.sourceApplication": a.SourceApplication,
			"attributes.placeName":         a.PlaceName,
			"attributes.contentClass":      a.ContentClass,
			"attributes.lastEditedBy":      a.LastEditedBy,
		} {
			if err := validateString(field, v, nil, attributeLenMin, attributeLenMax); err != nil {
				return err
			}
		}

		if err := validateLazyMap("attributes.applicationData", a.ApplicationData); err != nil {
			return err
		}
	}

	for i, id := range n.TagLocalIDs {
		if id == "" {
			return newValidationError(indexedField("tagLocalIds", i, ""), "is empty")
		}

		if slices.Index(n.TagLocalIDs, id) != i {
			return newValidationError(indexedField("tagLocalIds", i, ""), "is duplicated")
		}
	}

	for i := range n.Resources {
		r := &n.Resources[i]

		if r.NoteLocalID != "" && n.LocalID != "" && r.NoteLocalID != n.LocalID {
			return newValidationError(indexedField("resources", i, "noteLocalId"), "does not match note")
		}

		if r.LocalID != "" {
			for j := range n.Resources[:i] {
				if n.Resources[j].LocalID == r.LocalID {
					return newValidationError(indexedField("resources", i, "localId"), "is duplicated")
				}
			}
		}

		if err := r.validate(true); err != nil {
			return newValidationError(indexedField("resources", i, err.field), err.reason)
		}
	}

	return nil
}
