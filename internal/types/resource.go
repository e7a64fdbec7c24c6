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

// Resource represents a file attached to a note.
type Resource struct {
	LocalID           string
	GUID              *string
	NoteLocalID       string
	NoteGUID          *string
	UpdateSequenceNum *int32
	Mime              *string
	Width             *int16
	Height            *int16
	Duration          *int16
	Active            *bool

	Data          *Data
	Recognition   *Data
	AlternateData *Data

	Attributes *ResourceAttributes

	Dirty bool
	Local bool
}

// ResourceAttributes represents optional resource attributes.
type ResourceAttributes struct {
	SourceURL       *string
	Timestamp       *Timestamp
	Latitude        *float64
	Longitude       *float64
	Altitude        *float64
	CameraMake      *string
	CameraModel     *string
	ClientWillIndex *bool
	RecoType        *string
	FileName        *string
	Attachment      *bool
	ApplicationData *LazyMap
}

// Validate checks that a standalone resource could be stored.
func (r *Resource) Validate() error {
	if err := r.validate(false); err != nil {
		return err
	}

	return nil
}

// validate checks resource fields.
//
// If withinNote is true, the owning note is not required to be set.
func (r *Resource) validate(withinNote bool) *ValidationError {
	if err := validateGUID("guid", r.GUID); err != nil {
		return err
	}

	if err := validateGUID("noteGuid", r.NoteGUID); err != nil {
		return err
	}

	if !withinNote && r.NoteLocalID == "" && r.NoteGUID == nil {
		return newValidationError("noteLocalId", "resource must belong to a note")
	}

	if err := validateString("mime", r.Mime, mimeRE, mimeLenMin, mimeLenMax); err != nil {
		return err
	}

	for field, d := range map[string]*Data{
		"data":          r.Data,
		"recognition":   r.Recognition,
		"alternateData": r.AlternateData,
	} {
		if d == nil {
			continue
		}

		if err := validateHash(field+".bodyHash", d.BodyHash); err != nil {
			return err
		}

		if d.Size != nil && d.Body != nil && int(*d.Size) != len(d.Body) {
			return newValidationError(field+".size", "does not match body")
		}
	}

	if a := r.Attributes; a != nil {
		if err := validateCoordinates("attributes", a.Latitude, a.Longitude); err != nil {
			return err
		}

		if err := validateString("attributes.fileName", a.FileName, nil, attributeLenMin, attributeLenMax); err != nil {
			return err
		}

		if err := validateLazyMap("attributes.applicationData", a.ApplicationData); err != nil {
			return err
		}
	}

	return nil
}
