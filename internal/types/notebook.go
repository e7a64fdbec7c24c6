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

// Notebook represents a container of notes.
type Notebook struct {
	LocalID            string
	GUID               *string
	LinkedNotebookGUID *string
	UpdateSequenceNum  *int32
	Name               *string
	DefaultNotebook    *bool
	Created            *Timestamp
	Updated            *Timestamp
	Published          *bool
	Stack              *string

	Publishing       *Publishing
	BusinessNotebook *BusinessNotebook
	Restrictions     *NotebookRestrictions
	SharedNotebooks  []SharedNotebook

	Dirty     bool
	Local     bool
	Favorited bool
}

// Publishing represents notebook's public sharing settings.
type Publishing struct {
	URI               *string
	Order             *int32
	Ascending         *bool
	PublicDescription *string
}

// BusinessNotebook represents notebook's business library settings.
type BusinessNotebook struct {
	Description *string
	Privilege   *int32
	Recommended *bool
}

// NotebookRestrictions represents operations forbidden for notebook's content.
type NotebookRestrictions struct {
	NoReadNotes                            *bool
	NoCreateNotes                          *bool
	NoUpdateNotes                          *bool
	NoExpungeNotes                         *bool
	NoShareNotes                           *bool
	NoEmailNotes                           *bool
	NoSendMessageToRecipients              *bool
	NoUpdateNotebook                       *bool
	NoExpungeNotebook                      *bool
	NoSetDefaultNotebook                   *bool
	NoSetNotebookStack                     *bool
	NoPublishToPublic                      *bool
	NoPublishToBusinessLibrary             *bool
	NoCreateTags                           *bool
	NoUpdateTags                           *bool
	NoExpungeTags                          *bool
	NoSetParentTag                         *bool
	NoCreateSharedNotebooks                *bool
	UpdateWhichSharedNotebookRestrictions  *int32
	ExpungeWhichSharedNotebookRestrictions *int32
}

// CanCreateNotes returns true if notes could be created in the notebook.
func (r *NotebookRestrictions) CanCreateNotes() bool {
	return r == nil || r.NoCreateNotes == nil || !*r.NoCreateNotes
}

// CanUpdateNotes returns true if notes of the notebook could be updated.
func (r *NotebookRestrictions) CanUpdateNotes() bool {
	return r == nil || r.NoUpdateNotes == nil || !*r.NoUpdateNotes
}

// SharedNotebook represents a share of the notebook with another user.
type SharedNotebook struct {
	ID                           *int64
	UserID                       *int32
	NotebookGUID                 *string
	Email                        *string
	Privilege                    *int32
	Created                      *Timestamp
	Updated                      *Timestamp
	GlobalID                     *string
	Username                     *string
	SharerUserID                 *int32
	RecipientReminderNotifyEmail *bool
	RecipientReminderNotifyInApp *bool
}

// Validate checks that notebook could be stored.
func (nb *Notebook) Validate() error {
	if err := validateGUID("guid", nb.GUID); err != nil {
		return err
	}

	if err := validateGUID("linkedNotebookGuid", nb.LinkedNotebookGUID); err != nil {
		return err
	}

	if nb.Name == nil {
		return newValidationError("name", "is required")
	}

	if err := validateString("name", nb.Name, notebookNameRE, notebookNameLenMin, notebookNameLenMax); err != nil {
		return err
	}

	if err := validateString("stack", nb.Stack, notebookNameRE, notebookNameLenMin, notebookNameLenMax); err != nil {
		return err
	}

	if p := nb.Publishing; p != nil {
		if err := validateString("publishing.uri", p.URI, publishingURIRE, publishingURILenMin, publishingURILenMax); err != nil {
			return err
		}

		if err := validateString("publishing.publicDescription", p.PublicDescription, nil, 1, publishingDescriptionLenMax); err != nil {
			return err
		}
	}

	for i, sn := range nb.SharedNotebooks {
		if err := validateGUID(indexedField("sharedNotebooks", i, "notebookGuid"), sn.NotebookGUID); err != nil {
			return err
		}
	}

	return nil
}
