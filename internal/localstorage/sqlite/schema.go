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

	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/util/fsql"
	"github.com/notestore/notestore/internal/util/lazyerrors"
)

// schemaVersion is the highest supported schema version.
const schemaVersion = 2

// ftsTable describes an FTS5 table over external content table with INTEGER PRIMARY KEY "id".
type ftsTable struct {
	name    string
	content string
	columns []string // the first one is UNINDEXED
}

// ftsTables are kept in sync with their content tables by triggers.
var ftsTables = []ftsTable{
	{name: "NoteFTS", content: "Notes", columns: []string{"localUid", "titleNormalized", "contentListOfWords"}},
	{name: "TagFTS", content: "Tags", columns: []string{"localUid", "nameLower"}},
	{name: "NotebookFTS", content: "Notebooks", columns: []string{"localUid", "nameLower"}},
	{name: "ResourceMimeFTS", content: "Resources", columns: []string{"localUid", "mime"}},
	{name: "ResourceRecognitionDataFTS", content: "ResourceRecognitionData", columns: []string{"noteLocalUid", "recognitionData"}},
}

// tables contains DDL of regular tables and indexes in dependency order.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS Auxiliary(
		lock    CHAR(1) PRIMARY KEY NOT NULL DEFAULT 'X' CHECK (lock = 'X'),
		version INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS Users(
		id                       INTEGER PRIMARY KEY NOT NULL,
		username                 TEXT,
		email                    TEXT,
		name                     TEXT,
		timezone                 TEXT,
		privilege                INTEGER,
		serviceLevel             INTEGER,
		creationTimestamp        INTEGER,
		modificationTimestamp    INTEGER,
		deletionTimestamp        INTEGER,
		isActive                 INTEGER,
		shardId                  TEXT,
		photoUrl                 TEXT,
		photoLastUpdateTimestamp INTEGER,
		isDirty                  INTEGER NOT NULL DEFAULT 0,
		isLocal                  INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS UserAttributes(
		id                         INTEGER PRIMARY KEY NOT NULL REFERENCES Users(id) ON DELETE CASCADE,
		defaultLocationName        TEXT,
		defaultLatitude            REAL,
		defaultLongitude           REAL,
		preactivation              INTEGER,
		incomingEmailAddress       TEXT,
		comments                   TEXT,
		dateAgreedToTermsOfService INTEGER,
		preferredLanguage          TEXT,
		preferredCountry           TEXT,
		clipFullPage               INTEGER,
		twitterUserName            TEXT,
		groupName                  TEXT,
		recognitionLanguage        TEXT,
		educationalDiscount        INTEGER,
		businessAddress            TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS UserViewedPromotions(
		id          INTEGER NOT NULL REFERENCES Users(id) ON DELETE CASCADE,
		indexInList INTEGER NOT NULL,
		value       TEXT NOT NULL,
		PRIMARY KEY (id, indexInList)
	)`,
	`CREATE TABLE IF NOT EXISTS UserRecentMailedAddresses(
		id          INTEGER NOT NULL REFERENCES Users(id) ON DELETE CASCADE,
		indexInList INTEGER NOT NULL,
		value       TEXT NOT NULL,
		PRIMARY KEY (id, indexInList)
	)`,
	`CREATE TABLE IF NOT EXISTS Accounting(
		id                     INTEGER PRIMARY KEY NOT NULL REFERENCES Users(id) ON DELETE CASCADE,
		uploadLimitEnd         INTEGER,
		uploadLimitNextMonth   INTEGER,
		premiumServiceStatus   INTEGER,
		premiumOrderNumber     TEXT,
		premiumServiceStart    INTEGER,
		premiumServiceSKU      TEXT,
		lastSuccessfulCharge   INTEGER,
		lastFailedCharge       INTEGER,
		lastFailedChargeReason TEXT,
		nextPaymentDue         INTEGER
	)`,

	`CREATE TABLE IF NOT EXISTS LinkedNotebooks(
		localUid               TEXT PRIMARY KEY NOT NULL,
		guid                   TEXT NOT NULL UNIQUE,
		updateSequenceNumber   INTEGER,
		shareName              TEXT,
		username               TEXT,
		shardId                TEXT,
		sharedNotebookGlobalId TEXT,
		uri                    TEXT,
		noteStoreUrl           TEXT,
		webApiUrlPrefix        TEXT,
		stack                  TEXT,
		businessId             INTEGER,
		isDirty                INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS Notebooks(
		id                             INTEGER PRIMARY KEY,
		localUid                       TEXT NOT NULL UNIQUE,
		guid                           TEXT UNIQUE,
		linkedNotebookGuid             TEXT REFERENCES LinkedNotebooks(guid) ON DELETE CASCADE,
		updateSequenceNumber           INTEGER,
		name                           TEXT,
		nameLower                      TEXT,
		isDefault                      INTEGER,
		creationTimestamp              INTEGER,
		modificationTimestamp          INTEGER,
		isPublished                    INTEGER,
		stack                          TEXT,
		publishingUri                  TEXT,
		publishingNoteSortOrder        INTEGER,
		publishingAscendingSort        INTEGER,
		publicDescription              TEXT,
		businessNotebookDescription    TEXT,
		businessNotebookPrivilegeLevel INTEGER,
		businessNotebookIsRecommended  INTEGER,
		isDirty                        INTEGER NOT NULL DEFAULT 0,
		isLocal                        INTEGER NOT NULL DEFAULT 0,
		isFavorited                    INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS NotebooksNameInScope ON Notebooks(nameLower, COALESCE(linkedNotebookGuid, ''))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS NotebooksDefault ON Notebooks(isDefault) WHERE isDefault = 1`,
	`CREATE TABLE IF NOT EXISTS NotebookRestrictions(
		localNotebook                          TEXT PRIMARY KEY NOT NULL REFERENCES Notebooks(localUid) ON DELETE CASCADE,
		noReadNotes                            INTEGER,
		noCreateNotes                          INTEGER,
		noUpdateNotes                          INTEGER,
		noExpungeNotes                         INTEGER,
		noShareNotes                           INTEGER,
		noEmailNotes                           INTEGER,
		noSendMessageToRecipients              INTEGER,
		noUpdateNotebook                       INTEGER,
		noExpungeNotebook                      INTEGER,
		noSetDefaultNotebook                   INTEGER,
		noSetNotebookStack                     INTEGER,
		noPublishToPublic                      INTEGER,
		noPublishToBusinessLibrary             INTEGER,
		noCreateTags                           INTEGER,
		noUpdateTags                           INTEGER,
		noExpungeTags                          INTEGER,
		noSetParentTag                         INTEGER,
		noCreateSharedNotebooks                INTEGER,
		updateWhichSharedNotebookRestrictions  INTEGER,
		expungeWhichSharedNotebookRestrictions INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS SharedNotebooks(
		localNotebook                TEXT NOT NULL REFERENCES Notebooks(localUid) ON DELETE CASCADE,
		indexInNotebook              INTEGER NOT NULL,
		shareId                      INTEGER,
		userId                       INTEGER,
		notebookGuid                 TEXT,
		email                        TEXT,
		privilegeLevel               INTEGER,
		creationTimestamp            INTEGER,
		modificationTimestamp        INTEGER,
		globalId                     TEXT,
		username                     TEXT,
		sharerUserId                 INTEGER,
		recipientReminderNotifyEmail INTEGER,
		recipientReminderNotifyInApp INTEGER,
		PRIMARY KEY (localNotebook, indexInNotebook)
	)`,

	`CREATE TABLE IF NOT EXISTS Notes(
		id                            INTEGER PRIMARY KEY,
		localUid                      TEXT NOT NULL UNIQUE,
		guid                          TEXT UNIQUE,
		localNotebook                 TEXT NOT NULL REFERENCES Notebooks(localUid) ON DELETE CASCADE,
		notebookGuid                  TEXT,
		updateSequenceNumber          INTEGER,
		title                         TEXT,
		titleNormalized               TEXT,
		content                       TEXT,
		contentLength                 INTEGER,
		contentHash                   BLOB,
		contentPlainText              TEXT,
		contentListOfWords            TEXT,
		contentContainsFinishedToDo   INTEGER NOT NULL DEFAULT 0,
		contentContainsUnfinishedToDo INTEGER NOT NULL DEFAULT 0,
		contentContainsEncryption     INTEGER NOT NULL DEFAULT 0,
		creationTimestamp             INTEGER,
		modificationTimestamp         INTEGER,
		deletionTimestamp             INTEGER,
		isActive                      INTEGER,
		thumbnail                     BLOB,
		subjectDate                   INTEGER,
		latitude                      REAL,
		longitude                     REAL,
		altitude                      REAL,
		author                        TEXT,
		source                        TEXT,
		sourceUrl                     TEXT,
		sourceApplication             TEXT,
		shareDate                     INTEGER,
		reminderOrder                 INTEGER,
		reminderDoneTime              INTEGER,
		reminderTime                  INTEGER,
		placeName                     TEXT,
		contentClass                  TEXT,
		lastEditedBy                  TEXT,
		creatorId                     INTEGER,
		lastEditorId                  INTEGER,
		sharedWithBusiness            INTEGER,
		conflictSourceNoteGuid        TEXT,
		noteTitleQuality              INTEGER,
		isDirty                       INTEGER NOT NULL DEFAULT 0,
		isLocal                       INTEGER NOT NULL DEFAULT 0,
		isFavorited                   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS NotesByNotebook ON Notes(localNotebook)`,
	`CREATE TABLE IF NOT EXISTS NoteApplicationDataKeysOnly(
		localNote TEXT NOT NULL REFERENCES Notes(localUid) ON DELETE CASCADE,
		key       TEXT NOT NULL,
		UNIQUE (localNote, key)
	)`,
	`CREATE TABLE IF NOT EXISTS NoteApplicationDataFullMap(
		localNote TEXT NOT NULL REFERENCES Notes(localUid) ON DELETE CASCADE,
		key       TEXT NOT NULL,
		value     TEXT NOT NULL,
		PRIMARY KEY (localNote, key)
	)`,
	`CREATE TABLE IF NOT EXISTS NoteClassifications(
		localNote TEXT NOT NULL REFERENCES Notes(localUid) ON DELETE CASCADE,
		key       TEXT NOT NULL,
		value     TEXT NOT NULL,
		PRIMARY KEY (localNote, key)
	)`,

	`CREATE TABLE IF NOT EXISTS Tags(
		id                   INTEGER PRIMARY KEY,
		localUid             TEXT NOT NULL UNIQUE,
		guid                 TEXT UNIQUE,
		linkedNotebookGuid   TEXT REFERENCES LinkedNotebooks(guid) ON DELETE CASCADE,
		updateSequenceNumber INTEGER,
		name                 TEXT,
		nameLower            TEXT,
		parentGuid           TEXT,
		parentLocalUid       TEXT REFERENCES Tags(localUid) ON DELETE CASCADE,
		isDirty              INTEGER NOT NULL DEFAULT 0,
		isLocal              INTEGER NOT NULL DEFAULT 0,
		isFavorited          INTEGER NOT NULL DEFAULT 0,
		isDeleted            INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS TagsNameInScope ON Tags(nameLower, COALESCE(linkedNotebookGuid, ''))`,
	`CREATE INDEX IF NOT EXISTS TagsByParent ON Tags(parentLocalUid)`,
	`CREATE TABLE IF NOT EXISTS NoteTags(
		localNote   TEXT NOT NULL REFERENCES Notes(localUid) ON DELETE CASCADE,
		localTag    TEXT NOT NULL REFERENCES Tags(localUid) ON DELETE CASCADE,
		indexInNote INTEGER NOT NULL,
		PRIMARY KEY (localNote, localTag)
	)`,
	`CREATE INDEX IF NOT EXISTS NoteTagsByTag ON NoteTags(localTag)`,

	`CREATE TABLE IF NOT EXISTS Resources(
		id                  INTEGER PRIMARY KEY,
		localUid            TEXT NOT NULL UNIQUE,
		guid                TEXT UNIQUE,
		localNote           TEXT NOT NULL REFERENCES Notes(localUid) ON DELETE CASCADE,
		noteGuid            TEXT,
		updateSequenceNumber INTEGER,
		mime                TEXT,
		width               INTEGER,
		height              INTEGER,
		duration            INTEGER,
		isActive            INTEGER,
		dataBody            BLOB,
		dataSize            INTEGER,
		dataHash            BLOB,
		recognitionDataBody BLOB,
		recognitionDataSize INTEGER,
		recognitionDataHash BLOB,
		alternateDataBody   BLOB,
		alternateDataSize   INTEGER,
		alternateDataHash   BLOB,
		isDirty             INTEGER NOT NULL DEFAULT 0,
		isLocal             INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS ResourcesByNote ON Resources(localNote)`,
	`CREATE TABLE IF NOT EXISTS NoteResources(
		localNote     TEXT NOT NULL REFERENCES Notes(localUid) ON DELETE CASCADE,
		localResource TEXT NOT NULL REFERENCES Resources(localUid) ON DELETE CASCADE,
		indexInNote   INTEGER NOT NULL,
		PRIMARY KEY (localNote, localResource)
	)`,
	`CREATE INDEX IF NOT EXISTS NoteResourcesByResource ON NoteResources(localResource)`,
	`CREATE TABLE IF NOT EXISTS ResourceAttributes(
		localResource   TEXT PRIMARY KEY NOT NULL REFERENCES Resources(localUid) ON DELETE CASCADE,
		sourceUrl       TEXT,
		timestamp       INTEGER,
		latitude        REAL,
		longitude       REAL,
		altitude        REAL,
		cameraMake      TEXT,
		cameraModel     TEXT,
		clientWillIndex INTEGER,
		recoType        TEXT,
		fileName        TEXT,
		isAttachment    INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS ResourceApplicationDataKeysOnly(
		localResource TEXT NOT NULL REFERENCES Resources(localUid) ON DELETE CASCADE,
		key           TEXT NOT NULL,
		UNIQUE (localResource, key)
	)`,
	`CREATE TABLE IF NOT EXISTS ResourceApplicationDataFullMap(
		localResource TEXT NOT NULL REFERENCES Resources(localUid) ON DELETE CASCADE,
		key           TEXT NOT NULL,
		value         TEXT NOT NULL,
		PRIMARY KEY (localResource, key)
	)`,
	`CREATE TABLE IF NOT EXISTS ResourceRecognitionData(
		id              INTEGER PRIMARY KEY,
		localResource   TEXT NOT NULL UNIQUE REFERENCES Resources(localUid) ON DELETE CASCADE,
		noteLocalUid    TEXT NOT NULL,
		recognitionData TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS SavedSearches(
		localUid                       TEXT PRIMARY KEY NOT NULL,
		guid                           TEXT UNIQUE,
		updateSequenceNumber           INTEGER,
		name                           TEXT,
		nameLower                      TEXT UNIQUE,
		query                          TEXT,
		format                         INTEGER,
		includeAccount                 INTEGER,
		includePersonalLinkedNotebooks INTEGER,
		includeBusinessLinkedNotebooks INTEGER,
		isDirty                        INTEGER NOT NULL DEFAULT 0,
		isLocal                        INTEGER NOT NULL DEFAULT 0,
		isFavorited                    INTEGER NOT NULL DEFAULT 0
	)`,
}

// ddl returns FTS5 table and triggers DDL.
func (t *ftsTable) ddl() []string {
	cols := strings.Join(t.columns, ", ")

	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = c
		if i == 0 {
			defs[i] += " UNINDEXED"
		}
	}

	values := func(prefix string) string {
		res := make([]string, len(t.columns))
		for i, c := range t.columns {
			res[i] = prefix + "." + c
		}

		return strings.Join(res, ", ")
	}

	insert := "INSERT INTO " + t.name + "(rowid, " + cols + ") VALUES (new.id, " + values("new") + ");"
	remove := "INSERT INTO " + t.name + "(" + t.name + ", rowid, " + cols + ") VALUES ('delete', old.id, " + values("old") + ");"

	return []string{
		"CREATE VIRTUAL TABLE IF NOT EXISTS " + t.name + " USING fts5(" + strings.Join(defs, ", ") +
			", content='" + t.content + "', content_rowid='id')",
		"CREATE TRIGGER IF NOT EXISTS " + t.name + "AfterInsert AFTER INSERT ON " + t.content + " BEGIN " + insert + " END",
		"CREATE TRIGGER IF NOT EXISTS " + t.name + "AfterDelete AFTER DELETE ON " + t.content + " BEGIN " + remove + " END",
		"CREATE TRIGGER IF NOT EXISTS " + t.name + "AfterUpdate AFTER UPDATE ON " + t.content + " BEGIN " + remove + " " + insert + " END",
	}
}

// setupSchema creates all tables if needed and checks the schema version.
//
// All errors are FatalStorage errors.
func setupSchema(ctx context.Context, conn *fsql.Conn) error {
	err := conn.InTransaction(ctx, fsql.Exclusive, func(tx *fsql.Tx) error {
		for _, q := range tables {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return lazyerrors.Error(err)
			}
		}

		for _, t := range ftsTables {
			for _, q := range t.ddl() {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					return lazyerrors.Error(err)
				}
			}
		}

		var version int

		err := tx.QueryRowContext(ctx, "SELECT version FROM Auxiliary").Scan(&version)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, "INSERT INTO Auxiliary(version) VALUES (?)", int64(schemaVersion))
			return err

		case err != nil:
			return lazyerrors.Error(err)

		case version > schemaVersion:
			return lazyerrors.Errorf("database schema version %d is newer than supported %d", version, schemaVersion)

		case version < schemaVersion:
			_, err = tx.ExecContext(ctx, "UPDATE Auxiliary SET version = ?", int64(schemaVersion))
			return err

		default:
			return nil
		}
	})
	if err != nil {
		return storageerrors.NewError(storageerrors.ErrorCodeFatalStorage, err)
	}

	return nil
}
