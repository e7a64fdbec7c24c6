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
	"errors"

	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/util/lazyerrors"
)

// sqlError converts the error of the statement with the given id to the storage error.
//
// Uniqueness violations are AlreadyExists errors, foreign key violations are NotFound errors,
// everything else is SQLExecution error.
func sqlError(id string, err error) error {
	code := storageerrors.ErrorCodeSQLExecution

	var e *sqlite.Error
	if errors.As(err, &e) {
		switch e.Code() {
		case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
			code = storageerrors.ErrorCodeAlreadyExists
		case sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY:
			code = storageerrors.ErrorCodeNotFound
		}
	}

	return storageerrors.NewError(code, lazyerrors.Errorf("%s: %w", id, err))
}

// publicError returns storage error from the error chain, or wraps err into SQLExecution error.
func publicError(err error) error {
	if err == nil {
		return nil
	}

	var e *storageerrors.Error
	if errors.As(err, &e) {
		return e
	}

	return storageerrors.NewError(storageerrors.ErrorCodeSQLExecution, err)
}

// notFound returns NotFound error for the given entity and key.
func notFound(entity, key string, value any) error {
	return storageerrors.Errorf(storageerrors.ErrorCodeNotFound, "%s with %s %v not found", entity, key, value)
}
