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

// Package storageerrors provides the error taxonomy of the local storage.
//
// All errors returned by storage methods are either *Error values or opaque internal errors.
package storageerrors

import (
	"fmt"

	"golang.org/x/exp/slices"
)

//go:generate ../../bin/stringer -linecomment -type ErrorCode

// ErrorCode represents a storage error code.
type ErrorCode int

// Error codes.
const (
	_ ErrorCode = iota

	ErrorCodeValidation       // Validation
	ErrorCodeNotFound         // NotFound
	ErrorCodeAlreadyExists    // AlreadyExists
	ErrorCodeConstraint       // Constraint
	ErrorCodeFilter           // Filter
	ErrorCodeQueryCompilation // QueryCompilation
	ErrorCodeSQLExecution     // SQLExecution
	ErrorCodeFatalStorage     // FatalStorage
)

// Error represents a storage error returned by all Storage methods.
type Error struct {
	// This internal error can't be accessed by the caller; it exists only for debugging.
	// It may be nil.
	err error

	code ErrorCode
}

// NewError creates a new storage error.
//
// Code must not be 0. Err may be nil.
func NewError(code ErrorCode, err error) *Error {
	if code == 0 {
		panic("storageerrors.NewError: code must not be 0")
	}

	return &Error{
		code: code,
		err:  err,
	}
}

// Errorf is a shortcut for NewError(code, fmt.Errorf(format, a...)).
func Errorf(code ErrorCode, format string, a ...any) *Error {
	return NewError(code, fmt.Errorf(format, a...))
}

// Code returns the error code.
func (err *Error) Code() ErrorCode {
	return err.code
}

// There is intentionally no method to return the internal error.

// Error implements error interface.
func (err *Error) Error() string {
	if err.err == nil {
		return err.code.String()
	}

	return fmt.Sprintf("%s: %v", err.code, err.err)
}

// ErrorCodeIs returns true if err is *Error with one of the given error codes.
//
// At least one error code must be given.
func ErrorCodeIs(err error, code ErrorCode, codes ...ErrorCode) bool {
	e, ok := err.(*Error) //nolint:errorlint // do not inspect error chain
	if !ok {
		return false
	}

	return e.code == code || slices.Contains(codes, e.code)
}

// check interfaces
var (
	_ error = (*Error)(nil)
)
