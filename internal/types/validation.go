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

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Limits of the service.
const (
	guidLen = 36

	notebookNameLenMin = 1
	notebookNameLenMax = 100

	tagNameLenMin = 1
	tagNameLenMax = 100

	savedSearchNameLenMin = 1
	savedSearchNameLenMax = 100

	searchQueryLenMin = 0
	searchQueryLenMax = 1024

	noteTitleLenMin = 1
	noteTitleLenMax = 255

	noteContentLenMax = 5 * 1024 * 1024

	usernameLenMin = 1
	usernameLenMax = 64

	emailLenMin = 6
	emailLenMax = 255

	nameLenMin = 1
	nameLenMax = 255

	timezoneLenMin = 1
	timezoneLenMax = 32

	mimeLenMin = 3
	mimeLenMax = 255

	publishingURILenMin         = 1
	publishingURILenMax         = 255
	publishingDescriptionLenMax = 200

	attributeLenMin = 1
	attributeLenMax = 4096

	applicationDataValueLenMax = 4092

	hashLen = 16
)

var (
	guidRE            = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
	notebookNameRE    = regexp.MustCompile(`^[^\p{Cc}\p{Z}]([^\p{Cc}\p{Zl}\p{Zp}]{0,98}[^\p{Cc}\p{Z}])?$`)
	tagNameRE         = regexp.MustCompile(`^[^,\p{Cc}\p{Z}]([^,\p{Cc}\p{Zl}\p{Zp}]{0,98}[^,\p{Cc}\p{Z}])?$`)
	noteTitleRE       = regexp.MustCompile(`^[^\p{Cc}\p{Z}]([^\p{Cc}\p{Zl}\p{Zp}]{0,253}[^\p{Cc}\p{Z}])?$`)
	usernameRE        = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]{0,62}[a-z0-9])?$`)
	timezoneRE        = regexp.MustCompile(`^([A-Za-z_-]+(/[A-Za-z_-]+)*)$|^(GMT(-|\+)[0-9]{1,2}(:[0-9]{2})?)$`)
	mimeRE            = regexp.MustCompile(`^[A-Za-z]+/[A-Za-z0-9._+-]+$`)
	publishingURIRE   = regexp.MustCompile(`^[a-zA-Z0-9.~_+-]{1,255}$`)
	applicationDataRE = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

	emailRE = regexp.MustCompile("^[A-Za-z0-9!#$%&'*+/=?^_`{|}~-]+(\\.[A-Za-z0-9!#$%&'*+/=?^_`{|}~-]+)*" +
		"@[A-Za-z0-9-]+(\\.[A-Za-z0-9-]+)*\\.([A-Za-z]{2,})$")
)

// ValidationError describes an aggregate that can't be stored.
type ValidationError struct {
	field  string
	reason string
}

// newValidationError creates a new ValidationError.
func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{field: field, reason: reason}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.field, e.reason)
}

// Field returns the path of the invalid field.
func (e *ValidationError) Field() string {
	return e.field
}

// indexedField returns a path of the field of a slice element.
func indexedField(name string, i int, sub string) string {
	if sub == "" {
		return fmt.Sprintf("%s[%d]", name, i)
	}

	return fmt.Sprintf("%s[%d].%s", name, i, sub)
}

// validateString checks length (in characters) and format of an optional string.
//
// Re may be nil.
func validateString(field string, s *string, re *regexp.Regexp, minLen, maxLen int) *ValidationError {
	if s == nil {
		return nil
	}

	v := *s

	if !utf8.ValidString(v) {
		return newValidationError(field, "is not a valid UTF-8 string")
	}

	if l := utf8.RuneCountInString(v); l < minLen || l > maxLen {
		return newValidationError(field, fmt.Sprintf("length %d is not in range [%d, %d]", l, minLen, maxLen))
	}

	if re != nil && !re.MatchString(v) {
		return newValidationError(field, fmt.Sprintf("%q has invalid format", v))
	}

	return nil
}

// validateGUID checks the format of an optional global identifier.
func validateGUID(field string, guid *string) *ValidationError {
	return validateString(field, guid, guidRE, guidLen, guidLen)
}

// validateHash checks the length of an optional MD5 hash.
func validateHash(field string, h []byte) *ValidationError {
	if h != nil && len(h) != hashLen {
		return newValidationError(field, fmt.Sprintf("hash length %d is not %d", len(h), hashLen))
	}

	return nil
}

// validateCoordinates checks optional latitude and longitude.
func validateCoordinates(prefix string, lat, long *float64) *ValidationError {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return newValidationError(prefix+".latitude", "out of range")
	}

	if long != nil && (*long < -180 || *long > 180) {
		return newValidationError(prefix+".longitude", "out of range")
	}

	return nil
}

// validateLazyMap checks keys and values of an optional lazy map.
func validateLazyMap(field string, m *LazyMap) *ValidationError {
	if m == nil {
		return nil
	}

	for i, k := range m.KeysOnly {
		if !applicationDataRE.MatchString(k) {
			return newValidationError(indexedField(field+".keysOnly", i, ""), fmt.Sprintf("%q has invalid format", k))
		}
	}

	for k, v := range m.FullMap {
		if !applicationDataRE.MatchString(k) {
			return newValidationError(field+".fullMap", fmt.Sprintf("key %q has invalid format", k))
		}

		if len(v) > applicationDataValueLenMax {
			return newValidationError(field+".fullMap", fmt.Sprintf("value for key %q is too long", k))
		}
	}

	return nil
}

// check interfaces
var (
	_ error = (*ValidationError)(nil)
)
