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

// Package types provides aggregates of the note-taking domain.
//
// # Mapping
//
// Optional scalar fields are pointers; nil means "not set".
// Optional nested structures are pointers to structs.
// Multi-valued attributes are slices and maps; nil and empty values are equivalent
// and are reported as nil after a round trip through the storage.
//
// # Identity
//
// Every aggregate except [User] has a local identifier (LocalID) assigned by the storage
// when empty, and an optional global identifier (GUID) assigned by the service on synchronization.
// User is identified by its numeric service identifier.
//
// # Flags
//
// Dirty marks unsynchronized local changes, Local marks aggregates that are never synchronized,
// Favorited marks aggregates with a shortcut.
package types

// Timestamp is a number of milliseconds since the Unix epoch.
type Timestamp = int64

// LazyMap is a map-typed attribute that distinguishes between
// "interested in key" (KeysOnly) and "has value for key" (FullMap).
type LazyMap struct {
	KeysOnly []string
	FullMap  map[string]string
}

// IsEmpty returns true if m is nil or has no keys.
func (m *LazyMap) IsEmpty() bool {
	return m == nil || (len(m.KeysOnly) == 0 && len(m.FullMap) == 0)
}

// Data represents a binary payload with its size and hash.
type Data struct {
	BodyHash []byte
	Size     *int32
	Body     []byte
}
