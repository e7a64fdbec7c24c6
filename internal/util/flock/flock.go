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

// Package flock provides advisory file locks used to prevent
// several processes from opening the same local storage at once.
package flock

import (
	"errors"
	"os"

	"github.com/notestore/notestore/internal/util/lazyerrors"
	"github.com/notestore/notestore/internal/util/resource"
)

// ErrLocked is returned by TryLock when the lock is held by someone else.
var ErrLocked = errors.New("file is locked by another process")

// Lock represents an acquired exclusive advisory lock.
type Lock struct {
	f     *os.File
	token *resource.Token
}

// TryLock creates (if needed) the lock file at the given path and acquires
// an exclusive advisory lock on it without blocking.
//
// If the lock is held by another open file description, it returns ErrLocked.
func TryLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	if err = lock(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	l := &Lock{
		f:     f,
		token: resource.NewToken(),
	}
	resource.Track(l, l.token)

	return l, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.f.Name()
}

// Unlock releases the lock and closes the lock file.
//
// The lock file itself is not removed.
func (l *Lock) Unlock() error {
	resource.Untrack(l, l.token)

	err := unlock(l.f)

	if e := l.f.Close(); err == nil && e != nil {
		err = lazyerrors.Error(e)
	}

	return err
}
