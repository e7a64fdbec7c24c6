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

//go:build unix

package flock

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"

	"github.com/notestore/notestore/internal/util/lazyerrors"
)

// flock wraps flock syscall with a retry on EINTR.
func flock(f *os.File, how int) error {
	for {
		err := unix.Flock(int(f.Fd()), how)
		if err == nil {
			return nil
		}

		if errors.Is(err, unix.EINTR) {
			continue
		}

		return err
	}
}

// lock acquires exclusive lock without blocking.
func lock(f *os.File) error {
	err := flock(f, unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return ErrLocked
	}

	if err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// unlock releases the lock.
func unlock(f *os.File) error {
	if err := flock(f, unix.LOCK_UN); err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}
