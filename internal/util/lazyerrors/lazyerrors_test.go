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

package lazyerrors

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	t.Parallel()

	err := New("err")
	require.True(t, strings.HasPrefix(err.Error(), "[lazyerrors_test.go:"), err.Error())
	assert.True(t, strings.HasSuffix(err.Error(), " lazyerrors.TestErrors] err"), err.Error())

	err1 := Errorf("err1: %w", err)
	assert.Contains(t, err1.Error(), "err1: [lazyerrors_test.go:")
	assert.True(t, errors.Is(err1, err))

	// withStack wrapper + fmt wrapper
	assert.Equal(t, err, errors.Unwrap(errors.Unwrap(err1)))
}

func TestError(t *testing.T) {
	t.Parallel()

	err := Error(io.EOF)
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, io.EOF, UnwrapAll(err))
	assert.Nil(t, UnwrapAll(nil))

	assert.Panics(t, func() { _ = Error(nil) })
}

func TestClosure(t *testing.T) {
	t.Parallel()

	ch := make(chan error, 1)

	go func() {
		ch <- New("err")
	}()

	err := <-ch
	assert.Contains(t, err.Error(), "lazyerrors.TestClosure.func1] err")
}
