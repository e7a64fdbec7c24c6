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

package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type trackedObject struct {
	token *Token
}

type badObject struct {
	other *Token
}

func TestTrackUntrack(t *testing.T) {
	obj := &trackedObject{token: NewToken()}

	before := Count(obj)

	Track(obj, obj.token)
	assert.Equal(t, before+1, Count(obj))

	Untrack(obj, obj.token)
	assert.Equal(t, before, Count(obj))

	// second call is no-op
	Untrack(obj, obj.token)
	assert.Equal(t, before, Count(obj))
}

func TestCheckArgs(t *testing.T) {
	t.Parallel()

	token := NewToken()

	assert.Panics(t, func() { Track(nil, token) })
	assert.Panics(t, func() { Track(&trackedObject{}, nil) })
	assert.Panics(t, func() { Track(trackedObject{token: token}, token) })
	assert.Panics(t, func() { Track(&badObject{other: token}, token) })
	assert.Panics(t, func() { Track(&trackedObject{token: NewToken()}, token) })
}
