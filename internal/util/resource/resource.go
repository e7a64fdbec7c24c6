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

// Package resource provides utilities for tracking resource lifetimes.
package resource

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/notestore/notestore/internal/util/debugbuild"
)

// Token should be a field of a tracked object.
//
// It is a separate allocation so that the finalizer does not prevent the tracked object from being collected.
type Token struct {
	_ byte // prevent zero-size allocations sharing the same address
}

// NewToken returns a new Token.
func NewToken() *Token {
	return new(Token)
}

// profilesM protects access to profiles.
var profilesM sync.Mutex

// profileName return pprof profile name for the given object.
func profileName(obj any) string {
	return "notestore/" + reflect.TypeOf(obj).Elem().String()
}

// Track tracks the lifetime of an object until Untrack is called on it.
//
// Obj should be a pointer to a struct with a field "token" of type *Token.
// If the object is garbage collected without Untrack call, the finalizer panics.
func Track(obj any, token *Token) {
	checkArgs(obj, token)

	name := profileName(obj)

	profilesM.Lock()

	p := pprof.Lookup(name)
	if p == nil {
		p = pprof.NewProfile(name)
	}

	profilesM.Unlock()

	// use token instead of obj itself,
	// because otherwise profile will hold a reference to obj and finalizer will never run
	p.Add(token, 1)

	msg := fmt.Sprintf("%T has not been finalized", obj)
	if stack := debugbuild.Stack(); stack != nil {
		msg += "\nObject created by " + string(stack)
	}

	runtime.SetFinalizer(token, func(*Token) {
		panic(msg)
	})
}

// Untrack stops tracking the lifetime of an object.
//
// It is safe to call this function multiple times.
func Untrack(obj any, token *Token) {
	checkArgs(obj, token)

	if p := pprof.Lookup(profileName(obj)); p != nil {
		p.Remove(token)
	}

	runtime.SetFinalizer(token, nil)
}

// Count returns the number of currently tracked objects of the same type as obj.
func Count(obj any) int {
	p := pprof.Lookup(profileName(obj))
	if p == nil {
		return 0
	}

	return p.Count()
}

// checkArgs checks Track and Untrack arguments.
func checkArgs(obj any, token *Token) {
	if obj == nil {
		panic("obj must not be nil")
	}

	if token == nil {
		panic("token must not be nil")
	}

	pv := reflect.ValueOf(obj)
	if pv.Kind() != reflect.Ptr || pv.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("obj must be a pointer to struct, got %T", obj))
	}

	f := pv.Elem().FieldByName("token")
	if f.Kind() != reflect.Ptr || f.Pointer() != reflect.ValueOf(token).Pointer() {
		panic("token must be a pointer field of a struct")
	}
}
