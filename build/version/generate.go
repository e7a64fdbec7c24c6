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

//go:build ignore

// Generate writes version.txt, commit.txt, and branch.txt from the git repository state.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/notestore/notestore/internal/util/must"
)

// files maps generated file names to git commands producing their content.
var files = map[string][]string{
	"version.txt": {"describe", "--tags", "--dirty"},
	"commit.txt":  {"rev-parse", "HEAD"},
	"branch.txt":  {"branch", "--show-current"},
}

func main() {
	log.SetFlags(0)

	for name, args := range files {
		cmd := exec.Command("git", args...)
		cmd.Stderr = os.Stderr

		b, err := cmd.Output()
		if err != nil {
			log.Fatalf("git %v: %s", args, err)
		}

		b = append(bytes.TrimSpace(b), '\n')
		log.Printf("%s: %s", name, b)

		must.NoError(os.WriteFile(name, b, 0o666))
	}

	// package.txt is never generated, only reported
	if b, err := os.ReadFile("package.txt"); err == nil {
		fmt.Printf("package.txt: %s", b)
	}
}
