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

package state

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// owner returns the "user:group/uid:gid" description of the given ids.
func owner(uid, gid string) string {
	var username, group string

	if u, _ := user.LookupId(uid); u != nil {
		username = u.Username
	}

	if g, _ := user.LookupGroupId(gid); g != nil {
		group = g.Name
	}

	return fmt.Sprintf("%s:%s/%s:%s", username, group, uid, gid)
}

// newProviderDirErr adds details about the process user and the state file
// (or its directory, if the file does not exist) to the state file access error.
func newProviderDirErr(f string, err error) error {
	var extra []string

	if u, _ := user.Current(); u != nil {
		extra = append(extra, "running as "+owner(u.Uid, u.Gid))
	}

	for _, p := range []string{f, filepath.Dir(f)} {
		fi, _ := os.Stat(p)
		if fi == nil {
			continue
		}

		desc := fmt.Sprintf("%s permissions are %s", p, fi.Mode().String())
		if s, _ := fi.Sys().(*unix.Stat_t); s != nil {
			desc += ", owned by " + owner(strconv.Itoa(int(s.Uid)), strconv.Itoa(int(s.Gid)))
		}

		extra = append(extra, desc)

		break
	}

	if extra == nil {
		return err
	}

	return fmt.Errorf("%w (%s)", err, strings.Join(extra, ", "))
}
