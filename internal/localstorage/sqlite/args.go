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

package sqlite

import (
	"fmt"
	"reflect"
	"strings"
)

// arg converts an optional value to the SQL argument; nil pointer is NULL.
//
// Booleans are stored as 0 and 1, all integers as int64.
func arg[T any](p *T) any {
	if p == nil {
		return nil
	}

	v := reflect.ValueOf(*p)

	switch v.Kind() { //nolint:exhaustive // other kinds are not used by aggregates
	case reflect.Bool:
		return boolArg(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.String:
		return v.String()
	default:
		panic(fmt.Sprintf("unexpected argument type %T", *p))
	}
}

// boolArg converts bool to SQL argument.
func boolArg(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

// blobArg converts binary data to SQL argument; nil slice is NULL.
func blobArg(b []byte) any {
	if b == nil {
		return nil
	}

	return b
}

// placeholders returns n comma-separated placeholders.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}

	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}

		b = append(b, '?')
	}

	return string(b)
}

// anyNotNil returns true if any of the given scanned pointers is not nil.
func anyNotNil(ptrs ...any) bool {
	for _, p := range ptrs {
		if !reflect.ValueOf(p).IsNil() {
			return true
		}
	}

	return false
}

// upsert returns the statement inserting a new row or replacing all columns
// of the existing row with the same value of the conflict column.
//
// Unlike INSERT OR REPLACE, it does not delete the existing row,
// so foreign key actions are not triggered for dependent rows.
func upsert(table, conflict string, columns []string) string {
	set := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != conflict {
			set = append(set, c+" = excluded."+c)
		}
	}

	return "INSERT INTO " + table + "(" + strings.Join(columns, ", ") + ") VALUES (" + placeholders(len(columns)) + ")" +
		" ON CONFLICT(" + conflict + ") DO UPDATE SET " + strings.Join(set, ", ")
}

// insert returns the plain INSERT statement.
func insert(table string, columns []string) string {
	return "INSERT INTO " + table + "(" + strings.Join(columns, ", ") + ") VALUES (" + placeholders(len(columns)) + ")"
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
