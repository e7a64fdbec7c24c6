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

package fsql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/notestore/notestore/internal/util/lazyerrors"
	"github.com/notestore/notestore/internal/util/observability"
)

// Stmt is a prepared statement owned by the [Conn] statement cache.
//
// It must not be closed by the caller.
type Stmt struct {
	c     *Conn
	s     *sql.Stmt
	id    string
	query string
}

// Stmt returns the prepared statement with the given canonical id,
// preparing it with the given query on the first call.
//
// Statement text for the given id must never change.
func (c *Conn) Stmt(ctx context.Context, id, query string) (*Stmt, error) {
	defer observability.FuncCall(ctx)()

	if s := c.stmts[id]; s != nil {
		if s.query != query {
			panic(fmt.Sprintf("statement %q was prepared with different text", id))
		}

		return s, nil
	}

	s, err := c.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, lazyerrors.Errorf("%s: %w", id, err)
	}

	res := &Stmt{
		c:     c,
		s:     s,
		id:    id,
		query: query,
	}

	c.stmts[id] = res
	c.nStmts.Add(1)

	return res, nil
}

// ID returns statement's canonical id.
func (s *Stmt) ID() string {
	return s.id
}

// ExecContext calls [*sql.Stmt.ExecContext].
func (s *Stmt) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	defer observability.FuncCall(ctx)()

	start := s.c.logStart(s.query, args)

	res, err := s.s.ExecContext(ctx, args...)

	s.c.logEnd(s.query, args, start, res, err)

	return res, err
}

// QueryContext calls [*sql.Stmt.QueryContext].
func (s *Stmt) QueryContext(ctx context.Context, args ...any) (*sql.Rows, error) {
	defer observability.FuncCall(ctx)()

	start := s.c.logStart(s.query, args)

	rows, err := s.s.QueryContext(ctx, args...)

	s.c.logEnd(s.query, args, start, nil, err)

	return rows, err
}

// QueryRowContext calls [*sql.Stmt.QueryRowContext].
func (s *Stmt) QueryRowContext(ctx context.Context, args ...any) *sql.Row {
	defer observability.FuncCall(ctx)()

	start := s.c.logStart(s.query, args)

	row := s.s.QueryRowContext(ctx, args...)

	s.c.logEnd(s.query, args, start, nil, row.Err())

	return row
}
