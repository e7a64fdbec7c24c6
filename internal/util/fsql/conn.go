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

// Package fsql provides [database/sql] utilities.
//
// The main type is [Conn]: a single pinned database connection with query logging,
// a prepared statement cache, explicit transactions, metrics, and resource tracking.
// It is not safe for concurrent use; callers serialize access themselves.
package fsql

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/notestore/notestore/internal/util/lazyerrors"
	"github.com/notestore/notestore/internal/util/observability"
	"github.com/notestore/notestore/internal/util/resource"
)

// Querier is implemented by [*Conn] and [*Tx].
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Stmt(ctx context.Context, id, query string) (*Stmt, error)
}

// Conn wraps a single [*database/sql.Conn] pinned from a pool of size one.
//
// Pinning is required for explicit BEGIN/COMMIT statements
// and for prepared statements to always run on the same SQLite connection.
//
//nolint:vet // for readability
type Conn struct {
	*metricsCollector

	db   *sql.DB
	conn *sql.Conn
	l    *zap.Logger

	stmts  map[string]*Stmt
	nStmts atomic.Int64

	tx *Tx

	token *resource.Token
}

// Open opens a database with the given driver and data source name and pins its only connection.
//
// Name is used for metric label values and the logger name.
func Open(ctx context.Context, driverName, dsn, name string, l *zap.Logger) (*Conn, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)
	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, lazyerrors.Error(err)
	}

	if err = conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()

		return nil, lazyerrors.Error(err)
	}

	c := &Conn{
		db:    db,
		conn:  conn,
		l:     l.Named(name),
		stmts: make(map[string]*Stmt),
		token: resource.NewToken(),
	}

	c.metricsCollector = newMetricsCollector(name, db.Stats, &c.nStmts)

	resource.Track(c, c.token)

	return c, nil
}

// Close closes all cached statements and the connection.
//
// An active transaction is rolled back first.
func (c *Conn) Close() error {
	resource.Untrack(c, c.token)

	if c.tx != nil {
		_ = c.tx.Rollback(context.Background())
	}

	for id, s := range c.stmts {
		if err := s.s.Close(); err != nil {
			c.l.Warn("Failed to close statement.", zap.String("id", id), zap.Error(err))
		}
	}

	c.stmts = nil
	c.nStmts.Store(0)

	err := c.conn.Close()

	if e := c.db.Close(); err == nil {
		err = e
	}

	return err
}

// ExecContext calls [*sql.Conn.ExecContext].
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer observability.FuncCall(ctx)()

	start := c.logStart(query, args)

	res, err := c.conn.ExecContext(ctx, query, args...)

	c.logEnd(query, args, start, res, err)

	return res, err
}

// QueryContext calls [*sql.Conn.QueryContext].
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer observability.FuncCall(ctx)()

	start := c.logStart(query, args)

	rows, err := c.conn.QueryContext(ctx, query, args...)

	c.logEnd(query, args, start, nil, err)

	return rows, err
}

// QueryRowContext calls [*sql.Conn.QueryRowContext].
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer observability.FuncCall(ctx)()

	start := c.logStart(query, args)

	row := c.conn.QueryRowContext(ctx, query, args...)

	c.logEnd(query, args, start, nil, row.Err())

	return row
}

// logStart logs the query before execution and returns the start time.
func (c *Conn) logStart(query string, args []any) time.Time {
	c.l.Sugar().With(zap.Any("args", args)).Debugf(">>> %s", query)

	return time.Now()
}

// logEnd logs the query after execution.
func (c *Conn) logEnd(query string, args []any, start time.Time, res sql.Result, err error) {
	fields := []any{zap.Any("args", args)}

	// to differentiate between 0 and nil
	if res != nil {
		ra, _ := res.RowsAffected()
		fields = append(fields, zap.Int64("rows", ra))
	}

	fields = append(fields, zap.Duration("time", time.Since(start)), zap.Error(err))
	c.l.Sugar().With(fields...).Debugf("<<< %s", query)
}

// check interfaces
var (
	_ Querier = (*Conn)(nil)
)
