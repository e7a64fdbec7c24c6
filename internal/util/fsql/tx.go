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
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/notestore/notestore/internal/util/lazyerrors"
	"github.com/notestore/notestore/internal/util/observability"
	"github.com/notestore/notestore/internal/util/resource"
)

// TxKind represents a transaction kind.
type TxKind int

const (
	// Selection is a read-only deferred transaction.
	Selection TxKind = iota + 1

	// Immediate acquires the write lock at begin.
	Immediate

	// Exclusive acquires the exclusive lock at begin; used for all writes.
	Exclusive
)

func (k TxKind) String() string {
	switch k {
	case Selection:
		return "selection"
	case Immediate:
		return "immediate"
	case Exclusive:
		return "exclusive"
	default:
		panic(fmt.Sprintf("unexpected transaction kind %d", k))
	}
}

// begin returns the statement that starts the transaction of that kind.
func (k TxKind) begin() string {
	switch k {
	case Selection:
		return "BEGIN DEFERRED"
	case Immediate:
		return "BEGIN IMMEDIATE"
	case Exclusive:
		return "BEGIN EXCLUSIVE"
	default:
		panic(fmt.Sprintf("unexpected transaction kind %d", k))
	}
}

// ErrTxActive is returned by [Conn.Begin] when another transaction is active.
var ErrTxActive = errors.New("transaction is already active")

// Tx is an explicit transaction on a pinned [Conn].
//
// It should be ended with [Tx.Commit] or [Tx.Rollback];
// Rollback after Commit is a no-op so it can always be deferred.
type Tx struct {
	c     *Conn
	kind  TxKind
	done  bool
	token *resource.Token
}

// Begin starts a new transaction of the given kind.
//
// Nested transactions are not supported; [ErrTxActive] is returned instead.
func (c *Conn) Begin(ctx context.Context, kind TxKind) (*Tx, error) {
	defer observability.FuncCall(ctx)()

	if c.tx != nil {
		return nil, lazyerrors.Error(ErrTxActive)
	}

	q := kind.begin()

	if _, err := c.ExecContext(ctx, q); err != nil {
		c.txs.WithLabelValues(kind.String(), "begin_failed").Inc()
		return nil, lazyerrors.Errorf("%s: %w", q, err)
	}

	tx := &Tx{
		c:     c,
		kind:  kind,
		token: resource.NewToken(),
	}
	resource.Track(tx, tx.token)

	c.tx = tx

	return tx, nil
}

// Kind returns transaction kind.
func (tx *Tx) Kind() TxKind {
	return tx.kind
}

// Commit commits the transaction.
//
// If commit fails (for example, on a deferred constraint), the transaction stays active,
// and [Tx.Rollback] should be called.
func (tx *Tx) Commit(ctx context.Context) error {
	defer observability.FuncCall(ctx)()

	if tx.done {
		return lazyerrors.New("transaction is already ended")
	}

	if _, err := tx.c.ExecContext(ctx, "COMMIT"); err != nil {
		return lazyerrors.Error(err)
	}

	tx.end("committed")

	return nil
}

// Rollback rolls back the transaction.
//
// It does nothing if transaction is already ended.
func (tx *Tx) Rollback(ctx context.Context) error {
	defer observability.FuncCall(ctx)()

	if tx.done {
		return nil
	}

	// SQLite may roll back automatically on some errors
	_, err := tx.c.ExecContext(ctx, "ROLLBACK")
	if err != nil && strings.Contains(err.Error(), "no transaction is active") {
		err = nil
	}

	tx.end("rolled_back")

	if err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// end marks transaction as ended.
func (tx *Tx) end(result string) {
	tx.done = true
	tx.c.tx = nil
	tx.c.txs.WithLabelValues(tx.kind.String(), result).Inc()

	resource.Untrack(tx, tx.token)
}

// ExecContext calls [Conn.ExecContext].
func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx.checkActive()
	return tx.c.ExecContext(ctx, query, args...)
}

// QueryContext calls [Conn.QueryContext].
func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	tx.checkActive()
	return tx.c.QueryContext(ctx, query, args...)
}

// QueryRowContext calls [Conn.QueryRowContext].
func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	tx.checkActive()
	return tx.c.QueryRowContext(ctx, query, args...)
}

// Stmt calls [Conn.Stmt].
func (tx *Tx) Stmt(ctx context.Context, id, query string) (*Stmt, error) {
	tx.checkActive()
	return tx.c.Stmt(ctx, id, query)
}

// checkActive panics if the transaction was already ended.
func (tx *Tx) checkActive() {
	if tx.done {
		panic("transaction is already ended")
	}
}

// InTransaction wraps the given function f in a transaction of the given kind.
//
// If f returns an error or panics, the transaction is rolled back.
// Errors are wrapped with lazyerrors,
// but the caller can use errors.Is/As to check for specific errors.
func (c *Conn) InTransaction(ctx context.Context, kind TxKind, f func(*Tx) error) (err error) {
	defer observability.FuncCall(ctx)()

	var tx *Tx

	if tx, err = c.Begin(ctx, kind); err != nil {
		err = lazyerrors.Error(err)
		return
	}

	var committed bool

	defer func() {
		// It is not enough to check `err == nil` there,
		// because in tests f could call [runtime.Goexit], making `err == nil` in this deferred function.
		if committed {
			return
		}

		if rerr := tx.Rollback(ctx); rerr != nil {
			c.l.Error("Failed to roll back transaction.", zap.Error(rerr))
		}

		if err == nil {
			err = lazyerrors.New("transaction was not committed")
		}
	}()

	if err = f(tx); err != nil {
		err = lazyerrors.Error(err)
		return
	}

	if err = tx.Commit(ctx); err != nil {
		err = lazyerrors.Error(err)
		return
	}

	committed = true

	return
}

// check interfaces
var (
	_ Querier = (*Tx)(nil)
)
