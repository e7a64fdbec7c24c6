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

// Package sqlite provides the SQLite implementation of the local storage.
//
// # Design principles
//
//  1. One pinned connection per storage; all methods are serialized on a mutex.
//  2. Writes run in EXCLUSIVE transactions, reads in deferred ones.
//  3. Main rows are upserted; side tables are cleared and rewritten on every write.
//  4. FTS5 tables mirror searchable columns and are maintained by triggers.
//  5. The database file is protected from concurrent use by other processes with an advisory lock.
package sqlite

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register database/sql driver

	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/util/flock"
	"github.com/notestore/notestore/internal/util/fsql"
	"github.com/notestore/notestore/internal/util/lazyerrors"
)

// pragmas are set for the connection in that order.
var pragmas = []string{
	"page_size(8192)",
	"journal_mode(wal)",
	"foreign_keys(1)",
	"busy_timeout(10000)",
}

// OpenParams represents parameters of [Open].
//
//nolint:vet // for readability
type OpenParams struct {
	// Path of the database file. If empty, it is constructed from Dir and Account.
	Path    string
	Dir     string
	Account *localstorage.Account

	// OverrideLock allows opening the database locked by another process.
	OverrideLock bool

	// StartFromScratch removes the existing database file first.
	StartFromScratch bool

	L *zap.Logger
}

// storage implements localstorage.Storage.
type storage struct {
	conn *fsql.Conn
	lock *flock.Lock // nil if lock was overridden
	l    *zap.Logger

	m sync.Mutex
}

// Open opens or creates the storage database.
//
// All errors are FatalStorage errors.
func Open(ctx context.Context, params *OpenParams) (localstorage.Storage, error) {
	s, err := open(ctx, params)
	if err != nil {
		var e *storageerrors.Error
		if !errors.As(err, &e) {
			err = storageerrors.NewError(storageerrors.ErrorCodeFatalStorage, err)
		}

		return nil, err
	}

	return localstorage.StorageContract(s), nil
}

// open opens the storage without wrapping it.
func open(ctx context.Context, params *OpenParams) (*storage, error) {
	l := params.L
	if l == nil {
		l = zap.NewNop()
	}

	l = l.Named("sqlite")

	path := params.Path
	if path == "" {
		if params.Account == nil {
			return nil, lazyerrors.New("neither path nor account is given")
		}

		if err := params.Account.Validate(); err != nil {
			return nil, lazyerrors.Error(err)
		}

		path = params.Account.DatabasePath(params.Dir)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return nil, lazyerrors.Error(err)
	}

	lock, err := flock.TryLock(path + ".lock")
	if err != nil {
		if !params.OverrideLock || !errors.Is(err, flock.ErrLocked) {
			return nil, lazyerrors.Errorf("%s: %w", path, err)
		}

		l.Warn("Database is locked by another process, overriding.", zap.String("path", path))
	}

	var conn *fsql.Conn

	defer func() {
		if conn != nil {
			return
		}

		if lock != nil {
			_ = lock.Unlock()
		}
	}()

	if params.StartFromScratch {
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err = os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, lazyerrors.Error(err)
			}
		}

		l.Info("Removed existing database.", zap.String("path", path))
	}

	c, err := fsql.Open(ctx, "sqlite", dsn(path), "sqlite", l)
	if err != nil {
		return nil, lazyerrors.Errorf("%s: %w", path, err)
	}

	if err = setupSchema(ctx, c); err != nil {
		_ = c.Close()
		return nil, err
	}

	conn = c

	l.Info("Storage opened.", zap.String("path", path), zap.Int("schema_version", schemaVersion))

	return &storage{
		conn: conn,
		lock: lock,
		l:    l,
	}, nil
}

// dsn returns data source name for the given database file path.
func dsn(path string) string {
	values := url.Values{}
	for _, p := range pragmas {
		values.Add("_pragma", p)
	}

	u := &url.URL{
		Scheme:   "file",
		Opaque:   path,
		RawQuery: values.Encode(),
	}

	return u.String()
}

// Close implements localstorage.Storage interface.
func (s *storage) Close() error {
	s.m.Lock()
	defer s.m.Unlock()

	err := s.conn.Close()

	if s.lock != nil {
		if e := s.lock.Unlock(); err == nil {
			err = e
		}
	}

	return err
}

// Version implements localstorage.Storage interface.
func (s *storage) Version(ctx context.Context) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	var res int
	if err := s.conn.QueryRowContext(ctx, "SELECT version FROM Auxiliary").Scan(&res); err != nil {
		return 0, sqlError("version", err)
	}

	return res, nil
}

// read runs f in a read transaction and converts the returned error to the storage error.
func (s *storage) read(ctx context.Context, f func(*fsql.Tx) error) error {
	s.m.Lock()
	defer s.m.Unlock()

	return publicError(s.conn.InTransaction(ctx, fsql.Selection, f))
}

// write runs f in an exclusive transaction and converts the returned error to the storage error.
func (s *storage) write(ctx context.Context, f func(*fsql.Tx) error) error {
	s.m.Lock()
	defer s.m.Unlock()

	return publicError(s.conn.InTransaction(ctx, fsql.Exclusive, f))
}

// count returns the result of the counting query.
func count(ctx context.Context, q fsql.Querier, id, query string, args ...any) (int, error) {
	stmt, err := q.Stmt(ctx, id, query)
	if err != nil {
		return 0, sqlError(id, err)
	}

	var res int
	if err = stmt.QueryRowContext(ctx, args...).Scan(&res); err != nil {
		return 0, sqlError(id, err)
	}

	return res, nil
}

// exec executes the cached statement.
func exec(ctx context.Context, q fsql.Querier, id, query string, args ...any) (int64, error) {
	stmt, err := q.Stmt(ctx, id, query)
	if err != nil {
		return 0, sqlError(id, err)
	}

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, sqlError(id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, sqlError(id, err)
	}

	return n, nil
}

// Describe implements prometheus.Collector.
func (s *storage) Describe(ch chan<- *prometheus.Desc) {
	s.conn.Describe(ch)
}

// Collect implements prometheus.Collector.
func (s *storage) Collect(ch chan<- prometheus.Metric) {
	s.conn.Collect(ch)
}

// check interfaces
var (
	_ localstorage.Storage = (*storage)(nil)
)
