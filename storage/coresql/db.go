// Copyright 2026 The Volquota Authors. All Rights Reserved.
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

// Package coresql implements storage.QuotaStorage on top of any SQL database
// that offers row locks, leaving statement dialect, error classification and
// the transaction runner to the backend packages.
package coresql

import (
	"context"
	"database/sql"
	"errors"
)

// Rows is the cursor shape shared by database/sql and pgx.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Tx is a single database transaction.
type Tx interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// DB runs functions inside database transactions.
type DB interface {
	// ReadWrite runs f in a transaction that is committed if f returns nil.
	ReadWrite(ctx context.Context, f func(context.Context, Tx) error) error
	// ReadOnly runs f in a read-only transaction.
	ReadOnly(ctx context.Context, f func(context.Context, Tx) error) error
	Ping(ctx context.Context) error
}

// RunTxFunc executes f in a transaction on db, committing on success. It may
// re-run f if the database asks for a retry.
type RunTxFunc func(ctx context.Context, db *sql.DB, opts *sql.TxOptions, f func(*sql.Tx) error) error

// RunTx is the plain RunTxFunc: begin, run f once, commit.
func RunTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, f func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// SQLDBOptions tunes NewSQLDB.
type SQLDBOptions struct {
	// RunTx defaults to RunTx.
	RunTx RunTxFunc
	// ReadOnlyTx requests read-only transactions from the driver for
	// ReadOnly. Not every driver supports them.
	ReadOnlyTx bool
}

// NewSQLDB adapts a database/sql handle.
func NewSQLDB(db *sql.DB, opts SQLDBOptions) DB {
	s := &sqlDB{db: db, run: opts.RunTx}
	if s.run == nil {
		s.run = RunTx
	}
	if opts.ReadOnlyTx {
		s.roOpts = &sql.TxOptions{ReadOnly: true}
	}
	return s
}

type sqlDB struct {
	db     *sql.DB
	run    RunTxFunc
	roOpts *sql.TxOptions
}

func (s *sqlDB) ReadWrite(ctx context.Context, f func(context.Context, Tx) error) error {
	return s.run(ctx, s.db, nil, func(tx *sql.Tx) error {
		return f(ctx, sqlTx{tx})
	})
}

func (s *sqlDB) ReadOnly(ctx context.Context, f func(context.Context, Tx) error) error {
	return s.run(ctx, s.db, s.roOpts, func(tx *sql.Tx) error {
		return f(ctx, sqlTx{tx})
	})
}

func (s *sqlDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t sqlTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() {
	_ = r.Rows.Close()
}
