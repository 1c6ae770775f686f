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

// Package postgresql stores quota state in PostgreSQL through a pgx
// connection pool.
package postgresql

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/volquota/volquota/storage/coresql"
	"k8s.io/klog/v2"
)

// Dialect is the coresql dialect of PostgreSQL.
var Dialect = coresql.Dialect{
	Name:         "postgresql",
	Rebind:       coresql.DollarPlaceholders,
	Upsert:       coresql.OnConflictUpsert,
	InsertIgnore: coresql.OnConflictDoNothing,
	ForUpdate:    " FOR UPDATE",
	MapError:     postgresqlToGRPC,
}

// OpenDB opens a database connection pool for PostgreSQL-based quota storage.
func OpenDB(dbURL string) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		// Don't log uri as it could contain credentials
		klog.Warningf("Could not open PostgreSQL database, check config: %s", err)
		return nil, err
	}
	return db, nil
}

// NewQuotaStorage returns a PostgreSQL quota storage over the pool.
func NewQuotaStorage(db *pgxpool.Pool) *coresql.QuotaStorage {
	return coresql.NewQuotaStorage(&pgxDB{pool: db}, Dialect)
}

// pgxDB adapts a pgx pool to coresql.DB.
type pgxDB struct {
	pool *pgxpool.Pool
}

func (d *pgxDB) ReadWrite(ctx context.Context, f func(context.Context, coresql.Tx) error) error {
	return pgx.BeginTxFunc(ctx, d.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return f(ctx, pgxTx{tx})
	})
}

func (d *pgxDB) ReadOnly(ctx context.Context, f func(context.Context, coresql.Tx) error) error {
	return pgx.BeginTxFunc(ctx, d.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		return f(ctx, pgxTx{tx})
	})
}

func (d *pgxDB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

type pgxTx struct {
	tx pgx.Tx
}

func (t pgxTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t pgxTx) Query(ctx context.Context, query string, args ...any) (coresql.Rows, error) {
	return t.tx.Query(ctx, query, args...)
}
