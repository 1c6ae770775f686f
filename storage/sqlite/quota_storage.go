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

// Package sqlite provides a single-node quota storage backed by an embedded
// SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed" // schema
	"errors"
	"fmt"
	"strings"

	"github.com/volquota/volquota/storage/coresql"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog/v2"

	_ "github.com/glebarez/go-sqlite" // Register the sqlite driver.
)

//go:embed schema/storage.sql
var schema string

const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// Dialect is the coresql dialect of SQLite. Writers are serialised by the
// single connection returned from OpenDB, so locking reads need no clause.
var Dialect = coresql.Dialect{
	Name:         "sqlite",
	Upsert:       coresql.OnConflictUpsert,
	InsertIgnore: coresql.OnConflictDoNothing,
	MapError:     sqliteToGRPC,
}

func sqliteToGRPC(err error) error {
	var coded interface{ Code() int }
	if !errors.As(err, &coded) {
		return err
	}
	switch coded.Code() & 0xff {
	case sqliteBusy, sqliteLocked:
		return status.Errorf(codes.Aborted, "sqlite: %v", err)
	}
	return err
}

// OpenDB opens the database file at path, creating it and its schema if
// needed.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		klog.Warningf("Could not open SQLite database %q: %v", path, err)
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// CreateSchema creates the quota tables if they do not exist.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if stmt = strings.TrimSpace(stripComments(stmt)); stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error running statement %q: %v", stmt, err)
		}
	}
	return nil
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// NewQuotaStorage returns a quota storage over db, which should come from
// OpenDB.
func NewQuotaStorage(db *sql.DB) *coresql.QuotaStorage {
	return coresql.NewQuotaStorage(coresql.NewSQLDB(db, coresql.SQLDBOptions{}), Dialect)
}
