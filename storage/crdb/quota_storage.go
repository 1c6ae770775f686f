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

// Package crdb stores quota state in CockroachDB. Transactions run at
// serializable isolation and are retried by the cockroach-go client.
package crdb

import (
	"database/sql"

	"github.com/cockroachdb/cockroach-go/v2/crdb"
	"github.com/volquota/volquota/storage/coresql"
	"k8s.io/klog/v2"
)

// Dialect is the coresql dialect of CockroachDB.
var Dialect = coresql.Dialect{
	Name:         "crdb",
	Rebind:       coresql.DollarPlaceholders,
	Upsert:       coresql.OnConflictUpsert,
	InsertIgnore: coresql.OnConflictDoNothing,
	ForUpdate:    " FOR UPDATE",
	MapError:     crdbToGRPC,
}

// OpenDB opens a database connection for CockroachDB-based quota storage.
func OpenDB(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		klog.Warningf("Failed to open CRDB database: %v", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		klog.Warningf("failed verifying database connection: %v", err)
		return nil, err
	}
	return db, nil
}

// NewQuotaStorage returns a CockroachDB quota storage over db.
func NewQuotaStorage(db *sql.DB) *coresql.QuotaStorage {
	opts := coresql.SQLDBOptions{RunTx: crdb.ExecuteTx, ReadOnlyTx: true}
	return coresql.NewQuotaStorage(coresql.NewSQLDB(db, opts), Dialect)
}
