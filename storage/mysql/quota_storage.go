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

// Package mysql stores quota state in MySQL, locking usage rows with
// SELECT ... FOR UPDATE.
package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/volquota/volquota/storage/coresql"
	"k8s.io/klog/v2"
)

// Dialect is the coresql dialect of MySQL.
var Dialect = coresql.Dialect{
	Name: "mysql",
	Upsert: func(_, cols []string) string {
		sets := make([]string, 0, len(cols))
		for _, c := range cols {
			sets = append(sets, c+"=VALUES("+c+")")
		}
		return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	},
	InsertIgnore: func(insert string, _ []string) string {
		return strings.Replace(insert, "INSERT INTO", "INSERT IGNORE INTO", 1)
	},
	ForUpdate: " FOR UPDATE",
	MapError:  mysqlToGRPC,
}

// OpenDB opens a database connection for MySQL-based quota storage.
func OpenDB(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dbURL)
	if err != nil {
		// Don't log uri as it could contain credentials
		klog.Warningf("Could not open MySQL database, check config: %s", err)
		return nil, err
	}
	if _, err := db.ExecContext(context.TODO(), "SET sql_mode = 'STRICT_ALL_TABLES'"); err != nil {
		klog.Warningf("Failed to set strict mode on mysql db: %s", err)
		return nil, err
	}
	return db, nil
}

// NewQuotaStorage returns a MySQL quota storage over db.
func NewQuotaStorage(db *sql.DB) *coresql.QuotaStorage {
	return coresql.NewQuotaStorage(coresql.NewSQLDB(db, coresql.SQLDBOptions{ReadOnlyTx: true}), Dialect)
}
