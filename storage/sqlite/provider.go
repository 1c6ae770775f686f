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

package sqlite

import (
	"context"
	"database/sql"
	"flag"

	"github.com/volquota/volquota/monitoring"
	"github.com/volquota/volquota/storage"
	"k8s.io/klog/v2"
)

// StorageProviderName is the name of the storage provider.
const StorageProviderName = "sqlite"

var sqlitePath = flag.String("sqlite_path", "volquota.db", "Path of the SQLite database file")

func init() {
	if err := storage.RegisterProvider(StorageProviderName, newSQLiteStorageProvider); err != nil {
		klog.Fatalf("Failed to register storage provider %s: %v", StorageProviderName, err)
	}
}

type sqliteProvider struct {
	db *sql.DB
	qs storage.QuotaStorage
}

func newSQLiteStorageProvider(_ monitoring.MetricFactory) (storage.Provider, error) {
	db, err := OpenDB(context.Background(), *sqlitePath)
	if err != nil {
		return nil, err
	}
	return &sqliteProvider{db: db, qs: NewQuotaStorage(db)}, nil
}

func (p *sqliteProvider) QuotaStorage() storage.QuotaStorage {
	return p.qs
}

func (p *sqliteProvider) Close() error {
	return p.db.Close()
}
