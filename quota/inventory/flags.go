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

package inventory

import (
	"context"
	"database/sql"
	"flag"
	"fmt"

	"github.com/volquota/volquota/storage/coresql"
	"k8s.io/klog/v2"
)

var (
	driver       = flag.String("inventory_driver", "mysql", "database/sql driver of the volume inventory database: mysql, postgres or sqlite")
	uri          = flag.String("inventory_uri", "", "Connection URI of the volume inventory database")
	noSnapshotGB = flag.Bool("no_snapshot_gb_quota", false, "Whether snapshot sizes are excluded from the gigabytes quota")
)

// Open connects to the inventory database with the given database/sql driver
// and chooses the placeholder style that driver expects.
func Open(ctx context.Context, driverName, dsn string, noSnapshotGigabytes bool) (*Inventory, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging inventory database: %w", err)
	}
	inv := &Inventory{DB: db, NoSnapshotGigabytes: noSnapshotGigabytes}
	switch driverName {
	case "postgres", "pgx":
		inv.Rebind = coresql.DollarPlaceholders
	}
	return inv, nil
}

// OpenFromFlags opens the inventory database named by --inventory_driver and
// --inventory_uri.
func OpenFromFlags(ctx context.Context) (*Inventory, error) {
	if *uri == "" {
		return nil, fmt.Errorf("--inventory_uri must be supplied")
	}
	klog.Infof("Opening %s inventory database", *driver)
	return Open(ctx, *driver, *uri, *noSnapshotGB)
}

// Close closes the underlying database.
func (inv *Inventory) Close() error {
	return inv.DB.Close()
}
