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

// The quotactl binary administers project and class quotas, and drives
// reservations by hand.
//
// Usage:
//
//	quotactl [flags] <command> [args]
//
// Run quotactl help for the list of commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/volquota/volquota/cmd"
	"github.com/volquota/volquota/cmd/internal/provider"
	"github.com/volquota/volquota/monitoring"
	"github.com/volquota/volquota/quota"
	"github.com/volquota/volquota/quota/inventory"
	"github.com/volquota/volquota/storage"
	"k8s.io/klog/v2"
)

var (
	storageSystem = flag.String("storage_system", provider.DefaultStorageSystem, fmt.Sprintf("Storage system to use. One of: %v", storage.Providers()))
	configFile    = flag.String("config", "", "Config file containing flags, file contents can be overridden by command line flags")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if *configFile != "" {
		if err := cmd.ParseFlagFile(*configFile); err != nil {
			klog.Exitf("Failed to load flags from config file %q: %s", *configFile, err)
		}
	}
	ctx := context.Background()

	sp, err := storage.NewProvider(*storageSystem, monitoring.InertMetricFactory{})
	if err != nil {
		klog.Exitf("Failed to get storage provider: %v", err)
	}
	defer sp.Close()

	syncers, canResync, closeInventory := inventorySyncers(ctx)
	defer closeInventory()

	engine, err := newEngine(sp.QuotaStorage(), quota.ConfigFromFlags(), syncers)
	if err != nil {
		klog.Exitf("Failed to set up quota engine: %v", err)
	}
	if err := run(ctx, engine, canResync, flag.Args(), os.Stdout); err != nil {
		klog.Flush()
		fmt.Fprintf(os.Stderr, "quotactl: %v\n", err)
		os.Exit(1)
	}
}

// inventorySyncers resynchronises usages from the inventory database when
// --inventory_uri is set. Otherwise usages are left as tracked and the
// returned bool is false.
func inventorySyncers(ctx context.Context) (map[string]quota.Syncer, bool, func()) {
	inv, err := inventory.OpenFromFlags(ctx)
	if err != nil {
		klog.Warningf("No inventory database, usages will not be resynchronised: %v", err)
		return trackedSyncers(), false, func() {}
	}
	return inv.Syncers(), true, func() { inv.Close() }
}

func trackedSyncers() map[string]quota.Syncer {
	keep := quota.SyncerFunc(func(context.Context, string) (map[string]int64, error) { return nil, nil })
	return map[string]quota.Syncer{
		quota.Volumes:         keep,
		quota.Snapshots:       keep,
		quota.Gigabytes:       keep,
		quota.Backups:         keep,
		quota.BackupGigabytes: keep,
	}
}

func newEngine(qs storage.QuotaStorage, cfg quota.Config, syncers map[string]quota.Syncer) (*quota.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	driver, err := quota.NewDriver(cfg.Driver, quota.DriverOptions{Storage: qs, Config: cfg})
	if err != nil {
		return nil, err
	}
	rs, err := quota.DefaultResources(cfg, syncers)
	if err != nil {
		return nil, err
	}
	reg, err := quota.NewRegistry(rs...)
	if err != nil {
		return nil, err
	}
	return quota.NewEngine(reg, driver, quota.EngineOptions{ReservationExpire: cfg.ReservationExpire}), nil
}
