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

// The quota_expirer binary rolls back expired quota reservations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/volquota/volquota/cmd"
	"github.com/volquota/volquota/cmd/internal/provider"
	"github.com/volquota/volquota/cmd/internal/serverutil"
	"github.com/volquota/volquota/monitoring/prometheus"
	"github.com/volquota/volquota/quota"
	"github.com/volquota/volquota/quota/expiry"
	"github.com/volquota/volquota/storage"
	"github.com/volquota/volquota/util"
	"github.com/volquota/volquota/util/election2"
	etcdelect "github.com/volquota/volquota/util/election2/etcd"
	etcdutil "github.com/volquota/volquota/util/etcd"
	"k8s.io/klog/v2"
)

// electionResource is the election every expirer instance takes part in.
const electionResource = "quota-expiry"

var (
	httpEndpoint   = flag.String("http_endpoint", "localhost:8091", "Endpoint for HTTP (host:port, empty means disabled)")
	tlsCertFile    = flag.String("tls_cert_file", "", "Path to the TLS server certificate. If unset, the server will use unsecured connections.")
	tlsKeyFile     = flag.String("tls_key_file", "", "Path to the TLS server key. If unset, the server will use unsecured connections.")
	healthzTimeout = flag.Duration("healthz_timeout", time.Second*5, "Timeout used during healthz checks")
	expiryInterval = flag.Duration("expiry_interval", expiry.DefaultInterval, "Minimum time between expiry sweeps")
	forceMaster    = flag.Bool("force_master", false, "If true, sweep without taking part in an election")
	lockDir        = flag.String("etcd_lock_dir", "/volquota/expiry", "etcd lock directory of the expiry election")
	storageSystem  = flag.String("storage_system", provider.DefaultStorageSystem, fmt.Sprintf("Storage system to use. One of: %v", storage.Providers()))

	configFile = flag.String("config", "", "Config file containing flags, file contents can be overridden by command line flags")
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

	klog.CopyStandardLogTo("WARNING")
	klog.Info("**** Quota Expirer Starting ****")

	mf := prometheus.MetricFactory{}
	quota.InitMetrics(mf)

	sp, err := storage.NewProvider(*storageSystem, mf)
	if err != nil {
		klog.Exitf("Failed to get storage provider: %v", err)
	}
	defer sp.Close()

	cfg := quota.ConfigFromFlags()
	if err := cfg.Validate(); err != nil {
		klog.Exitf("Invalid quota configuration: %v", err)
	}
	driver, err := quota.NewDriver(cfg.Driver, quota.DriverOptions{Storage: sp.QuotaStorage(), Config: cfg})
	if err != nil {
		klog.Exitf("Error creating quota driver: %v", err)
	}
	// Expiry never resynchronises usages, so no resources are needed.
	reg, err := quota.NewRegistry()
	if err != nil {
		klog.Exitf("Error creating resource registry: %v", err)
	}
	engine := quota.NewEngine(reg, driver, quota.EngineOptions{ReservationExpire: cfg.ReservationExpire})

	client, err := etcdutil.NewClient(*etcdutil.Servers)
	if err != nil {
		klog.Exitf("Failed to connect to etcd at %v: %v", *etcdutil.Servers, err)
	}
	if client != nil {
		defer client.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go util.AwaitSignal(ctx, cancel)

	hostname, _ := os.Hostname()
	instanceID := fmt.Sprintf("%s.%d", hostname, os.Getpid())
	var electionFactory election2.Factory
	switch {
	case *forceMaster:
		klog.Warning("**** Acting as master for expiry ****")
		electionFactory = election2.NoopFactory{}
	case client != nil:
		electionFactory = etcdelect.NewFactory(instanceID, client, *lockDir)
	default:
		klog.Exit("Either --force_master or --etcd_servers must be supplied")
	}
	election, err := electionFactory.NewElection(ctx, electionResource)
	if err != nil {
		klog.Exitf("Failed to create election: %v", err)
	}
	defer func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer ccancel()
		if err := election.Close(cctx); err != nil {
			klog.Warningf("Failed to close election: %v", err)
		}
	}()

	sweeper := expiry.New(engine, expiry.Options{
		Interval:      *expiryInterval,
		Election:      election,
		MetricFactory: mf,
	})

	m := serverutil.Main{
		HTTPEndpoint:    *httpEndpoint,
		TLSCertFile:     *tlsCertFile,
		TLSKeyFile:      *tlsKeyFile,
		IsHealthy:       sp.QuotaStorage().CheckDatabaseAccessible,
		HealthyDeadline: *healthzTimeout,
		Tasks:           []serverutil.Task{sweeper.Run},
	}
	if err := m.Run(ctx); err != nil {
		klog.Exitf("Server exited with error: %v", err)
	}
}
