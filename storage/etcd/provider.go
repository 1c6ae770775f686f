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

package etcd

import (
	"errors"
	"flag"

	"github.com/volquota/volquota/monitoring"
	"github.com/volquota/volquota/storage"
	etcdutil "github.com/volquota/volquota/util/etcd"
	clientv3 "go.etcd.io/etcd/client/v3"
	"k8s.io/klog/v2"
)

// StorageProviderName is the name of the storage provider.
const StorageProviderName = "etcd"

var keyPrefix = flag.String("etcd_quota_prefix", "volquota/", "Prefix of the etcd keys holding quota state")

func init() {
	if err := storage.RegisterProvider(StorageProviderName, newEtcdStorageProvider); err != nil {
		klog.Fatalf("Failed to register storage provider %s: %v", StorageProviderName, err)
	}
}

type etcdProvider struct {
	client *clientv3.Client
	qs     storage.QuotaStorage
}

func newEtcdStorageProvider(_ monitoring.MetricFactory) (storage.Provider, error) {
	client, err := etcdutil.NewClient(*etcdutil.Servers)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("--etcd_servers must be supplied to use etcd storage")
	}
	klog.Infof("Using etcd quota storage at %v, prefix %q", client.Endpoints(), *keyPrefix)
	return &etcdProvider{client: client, qs: NewQuotaStorage(client, *keyPrefix)}, nil
}

func (p *etcdProvider) QuotaStorage() storage.QuotaStorage {
	return p.qs
}

func (p *etcdProvider) Close() error {
	return p.client.Close()
}
