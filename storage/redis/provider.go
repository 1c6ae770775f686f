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

package redis

import (
	"errors"
	"flag"

	"github.com/go-redis/redis"
	"github.com/volquota/volquota/monitoring"
	"github.com/volquota/volquota/storage"
	"k8s.io/klog/v2"
)

// StorageProviderName is the name of the storage provider.
const StorageProviderName = "redis"

var (
	redisAddr     = flag.String("redis_addr", "", "Address of the Redis server holding quota state, as host:port")
	redisPassword = flag.String("redis_password", "", "Password for the Redis server")
	redisDB       = flag.Int("redis_db", 0, "Redis logical database number")
	keyPrefix     = flag.String("redis_quota_prefix", "volquota:", "Prefix of the Redis keys holding quota state")
)

func init() {
	if err := storage.RegisterProvider(StorageProviderName, newRedisStorageProvider); err != nil {
		klog.Fatalf("Failed to register storage provider %s: %v", StorageProviderName, err)
	}
}

type redisProvider struct {
	client *redis.Client
	qs     storage.QuotaStorage
}

func newRedisStorageProvider(_ monitoring.MetricFactory) (storage.Provider, error) {
	if *redisAddr == "" {
		return nil, errors.New("--redis_addr must be supplied to use redis storage")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     *redisAddr,
		Password: *redisPassword,
		DB:       *redisDB,
	})
	klog.Infof("Using redis quota storage at %s, prefix %q", *redisAddr, *keyPrefix)
	return &redisProvider{client: client, qs: NewQuotaStorage(client, *keyPrefix)}, nil
}

func (p *redisProvider) QuotaStorage() storage.QuotaStorage {
	return p.qs
}

func (p *redisProvider) Close() error {
	return p.client.Close()
}
