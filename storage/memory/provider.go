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

// Package memory provides an in-memory storage.QuotaStorage backed by a
// copy-on-write btree. It is intended for tests and single-process setups.
package memory

import (
	"github.com/volquota/volquota/monitoring"
	"github.com/volquota/volquota/storage"
	"k8s.io/klog/v2"
)

func init() {
	if err := storage.RegisterProvider("memory", newMemoryStorageProvider); err != nil {
		klog.Fatalf("Failed to register storage provider memory: %v", err)
	}
}

type memProvider struct {
	qs *QuotaStorage
}

func newMemoryStorageProvider(_ monitoring.MetricFactory) (storage.Provider, error) {
	return &memProvider{qs: NewQuotaStorage()}, nil
}

func (s *memProvider) QuotaStorage() storage.QuotaStorage {
	return s.qs
}

func (s *memProvider) Close() error {
	return nil
}
