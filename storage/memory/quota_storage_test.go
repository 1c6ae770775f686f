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

package memory

import (
	"context"
	"testing"

	"github.com/volquota/volquota/storage"
	"github.com/volquota/volquota/storage/testonly"
)

func TestQuotaStorage(t *testing.T) {
	tester := &testonly.QuotaStorageTester{
		NewQuotaStorage: func(*testing.T) storage.QuotaStorage { return NewQuotaStorage() },
	}
	tester.RunAllTests(t)
}

func TestMemoryStorageProvider(t *testing.T) {
	sp, err := storage.NewProvider("memory", nil)
	if err != nil {
		t.Fatalf("Got an unexpected error: %v", err)
	}
	if sp.QuotaStorage() == nil {
		t.Fatal("Got a nil quota storage interface.")
	}
	if err := sp.Close(); err != nil {
		t.Fatalf("Close()=%v", err)
	}
}

func TestCanceledTransactionIsDiscarded(t *testing.T) {
	qs := NewQuotaStorage()
	ctx, cancel := context.WithCancel(context.Background())
	err := qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		cancel()
		return tx.SetQuota(ctx, storage.Quota{ProjectID: "p1", Resource: "volumes", HardLimit: 1})
	})
	if err != context.Canceled {
		t.Fatalf("ReadWriteTransaction()=%v, want %v", err, context.Canceled)
	}
	got, err := storage.GetQuotas(context.Background(), qs, "p1")
	if err != nil || len(got) != 0 {
		t.Errorf("GetQuotas()=%v, %v, want empty", got, err)
	}
}

func TestPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	qs := NewQuotaStorage()
	for _, p := range []string{"p1", "p10"} {
		if err := storage.SetQuota(ctx, qs, storage.Quota{ProjectID: p, Resource: "volumes", HardLimit: 1}); err != nil {
			t.Fatalf("SetQuota(): %v", err)
		}
	}
	got, err := storage.GetQuotas(ctx, qs, "p1")
	if err != nil {
		t.Fatalf("GetQuotas(): %v", err)
	}
	if len(got) != 1 || got[0].ProjectID != "p1" {
		t.Errorf("GetQuotas(p1)=%v, want only p1", got)
	}
}
