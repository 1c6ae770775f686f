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
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/volquota/volquota/storage"
	"github.com/volquota/volquota/storage/docstore"
	"github.com/volquota/volquota/storage/testonly"
	"github.com/volquota/volquota/util/etcd/testetcd"
	clientv3 "go.etcd.io/etcd/client/v3"
)

var (
	client   *clientv3.Client
	prefixes atomic.Int64
)

func TestMain(m *testing.M) {
	_, c, cleanup, err := testetcd.StartEtcd()
	if err != nil {
		panic(fmt.Sprintf("StartEtcd() returned err = %v", err))
	}
	client = c
	exitCode := m.Run()
	cleanup()
	os.Exit(exitCode)
}

// newBackend returns a Backend over a key range no other test uses.
func newBackend() *Backend {
	return NewBackend(client, fmt.Sprintf("test%d/", prefixes.Add(1)))
}

func TestQuotaStorage(t *testing.T) {
	tester := &testonly.QuotaStorageTester{
		NewQuotaStorage: func(*testing.T) storage.QuotaStorage {
			return NewQuotaStorage(client, fmt.Sprintf("test%d/", prefixes.Add(1)))
		},
	}
	tester.RunAllTests(t)
}

func TestKeysArePrefixed(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	qs := NewQuotaStorage(client, b.prefix)
	if err := storage.SetQuota(ctx, qs, storage.Quota{ProjectID: "p1", Resource: "volumes", HardLimit: 3}); err != nil {
		t.Fatalf("SetQuota(): %v", err)
	}
	resp, err := client.Get(ctx, b.prefix+"quotas/p1")
	if err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if len(resp.Kvs) != 1 || string(resp.Kvs[0].Value) != `{"volumes":3}` {
		t.Errorf("stored document=%v, want {\"volumes\":3}", resp.Kvs)
	}

	scanned, err := b.Scan(ctx, "quotas/")
	if err != nil {
		t.Fatalf("Scan(): %v", err)
	}
	if _, ok := scanned["quotas/p1"]; len(scanned) != 1 || !ok {
		t.Errorf("Scan()=%v, want only quotas/p1", scanned)
	}
}

func TestUpdateGivesUp(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	b.maxAttempts = 2
	if err := b.Update(ctx, func(_ context.Context, tx docstore.Txn) error {
		tx.Put("k", []byte("0"))
		return nil
	}); err != nil {
		t.Fatalf("Update(): %v", err)
	}

	n := 0
	err := b.Update(ctx, func(ctx context.Context, tx docstore.Txn) error {
		if _, err := tx.Get(ctx, "k"); err != nil {
			return err
		}
		n++
		// Each write outside the transaction invalidates its read of k.
		if _, err := client.Put(ctx, b.prefix+"k", fmt.Sprint(n)); err != nil {
			return err
		}
		tx.Put("k", []byte("mine"))
		return nil
	})
	if err != storage.ErrTooManyConflicts {
		t.Errorf("Update()=%v, want %v", err, storage.ErrTooManyConflicts)
	}
	if n != 2 {
		t.Errorf("transaction ran %d times, want 2", n)
	}
}

func TestViewPinsRevision(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	for _, k := range []string{"a", "b"} {
		if _, err := client.Put(ctx, b.prefix+k, "old"); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}
	err := b.View(ctx, func(ctx context.Context, tx docstore.Txn) error {
		if _, err := tx.Get(ctx, "a"); err != nil {
			return err
		}
		if _, err := client.Put(ctx, b.prefix+"b", "new"); err != nil {
			return err
		}
		got, err := tx.Get(ctx, "b")
		if err != nil {
			return err
		}
		if string(got) != "old" {
			t.Errorf("Get(b)=%q, want the value at the first read", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View(): %v", err)
	}
}
