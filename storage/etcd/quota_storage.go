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

// Package etcd stores quota state in etcd. Read-write transactions run as
// serializable software transactions, which re-run on conflict.
package etcd

import (
	"context"
	"strings"

	"github.com/volquota/volquota/storage"
	"github.com/volquota/volquota/storage/docstore"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

// Backend is a docstore.Backend over an etcd client. Every key is stored
// under a common prefix.
type Backend struct {
	client      *clientv3.Client
	prefix      string
	maxAttempts int
}

// NewBackend returns a Backend storing its keys under prefix.
func NewBackend(client *clientv3.Client, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix, maxAttempts: docstore.DefaultMaxAttempts}
}

// NewQuotaStorage returns a QuotaStorage keeping its state in etcd.
func NewQuotaStorage(client *clientv3.Client, prefix string) *docstore.QuotaStorage {
	return docstore.NewQuotaStorage(NewBackend(client, prefix))
}

type stmTxn struct {
	stm    concurrency.STM
	prefix string
}

func (t *stmTxn) Get(_ context.Context, key string) ([]byte, error) {
	// Documents are never empty, so "" means the key is absent.
	v := t.stm.Get(t.prefix + key)
	if v == "" {
		return nil, nil
	}
	return []byte(v), nil
}

func (t *stmTxn) Put(key string, value []byte) {
	t.stm.Put(t.prefix+key, string(value))
}

func (t *stmTxn) Delete(key string) {
	t.stm.Del(t.prefix + key)
}

// Update implements docstore.Backend.
func (b *Backend) Update(ctx context.Context, f func(context.Context, docstore.Txn) error) error {
	attempts := 0
	apply := func(s concurrency.STM) error {
		attempts++
		if attempts > b.maxAttempts {
			return storage.ErrTooManyConflicts
		}
		return f(ctx, &stmTxn{stm: s, prefix: b.prefix})
	}
	_, err := concurrency.NewSTM(b.client, apply,
		concurrency.WithAbortContext(ctx),
		concurrency.WithIsolation(concurrency.Serializable))
	return err
}

// snapshotTxn reads every key at the revision of its first read.
type snapshotTxn struct {
	client *clientv3.Client
	prefix string
	rev    int64
}

func (t *snapshotTxn) Get(ctx context.Context, key string) ([]byte, error) {
	var opts []clientv3.OpOption
	if t.rev > 0 {
		opts = append(opts, clientv3.WithRev(t.rev))
	}
	resp, err := t.client.Get(ctx, t.prefix+key, opts...)
	if err != nil {
		return nil, err
	}
	if t.rev == 0 {
		t.rev = resp.Header.Revision
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	return resp.Kvs[0].Value, nil
}

// Put is ignored; read-only transactions never flush.
func (t *snapshotTxn) Put(string, []byte) {}

// Delete is ignored; read-only transactions never flush.
func (t *snapshotTxn) Delete(string) {}

// View implements docstore.Backend.
func (b *Backend) View(ctx context.Context, f func(context.Context, docstore.Txn) error) error {
	return f(ctx, &snapshotTxn{client: b.client, prefix: b.prefix})
}

// Scan implements docstore.Backend.
func (b *Backend) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	resp, err := b.client.Get(ctx, b.prefix+prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out[strings.TrimPrefix(string(kv.Key), b.prefix)] = kv.Value
	}
	return out, nil
}

// Ping implements docstore.Backend.
func (b *Backend) Ping(ctx context.Context) error {
	_, err := b.client.Get(ctx, b.prefix, clientv3.WithPrefix(), clientv3.WithCountOnly())
	return err
}
