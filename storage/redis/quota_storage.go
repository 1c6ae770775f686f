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

// Package redis stores quota state in a single Redis server. Transactions
// WATCH every key they read and commit with MULTI/EXEC, re-running when a
// watched key changed.
package redis

import (
	"context"
	"strings"

	"github.com/go-redis/redis"
	"github.com/volquota/volquota/storage/docstore"
)

const scanBatch = 100

// Backend is a docstore.Backend over a Redis client. Every key is stored
// under a common prefix.
type Backend struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
}

// NewBackend returns a Backend storing its keys under prefix.
func NewBackend(client *redis.Client, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix, maxAttempts: docstore.DefaultMaxAttempts}
}

// NewQuotaStorage returns a QuotaStorage keeping its state in Redis.
func NewQuotaStorage(client *redis.Client, prefix string) *docstore.QuotaStorage {
	return docstore.NewQuotaStorage(NewBackend(client, prefix))
}

// watchTxn watches each key before its first read and buffers writes until
// commit.
type watchTxn struct {
	tx       *redis.Tx
	prefix   string
	readOnly bool
	writes   map[string][]byte
	order    []string
}

func (t *watchTxn) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := t.writes[key]; ok {
		return v, nil
	}
	if err := t.tx.Watch(t.prefix + key).Err(); err != nil {
		return nil, err
	}
	v, err := t.tx.Get(t.prefix + key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return v, err
}

func (t *watchTxn) buffer(key string, value []byte) {
	if _, ok := t.writes[key]; !ok {
		t.order = append(t.order, key)
	}
	t.writes[key] = value
}

func (t *watchTxn) Put(key string, value []byte) { t.buffer(key, value) }
func (t *watchTxn) Delete(key string)            { t.buffer(key, nil) }

// commit applies the buffered writes in one MULTI/EXEC. A read-only
// transaction still runs EXEC so that a change to any watched key is
// reported as a conflict.
func (t *watchTxn) commit() error {
	_, err := t.tx.Pipelined(func(pipe redis.Pipeliner) error {
		if t.readOnly || len(t.order) == 0 {
			pipe.Ping()
			return nil
		}
		for _, k := range t.order {
			if v := t.writes[k]; v == nil {
				pipe.Del(t.prefix + k)
			} else {
				pipe.Set(t.prefix+k, v, 0)
			}
		}
		return nil
	})
	return err
}

func (b *Backend) run(ctx context.Context, readOnly bool, f func(context.Context, docstore.Txn) error) error {
	client := b.client.WithContext(ctx)
	return docstore.RetryConflicts(ctx, b.maxAttempts, func() error {
		err := client.Watch(func(tx *redis.Tx) error {
			t := &watchTxn{tx: tx, prefix: b.prefix, readOnly: readOnly, writes: make(map[string][]byte)}
			if err := f(ctx, t); err != nil {
				return err
			}
			return t.commit()
		})
		if err == redis.TxFailedErr {
			return docstore.ErrConflict
		}
		return err
	})
}

// Update implements docstore.Backend.
func (b *Backend) Update(ctx context.Context, f func(context.Context, docstore.Txn) error) error {
	return b.run(ctx, false, f)
}

// View implements docstore.Backend.
func (b *Backend) View(ctx context.Context, f func(context.Context, docstore.Txn) error) error {
	return b.run(ctx, true, f)
}

// Scan implements docstore.Backend. Keys deleted between SCAN and MGET are
// skipped.
func (b *Backend) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	client := b.client.WithContext(ctx)
	match := escapeGlob(b.prefix+prefix) + "*"
	out := make(map[string][]byte)
	var cursor uint64
	for {
		keys, next, err := client.Scan(cursor, match, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			vals, err := client.MGet(keys...).Result()
			if err != nil {
				return nil, err
			}
			for i, v := range vals {
				if s, ok := v.(string); ok {
					out[strings.TrimPrefix(keys[i], b.prefix)] = []byte(s)
				}
			}
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

// Ping implements docstore.Backend.
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.WithContext(ctx).Ping().Err()
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
