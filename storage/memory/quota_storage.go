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
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/volquota/volquota/storage"
)

const degree = 8

// Key prefixes partition the store into tables. Components are separated by
// a NUL byte so that no project or resource name can straddle two keys.
const (
	quotaTable       = "quota\x00"
	classTable       = "class\x00"
	usageTable       = "usage\x00"
	reservationTable = "reservation\x00"
)

func key(table string, parts ...string) string {
	return table + strings.Join(parts, "\x00")
}

// kv is a simple key->value type which implements btree's Item interface.
type kv struct {
	k string
	v interface{}
}

// Less than by k's string key
func (a *kv) Less(b btree.Item) bool {
	return a.k < b.(*kv).k
}

// QuotaStorage is an in-memory implementation of storage.QuotaStorage.
// Writers are serialised and work on a copy-on-write clone of the store that
// replaces the shared view only when the transaction function succeeds.
type QuotaStorage struct {
	mu    sync.RWMutex
	store *btree.BTree
}

// NewQuotaStorage returns an empty in-memory quota store.
func NewQuotaStorage() *QuotaStorage {
	return &QuotaStorage{store: btree.New(degree)}
}

// ReadWriteTransaction implements storage.QuotaStorage.
func (s *QuotaStorage) ReadWriteTransaction(ctx context.Context, f storage.QuotaTXFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &quotaTX{readOnlyTX{tx: s.store.Clone()}}
	if err := f(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.store = tx.tx
	return nil
}

// ReadOnlyTransaction implements storage.QuotaStorage.
func (s *QuotaStorage) ReadOnlyTransaction(ctx context.Context, f storage.ReadOnlyQuotaTXFunc) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f(ctx, &readOnlyTX{tx: s.store})
}

// CheckDatabaseAccessible implements storage.QuotaStorage.
func (s *QuotaStorage) CheckDatabaseAccessible(context.Context) error {
	return nil
}

// readOnlyTX reads from a btree that nobody mutates while it is in use.
type readOnlyTX struct {
	tx *btree.BTree
}

// scan calls fn for every item whose key starts with prefix.
func (t *readOnlyTX) scan(prefix string, fn func(*kv)) {
	t.tx.AscendGreaterOrEqual(&kv{k: prefix}, func(i btree.Item) bool {
		item := i.(*kv)
		if !strings.HasPrefix(item.k, prefix) {
			return false
		}
		fn(item)
		return true
	})
}

func (t *readOnlyTX) get(k string) interface{} {
	i := t.tx.Get(&kv{k: k})
	if i == nil {
		return nil
	}
	return i.(*kv).v
}

func (t *readOnlyTX) GetQuotas(ctx context.Context, projectID string) ([]storage.Quota, error) {
	var ret []storage.Quota
	t.scan(key(quotaTable, projectID, ""), func(i *kv) {
		ret = append(ret, i.v.(storage.Quota))
	})
	return ret, nil
}

func (t *readOnlyTX) GetClassQuotas(ctx context.Context, className string) ([]storage.ClassQuota, error) {
	var ret []storage.ClassQuota
	t.scan(key(classTable, className, ""), func(i *kv) {
		ret = append(ret, i.v.(storage.ClassQuota))
	})
	return ret, nil
}

func (t *readOnlyTX) GetUsages(ctx context.Context, projectID string) ([]storage.QuotaUsage, error) {
	var ret []storage.QuotaUsage
	t.scan(key(usageTable, projectID, ""), func(i *kv) {
		ret = append(ret, *i.v.(*storage.QuotaUsage).Clone())
	})
	return ret, nil
}

func (t *readOnlyTX) ListExpiredReservations(ctx context.Context, now time.Time) ([]storage.Reservation, error) {
	var ret []storage.Reservation
	t.scan(reservationTable, func(i *kv) {
		if r := i.v.(storage.Reservation); !r.Expire.After(now) {
			ret = append(ret, r)
		}
	})
	return ret, nil
}

type quotaTX struct {
	// readOnlyTX.tx is the private clone being modified.
	readOnlyTX
}

func (t *quotaTX) put(k string, v interface{}) {
	t.tx.ReplaceOrInsert(&kv{k: k, v: v})
}

func (t *quotaTX) GetUsagesForUpdate(ctx context.Context, projectID string, resources []string) (map[string]*storage.QuotaUsage, error) {
	ret := make(map[string]*storage.QuotaUsage, len(resources))
	for _, r := range resources {
		if v := t.get(key(usageTable, projectID, r)); v != nil {
			ret[r] = v.(*storage.QuotaUsage).Clone()
		}
	}
	return ret, nil
}

func (t *quotaTX) CreateUsage(ctx context.Context, u *storage.QuotaUsage) error {
	k := key(usageTable, u.ProjectID, u.Resource)
	if t.get(k) != nil {
		return storage.ErrAlreadyExists
	}
	t.put(k, u.Clone())
	return nil
}

func (t *quotaTX) UpdateUsage(ctx context.Context, u *storage.QuotaUsage) error {
	k := key(usageTable, u.ProjectID, u.Resource)
	if t.get(k) == nil {
		return storage.ErrNotFound
	}
	t.put(k, u.Clone())
	return nil
}

func (t *quotaTX) CreateReservations(ctx context.Context, rs []storage.Reservation) error {
	for _, r := range rs {
		k := key(reservationTable, r.ProjectID, r.UUID)
		if t.get(k) != nil {
			return storage.ErrAlreadyExists
		}
		t.put(k, r)
	}
	return nil
}

func (t *quotaTX) GetReservationsForUpdate(ctx context.Context, projectID string, uuids []string) ([]storage.Reservation, error) {
	var ret []storage.Reservation
	for _, id := range uuids {
		if v := t.get(key(reservationTable, projectID, id)); v != nil {
			ret = append(ret, v.(storage.Reservation))
		}
	}
	return ret, nil
}

func (t *quotaTX) DeleteReservations(ctx context.Context, projectID string, uuids []string) error {
	for _, id := range uuids {
		t.tx.Delete(&kv{k: key(reservationTable, projectID, id)})
	}
	return nil
}

func (t *quotaTX) SetQuota(ctx context.Context, q storage.Quota) error {
	t.put(key(quotaTable, q.ProjectID, q.Resource), q)
	return nil
}

func (t *quotaTX) DeleteQuota(ctx context.Context, projectID, resource string) error {
	if t.tx.Delete(&kv{k: key(quotaTable, projectID, resource)}) == nil {
		return storage.ErrNotFound
	}
	return nil
}

func (t *quotaTX) SetClassQuota(ctx context.Context, q storage.ClassQuota) error {
	t.put(key(classTable, q.ClassName, q.Resource), q)
	return nil
}

func (t *quotaTX) DeleteClassQuota(ctx context.Context, className, resource string) error {
	if t.tx.Delete(&kv{k: key(classTable, className, resource)}) == nil {
		return storage.ErrNotFound
	}
	return nil
}

func (t *quotaTX) DestroyProject(ctx context.Context, projectID string) error {
	var doomed []btree.Item
	for _, table := range []string{quotaTable, usageTable, reservationTable} {
		t.scan(key(table, projectID, ""), func(i *kv) {
			doomed = append(doomed, i)
		})
	}
	for _, i := range doomed {
		t.tx.Delete(i)
	}
	return nil
}
