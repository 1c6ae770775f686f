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

// Package docstore implements storage.QuotaStorage on key/value stores with
// optimistic transactions, such as etcd and Redis.
//
// State is grouped into one JSON document per owner and table:
//
//	quotas/<project>        resource -> hard limit
//	classes/<class>         resource -> hard limit
//	usages/<project>        resource -> usage counters
//	reservations/<project>  uuid -> reservation
//
// Every transaction that touches a project's usages reads the same key, so
// the backend's conflict detection serialises reservations per project.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/volquota/volquota/storage"
)

const (
	quotasTable       = "quotas/"
	classesTable      = "classes/"
	usagesTable       = "usages/"
	reservationsTable = "reservations/"
)

// Txn is a transaction of a key/value backend.
type Txn interface {
	// Get returns the value stored at key, or nil if there is none. The read
	// takes part in the backend's conflict detection.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put buffers a write of key.
	Put(key string, value []byte)
	// Delete buffers a removal of key.
	Delete(key string)
}

// Backend is a key/value store that offers optimistic transactions.
type Backend interface {
	// Update runs f and atomically applies its buffered writes if f returns
	// nil and no key read by f changed meanwhile. On conflict f is re-run.
	Update(ctx context.Context, f func(context.Context, Txn) error) error
	// View runs f against a consistent snapshot.
	View(ctx context.Context, f func(context.Context, Txn) error) error
	// Scan returns all keys with the given prefix and their values. It does
	// not take part in any transaction.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// QuotaStorage is a storage.QuotaStorage over a Backend.
type QuotaStorage struct {
	b Backend
}

// NewQuotaStorage returns a QuotaStorage keeping its documents in b.
func NewQuotaStorage(b Backend) *QuotaStorage {
	return &QuotaStorage{b: b}
}

// ReadWriteTransaction implements storage.QuotaStorage.
func (s *QuotaStorage) ReadWriteTransaction(ctx context.Context, f storage.QuotaTXFunc) error {
	return s.b.Update(ctx, func(ctx context.Context, t Txn) error {
		tx := newTX(s.b, t)
		if err := f(ctx, tx); err != nil {
			return err
		}
		return tx.flush()
	})
}

// ReadOnlyTransaction implements storage.QuotaStorage.
func (s *QuotaStorage) ReadOnlyTransaction(ctx context.Context, f storage.ReadOnlyQuotaTXFunc) error {
	return s.b.View(ctx, func(ctx context.Context, t Txn) error {
		return f(ctx, newTX(s.b, t))
	})
}

// CheckDatabaseAccessible implements storage.QuotaStorage.
func (s *QuotaStorage) CheckDatabaseAccessible(ctx context.Context) error {
	return s.b.Ping(ctx)
}

type limitsDoc map[string]int64

type usageRecord struct {
	InUse         int64  `json:"in_use"`
	Reserved      int64  `json:"reserved"`
	UntilRefresh  *int64 `json:"until_refresh,omitempty"`
	CreatedMillis int64  `json:"created_millis"`
	UpdatedMillis int64  `json:"updated_millis"`
}

type usagesDoc map[string]usageRecord

type reservationRecord struct {
	Resource      string `json:"resource"`
	Delta         int64  `json:"delta"`
	ExpireMillis  int64  `json:"expire_millis"`
	CreatedMillis int64  `json:"created_millis"`
}

type reservationsDoc map[string]reservationRecord

// doc is a decoded document cached for the life of a transaction.
type doc struct {
	v     any
	size  func() int
	dirty bool
}

// quotaTX implements storage.QuotaTX on top of a Txn. Documents are decoded
// once, mutated in place and written back by flush.
type quotaTX struct {
	b    Backend
	t    Txn
	docs map[string]*doc
}

func newTX(b Backend, t Txn) *quotaTX {
	return &quotaTX{b: b, t: t, docs: make(map[string]*doc)}
}

// load returns the document stored at key, decoding it on first use.
func load[M ~map[string]V, V any](ctx context.Context, tx *quotaTX, key string) (M, error) {
	if d, ok := tx.docs[key]; ok {
		return d.v.(M), nil
	}
	raw, err := tx.t.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	m := make(M)
	if raw != nil {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	tx.docs[key] = &doc{v: m, size: func() int { return len(m) }}
	return m, nil
}

func (tx *quotaTX) markDirty(key string) {
	tx.docs[key].dirty = true
}

// flush buffers the writes of every modified document. Empty documents are
// deleted.
func (tx *quotaTX) flush() error {
	keys := make([]string, 0, len(tx.docs))
	for k, d := range tx.docs {
		if d.dirty {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		d := tx.docs[k]
		if d.size() == 0 {
			tx.t.Delete(k)
			continue
		}
		raw, err := json.Marshal(d.v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		tx.t.Put(k, raw)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (tx *quotaTX) GetQuotas(ctx context.Context, projectID string) ([]storage.Quota, error) {
	limits, err := load[limitsDoc](ctx, tx, quotasTable+projectID)
	if err != nil {
		return nil, err
	}
	var out []storage.Quota
	for _, r := range sortedKeys(limits) {
		out = append(out, storage.Quota{ProjectID: projectID, Resource: r, HardLimit: limits[r]})
	}
	return out, nil
}

func (tx *quotaTX) GetClassQuotas(ctx context.Context, className string) ([]storage.ClassQuota, error) {
	limits, err := load[limitsDoc](ctx, tx, classesTable+className)
	if err != nil {
		return nil, err
	}
	var out []storage.ClassQuota
	for _, r := range sortedKeys(limits) {
		out = append(out, storage.ClassQuota{ClassName: className, Resource: r, HardLimit: limits[r]})
	}
	return out, nil
}

func (r usageRecord) toUsage(projectID, resource string) storage.QuotaUsage {
	u := storage.QuotaUsage{
		ProjectID: projectID,
		Resource:  resource,
		InUse:     r.InUse,
		Reserved:  r.Reserved,
		CreatedAt: storage.FromMillisSinceEpoch(r.CreatedMillis),
		UpdatedAt: storage.FromMillisSinceEpoch(r.UpdatedMillis),
	}
	if r.UntilRefresh != nil {
		v := *r.UntilRefresh
		u.UntilRefresh = &v
	}
	return u
}

func fromUsage(u *storage.QuotaUsage) usageRecord {
	r := usageRecord{
		InUse:         u.InUse,
		Reserved:      u.Reserved,
		CreatedMillis: storage.ToMillisSinceEpoch(u.CreatedAt),
		UpdatedMillis: storage.ToMillisSinceEpoch(u.UpdatedAt),
	}
	if u.UntilRefresh != nil {
		v := *u.UntilRefresh
		r.UntilRefresh = &v
	}
	return r
}

func (tx *quotaTX) GetUsages(ctx context.Context, projectID string) ([]storage.QuotaUsage, error) {
	usages, err := load[usagesDoc](ctx, tx, usagesTable+projectID)
	if err != nil {
		return nil, err
	}
	var out []storage.QuotaUsage
	for _, r := range sortedKeys(usages) {
		out = append(out, usages[r].toUsage(projectID, r))
	}
	return out, nil
}

func (r reservationRecord) toReservation(projectID, uuid string) storage.Reservation {
	return storage.Reservation{
		UUID:      uuid,
		ProjectID: projectID,
		Resource:  r.Resource,
		Delta:     r.Delta,
		Expire:    storage.FromMillisSinceEpoch(r.ExpireMillis),
		CreatedAt: storage.FromMillisSinceEpoch(r.CreatedMillis),
	}
}

// ListExpiredReservations scans every reservation document. Documents
// already loaded by this transaction win over the scanned values.
func (tx *quotaTX) ListExpiredReservations(ctx context.Context, now time.Time) ([]storage.Reservation, error) {
	scanned, err := tx.b.Scan(ctx, reservationsTable)
	if err != nil {
		return nil, err
	}
	docs := make(map[string]reservationsDoc)
	for k, raw := range scanned {
		var d reservationsDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
		docs[k] = d
	}
	for k, d := range tx.docs {
		if strings.HasPrefix(k, reservationsTable) {
			docs[k] = d.v.(reservationsDoc)
		}
	}

	cutoff := storage.ToMillisSinceEpoch(now)
	var out []storage.Reservation
	for _, k := range sortedKeys(docs) {
		projectID := strings.TrimPrefix(k, reservationsTable)
		d := docs[k]
		for _, id := range sortedKeys(d) {
			if r := d[id]; r.ExpireMillis <= cutoff {
				out = append(out, r.toReservation(projectID, id))
			}
		}
	}
	return out, nil
}

func (tx *quotaTX) GetUsagesForUpdate(ctx context.Context, projectID string, resources []string) (map[string]*storage.QuotaUsage, error) {
	usages, err := load[usagesDoc](ctx, tx, usagesTable+projectID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*storage.QuotaUsage, len(resources))
	for _, r := range resources {
		if rec, ok := usages[r]; ok {
			u := rec.toUsage(projectID, r)
			out[r] = &u
		}
	}
	return out, nil
}

func (tx *quotaTX) CreateUsage(ctx context.Context, u *storage.QuotaUsage) error {
	key := usagesTable + u.ProjectID
	usages, err := load[usagesDoc](ctx, tx, key)
	if err != nil {
		return err
	}
	if _, ok := usages[u.Resource]; ok {
		return storage.ErrAlreadyExists
	}
	usages[u.Resource] = fromUsage(u)
	tx.markDirty(key)
	return nil
}

func (tx *quotaTX) UpdateUsage(ctx context.Context, u *storage.QuotaUsage) error {
	key := usagesTable + u.ProjectID
	usages, err := load[usagesDoc](ctx, tx, key)
	if err != nil {
		return err
	}
	if _, ok := usages[u.Resource]; !ok {
		return storage.ErrNotFound
	}
	usages[u.Resource] = fromUsage(u)
	tx.markDirty(key)
	return nil
}

func (tx *quotaTX) CreateReservations(ctx context.Context, rs []storage.Reservation) error {
	for _, r := range rs {
		key := reservationsTable + r.ProjectID
		d, err := load[reservationsDoc](ctx, tx, key)
		if err != nil {
			return err
		}
		if _, ok := d[r.UUID]; ok {
			return storage.ErrAlreadyExists
		}
		d[r.UUID] = reservationRecord{
			Resource:      r.Resource,
			Delta:         r.Delta,
			ExpireMillis:  storage.ToMillisSinceEpoch(r.Expire),
			CreatedMillis: storage.ToMillisSinceEpoch(r.CreatedAt),
		}
		tx.markDirty(key)
	}
	return nil
}

func (tx *quotaTX) GetReservationsForUpdate(ctx context.Context, projectID string, uuids []string) ([]storage.Reservation, error) {
	d, err := load[reservationsDoc](ctx, tx, reservationsTable+projectID)
	if err != nil {
		return nil, err
	}
	sorted := append([]string(nil), uuids...)
	sort.Strings(sorted)
	var out []storage.Reservation
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		if r, ok := d[id]; ok {
			out = append(out, r.toReservation(projectID, id))
		}
	}
	return out, nil
}

func (tx *quotaTX) DeleteReservations(ctx context.Context, projectID string, uuids []string) error {
	key := reservationsTable + projectID
	d, err := load[reservationsDoc](ctx, tx, key)
	if err != nil {
		return err
	}
	for _, id := range uuids {
		delete(d, id)
	}
	tx.markDirty(key)
	return nil
}

func (tx *quotaTX) setLimit(ctx context.Context, key, resource string, limit int64) error {
	limits, err := load[limitsDoc](ctx, tx, key)
	if err != nil {
		return err
	}
	limits[resource] = limit
	tx.markDirty(key)
	return nil
}

func (tx *quotaTX) deleteLimit(ctx context.Context, key, resource string) error {
	limits, err := load[limitsDoc](ctx, tx, key)
	if err != nil {
		return err
	}
	if _, ok := limits[resource]; !ok {
		return storage.ErrNotFound
	}
	delete(limits, resource)
	tx.markDirty(key)
	return nil
}

func (tx *quotaTX) SetQuota(ctx context.Context, q storage.Quota) error {
	return tx.setLimit(ctx, quotasTable+q.ProjectID, q.Resource, q.HardLimit)
}

func (tx *quotaTX) DeleteQuota(ctx context.Context, projectID, resource string) error {
	return tx.deleteLimit(ctx, quotasTable+projectID, resource)
}

func (tx *quotaTX) SetClassQuota(ctx context.Context, q storage.ClassQuota) error {
	return tx.setLimit(ctx, classesTable+q.ClassName, q.Resource, q.HardLimit)
}

func (tx *quotaTX) DeleteClassQuota(ctx context.Context, className, resource string) error {
	return tx.deleteLimit(ctx, classesTable+className, resource)
}

func (tx *quotaTX) DestroyProject(ctx context.Context, projectID string) error {
	if err := clearDoc[limitsDoc](ctx, tx, quotasTable+projectID); err != nil {
		return err
	}
	if err := clearDoc[usagesDoc](ctx, tx, usagesTable+projectID); err != nil {
		return err
	}
	return clearDoc[reservationsDoc](ctx, tx, reservationsTable+projectID)
}

// clearDoc empties the document at key, which flush turns into a delete.
func clearDoc[M ~map[string]V, V any](ctx context.Context, tx *quotaTX, key string) error {
	m, err := load[M](ctx, tx, key)
	if err != nil {
		return err
	}
	for k := range m {
		delete(m, k)
	}
	tx.markDirty(key)
	return nil
}
