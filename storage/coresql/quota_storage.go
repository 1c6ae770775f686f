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

package coresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/volquota/volquota/storage"
	"k8s.io/klog/v2"
)

const (
	selectQuotasSQL      = "SELECT project_id, resource, hard_limit FROM quotas WHERE project_id = ? ORDER BY resource"
	selectClassQuotasSQL = "SELECT class_name, resource, hard_limit FROM quota_classes WHERE class_name = ? ORDER BY resource"
	usageColumns         = "project_id, resource, in_use, reserved, until_refresh, created_millis, updated_millis"
	selectUsagesSQL      = "SELECT " + usageColumns + " FROM quota_usages WHERE project_id = ? ORDER BY resource"
	insertUsageSQL       = "INSERT INTO quota_usages (" + usageColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)"
	updateUsageSQL       = "UPDATE quota_usages SET in_use = ?, reserved = ?, until_refresh = ?, updated_millis = ? WHERE project_id = ? AND resource = ?"
	reservationColumns   = "uuid, project_id, resource, delta, expire_millis, created_millis"
	selectExpiredSQL     = "SELECT " + reservationColumns + " FROM reservations WHERE expire_millis <= ? ORDER BY project_id, uuid"
	insertQuotaSQL       = "INSERT INTO quotas (project_id, resource, hard_limit) VALUES (?, ?, ?)"
	insertClassQuotaSQL  = "INSERT INTO quota_classes (class_name, resource, hard_limit) VALUES (?, ?, ?)"
	deleteQuotaSQL       = "DELETE FROM quotas WHERE project_id = ? AND resource = ?"
	deleteClassQuotaSQL  = "DELETE FROM quota_classes WHERE class_name = ? AND resource = ?"

	// maxAttempts bounds the re-runs of a transaction that failed with a
	// retryable error such as a deadlock.
	maxAttempts = 3
)

var (
	projectKey = []string{"project_id", "resource"}
	classKey   = []string{"class_name", "resource"}
)

// QuotaStorage is a storage.QuotaStorage over a SQL database.
type QuotaStorage struct {
	db      DB
	dialect Dialect
}

// NewQuotaStorage returns a QuotaStorage that runs statements on db in the
// given dialect.
func NewQuotaStorage(db DB, d Dialect) *QuotaStorage {
	return &QuotaStorage{db: db, dialect: d}
}

// ReadWriteTransaction implements storage.QuotaStorage.
func (s *QuotaStorage) ReadWriteTransaction(ctx context.Context, f storage.QuotaTXFunc) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.db.ReadWrite(ctx, func(ctx context.Context, tx Tx) error {
			return f(ctx, &quotaTX{readOnlyTX{tx: tx, d: s.dialect}})
		})
		err = s.dialect.mapError(err)
		if !storage.IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		klog.V(1).Infof("%s: retrying transaction after attempt %d: %v", s.dialect.Name, attempt, err)
	}
	return err
}

// ReadOnlyTransaction implements storage.QuotaStorage.
func (s *QuotaStorage) ReadOnlyTransaction(ctx context.Context, f storage.ReadOnlyQuotaTXFunc) error {
	err := s.db.ReadOnly(ctx, func(ctx context.Context, tx Tx) error {
		return f(ctx, &readOnlyTX{tx: tx, d: s.dialect})
	})
	return s.dialect.mapError(err)
}

// CheckDatabaseAccessible implements storage.QuotaStorage.
func (s *QuotaStorage) CheckDatabaseAccessible(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type readOnlyTX struct {
	tx Tx
	d  Dialect
}

func (t *readOnlyTX) query(ctx context.Context, query string, args ...any) (Rows, error) {
	return t.tx.Query(ctx, t.d.rebind(query), args...)
}

func (t *readOnlyTX) exec(ctx context.Context, query string, args ...any) (int64, error) {
	return t.tx.Exec(ctx, t.d.rebind(query), args...)
}

// collect scans every row with scan, closing rows.
func collect[T any](rows Rows, scan func(Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *readOnlyTX) GetQuotas(ctx context.Context, projectID string) ([]storage.Quota, error) {
	rows, err := t.query(ctx, selectQuotasSQL, projectID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r Rows) (storage.Quota, error) {
		var q storage.Quota
		err := r.Scan(&q.ProjectID, &q.Resource, &q.HardLimit)
		return q, err
	})
}

func (t *readOnlyTX) GetClassQuotas(ctx context.Context, className string) ([]storage.ClassQuota, error) {
	rows, err := t.query(ctx, selectClassQuotasSQL, className)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r Rows) (storage.ClassQuota, error) {
		var q storage.ClassQuota
		err := r.Scan(&q.ClassName, &q.Resource, &q.HardLimit)
		return q, err
	})
}

func scanUsage(r Rows) (storage.QuotaUsage, error) {
	var u storage.QuotaUsage
	var untilRefresh sql.NullInt64
	var created, updated int64
	if err := r.Scan(&u.ProjectID, &u.Resource, &u.InUse, &u.Reserved, &untilRefresh, &created, &updated); err != nil {
		return u, err
	}
	if untilRefresh.Valid {
		v := untilRefresh.Int64
		u.UntilRefresh = &v
	}
	u.CreatedAt = storage.FromMillisSinceEpoch(created)
	u.UpdatedAt = storage.FromMillisSinceEpoch(updated)
	return u, nil
}

func (t *readOnlyTX) GetUsages(ctx context.Context, projectID string) ([]storage.QuotaUsage, error) {
	rows, err := t.query(ctx, selectUsagesSQL, projectID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUsage)
}

func scanReservation(r Rows) (storage.Reservation, error) {
	var res storage.Reservation
	var expire, created int64
	if err := r.Scan(&res.UUID, &res.ProjectID, &res.Resource, &res.Delta, &expire, &created); err != nil {
		return res, err
	}
	res.Expire = storage.FromMillisSinceEpoch(expire)
	res.CreatedAt = storage.FromMillisSinceEpoch(created)
	return res, nil
}

func (t *readOnlyTX) ListExpiredReservations(ctx context.Context, now time.Time) ([]storage.Reservation, error) {
	rows, err := t.query(ctx, selectExpiredSQL, storage.ToMillisSinceEpoch(now))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanReservation)
}

type quotaTX struct {
	readOnlyTX
}

func (t *quotaTX) GetUsagesForUpdate(ctx context.Context, projectID string, resources []string) (map[string]*storage.QuotaUsage, error) {
	out := make(map[string]*storage.QuotaUsage, len(resources))
	if len(resources) == 0 {
		return out, nil
	}
	query := fmt.Sprintf("SELECT %s FROM quota_usages WHERE project_id = ? AND resource IN (%s) ORDER BY resource%s",
		usageColumns, placeholders(len(resources)), t.d.ForUpdate)
	rows, err := t.query(ctx, query, append([]any{projectID}, strArgs(resources)...)...)
	if err != nil {
		return nil, err
	}
	usages, err := collect(rows, scanUsage)
	if err != nil {
		return nil, err
	}
	for i := range usages {
		out[usages[i].Resource] = &usages[i]
	}
	return out, nil
}

func nullable(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func (t *quotaTX) CreateUsage(ctx context.Context, u *storage.QuotaUsage) error {
	n, err := t.exec(ctx, t.d.InsertIgnore(insertUsageSQL, projectKey),
		u.ProjectID, u.Resource, u.InUse, u.Reserved, nullable(u.UntilRefresh),
		storage.ToMillisSinceEpoch(u.CreatedAt), storage.ToMillisSinceEpoch(u.UpdatedAt))
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrAlreadyExists
	}
	return nil
}

func (t *quotaTX) UpdateUsage(ctx context.Context, u *storage.QuotaUsage) error {
	_, err := t.exec(ctx, updateUsageSQL,
		u.InUse, u.Reserved, nullable(u.UntilRefresh), storage.ToMillisSinceEpoch(u.UpdatedAt),
		u.ProjectID, u.Resource)
	return err
}

func (t *quotaTX) CreateReservations(ctx context.Context, rs []storage.Reservation) error {
	if len(rs) == 0 {
		return nil
	}
	query := "INSERT INTO reservations (" + reservationColumns + ") VALUES "
	args := make([]any, 0, 6*len(rs))
	for i, r := range rs {
		if i > 0 {
			query += ", "
		}
		query += "(" + placeholders(6) + ")"
		args = append(args, r.UUID, r.ProjectID, r.Resource, r.Delta,
			storage.ToMillisSinceEpoch(r.Expire), storage.ToMillisSinceEpoch(r.CreatedAt))
	}
	_, err := t.exec(ctx, query, args...)
	return err
}

func (t *quotaTX) GetReservationsForUpdate(ctx context.Context, projectID string, uuids []string) ([]storage.Reservation, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM reservations WHERE project_id = ? AND uuid IN (%s) ORDER BY uuid%s",
		reservationColumns, placeholders(len(uuids)), t.d.ForUpdate)
	rows, err := t.query(ctx, query, append([]any{projectID}, strArgs(uuids)...)...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanReservation)
}

func (t *quotaTX) DeleteReservations(ctx context.Context, projectID string, uuids []string) error {
	if len(uuids) == 0 {
		return nil
	}
	query := fmt.Sprintf("DELETE FROM reservations WHERE project_id = ? AND uuid IN (%s)", placeholders(len(uuids)))
	_, err := t.exec(ctx, query, append([]any{projectID}, strArgs(uuids)...)...)
	return err
}

func (t *quotaTX) SetQuota(ctx context.Context, q storage.Quota) error {
	_, err := t.exec(ctx, insertQuotaSQL+t.d.Upsert(projectKey, []string{"hard_limit"}), q.ProjectID, q.Resource, q.HardLimit)
	return err
}

func (t *quotaTX) DeleteQuota(ctx context.Context, projectID, resource string) error {
	return t.deleteOne(ctx, deleteQuotaSQL, projectID, resource)
}

func (t *quotaTX) SetClassQuota(ctx context.Context, q storage.ClassQuota) error {
	_, err := t.exec(ctx, insertClassQuotaSQL+t.d.Upsert(classKey, []string{"hard_limit"}), q.ClassName, q.Resource, q.HardLimit)
	return err
}

func (t *quotaTX) DeleteClassQuota(ctx context.Context, className, resource string) error {
	return t.deleteOne(ctx, deleteClassQuotaSQL, className, resource)
}

func (t *quotaTX) deleteOne(ctx context.Context, query string, args ...any) error {
	n, err := t.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *quotaTX) DestroyProject(ctx context.Context, projectID string) error {
	for _, table := range []string{"reservations", "quota_usages", "quotas"} {
		if _, err := t.exec(ctx, "DELETE FROM "+table+" WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("destroy %s: %w", table, err)
		}
	}
	return nil
}

func strArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
