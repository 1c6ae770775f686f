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

package storage

import (
	"context"
	"time"
)

// GetQuotas reads the project-level overrides of projectID in a read-only
// transaction.
func GetQuotas(ctx context.Context, qs QuotaStorage, projectID string) ([]Quota, error) {
	var quotas []Quota
	err := qs.ReadOnlyTransaction(ctx, func(ctx context.Context, tx ReadOnlyQuotaTX) error {
		var err error
		quotas, err = tx.GetQuotas(ctx, projectID)
		return err
	})
	return quotas, err
}

// GetClassQuotas reads the overrides of className in a read-only transaction.
func GetClassQuotas(ctx context.Context, qs QuotaStorage, className string) ([]ClassQuota, error) {
	var quotas []ClassQuota
	err := qs.ReadOnlyTransaction(ctx, func(ctx context.Context, tx ReadOnlyQuotaTX) error {
		var err error
		quotas, err = tx.GetClassQuotas(ctx, className)
		return err
	})
	return quotas, err
}

// GetUsages reads the usage rows of projectID in a read-only transaction.
func GetUsages(ctx context.Context, qs QuotaStorage, projectID string) ([]QuotaUsage, error) {
	var usages []QuotaUsage
	err := qs.ReadOnlyTransaction(ctx, func(ctx context.Context, tx ReadOnlyQuotaTX) error {
		var err error
		usages, err = tx.GetUsages(ctx, projectID)
		return err
	})
	return usages, err
}

// ListExpiredReservations reads the reservations that expired by now in a
// read-only transaction.
func ListExpiredReservations(ctx context.Context, qs QuotaStorage, now time.Time) ([]Reservation, error) {
	var rs []Reservation
	err := qs.ReadOnlyTransaction(ctx, func(ctx context.Context, tx ReadOnlyQuotaTX) error {
		var err error
		rs, err = tx.ListExpiredReservations(ctx, now)
		return err
	})
	return rs, err
}

// SetQuota writes a project-level override in its own transaction.
func SetQuota(ctx context.Context, qs QuotaStorage, q Quota) error {
	return qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx QuotaTX) error {
		return tx.SetQuota(ctx, q)
	})
}

// SetClassQuota writes a class-level override in its own transaction.
func SetClassQuota(ctx context.Context, qs QuotaStorage, q ClassQuota) error {
	return qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx QuotaTX) error {
		return tx.SetClassQuota(ctx, q)
	})
}

// Clone returns a deep copy of u.
func (u *QuotaUsage) Clone() *QuotaUsage {
	c := *u
	if u.UntilRefresh != nil {
		v := *u.UntilRefresh
		c.UntilRefresh = &v
	}
	return &c
}

// ToMillisSinceEpoch converts a timestamp into milliseconds since epoch, the
// representation used by the SQL schemas.
func ToMillisSinceEpoch(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// FromMillisSinceEpoch converts milliseconds since epoch into a UTC timestamp.
func FromMillisSinceEpoch(ts int64) time.Time {
	return time.UnixMilli(ts).UTC()
}
