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

// Package storage defines the persistence contract of the quota service:
// quota overrides, per-project usage counters and outstanding reservations,
// all mutated through a single transactional interface.
//
// Every implementation must run a ReadWriteTransaction as one indivisible
// unit in which usage rows read through GetUsagesForUpdate cannot be changed
// by any other transaction until it ends. SQL backends use row locks, the
// in-memory backend serialises writers, and the key/value backends detect
// conflicting writes at commit and re-run the transaction function.
package storage

import (
	"context"
	"time"
)

// Quota is a per-project override of a resource's default limit.
type Quota struct {
	ProjectID string
	Resource  string
	HardLimit int64
}

// ClassQuota is a per-class override of a resource's default limit.
type ClassQuota struct {
	ClassName string
	Resource  string
	HardLimit int64
}

// QuotaUsage holds the cached consumption counters of one resource in one
// project.
type QuotaUsage struct {
	ProjectID string
	Resource  string
	InUse     int64
	Reserved  int64
	// UntilRefresh counts down the reservations left before a forced resync.
	// Nil when countdown refreshes are disabled.
	UntilRefresh *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Total returns the sum of committed and reserved consumption.
func (u *QuotaUsage) Total() int64 {
	return u.InUse + u.Reserved
}

// Reservation is a provisional hold of Delta units of one resource.
type Reservation struct {
	UUID      string
	ProjectID string
	Resource  string
	Delta     int64
	Expire    time.Time
	CreatedAt time.Time
}

// ReadOnlyQuotaTX gives read access to quota state within a transaction.
type ReadOnlyQuotaTX interface {
	// GetQuotas returns every project-level override of projectID.
	GetQuotas(ctx context.Context, projectID string) ([]Quota, error)
	// GetClassQuotas returns every override of the named quota class.
	GetClassQuotas(ctx context.Context, className string) ([]ClassQuota, error)
	// GetUsages returns every usage row of projectID.
	GetUsages(ctx context.Context, projectID string) ([]QuotaUsage, error)
	// ListExpiredReservations returns reservations, across all projects, whose
	// expiration is not after now.
	ListExpiredReservations(ctx context.Context, now time.Time) ([]Reservation, error)
}

// QuotaTX is a read-write transaction over quota state.
type QuotaTX interface {
	ReadOnlyQuotaTX

	// GetUsagesForUpdate returns the usage rows of projectID for the named
	// resources, keyed by resource, and guards them against concurrent
	// modification until the transaction ends. Absent rows are omitted.
	GetUsagesForUpdate(ctx context.Context, projectID string, resources []string) (map[string]*QuotaUsage, error)
	// CreateUsage inserts a new usage row. Returns ErrAlreadyExists, without
	// spoiling the transaction, if a concurrent transaction created it first.
	CreateUsage(ctx context.Context, u *QuotaUsage) error
	// UpdateUsage overwrites the counters of an existing usage row.
	UpdateUsage(ctx context.Context, u *QuotaUsage) error

	// CreateReservations inserts the given reservations.
	CreateReservations(ctx context.Context, rs []Reservation) error
	// GetReservationsForUpdate returns the reservations of projectID with the
	// given identifiers, guarding them until the transaction ends. Unknown
	// identifiers are omitted.
	GetReservationsForUpdate(ctx context.Context, projectID string, uuids []string) ([]Reservation, error)
	// DeleteReservations removes the reservations with the given identifiers.
	DeleteReservations(ctx context.Context, projectID string, uuids []string) error

	// SetQuota creates or replaces a project-level override.
	SetQuota(ctx context.Context, q Quota) error
	// DeleteQuota removes a project-level override. Returns ErrNotFound if
	// there was none.
	DeleteQuota(ctx context.Context, projectID, resource string) error
	// SetClassQuota creates or replaces a class-level override.
	SetClassQuota(ctx context.Context, q ClassQuota) error
	// DeleteClassQuota removes a class-level override. Returns ErrNotFound if
	// there was none.
	DeleteClassQuota(ctx context.Context, className, resource string) error

	// DestroyProject removes every override, usage row and reservation that
	// belongs to projectID.
	DestroyProject(ctx context.Context, projectID string) error
}

// QuotaTXFunc is the body of a read-write transaction. It may be invoked more
// than once when the backend retries after a conflict, so it must not leak
// state between attempts.
type QuotaTXFunc func(context.Context, QuotaTX) error

// ReadOnlyQuotaTXFunc is the body of a read-only transaction.
type ReadOnlyQuotaTXFunc func(context.Context, ReadOnlyQuotaTX) error

// QuotaStorage is the interface implemented by every quota backend.
type QuotaStorage interface {
	// ReadWriteTransaction runs f in a transaction and commits it if f
	// returns nil. Any error rolls the transaction back.
	ReadWriteTransaction(ctx context.Context, f QuotaTXFunc) error
	// ReadOnlyTransaction runs f against a consistent view of the data.
	ReadOnlyTransaction(ctx context.Context, f ReadOnlyQuotaTXFunc) error
	// CheckDatabaseAccessible returns nil if the backend can be reached.
	CheckDatabaseAccessible(ctx context.Context) error
}
