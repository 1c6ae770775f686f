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

package quota

import (
	"context"
	"time"
)

// QuotaQuery selects what GetProjectQuotas reports.
type QuotaQuery struct {
	// QuotaClass, if set, overlays that class's overrides on the defaults.
	QuotaClass string
	// Defaults reports resources without a project override too.
	Defaults bool
	// Usages fills in the usage counters.
	Usages bool
}

// QuotaSet is the aggregate view of one resource in one project.
type QuotaSet struct {
	Limit    int64
	InUse    int64
	Reserved int64
}

// Driver persists and enforces quotas. The Engine validates resource names
// and values before calling into the driver, and filters Resources down to
// the kind an operation applies to.
type Driver interface {
	// GetByProject returns the project override of resource or a
	// *ProjectQuotaNotFoundError.
	GetByProject(ctx context.Context, projectID, resource string) (int64, error)
	// GetByClass returns the class override of resource or a
	// *ClassNotFoundError.
	GetByClass(ctx context.Context, className, resource string) (int64, error)
	// GetDefault returns the default limit of r, which the default quota
	// class may override.
	GetDefault(ctx context.Context, r Resource) (int64, error)
	// GetDefaults returns the default limit of every resource.
	GetDefaults(ctx context.Context, resources Resources) (map[string]int64, error)
	// GetClassQuotas returns the limits of className. Without defaults,
	// resources the class does not override are omitted.
	GetClassQuotas(ctx context.Context, resources Resources, className string, defaults bool) (map[string]int64, error)
	// GetProjectQuotas returns the aggregate view of projectID.
	GetProjectQuotas(ctx context.Context, resources Resources, projectID string, q QuotaQuery) (map[string]QuotaSet, error)

	// LimitCheck verifies that the absolute values do not exceed the limits
	// of projectID, resolved through className if set. An *OverQuotaError
	// with empty usages reports the offending resources.
	LimitCheck(ctx context.Context, resources Resources, projectID, className string, values map[string]int64) error
	// Reserve atomically reserves deltas, expiring at expire, and returns the
	// reservation identifiers. resources holds every reservable resource, so
	// that resynchronisations may update usages beyond the requested ones.
	Reserve(ctx context.Context, resources Resources, projectID, className string, deltas map[string]int64, expire time.Time) ([]string, error)
	// Commit applies the reservations to the in-use counters.
	Commit(ctx context.Context, projectID string, reservations []string) error
	// Rollback releases the reservations without consuming them.
	Rollback(ctx context.Context, projectID string, reservations []string) error
	// UsageReset marks the usage of resources stale so that the next
	// reservation resynchronises it.
	UsageReset(ctx context.Context, projectID string, resources []string) error
	// DestroyAllByProject removes all quota state of projectID.
	DestroyAllByProject(ctx context.Context, projectID string) error
	// Expire rolls back every expired reservation and returns how many
	// were collected.
	Expire(ctx context.Context) (int, error)

	// SetProjectQuota creates or replaces a project override.
	SetProjectQuota(ctx context.Context, projectID, resource string, limit int64) error
	// DeleteProjectQuota removes a project override.
	DeleteProjectQuota(ctx context.Context, projectID, resource string) error
	// SetClassQuota creates or replaces a class override.
	SetClassQuota(ctx context.Context, className, resource string, limit int64) error
	// DeleteClassQuota removes a class override.
	DeleteClassQuota(ctx context.Context, className, resource string) error
}
