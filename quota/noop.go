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

	"k8s.io/klog/v2"
)

// NoopDriverName is the name under which the noop driver is registered.
const NoopDriverName = "noop"

type noopDriver struct{}

func init() {
	if err := RegisterDriver(NoopDriverName, func(DriverOptions) (Driver, error) {
		return Noop(), nil
	}); err != nil {
		klog.Fatalf("Failed to register %q: %v", NoopDriverName, err)
	}
}

// Noop returns a driver that enforces nothing: every limit is unlimited,
// reservations produce no identifiers and nothing is persisted.
func Noop() Driver {
	return noopDriver{}
}

func (noopDriver) GetByProject(ctx context.Context, projectID, resource string) (int64, error) {
	return Unlimited, nil
}

func (noopDriver) GetByClass(ctx context.Context, className, resource string) (int64, error) {
	return Unlimited, nil
}

func (noopDriver) GetDefault(ctx context.Context, r Resource) (int64, error) {
	return Unlimited, nil
}

func (noopDriver) GetDefaults(ctx context.Context, resources Resources) (map[string]int64, error) {
	return unlimited(resources), nil
}

func (noopDriver) GetClassQuotas(ctx context.Context, resources Resources, className string, defaults bool) (map[string]int64, error) {
	return unlimited(resources), nil
}

func (noopDriver) GetProjectQuotas(ctx context.Context, resources Resources, projectID string, q QuotaQuery) (map[string]QuotaSet, error) {
	ret := make(map[string]QuotaSet, len(resources))
	for n := range resources {
		ret[n] = QuotaSet{Limit: Unlimited, InUse: -1, Reserved: -1}
	}
	return ret, nil
}

func (noopDriver) LimitCheck(ctx context.Context, resources Resources, projectID, className string, values map[string]int64) error {
	return nil
}

func (noopDriver) Reserve(ctx context.Context, resources Resources, projectID, className string, deltas map[string]int64, expire time.Time) ([]string, error) {
	return []string{}, nil
}

func (noopDriver) Commit(ctx context.Context, projectID string, reservations []string) error {
	return nil
}

func (noopDriver) Rollback(ctx context.Context, projectID string, reservations []string) error {
	return nil
}

func (noopDriver) UsageReset(ctx context.Context, projectID string, resources []string) error {
	return nil
}

func (noopDriver) DestroyAllByProject(ctx context.Context, projectID string) error {
	return nil
}

func (noopDriver) Expire(ctx context.Context) (int, error) {
	return 0, nil
}

func (noopDriver) SetProjectQuota(ctx context.Context, projectID, resource string, limit int64) error {
	return nil
}

func (noopDriver) DeleteProjectQuota(ctx context.Context, projectID, resource string) error {
	return nil
}

func (noopDriver) SetClassQuota(ctx context.Context, className, resource string, limit int64) error {
	return nil
}

func (noopDriver) DeleteClassQuota(ctx context.Context, className, resource string) error {
	return nil
}

func unlimited(resources Resources) map[string]int64 {
	ret := make(map[string]int64, len(resources))
	for n := range resources {
		ret[n] = Unlimited
	}
	return ret
}
