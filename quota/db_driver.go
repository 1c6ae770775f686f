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
	"errors"
	"fmt"
	"sort"

	"github.com/volquota/volquota/storage"
	"github.com/volquota/volquota/util/clock"
	"k8s.io/klog/v2"
)

// DBDriverName is the name under which the storage-backed driver is
// registered.
const DBDriverName = "db"

func init() {
	if err := RegisterDriver(DBDriverName, func(opts DriverOptions) (Driver, error) {
		if opts.Storage == nil {
			return nil, errors.New("db quota driver needs a storage")
		}
		return NewDbDriver(opts.Storage, opts.Config, opts.TimeSource), nil
	}); err != nil {
		klog.Fatalf("Failed to register %q: %v", DBDriverName, err)
	}
}

// DbDriver is a Driver that keeps quota state in a storage.QuotaStorage.
type DbDriver struct {
	qs  storage.QuotaStorage
	cfg Config
	ts  clock.TimeSource
}

// NewDbDriver returns a DbDriver over qs. A nil ts selects the system clock.
func NewDbDriver(qs storage.QuotaStorage, cfg Config, ts clock.TimeSource) *DbDriver {
	if ts == nil {
		ts = clock.System
	}
	return &DbDriver{qs: qs, cfg: cfg, ts: ts}
}

// GetByProject implements Driver.
func (d *DbDriver) GetByProject(ctx context.Context, projectID, resource string) (int64, error) {
	quotas, err := storage.GetQuotas(ctx, d.qs, projectID)
	if err != nil {
		return 0, fmt.Errorf("reading quotas of project %s: %w", projectID, err)
	}
	for _, q := range quotas {
		if q.Resource == resource {
			return q.HardLimit, nil
		}
	}
	return 0, &ProjectQuotaNotFoundError{ProjectID: projectID, Resource: resource}
}

// GetByClass implements Driver.
func (d *DbDriver) GetByClass(ctx context.Context, className, resource string) (int64, error) {
	quotas, err := storage.GetClassQuotas(ctx, d.qs, className)
	if err != nil {
		return 0, fmt.Errorf("reading quota class %s: %w", className, err)
	}
	for _, q := range quotas {
		if q.Resource == resource {
			return q.HardLimit, nil
		}
	}
	return 0, &ClassNotFoundError{ClassName: className, Resource: resource}
}

// GetDefault implements Driver.
func (d *DbDriver) GetDefault(ctx context.Context, r Resource) (int64, error) {
	defaults, err := d.GetDefaults(ctx, Resources{r.Name: r})
	if err != nil {
		return 0, err
	}
	return defaults[r.Name], nil
}

// GetDefaults implements Driver.
func (d *DbDriver) GetDefaults(ctx context.Context, resources Resources) (map[string]int64, error) {
	var ret map[string]int64
	err := d.qs.ReadOnlyTransaction(ctx, func(ctx context.Context, tx storage.ReadOnlyQuotaTX) error {
		var err error
		ret, err = d.defaults(ctx, tx, resources)
		return err
	})
	return ret, err
}

// defaults overlays the default quota class, if enabled, on the resource
// defaults.
func (d *DbDriver) defaults(ctx context.Context, tx storage.ReadOnlyQuotaTX, resources Resources) (map[string]int64, error) {
	classLimits := map[string]int64{}
	if d.cfg.UseDefaultQuotaClass {
		var err error
		if classLimits, err = classQuotas(ctx, tx, DefaultClass); err != nil {
			return nil, err
		}
	}
	ret := make(map[string]int64, len(resources))
	for name, r := range resources {
		if l, ok := classLimits[name]; ok {
			ret[name] = l
		} else {
			ret[name] = r.Default
		}
	}
	return ret, nil
}

// GetClassQuotas implements Driver.
func (d *DbDriver) GetClassQuotas(ctx context.Context, resources Resources, className string, defaults bool) (map[string]int64, error) {
	classLimits, err := readClassQuotas(ctx, d.qs, className)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]int64, len(resources))
	for name, r := range resources {
		l, ok := classLimits[name]
		switch {
		case ok:
			ret[name] = l
		case defaults:
			ret[name] = r.Default
		}
	}
	return ret, nil
}

// GetProjectQuotas implements Driver.
func (d *DbDriver) GetProjectQuotas(ctx context.Context, resources Resources, projectID string, q QuotaQuery) (map[string]QuotaSet, error) {
	var ret map[string]QuotaSet
	err := d.qs.ReadOnlyTransaction(ctx, func(ctx context.Context, tx storage.ReadOnlyQuotaTX) error {
		var err error
		ret, err = d.projectQuotas(ctx, tx, resources, projectID, q)
		return err
	})
	return ret, err
}

func (d *DbDriver) projectQuotas(ctx context.Context, tx storage.ReadOnlyQuotaTX, resources Resources, projectID string, q QuotaQuery) (map[string]QuotaSet, error) {
	quotas, err := tx.GetQuotas(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("reading quotas of project %s: %w", projectID, err)
	}
	projectLimits := make(map[string]int64, len(quotas))
	for _, q := range quotas {
		projectLimits[q.Resource] = q.HardLimit
	}

	classLimits := map[string]int64{}
	if q.QuotaClass != "" {
		if classLimits, err = classQuotas(ctx, tx, q.QuotaClass); err != nil {
			return nil, err
		}
	}
	defaults, err := d.defaults(ctx, tx, resources)
	if err != nil {
		return nil, err
	}

	usages := map[string]storage.QuotaUsage{}
	if q.Usages {
		us, err := tx.GetUsages(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("reading usages of project %s: %w", projectID, err)
		}
		for _, u := range us {
			usages[u.Resource] = u
		}
	}

	ret := make(map[string]QuotaSet, len(resources))
	for name := range resources {
		limit, ok := projectLimits[name]
		if !ok {
			if !q.Defaults {
				continue
			}
			if limit, ok = classLimits[name]; !ok {
				limit = defaults[name]
			}
		}
		set := QuotaSet{Limit: limit}
		if u, ok := usages[name]; ok {
			set.InUse, set.Reserved = u.InUse, u.Reserved
		}
		ret[name] = set
	}
	return ret, nil
}

// limits returns the effective limits of the named resources.
func (d *DbDriver) limits(ctx context.Context, resources Resources, projectID, className string, names []string) (map[string]int64, error) {
	sets, err := d.GetProjectQuotas(ctx, resources, projectID, QuotaQuery{QuotaClass: className, Defaults: true})
	if err != nil {
		return nil, err
	}
	ret := make(map[string]int64, len(names))
	for _, n := range names {
		ret[n] = sets[n].Limit
	}
	return ret, nil
}

// LimitCheck implements Driver.
func (d *DbDriver) LimitCheck(ctx context.Context, resources Resources, projectID, className string, values map[string]int64) error {
	names := sortedKeys(values)
	quotas, err := d.limits(ctx, resources, projectID, className, names)
	if err != nil {
		return err
	}
	var overs []string
	for _, n := range names {
		if exceeds(quotas[n], 0, values[n]) {
			overs = append(overs, n)
		}
	}
	if len(overs) > 0 {
		Metrics.IncOverQuota(overs)
		return &OverQuotaError{Overs: overs, Quotas: quotas, Usages: map[string]UsageInfo{}, Deltas: values}
	}
	return nil
}

// SetProjectQuota implements Driver.
func (d *DbDriver) SetProjectQuota(ctx context.Context, projectID, resource string, limit int64) error {
	return storage.SetQuota(ctx, d.qs, storage.Quota{ProjectID: projectID, Resource: resource, HardLimit: limit})
}

// DeleteProjectQuota implements Driver.
func (d *DbDriver) DeleteProjectQuota(ctx context.Context, projectID, resource string) error {
	err := d.qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		return tx.DeleteQuota(ctx, projectID, resource)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return &ProjectQuotaNotFoundError{ProjectID: projectID, Resource: resource}
	}
	return err
}

// SetClassQuota implements Driver.
func (d *DbDriver) SetClassQuota(ctx context.Context, className, resource string, limit int64) error {
	return storage.SetClassQuota(ctx, d.qs, storage.ClassQuota{ClassName: className, Resource: resource, HardLimit: limit})
}

// DeleteClassQuota implements Driver.
func (d *DbDriver) DeleteClassQuota(ctx context.Context, className, resource string) error {
	err := d.qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		return tx.DeleteClassQuota(ctx, className, resource)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return &ClassNotFoundError{ClassName: className, Resource: resource}
	}
	return err
}

// DestroyAllByProject implements Driver.
func (d *DbDriver) DestroyAllByProject(ctx context.Context, projectID string) error {
	return d.qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		return tx.DestroyProject(ctx, projectID)
	})
}

func classQuotas(ctx context.Context, tx storage.ReadOnlyQuotaTX, className string) (map[string]int64, error) {
	quotas, err := tx.GetClassQuotas(ctx, className)
	if err != nil {
		return nil, fmt.Errorf("reading quota class %s: %w", className, err)
	}
	ret := make(map[string]int64, len(quotas))
	for _, q := range quotas {
		ret[q.Resource] = q.HardLimit
	}
	return ret, nil
}

func readClassQuotas(ctx context.Context, qs storage.QuotaStorage, className string) (map[string]int64, error) {
	var ret map[string]int64
	err := qs.ReadOnlyTransaction(ctx, func(ctx context.Context, tx storage.ReadOnlyQuotaTX) error {
		var err error
		ret, err = classQuotas(ctx, tx, className)
		return err
	})
	return ret, err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
