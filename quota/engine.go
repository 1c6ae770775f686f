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
	"sort"
	"time"

	"github.com/volquota/volquota/util/clock"
	"k8s.io/klog/v2"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	// ReservationExpire is the lifetime of reservations made with the
	// default Expiration.
	ReservationExpire time.Duration
	// TimeSource defaults to the system clock.
	TimeSource clock.TimeSource
}

// Engine is the public entry point of the quota subsystem. It combines a
// resource Registry with a Driver.
type Engine struct {
	reg    *Registry
	driver Driver
	opts   EngineOptions
}

// NewEngine returns an Engine enforcing the resources of reg through driver.
func NewEngine(reg *Registry, driver Driver, opts EngineOptions) *Engine {
	if opts.TimeSource == nil {
		opts.TimeSource = clock.System
	}
	return &Engine{reg: reg, driver: driver, opts: opts}
}

// Registry returns the registry the engine was built with.
func (e *Engine) Registry() *Registry {
	return e.reg
}

// GetByProject returns the raw project override of resource, or a
// *ProjectQuotaNotFoundError if there is none.
func (e *Engine) GetByProject(ctx context.Context, projectID, resource string) (int64, error) {
	return e.driver.GetByProject(ctx, projectID, resource)
}

// GetByClass returns the raw class override of resource, or a
// *ClassNotFoundError if there is none.
func (e *Engine) GetByClass(ctx context.Context, className, resource string) (int64, error) {
	return e.driver.GetByClass(ctx, className, resource)
}

// GetDefaults returns the default limit of every resource.
func (e *Engine) GetDefaults(ctx context.Context) (map[string]int64, error) {
	return e.driver.GetDefaults(ctx, e.reg.snapshot())
}

// GetClassQuotas returns the limits of className. Unless defaults is set,
// resources the class does not override are omitted.
func (e *Engine) GetClassQuotas(ctx context.Context, className string, defaults bool) (map[string]int64, error) {
	return e.driver.GetClassQuotas(ctx, e.reg.snapshot(), className, defaults)
}

// GetProjectQuotas returns the limits, and optionally usage, of projectID.
func (e *Engine) GetProjectQuotas(ctx context.Context, projectID string, q QuotaQuery) (map[string]QuotaSet, error) {
	return e.driver.GetProjectQuotas(ctx, e.reg.snapshot(), projectID, q)
}

// Count measures the current consumption of a countable resource.
func (e *Engine) Count(ctx context.Context, resource, projectID string) (int64, error) {
	res, ok := e.reg.Get(resource)
	if !ok || res.Kind != Countable {
		return 0, &ResourceUnknownError{Unknown: []string{resource}}
	}
	return res.Counter.Count(ctx, projectID)
}

// ReserveOption modifies a Reserve or LimitCheck call.
type ReserveOption func(*reserveOptions)

type reserveOptions struct {
	expire    Expiration
	className string
}

// WithExpiration sets when the reservations expire.
func WithExpiration(exp Expiration) ReserveOption {
	return func(o *reserveOptions) { o.expire = exp }
}

// WithQuotaClass resolves limits through the named quota class.
func WithQuotaClass(className string) ReserveOption {
	return func(o *reserveOptions) { o.className = className }
}

// unknownNames returns the sorted names in keys that are not in rs.
func unknownNames(rs Resources, keys []string) []string {
	var ret []string
	for _, k := range keys {
		if _, ok := rs[k]; !ok {
			ret = append(ret, k)
		}
	}
	sort.Strings(ret)
	return ret
}

// LimitCheck checks that the absolute values would not exceed the limits of
// non-reservable resources, without reserving anything.
func (e *Engine) LimitCheck(ctx context.Context, projectID string, values map[string]int64, opts ...ReserveOption) error {
	var o reserveOptions
	for _, opt := range opts {
		opt(&o)
	}
	keys := sortedKeys(values)
	var unders []string
	for _, k := range keys {
		if values[k] < 0 {
			unders = append(unders, k)
		}
	}
	if len(unders) > 0 {
		return &InvalidValueError{Unders: unders}
	}

	rs := make(Resources)
	for n, r := range e.reg.snapshot() {
		if r.Kind != Reservable {
			rs[n] = r
		}
	}
	if unknown := unknownNames(rs, keys); len(unknown) > 0 {
		return &ResourceUnknownError{Unknown: unknown}
	}
	return e.driver.LimitCheck(ctx, rs, projectID, o.className, values)
}

// Reserve atomically reserves deltas of reservable resources for projectID
// and returns the reservation identifiers. Either every delta is reserved or
// none is; an *OverQuotaError tells which resources would exceed their
// limits. Negative deltas never exceed a limit.
func (e *Engine) Reserve(ctx context.Context, projectID string, deltas map[string]int64, opts ...ReserveOption) ([]string, error) {
	var o reserveOptions
	for _, opt := range opts {
		opt(&o)
	}
	expire, err := o.expire.Resolve(e.opts.TimeSource.Now(), e.opts.ReservationExpire)
	if err != nil {
		return nil, err
	}
	rs := e.reg.snapshot().OfKind(Reservable)
	if unknown := unknownNames(rs, sortedKeys(deltas)); len(unknown) > 0 {
		return nil, &ResourceUnknownError{Unknown: unknown}
	}
	if len(deltas) == 0 {
		return []string{}, nil
	}
	ids, err := e.driver.Reserve(ctx, rs, projectID, o.className, deltas, expire)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Created reservations %v", ids)
	return ids, nil
}

// Commit applies previously created reservations. Unknown or already
// resolved reservations fail the whole call with a
// *ReservationNotFoundError.
func (e *Engine) Commit(ctx context.Context, projectID string, reservations []string) error {
	if err := e.driver.Commit(ctx, projectID, reservations); err != nil {
		return err
	}
	klog.V(1).Infof("Committed reservations %v", reservations)
	return nil
}

// Rollback releases previously created reservations. Unknown or already
// resolved reservations fail the whole call with a
// *ReservationNotFoundError.
func (e *Engine) Rollback(ctx context.Context, projectID string, reservations []string) error {
	if err := e.driver.Rollback(ctx, projectID, reservations); err != nil {
		return err
	}
	klog.V(1).Infof("Rolled back reservations %v", reservations)
	return nil
}

// UsageReset forces the next reservation of the given resources, or of all
// reservable resources if none are given, to resynchronise usage.
func (e *Engine) UsageReset(ctx context.Context, projectID string, resources []string) error {
	rs := e.reg.snapshot().OfKind(Reservable)
	if unknown := unknownNames(rs, resources); len(unknown) > 0 {
		return &ResourceUnknownError{Unknown: unknown}
	}
	if len(resources) == 0 {
		resources = rs.Names()
	}
	return e.driver.UsageReset(ctx, projectID, resources)
}

// DestroyAllByProject removes every override, usage and reservation of
// projectID.
func (e *Engine) DestroyAllByProject(ctx context.Context, projectID string) error {
	return e.driver.DestroyAllByProject(ctx, projectID)
}

// Expire rolls back every reservation whose expiration has passed and
// returns how many were collected.
func (e *Engine) Expire(ctx context.Context) (int, error) {
	return e.driver.Expire(ctx)
}

func (e *Engine) checkLimit(resource string, limit int64) error {
	if _, ok := e.reg.Get(resource); !ok {
		return &ResourceUnknownError{Unknown: []string{resource}}
	}
	if limit < Unlimited {
		return &InvalidValueError{Unders: []string{resource}}
	}
	return nil
}

// SetProjectQuota overrides the limit of resource for projectID.
func (e *Engine) SetProjectQuota(ctx context.Context, projectID, resource string, limit int64) error {
	if err := e.checkLimit(resource, limit); err != nil {
		return err
	}
	return e.driver.SetProjectQuota(ctx, projectID, resource, limit)
}

// DeleteProjectQuota removes the override of resource for projectID.
func (e *Engine) DeleteProjectQuota(ctx context.Context, projectID, resource string) error {
	return e.driver.DeleteProjectQuota(ctx, projectID, resource)
}

// SetClassQuota overrides the limit of resource for className.
func (e *Engine) SetClassQuota(ctx context.Context, className, resource string, limit int64) error {
	if err := e.checkLimit(resource, limit); err != nil {
		return err
	}
	return e.driver.SetClassQuota(ctx, className, resource, limit)
}

// DeleteClassQuota removes the override of resource for className.
func (e *Engine) DeleteClassQuota(ctx context.Context, className, resource string) error {
	return e.driver.DeleteClassQuota(ctx, className, resource)
}
