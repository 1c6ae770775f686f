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
)

// Unlimited is the limit value that disables enforcement.
const Unlimited = -1

// Kind tells how the consumption of a resource is tracked.
type Kind int

const (
	// Absolute resources have a limit but no tracked consumption.
	Absolute Kind = iota

	// Countable resources are measured on demand by a Counter.
	Countable

	// Reservable resources keep usage counters that are changed through
	// reservations and resynchronised by a Syncer.
	Reservable
)

func (k Kind) String() string {
	switch k {
	case Absolute:
		return "absolute"
	case Countable:
		return "countable"
	case Reservable:
		return "reservable"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Counter measures the current consumption of a countable resource.
type Counter interface {
	Count(ctx context.Context, projectID string) (int64, error)
}

// CounterFunc adapts a function to the Counter interface.
type CounterFunc func(ctx context.Context, projectID string) (int64, error)

// Count calls f.
func (f CounterFunc) Count(ctx context.Context, projectID string) (int64, error) {
	return f(ctx, projectID)
}

// Syncer recomputes the authoritative in-use value of one or more reservable
// resources from ground truth. The returned map is keyed by resource name.
type Syncer interface {
	Sync(ctx context.Context, projectID string) (map[string]int64, error)
}

// SyncerFunc adapts a function to the Syncer interface.
type SyncerFunc func(ctx context.Context, projectID string) (map[string]int64, error)

// Sync calls f.
func (f SyncerFunc) Sync(ctx context.Context, projectID string) (map[string]int64, error) {
	return f(ctx, projectID)
}

// Resource describes a quota-tracked dimension of consumption. Resources are
// values and must not be modified once registered.
type Resource struct {
	// Name uniquely identifies the resource.
	Name string
	// Kind selects how consumption is tracked.
	Kind Kind
	// Flag names the setting the default limit was read from, if any.
	Flag string
	// Default is the limit applied when no override exists.
	Default int64
	// Counter is set for Countable resources only.
	Counter Counter
	// Syncer is set for Reservable resources only.
	Syncer Syncer
}

// NewAbsoluteResource returns a resource that only carries a limit.
func NewAbsoluteResource(name, flag string, def int64) Resource {
	return Resource{Name: name, Kind: Absolute, Flag: flag, Default: def}
}

// NewCountableResource returns a resource measured by c.
func NewCountableResource(name, flag string, def int64, c Counter) Resource {
	return Resource{Name: name, Kind: Countable, Flag: flag, Default: def, Counter: c}
}

// NewReservableResource returns a resource tracked through reservations and
// resynchronised by s.
func NewReservableResource(name, flag string, def int64, s Syncer) Resource {
	return Resource{Name: name, Kind: Reservable, Flag: flag, Default: def, Syncer: s}
}

// Validate checks that the resource carries exactly the strategy its kind
// requires.
func (r Resource) Validate() error {
	if r.Name == "" {
		return errors.New("resource name is empty")
	}
	if r.Default < Unlimited {
		return fmt.Errorf("resource %q: default %d is below %d", r.Name, r.Default, Unlimited)
	}
	switch r.Kind {
	case Absolute:
		if r.Counter != nil || r.Syncer != nil {
			return fmt.Errorf("resource %q: absolute resources take no counter or syncer", r.Name)
		}
	case Countable:
		if r.Counter == nil || r.Syncer != nil {
			return fmt.Errorf("resource %q: countable resources need a counter and no syncer", r.Name)
		}
	case Reservable:
		if r.Syncer == nil || r.Counter != nil {
			return fmt.Errorf("resource %q: reservable resources need a syncer and no counter", r.Name)
		}
	default:
		return fmt.Errorf("resource %q: unknown kind %v", r.Name, r.Kind)
	}
	return nil
}

// Quota returns the effective limit of r: the project override if there is
// one, else the class override, else the default as reported by d. Empty
// identifiers skip the corresponding scope.
func (r Resource) Quota(ctx context.Context, d Driver, projectID, className string) (int64, error) {
	if projectID != "" {
		limit, err := d.GetByProject(ctx, projectID, r.Name)
		var nf *ProjectQuotaNotFoundError
		switch {
		case err == nil:
			return limit, nil
		case !errors.As(err, &nf):
			return 0, err
		}
	}
	if className != "" {
		limit, err := d.GetByClass(ctx, className, r.Name)
		var nf *ClassNotFoundError
		switch {
		case err == nil:
			return limit, nil
		case !errors.As(err, &nf):
			return 0, err
		}
	}
	return d.GetDefault(ctx, r)
}

// Standard block-storage resource names.
const (
	Volumes         = "volumes"
	Snapshots       = "snapshots"
	Gigabytes       = "gigabytes"
	Backups         = "backups"
	BackupGigabytes = "backup_gigabytes"
)

// standardResources maps each standard resource to the setting holding its
// default limit.
var standardResources = []struct {
	name, flag string
}{
	{Volumes, "quota_volumes"},
	{Snapshots, "quota_snapshots"},
	{Gigabytes, "quota_gigabytes"},
	{Backups, "quota_backups"},
	{BackupGigabytes, "quota_backup_gigabytes"},
}

// DefaultResources builds the standard reservable block-storage resources,
// taking default limits from cfg and resynchronisation strategies from
// syncers, which must cover every standard resource.
func DefaultResources(cfg Config, syncers map[string]Syncer) ([]Resource, error) {
	ret := make([]Resource, 0, len(standardResources))
	for _, sr := range standardResources {
		s, ok := syncers[sr.name]
		if !ok || s == nil {
			return nil, fmt.Errorf("no syncer for resource %q", sr.name)
		}
		def, ok := cfg.Defaults[sr.flag]
		if !ok {
			def = Unlimited
		}
		ret = append(ret, NewReservableResource(sr.name, sr.flag, def, s))
	}
	return ret, nil
}
