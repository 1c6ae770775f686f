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
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volquota/volquota/storage"
	"k8s.io/klog/v2"
)

// Reserve implements Driver.
//
// Everything happens in one read-write transaction: the usage rows of the
// project are locked, stale ones are resynchronised, the deltas are checked
// against the limits and, if none is exceeded, reservations are recorded and
// the reserved counters raised. An *OverQuotaError rolls the whole
// transaction back, resynchronisations included.
func (d *DbDriver) Reserve(ctx context.Context, resources Resources, projectID, className string, deltas map[string]int64, expire time.Time) ([]string, error) {
	names := sortedKeys(deltas)
	quotas, err := d.limits(ctx, resources, projectID, className, names)
	if err != nil {
		return nil, err
	}

	var (
		ids       []string
		unders    []string
		refreshed []string
	)
	err = d.qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		ids, unders, refreshed = nil, nil, nil
		now := d.ts.Now()

		u, err := d.lockUsages(ctx, tx, resources, projectID, now)
		if err != nil {
			return err
		}
		if refreshed, err = u.refresh(ctx, names); err != nil {
			return err
		}

		var overs []string
		for _, n := range names {
			usage, delta := u.rows[n], deltas[n]
			if delta < 0 && delta+usage.InUse < 0 {
				unders = append(unders, n)
			}
			if exceeds(quotas[n], usage.Total(), delta) {
				overs = append(overs, n)
			}
		}
		if len(overs) > 0 {
			usages := make(map[string]UsageInfo, len(u.rows))
			for n, row := range u.rows {
				usages[n] = UsageInfo{InUse: row.InUse, Reserved: row.Reserved}
			}
			return &OverQuotaError{Overs: overs, Quotas: quotas, Usages: usages, Deltas: deltas}
		}

		rs := make([]storage.Reservation, 0, len(names))
		for _, n := range names {
			r := storage.Reservation{
				UUID:      uuid.NewString(),
				ProjectID: projectID,
				Resource:  n,
				Delta:     deltas[n],
				Expire:    expire,
				CreatedAt: now,
			}
			rs = append(rs, r)
			ids = append(ids, r.UUID)
			if r.Delta > 0 {
				u.rows[n].Reserved += r.Delta
				u.dirty[n] = true
			}
		}
		if err := tx.CreateReservations(ctx, rs); err != nil {
			return fmt.Errorf("creating reservations: %w", err)
		}
		return u.flush(ctx)
	})

	if len(unders) > 0 {
		klog.Warningf("Change will make usage less than 0 for the following resources: %v", unders)
	}
	var oq *OverQuotaError
	if errors.As(err, &oq) {
		Metrics.IncOverQuota(oq.Overs)
	}
	Metrics.IncReserved(deltas, err == nil)
	if err != nil {
		return nil, err
	}
	for _, r := range refreshed {
		Metrics.IncRefreshed(r)
	}
	klog.V(2).Infof("Reserved %v for project %s: %v", deltas, projectID, ids)
	return ids, nil
}

// exceeds reports whether adding delta to a usage of total breaks limit. A
// negative total counts as zero. Unlimited resources only refuse deltas that
// would overflow the counters.
func exceeds(limit, total, delta int64) bool {
	if delta <= 0 {
		return false
	}
	if total < 0 {
		total = 0
	}
	if limit < 0 {
		return delta > math.MaxInt64-total
	}
	return total > limit || delta > limit-total
}

// usageSet holds the locked usage rows of a project during a transaction.
type usageSet struct {
	d         *DbDriver
	tx        storage.QuotaTX
	resources Resources
	projectID string
	now       time.Time

	rows    map[string]*storage.QuotaUsage
	created map[string]bool
	dirty   map[string]bool
}

// lockUsages locks the usage rows of every reservable resource of the
// project, in name order.
func (d *DbDriver) lockUsages(ctx context.Context, tx storage.QuotaTX, resources Resources, projectID string, now time.Time) (*usageSet, error) {
	rows, err := tx.GetUsagesForUpdate(ctx, projectID, resources.Names())
	if err != nil {
		return nil, fmt.Errorf("locking usages of project %s: %w", projectID, err)
	}
	return &usageSet{
		d:         d,
		tx:        tx,
		resources: resources,
		projectID: projectID,
		now:       now,
		rows:      rows,
		created:   make(map[string]bool),
		dirty:     make(map[string]bool),
	}, nil
}

// get returns the usage row of name, creating it empty if needed.
func (u *usageSet) get(ctx context.Context, name string) (*storage.QuotaUsage, error) {
	if row, ok := u.rows[name]; ok {
		return row, nil
	}
	row := &storage.QuotaUsage{
		ProjectID:    u.projectID,
		Resource:     name,
		UntilRefresh: u.d.cfg.untilRefreshValue(),
		CreatedAt:    u.now,
		UpdatedAt:    u.now,
	}
	switch err := u.tx.CreateUsage(ctx, row); {
	case err == nil:
	case errors.Is(err, storage.ErrAlreadyExists):
		// Lost a race with another transaction creating the same row.
		got, err := u.tx.GetUsagesForUpdate(ctx, u.projectID, []string{name})
		if err != nil {
			return nil, fmt.Errorf("locking usage %s of project %s: %w", name, u.projectID, err)
		}
		if row = got[name]; row == nil {
			return nil, fmt.Errorf("usage %s of project %s vanished after concurrent create", name, u.projectID)
		}
	default:
		return nil, fmt.Errorf("creating usage %s of project %s: %w", name, u.projectID, err)
	}
	u.rows[name] = row
	u.created[name] = true
	return row, nil
}

// refresh resynchronises the usage of stale resources among names and
// returns the resources that were refreshed.
func (u *usageSet) refresh(ctx context.Context, names []string) ([]string, error) {
	cfg := u.d.cfg
	work := make(map[string]bool, len(names))
	for _, n := range names {
		work[n] = true
	}
	var refreshed []string
	for _, name := range names {
		if !work[name] {
			continue
		}
		delete(work, name)

		row, err := u.get(ctx, name)
		if err != nil {
			return nil, err
		}
		stale := false
		switch {
		case u.created[name]:
			stale = true
		case row.InUse < 0:
			stale = true
		case row.UntilRefresh != nil:
			*row.UntilRefresh--
			u.dirty[name] = true
			stale = *row.UntilRefresh <= 0
		case cfg.MaxAge > 0 && u.now.Sub(row.UpdatedAt) >= cfg.MaxAge:
			stale = true
		}
		if !stale {
			continue
		}

		updates, err := u.resources[name].Syncer.Sync(ctx, u.projectID)
		if err != nil {
			return nil, fmt.Errorf("syncing usage %s of project %s: %w", name, u.projectID, err)
		}
		for _, res := range sortedKeys(updates) {
			if _, ok := u.resources[res]; !ok {
				klog.Warningf("Sync of %s for project %s returned unknown resource %s, ignoring", name, u.projectID, res)
				continue
			}
			if updates[res] < 0 {
				return nil, fmt.Errorf("sync of %s for project %s returned negative usage %d for %s", name, u.projectID, updates[res], res)
			}
			r, err := u.get(ctx, res)
			if err != nil {
				return nil, err
			}
			r.InUse = updates[res]
			r.UntilRefresh = cfg.untilRefreshValue()
			u.dirty[res] = true
			delete(work, res)
			refreshed = append(refreshed, res)
			klog.V(1).Infof("Refreshed usage %s of project %s: in_use=%d", res, u.projectID, r.InUse)
		}
		if row.InUse < 0 {
			return nil, &UsageSyncError{ProjectID: u.projectID, Resource: name}
		}
	}
	return refreshed, nil
}

// flush writes back every modified usage row.
func (u *usageSet) flush(ctx context.Context) error {
	names := make([]string, 0, len(u.dirty))
	for n := range u.dirty {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		row := u.rows[n]
		row.UpdatedAt = u.now
		if err := u.tx.UpdateUsage(ctx, row); err != nil {
			return fmt.Errorf("updating usage %s of project %s: %w", n, u.projectID, err)
		}
	}
	return nil
}

// Commit implements Driver.
func (d *DbDriver) Commit(ctx context.Context, projectID string, reservations []string) error {
	return d.resolve(ctx, projectID, reservations, true)
}

// Rollback implements Driver.
func (d *DbDriver) Rollback(ctx context.Context, projectID string, reservations []string) error {
	return d.resolve(ctx, projectID, reservations, false)
}

func (d *DbDriver) resolve(ctx context.Context, projectID string, reservations []string, commit bool) error {
	ids := dedupe(reservations)
	if len(ids) == 0 {
		return nil
	}
	var resolved []storage.Reservation
	err := d.qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		rs, err := tx.GetReservationsForUpdate(ctx, projectID, ids)
		if err != nil {
			return fmt.Errorf("locking reservations: %w", err)
		}
		if len(rs) != len(ids) {
			return &ReservationNotFoundError{IDs: missing(ids, rs)}
		}
		resolved = rs
		return d.apply(ctx, tx, projectID, rs, commit)
	})

	record := Metrics.IncRolledBack
	verb := "Rolled back"
	if commit {
		record, verb = Metrics.IncCommitted, "Committed"
	}
	if err != nil {
		record("", false)
		return err
	}
	for _, r := range resolved {
		record(r.Resource, true)
	}
	klog.V(2).Infof("%s reservations %v of project %s", verb, ids, projectID)
	return nil
}

// apply releases the reserved amounts of rs, adds their deltas to the in-use
// counters when commit is set, and deletes them.
func (d *DbDriver) apply(ctx context.Context, tx storage.QuotaTX, projectID string, rs []storage.Reservation, commit bool) error {
	names := make(map[string]bool)
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		names[r.Resource] = true
		ids = append(ids, r.UUID)
	}
	usages, err := tx.GetUsagesForUpdate(ctx, projectID, sortedKeys(names))
	if err != nil {
		return fmt.Errorf("locking usages of project %s: %w", projectID, err)
	}
	for _, r := range rs {
		u := usages[r.Resource]
		if u == nil {
			klog.Warningf("No usage %s for reservation %s of project %s", r.Resource, r.UUID, projectID)
			continue
		}
		if r.Delta >= 0 {
			u.Reserved -= r.Delta
		}
		if commit {
			u.InUse += r.Delta
		}
	}
	now := d.ts.Now()
	for _, n := range sortedKeys(usages) {
		u := usages[n]
		u.UpdatedAt = now
		if err := tx.UpdateUsage(ctx, u); err != nil {
			return fmt.Errorf("updating usage %s of project %s: %w", n, projectID, err)
		}
	}
	if err := tx.DeleteReservations(ctx, projectID, ids); err != nil {
		return fmt.Errorf("deleting reservations: %w", err)
	}
	return nil
}

// Expire implements Driver. Expired reservations are rolled back one project
// at a time; a failure for one project does not stop the others.
func (d *DbDriver) Expire(ctx context.Context) (int, error) {
	now := d.ts.Now()
	expired, err := storage.ListExpiredReservations(ctx, d.qs, now)
	if err != nil {
		return 0, fmt.Errorf("listing expired reservations: %w", err)
	}
	byProject := make(map[string][]string)
	for _, r := range expired {
		byProject[r.ProjectID] = append(byProject[r.ProjectID], r.UUID)
	}

	count := 0
	var errs []error
	for _, projectID := range sortedKeys(byProject) {
		var collected []storage.Reservation
		err := d.qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
			collected = nil
			// Some may have been resolved since they were listed.
			rs, err := tx.GetReservationsForUpdate(ctx, projectID, byProject[projectID])
			if err != nil || len(rs) == 0 {
				return err
			}
			collected = rs
			return d.apply(ctx, tx, projectID, rs, false)
		})
		if err != nil {
			klog.Warningf("Failed to expire reservations of project %s: %v", projectID, err)
			errs = append(errs, fmt.Errorf("expiring reservations of project %s: %w", projectID, err))
			continue
		}
		for _, r := range collected {
			Metrics.IncExpired(r.Resource)
		}
		count += len(collected)
	}
	if count > 0 {
		klog.Infof("Expired %d reservations", count)
	}
	return count, errors.Join(errs...)
}

// UsageReset implements Driver.
func (d *DbDriver) UsageReset(ctx context.Context, projectID string, resources []string) error {
	names := dedupe(resources)
	return d.qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		usages, err := tx.GetUsagesForUpdate(ctx, projectID, names)
		if err != nil {
			return fmt.Errorf("locking usages of project %s: %w", projectID, err)
		}
		now := d.ts.Now()
		for _, n := range sortedKeys(usages) {
			u := usages[n]
			u.InUse = -1
			u.UpdatedAt = now
			if err := tx.UpdateUsage(ctx, u); err != nil {
				return fmt.Errorf("resetting usage %s of project %s: %w", n, projectID, err)
			}
		}
		return nil
	})
}

// dedupe returns the distinct values of s, sorted.
func dedupe(s []string) []string {
	seen := make(map[string]bool, len(s))
	for _, v := range s {
		seen[v] = true
	}
	return sortedKeys(seen)
}

// missing returns the ids that have no match in rs.
func missing(ids []string, rs []storage.Reservation) []string {
	found := make(map[string]bool, len(rs))
	for _, r := range rs {
		found[r.UUID] = true
	}
	var ret []string
	for _, id := range ids {
		if !found[id] {
			ret = append(ret, id)
		}
	}
	return ret
}
