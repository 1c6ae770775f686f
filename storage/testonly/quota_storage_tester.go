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

package testonly

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/volquota/volquota/storage"
)

// BaseTime is a millisecond-aligned timestamp that survives every backend's
// time representation unchanged.
var BaseTime = time.Date(2026, 3, 4, 5, 6, 7, 8*int(time.Millisecond), time.UTC)

var sortQuotas = cmpopts.SortSlices(func(a, b storage.Quota) bool { return a.Resource < b.Resource })
var sortUsages = cmpopts.SortSlices(func(a, b storage.QuotaUsage) bool { return a.Resource < b.Resource })
var sortReservations = cmpopts.SortSlices(func(a, b storage.Reservation) bool { return a.UUID < b.UUID })

// QuotaStorageTester runs a suite of tests against QuotaStorage
// implementations.
type QuotaStorageTester struct {
	// NewQuotaStorage returns a QuotaStorage pointing to an empty database.
	NewQuotaStorage func(t *testing.T) storage.QuotaStorage
}

// RunAllTests runs all QuotaStorage tests.
func (tester *QuotaStorageTester) RunAllTests(t *testing.T) {
	t.Run("TestQuotaOverrides", tester.TestQuotaOverrides)
	t.Run("TestClassQuotaOverrides", tester.TestClassQuotaOverrides)
	t.Run("TestUsageLifecycle", tester.TestUsageLifecycle)
	t.Run("TestReservations", tester.TestReservations)
	t.Run("TestListExpiredReservations", tester.TestListExpiredReservations)
	t.Run("TestRollbackOnError", tester.TestRollbackOnError)
	t.Run("TestDestroyProject", tester.TestDestroyProject)
	t.Run("TestConcurrentIncrements", tester.TestConcurrentIncrements)
	t.Run("TestCheckDatabaseAccessible", tester.TestCheckDatabaseAccessible)
}

func runTX(ctx context.Context, t *testing.T, qs storage.QuotaStorage, f storage.QuotaTXFunc) {
	t.Helper()
	if err := qs.ReadWriteTransaction(ctx, f); err != nil {
		t.Fatalf("ReadWriteTransaction(): %v", err)
	}
}

// TestQuotaOverrides exercises project-level overrides.
func (tester *QuotaStorageTester) TestQuotaOverrides(t *testing.T) {
	ctx := context.Background()
	qs := tester.NewQuotaStorage(t)

	for _, q := range []storage.Quota{
		{ProjectID: "p1", Resource: "volumes", HardLimit: 5},
		{ProjectID: "p1", Resource: "gigabytes", HardLimit: 100},
		{ProjectID: "p1", Resource: "volumes", HardLimit: 7},
		{ProjectID: "p2", Resource: "volumes", HardLimit: -1},
	} {
		if err := storage.SetQuota(ctx, qs, q); err != nil {
			t.Fatalf("SetQuota(%+v): %v", q, err)
		}
	}

	got, err := storage.GetQuotas(ctx, qs, "p1")
	if err != nil {
		t.Fatalf("GetQuotas(): %v", err)
	}
	want := []storage.Quota{
		{ProjectID: "p1", Resource: "gigabytes", HardLimit: 100},
		{ProjectID: "p1", Resource: "volumes", HardLimit: 7},
	}
	if diff := cmp.Diff(want, got, sortQuotas); diff != "" {
		t.Errorf("GetQuotas() diff (-want +got):\n%s", diff)
	}

	runTX(ctx, t, qs, func(ctx context.Context, tx storage.QuotaTX) error {
		return tx.DeleteQuota(ctx, "p1", "volumes")
	})
	err = qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		return tx.DeleteQuota(ctx, "p1", "volumes")
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteQuota()=%v, want %v", err, storage.ErrNotFound)
	}

	got, err = storage.GetQuotas(ctx, qs, "p1")
	if err != nil {
		t.Fatalf("GetQuotas(): %v", err)
	}
	want = []storage.Quota{{ProjectID: "p1", Resource: "gigabytes", HardLimit: 100}}
	if diff := cmp.Diff(want, got, sortQuotas); diff != "" {
		t.Errorf("GetQuotas() after delete diff (-want +got):\n%s", diff)
	}
	if got, err := storage.GetQuotas(ctx, qs, "p3"); err != nil || len(got) != 0 {
		t.Errorf("GetQuotas(p3)=%v, %v, want empty", got, err)
	}
}

// TestClassQuotaOverrides exercises class-level overrides.
func (tester *QuotaStorageTester) TestClassQuotaOverrides(t *testing.T) {
	ctx := context.Background()
	qs := tester.NewQuotaStorage(t)

	for _, q := range []storage.ClassQuota{
		{ClassName: "default", Resource: "volumes", HardLimit: 20},
		{ClassName: "gold", Resource: "volumes", HardLimit: 50},
		{ClassName: "gold", Resource: "volumes", HardLimit: 60},
	} {
		if err := storage.SetClassQuota(ctx, qs, q); err != nil {
			t.Fatalf("SetClassQuota(%+v): %v", q, err)
		}
	}
	got, err := storage.GetClassQuotas(ctx, qs, "gold")
	if err != nil {
		t.Fatalf("GetClassQuotas(): %v", err)
	}
	if diff := cmp.Diff([]storage.ClassQuota{{ClassName: "gold", Resource: "volumes", HardLimit: 60}}, got); diff != "" {
		t.Errorf("GetClassQuotas() diff (-want +got):\n%s", diff)
	}

	runTX(ctx, t, qs, func(ctx context.Context, tx storage.QuotaTX) error {
		return tx.DeleteClassQuota(ctx, "gold", "volumes")
	})
	err = qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		return tx.DeleteClassQuota(ctx, "gold", "volumes")
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteClassQuota()=%v, want %v", err, storage.ErrNotFound)
	}
	if got, err := storage.GetClassQuotas(ctx, qs, "default"); err != nil || len(got) != 1 {
		t.Errorf("GetClassQuotas(default)=%v, %v, want one row", got, err)
	}
}

// TestUsageLifecycle exercises usage creation, locking reads and updates.
func (tester *QuotaStorageTester) TestUsageLifecycle(t *testing.T) {
	ctx := context.Background()
	qs := tester.NewQuotaStorage(t)

	refresh := int64(3)
	vols := &storage.QuotaUsage{ProjectID: "p1", Resource: "volumes", UntilRefresh: &refresh, CreatedAt: BaseTime, UpdatedAt: BaseTime}
	gigs := &storage.QuotaUsage{ProjectID: "p1", Resource: "gigabytes", InUse: 10, CreatedAt: BaseTime, UpdatedAt: BaseTime}

	runTX(ctx, t, qs, func(ctx context.Context, tx storage.QuotaTX) error {
		got, err := tx.GetUsagesForUpdate(ctx, "p1", []string{"volumes", "gigabytes"})
		if err != nil {
			return err
		}
		if len(got) != 0 {
			t.Errorf("GetUsagesForUpdate() on empty project returned %v", got)
		}
		if err := tx.CreateUsage(ctx, vols); err != nil {
			return err
		}
		return tx.CreateUsage(ctx, gigs)
	})

	err := qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		if err := tx.CreateUsage(ctx, vols); !errors.Is(err, storage.ErrAlreadyExists) {
			t.Errorf("duplicate CreateUsage()=%v, want %v", err, storage.ErrAlreadyExists)
		}
		// The transaction must remain usable after a duplicate insert.
		got, err := tx.GetUsagesForUpdate(ctx, "p1", []string{"volumes"})
		if err != nil {
			return err
		}
		u := got["volumes"]
		if u == nil {
			t.Fatalf("GetUsagesForUpdate() missing volumes: %v", got)
		}
		if diff := cmp.Diff(vols, u); diff != "" {
			t.Errorf("GetUsagesForUpdate() diff (-want +got):\n%s", diff)
		}
		u.InUse, u.Reserved, u.UntilRefresh = 2, 1, nil
		u.UpdatedAt = BaseTime.Add(time.Minute)
		return tx.UpdateUsage(ctx, u)
	})
	if err != nil {
		t.Fatalf("ReadWriteTransaction(): %v", err)
	}

	got, err := storage.GetUsages(ctx, qs, "p1")
	if err != nil {
		t.Fatalf("GetUsages(): %v", err)
	}
	want := []storage.QuotaUsage{
		{ProjectID: "p1", Resource: "gigabytes", InUse: 10, CreatedAt: BaseTime, UpdatedAt: BaseTime},
		{ProjectID: "p1", Resource: "volumes", InUse: 2, Reserved: 1, CreatedAt: BaseTime, UpdatedAt: BaseTime.Add(time.Minute)},
	}
	if diff := cmp.Diff(want, got, sortUsages); diff != "" {
		t.Errorf("GetUsages() diff (-want +got):\n%s", diff)
	}
}

func testReservations(project string, n int, expire time.Time) []storage.Reservation {
	rs := make([]storage.Reservation, 0, n)
	for i := 0; i < n; i++ {
		rs = append(rs, storage.Reservation{
			UUID:      project + "-" + string(rune('a'+i)),
			ProjectID: project,
			Resource:  "volumes",
			Delta:     int64(i - 1),
			Expire:    expire,
			CreatedAt: BaseTime,
		})
	}
	return rs
}

// TestReservations exercises reservation creation, locking reads and deletion.
func (tester *QuotaStorageTester) TestReservations(t *testing.T) {
	ctx := context.Background()
	qs := tester.NewQuotaStorage(t)

	p1 := testReservations("p1", 3, BaseTime.Add(time.Hour))
	p2 := testReservations("p2", 1, BaseTime.Add(time.Hour))
	runTX(ctx, t, qs, func(ctx context.Context, tx storage.QuotaTX) error {
		if err := tx.CreateReservations(ctx, p1); err != nil {
			return err
		}
		return tx.CreateReservations(ctx, p2)
	})

	runTX(ctx, t, qs, func(ctx context.Context, tx storage.QuotaTX) error {
		got, err := tx.GetReservationsForUpdate(ctx, "p1", []string{p1[0].UUID, p1[2].UUID, p2[0].UUID, "unknown"})
		if err != nil {
			return err
		}
		want := []storage.Reservation{p1[0], p1[2]}
		if diff := cmp.Diff(want, got, sortReservations); diff != "" {
			t.Errorf("GetReservationsForUpdate() diff (-want +got):\n%s", diff)
		}
		return tx.DeleteReservations(ctx, "p1", []string{p1[0].UUID, p1[2].UUID})
	})

	runTX(ctx, t, qs, func(ctx context.Context, tx storage.QuotaTX) error {
		got, err := tx.GetReservationsForUpdate(ctx, "p1", []string{p1[0].UUID, p1[1].UUID, p1[2].UUID})
		if err != nil {
			return err
		}
		if diff := cmp.Diff([]storage.Reservation{p1[1]}, got); diff != "" {
			t.Errorf("GetReservationsForUpdate() after delete diff (-want +got):\n%s", diff)
		}
		got, err = tx.GetReservationsForUpdate(ctx, "p2", []string{p2[0].UUID})
		if err != nil {
			return err
		}
		if diff := cmp.Diff(p2, got); diff != "" {
			t.Errorf("GetReservationsForUpdate(p2) diff (-want +got):\n%s", diff)
		}
		return nil
	})
}

// TestListExpiredReservations checks the expiry boundary across projects.
func (tester *QuotaStorageTester) TestListExpiredReservations(t *testing.T) {
	ctx := context.Background()
	qs := tester.NewQuotaStorage(t)

	past := testReservations("p1", 2, BaseTime.Add(-time.Second))
	exact := testReservations("p2", 1, BaseTime)
	future := testReservations("p3", 1, BaseTime.Add(time.Second))
	runTX(ctx, t, qs, func(ctx context.Context, tx storage.QuotaTX) error {
		for _, rs := range [][]storage.Reservation{past, exact, future} {
			if err := tx.CreateReservations(ctx, rs); err != nil {
				return err
			}
		}
		return nil
	})

	got, err := storage.ListExpiredReservations(ctx, qs, BaseTime)
	if err != nil {
		t.Fatalf("ListExpiredReservations(): %v", err)
	}
	want := append(append([]storage.Reservation{}, past...), exact...)
	if diff := cmp.Diff(want, got, sortReservations); diff != "" {
		t.Errorf("ListExpiredReservations() diff (-want +got):\n%s", diff)
	}
}

// TestRollbackOnError checks that a failing transaction leaves no trace.
func (tester *QuotaStorageTester) TestRollbackOnError(t *testing.T) {
	ctx := context.Background()
	qs := tester.NewQuotaStorage(t)
	errBoom := errors.New("boom")

	err := qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
		if err := tx.SetQuota(ctx, storage.Quota{ProjectID: "p1", Resource: "volumes", HardLimit: 1}); err != nil {
			return err
		}
		if err := tx.CreateUsage(ctx, &storage.QuotaUsage{ProjectID: "p1", Resource: "volumes", CreatedAt: BaseTime, UpdatedAt: BaseTime}); err != nil {
			return err
		}
		if err := tx.CreateReservations(ctx, testReservations("p1", 1, BaseTime)); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("ReadWriteTransaction()=%v, want %v", err, errBoom)
	}

	if got, err := storage.GetQuotas(ctx, qs, "p1"); err != nil || len(got) != 0 {
		t.Errorf("GetQuotas()=%v, %v, want empty", got, err)
	}
	if got, err := storage.GetUsages(ctx, qs, "p1"); err != nil || len(got) != 0 {
		t.Errorf("GetUsages()=%v, %v, want empty", got, err)
	}
	if got, err := storage.ListExpiredReservations(ctx, qs, BaseTime.Add(time.Hour)); err != nil || len(got) != 0 {
		t.Errorf("ListExpiredReservations()=%v, %v, want empty", got, err)
	}
}

// TestDestroyProject checks that only the named project is wiped.
func (tester *QuotaStorageTester) TestDestroyProject(t *testing.T) {
	ctx := context.Background()
	qs := tester.NewQuotaStorage(t)

	for _, p := range []string{"p1", "p2"} {
		p := p
		runTX(ctx, t, qs, func(ctx context.Context, tx storage.QuotaTX) error {
			if err := tx.SetQuota(ctx, storage.Quota{ProjectID: p, Resource: "volumes", HardLimit: 3}); err != nil {
				return err
			}
			if err := tx.CreateUsage(ctx, &storage.QuotaUsage{ProjectID: p, Resource: "volumes", InUse: 1, CreatedAt: BaseTime, UpdatedAt: BaseTime}); err != nil {
				return err
			}
			return tx.CreateReservations(ctx, testReservations(p, 2, BaseTime))
		})
	}
	runTX(ctx, t, qs, func(ctx context.Context, tx storage.QuotaTX) error {
		return tx.DestroyProject(ctx, "p1")
	})

	if got, err := storage.GetQuotas(ctx, qs, "p1"); err != nil || len(got) != 0 {
		t.Errorf("GetQuotas(p1)=%v, %v, want empty", got, err)
	}
	if got, err := storage.GetUsages(ctx, qs, "p1"); err != nil || len(got) != 0 {
		t.Errorf("GetUsages(p1)=%v, %v, want empty", got, err)
	}
	if got, err := storage.GetQuotas(ctx, qs, "p2"); err != nil || len(got) != 1 {
		t.Errorf("GetQuotas(p2)=%v, %v, want one row", got, err)
	}
	got, err := storage.ListExpiredReservations(ctx, qs, BaseTime)
	if err != nil {
		t.Fatalf("ListExpiredReservations(): %v", err)
	}
	if diff := cmp.Diff(testReservations("p2", 2, BaseTime), got, sortReservations); diff != "" {
		t.Errorf("ListExpiredReservations() diff (-want +got):\n%s", diff)
	}
}

// TestConcurrentIncrements checks that read-modify-write cycles on a usage
// row do not lose updates.
func (tester *QuotaStorageTester) TestConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	qs := tester.NewQuotaStorage(t)
	runTX(ctx, t, qs, func(ctx context.Context, tx storage.QuotaTX) error {
		return tx.CreateUsage(ctx, &storage.QuotaUsage{ProjectID: "p1", Resource: "volumes", CreatedAt: BaseTime, UpdatedAt: BaseTime})
	})

	const workers, rounds = 4, 5
	var wg sync.WaitGroup
	errs := make(chan error, workers*rounds)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				err := retry(func() error {
					return qs.ReadWriteTransaction(ctx, func(ctx context.Context, tx storage.QuotaTX) error {
						got, err := tx.GetUsagesForUpdate(ctx, "p1", []string{"volumes"})
						if err != nil {
							return err
						}
						u := got["volumes"]
						if u == nil {
							return storage.ErrNotFound
						}
						u.InUse++
						return tx.UpdateUsage(ctx, u)
					})
				})
				if err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("increment failed: %v", err)
	}

	usages, err := storage.GetUsages(ctx, qs, "p1")
	if err != nil {
		t.Fatalf("GetUsages(): %v", err)
	}
	sort.Slice(usages, func(i, j int) bool { return usages[i].Resource < usages[j].Resource })
	if len(usages) != 1 || usages[0].InUse != workers*rounds {
		t.Errorf("GetUsages()=%+v, want in_use=%d", usages, workers*rounds)
	}
}

// retry re-runs f while it fails with a transient error. Pessimistic
// backends may still report deadlocks under contention.
func retry(f func() error) error {
	var err error
	for i := 0; i < 20; i++ {
		if err = f(); !storage.IsRetryable(err) {
			return err
		}
	}
	return err
}

// TestCheckDatabaseAccessible checks the storage health check.
func (tester *QuotaStorageTester) TestCheckDatabaseAccessible(t *testing.T) {
	qs := tester.NewQuotaStorage(t)
	if err := qs.CheckDatabaseAccessible(context.Background()); err != nil {
		t.Errorf("CheckDatabaseAccessible()=%v, want nil", err)
	}
}
