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
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/volquota/volquota/storage"
	"github.com/volquota/volquota/storage/testonly"
	"github.com/volquota/volquota/util/clock"
)

// expectLimits scripts the read-only transaction that resolves limits.
func expectLimits(ctrl *gomock.Controller, projectID string) *storage.MockReadOnlyQuotaTX {
	ro := storage.NewMockReadOnlyQuotaTX(ctrl)
	ro.EXPECT().GetQuotas(gomock.Any(), projectID).Return(nil, nil)
	ro.EXPECT().GetClassQuotas(gomock.Any(), DefaultClass).Return(nil, nil)
	return ro
}

func volumesOnly(inv *fakeInventory) Resources {
	return Resources{Volumes: NewReservableResource(Volumes, "quota_volumes", 10, inv.syncer(Volumes))}
}

func TestReserveRecoversFromConcurrentCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	ts := clock.NewFake(startTime)
	inv := newFakeInventory()
	inv.set(Volumes, 4)

	tx := storage.NewMockQuotaTX(ctrl)
	winner := &storage.QuotaUsage{ProjectID: project, Resource: Volumes, InUse: 3, CreatedAt: startTime, UpdatedAt: startTime}
	gomock.InOrder(
		tx.EXPECT().GetUsagesForUpdate(gomock.Any(), project, []string{Volumes}).Return(map[string]*storage.QuotaUsage{}, nil),
		tx.EXPECT().CreateUsage(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists),
		tx.EXPECT().GetUsagesForUpdate(gomock.Any(), project, []string{Volumes}).Return(map[string]*storage.QuotaUsage{Volumes: winner}, nil),
		tx.EXPECT().CreateReservations(gomock.Any(), gomock.Len(1)).Return(nil),
		tx.EXPECT().UpdateUsage(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *storage.QuotaUsage) error {
			if u.InUse != 4 || u.Reserved != 2 {
				t.Errorf("UpdateUsage(in_use=%d, reserved=%d), want in_use=4, reserved=2", u.InUse, u.Reserved)
			}
			return nil
		}),
	)
	qs := &testonly.FakeQuotaStorage{
		TX:         []storage.QuotaTX{tx},
		ReadOnlyTX: []storage.ReadOnlyQuotaTX{expectLimits(ctrl, project)},
	}

	d := NewDbDriver(qs, DefaultConfig(), ts)
	ids, err := d.Reserve(context.Background(), volumesOnly(inv), project, "", map[string]int64{Volumes: 2}, startTime)
	if err != nil {
		t.Fatalf("Reserve(): %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("Reserve() returned %d ids, want 1", len(ids))
	}
}

func TestReserveStorageErrors(t *testing.T) {
	errBoom := errors.New("boom")
	for _, tc := range []struct {
		desc   string
		script func(tx *storage.MockQuotaTX)
	}{
		{
			desc: "lockUsages",
			script: func(tx *storage.MockQuotaTX) {
				tx.EXPECT().GetUsagesForUpdate(gomock.Any(), project, gomock.Any()).Return(nil, errBoom)
			},
		},
		{
			desc: "createUsage",
			script: func(tx *storage.MockQuotaTX) {
				tx.EXPECT().GetUsagesForUpdate(gomock.Any(), project, gomock.Any()).Return(map[string]*storage.QuotaUsage{}, nil)
				tx.EXPECT().CreateUsage(gomock.Any(), gomock.Any()).Return(errBoom)
			},
		},
		{
			desc: "createReservations",
			script: func(tx *storage.MockQuotaTX) {
				tx.EXPECT().GetUsagesForUpdate(gomock.Any(), project, gomock.Any()).Return(map[string]*storage.QuotaUsage{
					Volumes: {ProjectID: project, Resource: Volumes, UpdatedAt: startTime},
				}, nil)
				tx.EXPECT().CreateReservations(gomock.Any(), gomock.Any()).Return(errBoom)
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			tx := storage.NewMockQuotaTX(ctrl)
			tc.script(tx)
			qs := &testonly.FakeQuotaStorage{
				TX:         []storage.QuotaTX{tx},
				ReadOnlyTX: []storage.ReadOnlyQuotaTX{expectLimits(ctrl, project)},
			}
			d := NewDbDriver(qs, DefaultConfig(), clock.NewFake(startTime))
			_, err := d.Reserve(context.Background(), volumesOnly(newFakeInventory()), project, "", map[string]int64{Volumes: 1}, startTime)
			if !errors.Is(err, errBoom) {
				t.Errorf("Reserve()=%v, want %v", err, errBoom)
			}
		})
	}
}

func TestReserveTransactionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	qs := &testonly.FakeQuotaStorage{
		TXErr:      []error{storage.ErrTooManyConflicts},
		ReadOnlyTX: []storage.ReadOnlyQuotaTX{expectLimits(ctrl, project)},
	}
	d := NewDbDriver(qs, DefaultConfig(), clock.NewFake(startTime))
	_, err := d.Reserve(context.Background(), volumesOnly(newFakeInventory()), project, "", map[string]int64{Volumes: 1}, startTime)
	if !storage.IsRetryable(err) {
		t.Errorf("Reserve()=%v, want a retryable error", err)
	}
}

func TestCommitLocksReservationsFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	tx := storage.NewMockQuotaTX(ctrl)
	rs := []storage.Reservation{
		{UUID: "a", ProjectID: project, Resource: Volumes, Delta: 1},
		{UUID: "b", ProjectID: project, Resource: Gigabytes, Delta: -5},
	}
	usages := map[string]*storage.QuotaUsage{
		Volumes:   {ProjectID: project, Resource: Volumes, InUse: 1, Reserved: 1},
		Gigabytes: {ProjectID: project, Resource: Gigabytes, InUse: 10},
	}
	gomock.InOrder(
		tx.EXPECT().GetReservationsForUpdate(gomock.Any(), project, []string{"a", "b"}).Return(rs, nil),
		tx.EXPECT().GetUsagesForUpdate(gomock.Any(), project, []string{Gigabytes, Volumes}).Return(usages, nil),
		tx.EXPECT().UpdateUsage(gomock.Any(), usages[Gigabytes]).Return(nil),
		tx.EXPECT().UpdateUsage(gomock.Any(), usages[Volumes]).Return(nil),
		tx.EXPECT().DeleteReservations(gomock.Any(), project, []string{"a", "b"}).Return(nil),
	)
	d := NewDbDriver(&testonly.FakeQuotaStorage{TX: []storage.QuotaTX{tx}}, DefaultConfig(), clock.NewFake(startTime))

	if err := d.Commit(context.Background(), project, []string{"b", "a", "b"}); err != nil {
		t.Fatalf("Commit(): %v", err)
	}
	if u := usages[Volumes]; u.InUse != 2 || u.Reserved != 0 {
		t.Errorf("volumes usage=%+v, want in_use=2 reserved=0", u)
	}
	if u := usages[Gigabytes]; u.InUse != 5 || u.Reserved != 0 {
		t.Errorf("gigabytes usage=%+v, want in_use=5 reserved=0", u)
	}
}

func TestRollbackMissingReservation(t *testing.T) {
	ctrl := gomock.NewController(t)
	tx := storage.NewMockQuotaTX(ctrl)
	tx.EXPECT().GetReservationsForUpdate(gomock.Any(), project, []string{"a", "b"}).Return(
		[]storage.Reservation{{UUID: "a", ProjectID: project, Resource: Volumes, Delta: 1}}, nil)
	d := NewDbDriver(&testonly.FakeQuotaStorage{TX: []storage.QuotaTX{tx}}, DefaultConfig(), clock.NewFake(startTime))

	err := d.Rollback(context.Background(), project, []string{"a", "b"})
	var nf *ReservationNotFoundError
	if !errors.As(err, &nf) || len(nf.IDs) != 1 || nf.IDs[0] != "b" {
		t.Errorf("Rollback()=%v, want *ReservationNotFoundError for b", err)
	}
}

func TestExpireContinuesAfterProjectFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	errBoom := errors.New("boom")
	list := storage.NewMockReadOnlyQuotaTX(ctrl)
	list.EXPECT().ListExpiredReservations(gomock.Any(), startTime).Return([]storage.Reservation{
		{UUID: "a", ProjectID: "p1", Resource: Volumes, Delta: 1},
		{UUID: "b", ProjectID: "p2", Resource: Volumes, Delta: 2},
	}, nil)

	failing := storage.NewMockQuotaTX(ctrl)
	failing.EXPECT().GetReservationsForUpdate(gomock.Any(), "p1", []string{"a"}).Return(nil, errBoom)

	ok := storage.NewMockQuotaTX(ctrl)
	ok.EXPECT().GetReservationsForUpdate(gomock.Any(), "p2", []string{"b"}).Return(
		[]storage.Reservation{{UUID: "b", ProjectID: "p2", Resource: Volumes, Delta: 2}}, nil)
	ok.EXPECT().GetUsagesForUpdate(gomock.Any(), "p2", []string{Volumes}).Return(map[string]*storage.QuotaUsage{
		Volumes: {ProjectID: "p2", Resource: Volumes, Reserved: 2},
	}, nil)
	ok.EXPECT().UpdateUsage(gomock.Any(), gomock.Any()).Return(nil)
	ok.EXPECT().DeleteReservations(gomock.Any(), "p2", []string{"b"}).Return(nil)

	qs := &testonly.FakeQuotaStorage{
		TX:         []storage.QuotaTX{failing, ok},
		ReadOnlyTX: []storage.ReadOnlyQuotaTX{list},
	}
	d := NewDbDriver(qs, DefaultConfig(), clock.NewFake(startTime))
	n, err := d.Expire(context.Background())
	if n != 1 {
		t.Errorf("Expire()=%d, want 1", n)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("Expire() err=%v, want %v", err, errBoom)
	}
}
