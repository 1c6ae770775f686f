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

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/volquota/volquota/quota"
	"github.com/volquota/volquota/storage/memory"
)

func newTestEngine(t *testing.T) *quota.Engine {
	t.Helper()
	e, err := newEngine(memory.NewQuotaStorage(), quota.DefaultConfig(), trackedSyncers())
	if err != nil {
		t.Fatalf("newEngine(): %v", err)
	}
	return e
}

func runCmd(t *testing.T, e *quota.Engine, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), e, false, args, &out)
	return out.String(), err
}

func mustRun(t *testing.T, e *quota.Engine, args ...string) string {
	t.Helper()
	out, err := runCmd(t, e, args...)
	if err != nil {
		t.Fatalf("run(%v): %v", args, err)
	}
	return out
}

func TestUsageErrors(t *testing.T) {
	e := newTestEngine(t)
	for _, tc := range []struct {
		desc string
		args []string
	}{
		{desc: "noCommand"},
		{desc: "unknownCommand", args: []string{"frobnicate"}},
		{desc: "missingArgs", args: []string{"set", "p1", "volumes"}},
		{desc: "badLimit", args: []string{"set", "p1", "volumes", "ten"}},
		{desc: "badDelta", args: []string{"reserve", "p1", "volumes"}},
		{desc: "unknownFlag", args: []string{"show", "--nope", "p1"}},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			if _, err := runCmd(t, e, tc.args...); !errors.Is(err, errUsage) {
				t.Errorf("run(%v)=%v, want %v", tc.args, err, errUsage)
			}
		})
	}
}

func TestHelp(t *testing.T) {
	out := mustRun(t, newTestEngine(t), "help")
	for name := range commands {
		if !strings.Contains(out, "  "+name+" ") {
			t.Errorf("help does not list %q:\n%s", name, out)
		}
	}
}

func TestProjectQuotas(t *testing.T) {
	e := newTestEngine(t)
	mustRun(t, e, "set", "p1", "volumes", "2")

	if got, want := mustRun(t, e, "show", "p1"), "RESOURCE  LIMIT\nvolumes   2\n"; got != want {
		t.Errorf("show=%q, want %q", got, want)
	}
	if _, err := runCmd(t, e, "set", "p1", "widgets", "2"); !errors.As(err, new(*quota.ResourceUnknownError)) {
		t.Errorf("set unknown resource=%v, want *ResourceUnknownError", err)
	}

	mustRun(t, e, "delete", "p1", "volumes")
	if _, err := runCmd(t, e, "delete", "p1", "volumes"); !errors.As(err, new(*quota.ProjectQuotaNotFoundError)) {
		t.Errorf("second delete=%v, want *ProjectQuotaNotFoundError", err)
	}
}

func TestClassQuotas(t *testing.T) {
	e := newTestEngine(t)
	mustRun(t, e, "class-set", "gold", "volumes", "50")

	if got, want := mustRun(t, e, "class-show", "gold"), "RESOURCE  LIMIT\nvolumes   50\n"; got != want {
		t.Errorf("class-show=%q, want %q", got, want)
	}
	out := mustRun(t, e, "class-show", "--defaults", "gold")
	if !strings.Contains(out, "snapshots") {
		t.Errorf("class-show --defaults=%q, want defaults listed", out)
	}

	mustRun(t, e, "class-delete", "gold", "volumes")
	if _, err := runCmd(t, e, "class-delete", "gold", "volumes"); !errors.As(err, new(*quota.ClassNotFoundError)) {
		t.Errorf("second class-delete=%v, want *ClassNotFoundError", err)
	}
}

func TestDefaults(t *testing.T) {
	want := "RESOURCE          LIMIT\n" +
		"backup_gigabytes  1000\n" +
		"backups           10\n" +
		"gigabytes         1000\n" +
		"snapshots         10\n" +
		"volumes           10\n"
	if got := mustRun(t, newTestEngine(t), "defaults"); got != want {
		t.Errorf("defaults diff (-want +got):\n%s", cmp.Diff(want, got))
	}
}

func TestReservationLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustRun(t, e, "set", "p1", "volumes", "2")

	volumes := func() quota.QuotaSet {
		t.Helper()
		qs, err := e.GetProjectQuotas(ctx, "p1", quota.QuotaQuery{Usages: true})
		if err != nil {
			t.Fatalf("GetProjectQuotas(): %v", err)
		}
		return qs[quota.Volumes]
	}

	ids := strings.Fields(mustRun(t, e, "reserve", "p1", "volumes=1", "gigabytes=10"))
	if len(ids) != 2 {
		t.Fatalf("reserve printed %v, want 2 ids", ids)
	}
	if diff := cmp.Diff(quota.QuotaSet{Limit: 2, Reserved: 1}, volumes()); diff != "" {
		t.Errorf("after reserve diff (-want +got):\n%s", diff)
	}
	mustRun(t, e, append([]string{"commit", "p1"}, ids...)...)
	if diff := cmp.Diff(quota.QuotaSet{Limit: 2, InUse: 1}, volumes()); diff != "" {
		t.Errorf("after commit diff (-want +got):\n%s", diff)
	}
	if _, err := runCmd(t, e, append([]string{"rollback", "p1"}, ids...)...); !errors.As(err, new(*quota.ReservationNotFoundError)) {
		t.Errorf("rollback of committed=%v, want *ReservationNotFoundError", err)
	}

	if _, err := runCmd(t, e, "reserve", "p1", "volumes=2"); !errors.As(err, new(*quota.OverQuotaError)) {
		t.Errorf("reserve over quota=%v, want *OverQuotaError", err)
	}

	ids = strings.Fields(mustRun(t, e, "reserve", "p1", "volumes=1"))
	mustRun(t, e, append([]string{"rollback", "p1"}, ids...)...)
	if diff := cmp.Diff(quota.QuotaSet{Limit: 2, InUse: 1}, volumes()); diff != "" {
		t.Errorf("after rollback diff (-want +got):\n%s", diff)
	}

	out := mustRun(t, e, "usage", "p1")
	if !strings.Contains(out, "IN_USE") || !strings.Contains(out, "backups") {
		t.Errorf("usage=%q, want every resource with usages", out)
	}
}

func TestExpire(t *testing.T) {
	e := newTestEngine(t)
	mustRun(t, e, "reserve", "--expire=0", "p1", "volumes=1")
	if got, want := mustRun(t, e, "expire"), "expired 1 reservations\n"; got != want {
		t.Errorf("expire=%q, want %q", got, want)
	}
	if _, err := runCmd(t, e, "reserve", "--expire=yesterday", "p1", "volumes=1"); !errors.As(err, new(*quota.InvalidExpirationError)) {
		t.Errorf("reserve --expire=yesterday=%v, want *InvalidExpirationError", err)
	}
}

func TestDestroy(t *testing.T) {
	e := newTestEngine(t)
	mustRun(t, e, "set", "p1", "volumes", "2")
	mustRun(t, e, "set", "p2", "volumes", "3")
	mustRun(t, e, "reserve", "p1", "volumes=1")
	mustRun(t, e, "destroy", "p1")

	if got, want := mustRun(t, e, "show", "p1"), "RESOURCE  LIMIT\n"; got != want {
		t.Errorf("show p1=%q, want %q", got, want)
	}
	if got, want := mustRun(t, e, "show", "p2"), "RESOURCE  LIMIT\nvolumes   3\n"; got != want {
		t.Errorf("show p2=%q, want %q", got, want)
	}
}

func TestResetUsage(t *testing.T) {
	ctx := context.Background()
	inv := map[string]int64{
		quota.Volumes:         0,
		quota.Snapshots:       0,
		quota.Gigabytes:       0,
		quota.Backups:         0,
		quota.BackupGigabytes: 0,
	}
	sync := quota.SyncerFunc(func(context.Context, string) (map[string]int64, error) {
		return inv, nil
	})
	syncers := make(map[string]quota.Syncer)
	for r := range inv {
		syncers[r] = sync
	}
	e, err := newEngine(memory.NewQuotaStorage(), quota.DefaultConfig(), syncers)
	if err != nil {
		t.Fatalf("newEngine(): %v", err)
	}
	volumes := func() quota.QuotaSet {
		t.Helper()
		qs, err := e.GetProjectQuotas(ctx, "p1", quota.QuotaQuery{Usages: true})
		if err != nil {
			t.Fatalf("GetProjectQuotas(): %v", err)
		}
		return qs[quota.Volumes]
	}

	mustRun(t, e, "set", "p1", "volumes", "5")
	ids := strings.Fields(mustRun(t, e, "reserve", "p1", "volumes=1"))
	mustRun(t, e, append([]string{"commit", "p1"}, ids...)...)
	inv[quota.Volumes] = 3

	if _, err := runCmd(t, e, "reset-usage", "p1"); !errors.Is(err, errNoInventory) {
		t.Errorf("reset-usage without inventory=%v, want %v", err, errNoInventory)
	}
	if diff := cmp.Diff(quota.QuotaSet{Limit: 5, InUse: 1}, volumes()); diff != "" {
		t.Errorf("after refused reset diff (-want +got):\n%s", diff)
	}

	var out bytes.Buffer
	if err := run(ctx, e, true, []string{"reset-usage", "p1", "volumes"}, &out); err != nil {
		t.Fatalf("reset-usage with inventory: %v", err)
	}
	mustRun(t, e, "reserve", "p1", "volumes=1")
	if diff := cmp.Diff(quota.QuotaSet{Limit: 5, InUse: 3, Reserved: 1}, volumes()); diff != "" {
		t.Errorf("after resync diff (-want +got):\n%s", diff)
	}
}
