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

package etcd

import (
	"context"
	"testing"
	"time"

	"github.com/volquota/volquota/util/etcd/testetcd"
)

func TestElectionHandover(t *testing.T) {
	_, client, cleanup, err := testetcd.StartEtcd()
	if err != nil {
		t.Fatalf("StartEtcd(): %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	el1, err := NewFactory("inst1", client, "elections/").NewElection(ctx, "expiry")
	if err != nil {
		t.Fatalf("NewElection(inst1): %v", err)
	}
	el2, err := NewFactory("inst2", client, "elections/").NewElection(ctx, "expiry")
	if err != nil {
		t.Fatalf("NewElection(inst2): %v", err)
	}

	if err := el1.Await(ctx); err != nil {
		t.Fatalf("Await(inst1): %v", err)
	}
	mctx, err := el1.WithMastership(ctx)
	if err != nil {
		t.Fatalf("WithMastership(inst1): %v", err)
	}
	if mctx.Err() != nil {
		t.Fatal("WithMastership(inst1) returned a canceled context")
	}

	// inst2 cannot win while inst1 holds mastership.
	sctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	if err := el2.Await(sctx); err == nil {
		t.Fatal("Await(inst2) succeeded while inst1 is the master")
	}

	awaited := make(chan error, 1)
	go func() { awaited <- el2.Await(ctx) }()
	if err := el1.Resign(ctx); err != nil {
		t.Fatalf("Resign(inst1): %v", err)
	}
	select {
	case <-mctx.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("inst1 mastership context not canceled after Resign")
	}
	select {
	case err := <-awaited:
		if err != nil {
			t.Fatalf("Await(inst2): %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("inst2 did not become the master")
	}

	if err := el2.Close(ctx); err != nil {
		t.Errorf("Close(inst2): %v", err)
	}
	if err := el1.Close(ctx); err != nil {
		t.Errorf("Close(inst1): %v", err)
	}
}

func TestWithMastershipBeforeAwait(t *testing.T) {
	_, client, cleanup, err := testetcd.StartEtcd()
	if err != nil {
		t.Fatalf("StartEtcd(): %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	el, err := NewFactory("inst", client, "elections").NewElection(ctx, "idle")
	if err != nil {
		t.Fatalf("NewElection(): %v", err)
	}
	defer el.Close(ctx)

	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	mctx, err := el.WithMastership(wctx)
	if err != nil {
		// Observe has nothing to report when nobody campaigned.
		if err != context.DeadlineExceeded {
			t.Fatalf("WithMastership()=%v", err)
		}
		return
	}
	if mctx.Err() == nil {
		t.Error("WithMastership() without Await returned a live context")
	}
}
