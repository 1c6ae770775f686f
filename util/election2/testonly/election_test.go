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
	"testing"
	"time"
)

func TestElectionLifecycle(t *testing.T) {
	ctx := context.Background()
	e := NewElection()

	mctx, err := e.WithMastership(ctx)
	if err != nil {
		t.Fatalf("WithMastership(): %v", err)
	}
	if mctx.Err() == nil {
		t.Error("WithMastership() before Await returned a live context")
	}

	if err := e.Await(ctx); err != nil {
		t.Fatalf("Await(): %v", err)
	}
	if !e.IsMaster() {
		t.Fatal("IsMaster()=false after Await")
	}
	mctx, err = e.WithMastership(ctx)
	if err != nil {
		t.Fatalf("WithMastership(): %v", err)
	}
	if mctx.Err() != nil {
		t.Fatal("WithMastership() after Await returned a canceled context")
	}

	if err := e.Resign(ctx); err != nil {
		t.Fatalf("Resign(): %v", err)
	}
	select {
	case <-mctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("mastership context not canceled after Resign")
	}
	if err := e.Resign(ctx); err != nil {
		t.Errorf("second Resign(): %v", err)
	}
}

func TestAwaitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewElection()
	if err := e.Await(ctx); err != context.Canceled {
		t.Errorf("Await()=%v, want %v", err, context.Canceled)
	}
	if e.IsMaster() {
		t.Error("IsMaster()=true after a canceled Await")
	}
}

func TestFactorySharesElections(t *testing.T) {
	var f Factory
	a, _ := f.NewElection(context.Background(), "a")
	if a != f.Get("a") {
		t.Error("NewElection(a) and Get(a) returned different elections")
	}
	if f.Get("a") == f.Get("b") {
		t.Error("different resources share an election")
	}
}
