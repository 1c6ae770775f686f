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

// Package election2 provides master election for background tasks that must
// run on at most one instance at a time, such as the reservation expiry
// sweep.
//
// An instance is a single participant; a resource is the task guarded by
// the election. Mastership may briefly be held by two instances while an
// update propagates, so guarded work must tolerate an occasional overlap.
package election2

import "context"

// Election controls an instance's participation in master election for one
// resource. Implementations are not required to be safe for concurrent use.
type Election interface {
	// Await blocks until the instance captures mastership. Returns immediately
	// if it is already the master. If an error is returned, the instance
	// might still have become the master.
	Await(ctx context.Context) error

	// WithMastership returns a context that stays live while the instance is
	// the master and ctx is live. If the instance is not the master, the
	// returned context is already canceled.
	WithMastership(ctx context.Context) (context.Context, error)

	// Resign releases mastership. The instance can be elected again with
	// Await.
	Resign(ctx context.Context) error

	// Close resigns and permanently stops participating in the election.
	Close(ctx context.Context) error
}

// Factory creates an Election for a resource.
type Factory interface {
	NewElection(ctx context.Context, resourceID string) (Election, error)
}

// NoopElection is an Election whose instance is always the master. It is
// used when a single instance runs the guarded task.
type NoopElection struct{}

// Await returns immediately.
func (NoopElection) Await(context.Context) error { return nil }

// WithMastership returns ctx unchanged.
func (NoopElection) WithMastership(ctx context.Context) (context.Context, error) { return ctx, nil }

// Resign does nothing.
func (NoopElection) Resign(context.Context) error { return nil }

// Close does nothing.
func (NoopElection) Close(context.Context) error { return nil }

// NoopFactory creates NoopElections.
type NoopFactory struct{}

// NewElection returns a NoopElection.
func (NoopFactory) NewElection(context.Context, string) (Election, error) {
	return NoopElection{}, nil
}
