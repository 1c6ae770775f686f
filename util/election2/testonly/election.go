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

// Package testonly contains an Election implementation for tests.
package testonly

import (
	"context"
	"sync"

	"github.com/volquota/volquota/util/election2"
)

// Election is an in-process Election. It becomes the master on Await and
// loses mastership on Resign, which tests may call at any time.
type Election struct {
	mu     sync.Mutex
	master bool
	// lost is closed when the current mastership term ends.
	lost   chan struct{}
	awaits int
}

// NewElection returns an Election that is not the master.
func NewElection() *Election {
	return &Election{}
}

// Await makes the instance the master.
func (e *Election) Await(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.awaits++
	if !e.master {
		e.master = true
		e.lost = make(chan struct{})
	}
	return nil
}

// WithMastership returns a context canceled when the current term ends.
func (e *Election) WithMastership(ctx context.Context) (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cctx, cancel := context.WithCancel(ctx)
	if !e.master {
		cancel()
		return cctx, nil
	}
	lost := e.lost
	go func() {
		defer cancel()
		select {
		case <-lost:
		case <-cctx.Done():
		}
	}()
	return cctx, nil
}

// Resign ends the current term, if any.
func (e *Election) Resign(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.master {
		e.master = false
		close(e.lost)
	}
	return nil
}

// Close resigns.
func (e *Election) Close(ctx context.Context) error {
	return e.Resign(ctx)
}

// IsMaster reports whether the instance currently holds mastership.
func (e *Election) IsMaster() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.master
}

// Awaits returns how many times Await was called.
func (e *Election) Awaits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.awaits
}

// Factory hands out one Election per resource.
type Factory struct {
	mu        sync.Mutex
	elections map[string]*Election
}

// NewElection implements election2.Factory.
func (f *Factory) NewElection(_ context.Context, resourceID string) (election2.Election, error) {
	return f.Get(resourceID), nil
}

// Get returns the Election of resourceID, creating it if needed.
func (f *Factory) Get(resourceID string) *Election {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.elections == nil {
		f.elections = make(map[string]*Election)
	}
	e, ok := f.elections[resourceID]
	if !ok {
		e = NewElection()
		f.elections[resourceID] = e
	}
	return e
}
