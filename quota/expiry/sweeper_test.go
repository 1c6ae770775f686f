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

package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/volquota/volquota/monitoring"
	"github.com/volquota/volquota/util/clock"
	"github.com/volquota/volquota/util/election2/testonly"
)

var startTime = time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)

// fakeExpirer reports each call on calls and returns the next scripted
// result, or (0, nil) once the script runs out.
type fakeExpirer struct {
	calls   chan struct{}
	results []result
}

type result struct {
	n   int
	err error
}

func newFakeExpirer(results ...result) *fakeExpirer {
	return &fakeExpirer{calls: make(chan struct{}, 100), results: results}
}

func (f *fakeExpirer) Expire(ctx context.Context) (int, error) {
	f.calls <- struct{}{}
	if len(f.results) == 0 {
		return 0, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.n, r.err
}

func (f *fakeExpirer) waitCall(t *testing.T) {
	t.Helper()
	select {
	case <-f.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Expire()")
	}
}

func (f *fakeExpirer) noCall(t *testing.T) {
	t.Helper()
	select {
	case <-f.calls:
		t.Fatal("unexpected Expire() call")
	case <-time.After(50 * time.Millisecond):
	}
}

// waitTimer blocks until the sweeper sleeps on ts.
func waitTimer(t *testing.T, ts *clock.FakeTimeSource) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for ts.PendingTimers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the sweeper to sleep")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunOnce(t *testing.T) {
	errBoom := errors.New("boom")
	s := New(newFakeExpirer(result{n: 3}, result{n: 1, err: errBoom}), Options{MetricFactory: monitoring.InertMetricFactory{}})
	ctx := context.Background()
	okBefore, failedBefore := runCounter.Value("true"), runCounter.Value("false")
	samplesBefore, _ := runLatency.Info()

	if n, err := s.RunOnce(ctx); n != 3 || err != nil {
		t.Errorf("RunOnce()=%d, %v, want 3, nil", n, err)
	}
	if n, err := s.RunOnce(ctx); n != 1 || !errors.Is(err, errBoom) {
		t.Errorf("RunOnce()=%d, %v, want 1, %v", n, err, errBoom)
	}

	if got := runCounter.Value("true") - okBefore; got != 1 {
		t.Errorf("successful runs=%v, want 1", got)
	}
	if got := runCounter.Value("false") - failedBefore; got != 1 {
		t.Errorf("failed runs=%v, want 1", got)
	}
	if samples, _ := runLatency.Info(); samples-samplesBefore != 2 {
		t.Errorf("latency samples=%d, want 2", samples-samplesBefore)
	}
}

func TestRunSweepsPeriodically(t *testing.T) {
	ts := clock.NewFake(startTime)
	exp := newFakeExpirer(result{err: errors.New("transient")})
	s := New(exp, Options{Interval: time.Minute, TimeSource: ts})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	exp.waitCall(t)
	for i := 0; i < 3; i++ {
		waitTimer(t, ts)
		exp.noCall(t)
		// Pauses never exceed twice the interval.
		ts.Advance(2 * time.Minute)
		exp.waitCall(t)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run()=%v, want %v", err, context.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunFollowsMastership(t *testing.T) {
	ts := clock.NewFake(startTime)
	exp := newFakeExpirer()
	el := testonly.NewElection()
	s := New(exp, Options{Interval: time.Minute, TimeSource: ts, Election: el})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	exp.waitCall(t)
	if !el.IsMaster() {
		t.Fatal("sweeper runs without mastership")
	}
	waitTimer(t, ts)

	// Losing mastership ends the sweep; the sweeper campaigns again and
	// sweeps straight away once re-elected.
	if err := el.Resign(ctx); err != nil {
		t.Fatalf("Resign(): %v", err)
	}
	exp.waitCall(t)
	if got := el.Awaits(); got != 2 {
		t.Errorf("Awaits()=%d, want 2", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run()=%v, want %v", err, context.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestPauseJitter(t *testing.T) {
	s := New(newFakeExpirer(), Options{Interval: time.Second})
	for i := 0; i < 100; i++ {
		if d := s.pause(); d < time.Second || d >= 2*time.Second {
			t.Fatalf("pause()=%v, want within [1s, 2s)", d)
		}
	}
	if got := New(newFakeExpirer(), Options{}).interval; got != DefaultInterval {
		t.Errorf("default interval=%v, want %v", got, DefaultInterval)
	}
}
