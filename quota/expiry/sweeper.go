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

// Package expiry periodically rolls back reservations that outlived their
// expiration.
package expiry

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/volquota/volquota/monitoring"
	"github.com/volquota/volquota/util/clock"
	"github.com/volquota/volquota/util/election2"
	"k8s.io/klog/v2"
)

// DefaultInterval is the suggested minimum time between sweeps.
const DefaultInterval = 60 * time.Second

var (
	runCounter  monitoring.Counter
	runLatency  monitoring.Histogram
	metricsOnce sync.Once
)

func initMetrics(mf monitoring.MetricFactory) {
	metricsOnce.Do(func() {
		if mf == nil {
			mf = monitoring.InertMetricFactory{}
		}
		runCounter = mf.NewCounter("quota_expiry_runs_total", "Number of reservation expiry sweeps", "success")
		runLatency = mf.NewHistogram("quota_expiry_run_latency_seconds", "Duration of reservation expiry sweeps")
	})
}

// Expirer rolls back every expired reservation and returns how many it
// rolled back. quota.Engine implements it.
type Expirer interface {
	Expire(ctx context.Context) (int, error)
}

// Options configures a Sweeper.
type Options struct {
	// Interval is the minimum time between sweeps. Each pause is drawn from
	// [Interval, 2*Interval). Defaults to DefaultInterval.
	Interval time.Duration
	// Election guards the sweep when several instances run. Defaults to
	// election2.NoopElection.
	Election election2.Election
	// TimeSource defaults to the system clock.
	TimeSource clock.TimeSource
	// MetricFactory defaults to an inert factory.
	MetricFactory monitoring.MetricFactory
}

// Sweeper runs Expire in the background while its instance is the master.
type Sweeper struct {
	e        Expirer
	interval time.Duration
	election election2.Election
	ts       clock.TimeSource
}

// New returns a Sweeper calling e.
func New(e Expirer, opts Options) *Sweeper {
	initMetrics(opts.MetricFactory)
	s := &Sweeper{e: e, interval: opts.Interval, election: opts.Election, ts: opts.TimeSource}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.election == nil {
		s.election = election2.NoopElection{}
	}
	if s.ts == nil {
		s.ts = clock.System
	}
	return s
}

// RunOnce performs a single sweep and returns the number of expired
// reservations. A partial failure still reports the reservations that were
// rolled back.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	start := s.ts.Now()
	n, err := s.e.Expire(ctx)
	runLatency.Observe(s.ts.Now().Sub(start).Seconds())
	runCounter.Inc(fmt.Sprint(err == nil))
	if err != nil {
		return n, fmt.Errorf("expiring reservations: %w", err)
	}
	return n, nil
}

// Run sweeps until ctx is done, pausing between sweeps and while another
// instance holds mastership. It returns ctx.Err().
func (s *Sweeper) Run(ctx context.Context) error {
	for {
		mctx, err := s.awaitMastership(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			klog.Warningf("expiry: failed to acquire mastership: %v", err)
		} else if s.sweep(mctx) > 0 {
			klog.Infof("expiry: lost mastership")
			continue
		}
		if err := clock.SleepSource(ctx, s.interval, s.ts); err != nil {
			return err
		}
	}
}

func (s *Sweeper) awaitMastership(ctx context.Context) (context.Context, error) {
	if err := s.election.Await(ctx); err != nil {
		return nil, err
	}
	return s.election.WithMastership(ctx)
}

// sweep runs RunOnce periodically until mctx is done and returns how many
// sweeps it ran.
func (s *Sweeper) sweep(mctx context.Context) int {
	runs := 0
	for mctx.Err() == nil {
		n, err := s.RunOnce(mctx)
		runs++
		if err != nil {
			klog.Errorf("expiry: %v", err)
		}
		if n > 0 {
			klog.Infof("expiry: rolled back %d expired reservations", n)
		}
		if err := clock.SleepSource(mctx, s.pause(), s.ts); err != nil {
			break
		}
	}
	return runs
}

func (s *Sweeper) pause() time.Duration {
	return s.interval + time.Duration(rand.Int63n(int64(s.interval)))
}
