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
	"fmt"
	"sync"

	"github.com/volquota/volquota/monitoring"
)

var (
	// Metrics groups all quota-related metrics.
	// Metrics are no-ops until InitMetrics is called.
	Metrics     = &m{}
	metricsOnce = sync.Once{}
)

type m struct {
	Reservations        monitoring.Counter
	Commits             monitoring.Counter
	Rollbacks           monitoring.Counter
	ExpiredReservations monitoring.Counter
	OverQuota           monitoring.Counter
	UsageRefreshes      monitoring.Counter
}

// IncReserved records a reserve attempt for every resource in deltas.
func (m *m) IncReserved(deltas map[string]int64, success bool) {
	for r := range deltas {
		inc(m.Reservations, r, fmt.Sprint(success))
	}
}

// IncCommitted records committed reservations per resource.
func (m *m) IncCommitted(resource string, success bool) {
	inc(m.Commits, resource, fmt.Sprint(success))
}

// IncRolledBack records rolled back reservations per resource.
func (m *m) IncRolledBack(resource string, success bool) {
	inc(m.Rollbacks, resource, fmt.Sprint(success))
}

// IncExpired records a reservation collected by the expiry sweep.
func (m *m) IncExpired(resource string) {
	inc(m.ExpiredReservations, resource)
}

// IncOverQuota records a refused request for every offending resource.
func (m *m) IncOverQuota(overs []string) {
	for _, r := range overs {
		inc(m.OverQuota, r)
	}
}

// IncRefreshed records a usage resynchronisation.
func (m *m) IncRefreshed(resource string) {
	inc(m.UsageRefreshes, resource)
}

func inc(c monitoring.Counter, labels ...string) {
	if c == nil {
		return
	}
	c.Inc(labels...)
}

// InitMetrics initializes Metrics using mf to create the monitoring objects.
// May be called multiple times. If so, only the first call is applied.
func InitMetrics(mf monitoring.MetricFactory) {
	metricsOnce.Do(func() {
		Metrics.Reservations = mf.NewCounter("quota_reservations_total", "Number of reserve attempts per resource", "resource", "success")
		Metrics.Commits = mf.NewCounter("quota_commits_total", "Number of committed reservations", "resource", "success")
		Metrics.Rollbacks = mf.NewCounter("quota_rollbacks_total", "Number of rolled back reservations", "resource", "success")
		Metrics.ExpiredReservations = mf.NewCounter("quota_expired_reservations_total", "Number of reservations rolled back by expiry", "resource")
		Metrics.OverQuota = mf.NewCounter("quota_over_quota_total", "Number of requests refused for exceeding a limit", "resource")
		Metrics.UsageRefreshes = mf.NewCounter("quota_usage_refreshes_total", "Number of usage resynchronisations", "resource")
	})
}
