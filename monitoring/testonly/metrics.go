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

// Package testonly holds checks shared by every MetricFactory implementation.
package testonly

import (
	"testing"

	"github.com/volquota/volquota/monitoring"
)

var labelSets = []struct {
	suffix     string
	labelNames []string
	labelVals  []string
}{
	{suffix: "0"},
	{suffix: "1", labelNames: []string{"resource"}, labelVals: []string{"volumes"}},
	{suffix: "2", labelNames: []string{"resource", "success"}, labelVals: []string{"gigabytes", "true"}},
}

// TestCounter checks a Counter produced by factory.
func TestCounter(t *testing.T, factory monitoring.MetricFactory) {
	t.Helper()
	for _, ls := range labelSets {
		name := "test_counter" + ls.suffix
		c := factory.NewCounter(name, "Test only", ls.labelNames...)
		check := func(want float64) {
			t.Helper()
			if got := c.Value(ls.labelVals...); got != want {
				t.Errorf("%s%v.Value()=%v, want %v", name, ls.labelVals, got, want)
			}
		}
		check(0)
		c.Inc(ls.labelVals...)
		check(1)
		c.Add(2.5, ls.labelVals...)
		check(3.5)

		bad := append(append([]string{}, ls.labelVals...), "bogus")
		c.Inc(bad...)
		if got := c.Value(bad...); got != 0 {
			t.Errorf("%s%v.Value()=%v, want 0", name, bad, got)
		}
	}
}

// TestGauge checks a Gauge produced by factory.
func TestGauge(t *testing.T, factory monitoring.MetricFactory) {
	t.Helper()
	for _, ls := range labelSets {
		name := "test_gauge" + ls.suffix
		g := factory.NewGauge(name, "Test only", ls.labelNames...)
		check := func(want float64) {
			t.Helper()
			if got := g.Value(ls.labelVals...); got != want {
				t.Errorf("%s%v.Value()=%v, want %v", name, ls.labelVals, got, want)
			}
		}
		check(0)
		g.Inc(ls.labelVals...)
		check(1)
		g.Dec(ls.labelVals...)
		check(0)
		g.Set(42, ls.labelVals...)
		check(42)

		bad := append(append([]string{}, ls.labelVals...), "bogus")
		g.Set(120, bad...)
		if got := g.Value(bad...); got != 0 {
			t.Errorf("%s%v.Value()=%v, want 0", name, bad, got)
		}
	}
}

// TestHistogram checks a Histogram produced by factory.
func TestHistogram(t *testing.T, factory monitoring.MetricFactory) {
	t.Helper()
	for _, ls := range labelSets {
		name := "test_histogram" + ls.suffix
		h := factory.NewHistogram(name, "Test only", ls.labelNames...)
		if n, sum := h.Info(ls.labelVals...); n != 0 || sum != 0 {
			t.Errorf("%s%v.Info()=%v,%v, want 0,0", name, ls.labelVals, n, sum)
		}
		for _, v := range []float64{1, 2, 3} {
			h.Observe(v, ls.labelVals...)
		}
		if n, sum := h.Info(ls.labelVals...); n != 3 || sum != 6 {
			t.Errorf("%s%v.Info()=%v,%v, want 3,6", name, ls.labelVals, n, sum)
		}

		bad := append(append([]string{}, ls.labelVals...), "bogus")
		h.Observe(100, bad...)
		if n, sum := h.Info(bad...); n != 0 || sum != 0 {
			t.Errorf("%s%v.Info()=%v,%v, want 0,0", name, bad, n, sum)
		}
	}
}
