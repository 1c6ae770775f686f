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

// Package prometheus provides a Prometheus-based implementation of the
// MetricFactory abstraction.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/volquota/volquota/monitoring"
	"k8s.io/klog/v2"
)

// MetricFactory creates Prometheus-backed metrics. Metrics are registered
// with Registerer, or with the default registry when it is nil.
type MetricFactory struct {
	Prefix     string
	Registerer prometheus.Registerer
}

func (f MetricFactory) register(c prometheus.Collector) {
	r := f.Registerer
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	r.MustRegister(c)
}

// NewCounter creates a new Counter object backed by Prometheus.
func (f MetricFactory) NewCounter(name, help string, labelNames ...string) monitoring.Counter {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: f.Prefix + name, Help: help}, labelNames)
	f.register(vec)
	return &Counter{vec: vec}
}

// NewGauge creates a new Gauge object backed by Prometheus.
func (f MetricFactory) NewGauge(name, help string, labelNames ...string) monitoring.Gauge {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: f.Prefix + name, Help: help}, labelNames)
	f.register(vec)
	return &Gauge{vec: vec}
}

// NewHistogram creates a new Histogram object backed by Prometheus, using
// latency-oriented buckets.
func (f MetricFactory) NewHistogram(name, help string, labelNames ...string) monitoring.Histogram {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    f.Prefix + name,
		Help:    help,
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	}, labelNames)
	f.register(vec)
	return &Histogram{vec: vec}
}

// Counter wraps a Prometheus CounterVec.
type Counter struct {
	vec *prometheus.CounterVec
}

// Inc adds 1 to a counter.
func (m *Counter) Inc(labelVals ...string) { m.Add(1, labelVals...) }

// Add adds the given amount to a counter.
func (m *Counter) Add(val float64, labelVals ...string) {
	c, err := m.vec.GetMetricWithLabelValues(labelVals...)
	if err != nil {
		klog.Error(err)
		return
	}
	c.Add(val)
}

// Value returns the current amount of a counter.
func (m *Counter) Value(labelVals ...string) float64 {
	c, err := m.vec.GetMetricWithLabelValues(labelVals...)
	if err != nil {
		klog.Error(err)
		return 0
	}
	pb, ok := read(c)
	if !ok || pb.Counter == nil {
		return 0
	}
	return pb.Counter.GetValue()
}

// Gauge wraps a Prometheus GaugeVec.
type Gauge struct {
	vec *prometheus.GaugeVec
}

func (m *Gauge) with(labelVals []string) prometheus.Gauge {
	g, err := m.vec.GetMetricWithLabelValues(labelVals...)
	if err != nil {
		klog.Error(err)
		return nil
	}
	return g
}

// Inc adds 1 to a gauge.
func (m *Gauge) Inc(labelVals ...string) {
	if g := m.with(labelVals); g != nil {
		g.Inc()
	}
}

// Dec subtracts 1 from a gauge.
func (m *Gauge) Dec(labelVals ...string) {
	if g := m.with(labelVals); g != nil {
		g.Dec()
	}
}

// Set sets the value of a gauge.
func (m *Gauge) Set(val float64, labelVals ...string) {
	if g := m.with(labelVals); g != nil {
		g.Set(val)
	}
}

// Value returns the current value of a gauge.
func (m *Gauge) Value(labelVals ...string) float64 {
	g := m.with(labelVals)
	if g == nil {
		return 0
	}
	pb, ok := read(g)
	if !ok || pb.Gauge == nil {
		return 0
	}
	return pb.Gauge.GetValue()
}

// Histogram wraps a Prometheus HistogramVec.
type Histogram struct {
	vec *prometheus.HistogramVec
}

// Observe adds a single observation to the histogram.
func (m *Histogram) Observe(val float64, labelVals ...string) {
	o, err := m.vec.GetMetricWithLabelValues(labelVals...)
	if err != nil {
		klog.Error(err)
		return
	}
	o.Observe(val)
}

// Info returns the count and sum of observations for the histogram.
func (m *Histogram) Info(labelVals ...string) (uint64, float64) {
	o, err := m.vec.GetMetricWithLabelValues(labelVals...)
	if err != nil {
		klog.Error(err)
		return 0, 0
	}
	metric, ok := o.(prometheus.Metric)
	if !ok {
		return 0, 0
	}
	pb, ok := read(metric)
	if !ok || pb.Histogram == nil {
		return 0, 0
	}
	return pb.Histogram.GetSampleCount(), pb.Histogram.GetSampleSum()
}

func read(m prometheus.Metric) (*dto.Metric, bool) {
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		klog.Errorf("failed to write metric: %v", err)
		return nil, false
	}
	return &pb, true
}
