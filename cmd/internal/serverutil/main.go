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

// Package serverutil holds code for running the volquota daemons.
package serverutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Task is a long-running piece of work started by Main. It must return once
// its context is canceled.
type Task func(ctx context.Context) error

// Main encapsulates the data and logic to run a daemon: an HTTP server
// exposing /metrics and /healthz next to a set of background tasks.
type Main struct {
	// HTTPEndpoint is the address to serve on; empty disables the server.
	HTTPEndpoint string

	// TLS Certificate and Key files for the HTTP server.
	TLSCertFile, TLSKeyFile string

	// IsHealthy will be called whenever "/healthz" is called on the mux.
	// A nil return value results in a 200-OK response.
	IsHealthy func(context.Context) error
	// HealthyDeadline is the maximum duration to wait for IsHealthy.
	HealthyDeadline time.Duration

	// Tasks run until ctx is canceled or one of them fails.
	Tasks []Task
}

func (m *Main) healthz(rw http.ResponseWriter, req *http.Request) {
	if m.IsHealthy != nil {
		ctx, cancel := context.WithTimeout(req.Context(), m.HealthyDeadline)
		defer cancel()
		if err := m.IsHealthy(ctx); err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			rw.Write([]byte(err.Error()))
			return
		}
	}
	rw.Write([]byte("ok"))
}

// Handler returns the mux served on HTTPEndpoint.
func (m *Main) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", m.healthz)
	return mux
}

// Run starts the HTTP server and the tasks, and blocks until ctx is
// canceled or any of them fails. A task stopping because ctx was canceled is
// not an error.
func (m *Main) Run(ctx context.Context) error {
	if m.HealthyDeadline == 0 {
		m.HealthyDeadline = 5 * time.Second
	}
	g, gctx := errgroup.WithContext(ctx)

	if m.HTTPEndpoint != "" {
		lis, err := net.Listen("tcp", m.HTTPEndpoint)
		if err != nil {
			return err
		}
		srv := &http.Server{Handler: m.Handler()}
		g.Go(func() error {
			klog.Infof("HTTP server starting on %v", lis.Addr())
			var err error
			// Let ServeTLS handle the error case when only one of the files is set.
			if m.TLSCertFile != "" || m.TLSKeyFile != "" {
				err = srv.ServeTLS(lis, m.TLSCertFile, m.TLSKeyFile)
			} else {
				err = srv.Serve(lis)
			}
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	for _, t := range m.Tasks {
		t := t
		g.Go(func() error {
			if err := t(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	klog.Infof("Stopping server, about to exit")
	return err
}
