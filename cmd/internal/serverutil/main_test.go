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

package serverutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func pickFreePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func waitForStatus(t *testing.T, url string, want int) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url) //nolint:gosec
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == want {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d from %s", want, url)
}

func TestHealthz(t *testing.T) {
	for _, tc := range []struct {
		desc      string
		isHealthy func(context.Context) error
		wantCode  int
		wantBody  string
	}{
		{desc: "noCheck", wantCode: http.StatusOK, wantBody: "ok"},
		{desc: "healthy", isHealthy: func(context.Context) error { return nil }, wantCode: http.StatusOK, wantBody: "ok"},
		{desc: "unhealthy", isHealthy: func(context.Context) error { return errors.New("db down") }, wantCode: http.StatusServiceUnavailable, wantBody: "db down"},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			m := &Main{IsHealthy: tc.isHealthy, HealthyDeadline: time.Second}
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tc.wantCode || rec.Body.String() != tc.wantBody {
				t.Errorf("GET /healthz=%d %q, want %d %q", rec.Code, rec.Body.String(), tc.wantCode, tc.wantBody)
			}
		})
	}
}

func TestMetricsServed(t *testing.T) {
	rec := httptest.NewRecorder()
	(&Main{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK || !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("GET /metrics=%d, want the default registry's metrics", rec.Code)
	}
}

func TestHTTPServerDoesNotExposeDefaultServeMux(t *testing.T) {
	http.HandleFunc("/debug/volquota-test", func(rw http.ResponseWriter, _ *http.Request) { rw.Write([]byte("leak")) })
	port := pickFreePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	m := &Main{HTTPEndpoint: fmt.Sprintf("127.0.0.1:%d", port)}
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitForStatus(t, base+"/healthz", http.StatusOK)
	waitForStatus(t, base+"/debug/volquota-test", http.StatusNotFound)

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run()=%v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunStopsOnTaskFailure(t *testing.T) {
	errBoom := errors.New("boom")
	stopped := make(chan struct{})
	m := &Main{Tasks: []Task{
		func(context.Context) error { return errBoom },
		func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return ctx.Err()
		},
	}}
	if err := m.Run(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("Run()=%v, want %v", err, errBoom)
	}
	select {
	case <-stopped:
	default:
		t.Error("sibling task was not stopped")
	}
}
