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

package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"
)

func TestAwaitSignalRunsDoneFn(t *testing.T) {
	// Catch SIGTERM in the test too, so an early signal cannot kill the
	// process before AwaitSignal subscribes.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGTERM)
	defer signal.Stop(guard)

	ran := make(chan struct{})
	returned := make(chan struct{})
	go func() {
		AwaitSignal(context.Background(), func() { close(ran) })
		close(returned)
	}()

	// Keep signalling until the handler is installed and reacts.
	deadline := time.After(5 * time.Second)
	for {
		if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
			t.Fatalf("Kill(): %v", err)
		}
		select {
		case <-ran:
			<-returned
			return
		case <-deadline:
			t.Fatal("doneFn not run after SIGTERM")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAwaitSignalCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	AwaitSignal(ctx, func() { t.Error("doneFn run after cancelation") })
}
