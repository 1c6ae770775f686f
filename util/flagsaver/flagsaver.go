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

// Package flagsaver snapshots command-line flag values so that tests can
// override them and put them back afterwards.
//
//	func TestFoo(t *testing.T) {
//		defer flagsaver.Save().MustRestore()
//		flag.Set("reservation_expire", "60")
//	}
package flagsaver

import (
	"flag"
	"strings"
	"testing"

	"k8s.io/klog/v2"
)

// Stash holds the flag values captured by Save.
type Stash struct {
	flags map[string]string
}

// Save captures the current value of every registered flag except the ones
// owned by the test runner.
func Save() *Stash {
	s := &Stash{flags: make(map[string]string)}
	flag.VisitAll(func(f *flag.Flag) {
		// log_backtrace_at cannot be set back to its empty default.
		if strings.HasPrefix(f.Name, "test.") || f.Name == "log_backtrace_at" {
			return
		}
		s.flags[f.Name] = f.Value.String()
	})
	return s
}

// Restore sets every saved flag back to its captured value.
func (s *Stash) Restore() error {
	for name, value := range s.flags {
		if err := flag.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// MustRestore is Restore for use in a defer; it exits the process if a flag
// cannot be restored.
func (s *Stash) MustRestore() {
	if err := s.Restore(); err != nil {
		klog.Fatalf("MustRestore(): failed to restore flags: %v", err)
	}
}

// SetForTest sets the named flag for the duration of t.
func SetForTest(t testing.TB, name, value string) {
	t.Helper()
	s := Save()
	if err := flag.Set(name, value); err != nil {
		t.Fatalf("flag.Set(%q, %q): %v", name, value, err)
	}
	t.Cleanup(s.MustRestore)
}
