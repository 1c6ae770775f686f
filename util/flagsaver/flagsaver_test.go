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

package flagsaver

import (
	"flag"
	"testing"
	"time"
)

var (
	_ = flag.Int("int_flag", 123, "test integer flag")
	_ = flag.String("str_flag", "foo", "test string flag")
	_ = flag.Duration("duration_flag", 5*time.Second, "test duration flag")
)

func TestRestore(t *testing.T) {
	for _, tc := range []struct {
		desc string
		flag string
		// old is the value at Save time; empty keeps the default.
		old string
		new string
	}{
		{desc: "defaultInt", flag: "int_flag", new: "666"},
		{desc: "defaultDuration", flag: "duration_flag", new: "1m0s"},
		{desc: "setInt", flag: "int_flag", old: "555", new: "666"},
		{desc: "setStr", flag: "str_flag", old: "bar", new: "baz"},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			f := flag.Lookup(tc.flag)
			if f == nil {
				t.Fatalf("flag.Lookup(%q)=nil", tc.flag)
			}
			want := f.DefValue
			if tc.old != "" {
				if err := flag.Set(tc.flag, tc.old); err != nil {
					t.Fatalf("flag.Set(%q, %q): %v", tc.flag, tc.old, err)
				}
				want = tc.old
			}

			func() {
				defer Save().MustRestore()
				if err := flag.Set(tc.flag, tc.new); err != nil {
					t.Fatalf("flag.Set(%q, %q): %v", tc.flag, tc.new, err)
				}
				if got := f.Value.String(); got != tc.new {
					t.Errorf("%s=%q, want %q", tc.flag, got, tc.new)
				}
			}()

			if got := f.Value.String(); got != want {
				t.Errorf("%s after restore=%q, want %q", tc.flag, got, want)
			}
		})
	}
}

func TestSetForTest(t *testing.T) {
	t.Run("override", func(t *testing.T) {
		SetForTest(t, "str_flag", "scoped")
		if got := flag.Lookup("str_flag").Value.String(); got != "scoped" {
			t.Errorf("str_flag=%q, want scoped", got)
		}
	})
	if got := flag.Lookup("str_flag").Value.String(); got == "scoped" {
		t.Error("str_flag still overridden after the subtest")
	}
}
