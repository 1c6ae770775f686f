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

package testdb

import "testing"

func TestCRDBURI(t *testing.T) {
	t.Setenv(CockroachDBURIEnv, "postgres://root@db:26257/?sslmode=disable")
	for _, tc := range []struct {
		name, want string
	}{
		{"", "postgres://root@db:26257/?sslmode=disable"},
		{"vq_1", "postgres://root@db:26257/vq_1?sslmode=disable"},
	} {
		if got := crdbURI(tc.name); got != tc.want {
			t.Errorf("crdbURI(%q)=%q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMySQLURI(t *testing.T) {
	t.Setenv(MySQLURIEnv, "test@tcp(db)/")
	if got, want := mysqlURI("vq_1"), "test@tcp(db)/vq_1"; got != want {
		t.Errorf("mysqlURI()=%q, want %q", got, want)
	}
}

func TestSanitize(t *testing.T) {
	in := "-- comment\n# other\n\nCREATE TABLE t(a INT);\n"
	if got, want := sanitize(in), "CREATE TABLE t(a INT);\n"; got != want {
		t.Errorf("sanitize()=%q, want %q", got, want)
	}
}
