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

package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/volquota/volquota/storage"
	"github.com/volquota/volquota/storage/testdb"
	"github.com/volquota/volquota/storage/testonly"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newTestStorage(t *testing.T) storage.QuotaStorage {
	t.Helper()
	ctx := context.Background()
	db, done, err := testdb.NewQuotaDB(ctx, testdb.DriverMySQL)
	if err != nil {
		t.Fatalf("NewQuotaDB(): %v", err)
	}
	t.Cleanup(func() { done(context.Background()) })
	return NewQuotaStorage(db)
}

func TestQuotaStorage(t *testing.T) {
	testdb.SkipIfNoMySQL(t)
	tester := &testonly.QuotaStorageTester{NewQuotaStorage: newTestStorage}
	tester.RunAllTests(t)
}

func TestMySQLToGRPC(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want codes.Code
	}{
		{&mysql.MySQLError{Number: errNumDeadlock}, codes.Aborted},
		{&mysql.MySQLError{Number: errNumLockWaitTimeout}, codes.Aborted},
		{&mysql.MySQLError{Number: 1062}, codes.Unknown},
		{errors.New("connection refused"), codes.Unknown},
	} {
		err := mysqlToGRPC(tc.err)
		if got := status.Code(err); got != tc.want {
			t.Errorf("mysqlToGRPC(%v) code=%v, want %v", tc.err, got, tc.want)
		}
		if tc.want == codes.Aborted && !storage.IsRetryable(err) {
			t.Errorf("mysqlToGRPC(%v) is not retryable", tc.err)
		}
	}
}

func TestDialect(t *testing.T) {
	if got, want := Dialect.Upsert([]string{"project_id", "resource"}, []string{"hard_limit"}),
		" ON DUPLICATE KEY UPDATE hard_limit=VALUES(hard_limit)"; got != want {
		t.Errorf("Upsert()=%q, want %q", got, want)
	}
	if got, want := Dialect.InsertIgnore("INSERT INTO t (a) VALUES (?)", nil),
		"INSERT IGNORE INTO t (a) VALUES (?)"; got != want {
		t.Errorf("InsertIgnore()=%q, want %q", got, want)
	}
}
