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

package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/volquota/volquota/storage"
	"github.com/volquota/volquota/storage/testonly"
	"github.com/volquota/volquota/util/flagsaver"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func openTestDB(t *testing.T) storage.QuotaStorage {
	t.Helper()
	db, err := OpenDB(context.Background(), filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatalf("OpenDB(): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewQuotaStorage(db)
}

func TestQuotaStorage(t *testing.T) {
	tester := &testonly.QuotaStorageTester{NewQuotaStorage: openTestDB}
	tester.RunAllTests(t)
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quota.db")
	for i := 0; i < 2; i++ {
		db, err := OpenDB(ctx, path)
		if err != nil {
			t.Fatalf("OpenDB() #%d: %v", i, err)
		}
		if i == 0 {
			qs := NewQuotaStorage(db)
			if err := storage.SetQuota(ctx, qs, storage.Quota{ProjectID: "p1", Resource: "volumes", HardLimit: 4}); err != nil {
				t.Fatalf("SetQuota(): %v", err)
			}
		} else {
			got, err := storage.GetQuotas(ctx, NewQuotaStorage(db), "p1")
			if err != nil || len(got) != 1 || got[0].HardLimit != 4 {
				t.Errorf("GetQuotas() after reopen=%v, %v", got, err)
			}
		}
		db.Close()
	}
}

type codedErr int

func (e codedErr) Error() string { return "sqlite error" }
func (e codedErr) Code() int     { return int(e) }

func TestSQLiteToGRPC(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want codes.Code
	}{
		{codedErr(sqliteBusy), codes.Aborted},
		{codedErr(sqliteLocked | 1<<8), codes.Aborted},
		{codedErr(19), codes.Unknown},
		{errors.New("plain"), codes.Unknown},
	} {
		if got := status.Code(sqliteToGRPC(tc.err)); got != tc.want {
			t.Errorf("sqliteToGRPC(%v) code=%v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestSQLiteStorageProvider(t *testing.T) {
	flagsaver.SetForTest(t, "sqlite_path", filepath.Join(t.TempDir(), "provider.db"))
	sp, err := storage.NewProvider(StorageProviderName, nil)
	if err != nil {
		t.Fatalf("NewProvider(): %v", err)
	}
	defer sp.Close()
	if err := sp.QuotaStorage().CheckDatabaseAccessible(context.Background()); err != nil {
		t.Errorf("CheckDatabaseAccessible()=%v", err)
	}
}
