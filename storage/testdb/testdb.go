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

// Package testdb creates throwaway MySQL and CockroachDB databases carrying
// the quota schema for tests.
package testdb

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/lib/pq"              // postgres driver, used for CockroachDB
)

const (
	// MySQLURIEnv is the name of the ENV variable checked for the test MySQL
	// instance URI to use. The value must have a trailing slash.
	MySQLURIEnv = "TEST_MYSQL_URI"
	// CockroachDBURIEnv is the name of the ENV variable checked for the test
	// CockroachDB instance URI to use.
	CockroachDBURIEnv = "TEST_COCKROACHDB_URI"

	defaultTestMySQLURI       = "root@tcp(127.0.0.1)/"
	defaultTestCockroachDBURI = "postgres://root@localhost:26257/?sslmode=disable"
)

// DriverName is the name of a database driver.
type DriverName string

const (
	// DriverMySQL is the identifier for the MySQL storage driver.
	DriverMySQL DriverName = "mysql"
	// DriverCockroachDB is the identifier for the CockroachDB storage driver.
	DriverCockroachDB DriverName = "cockroachdb"
)

type driverInfo struct {
	sqlDriver string
	schema    string
	uriFunc   func(dbName string) string
}

var drivers = map[DriverName]driverInfo{
	DriverMySQL: {
		sqlDriver: "mysql",
		schema:    relativeToPackage("../mysql/schema/storage.sql"),
		uriFunc:   mysqlURI,
	},
	DriverCockroachDB: {
		sqlDriver: "postgres",
		schema:    relativeToPackage("../crdb/schema/storage.sql"),
		uriFunc:   crdbURI,
	},
}

// relativeToPackage returns p resolved against the directory of this file.
func relativeToPackage(p string) string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return p
	}
	return filepath.Join(filepath.Dir(file), p)
}

// mysqlURI returns the MySQL URI for dbName, starting from the value of
// MySQLURIEnv if set. An ENV variable rather than a flag lets every test
// binary that links this package pick it up.
func mysqlURI(dbName string) string {
	uri := defaultTestMySQLURI
	if e := os.Getenv(MySQLURIEnv); len(e) > 0 {
		uri = e
	}
	return uri + dbName
}

func crdbURI(dbName string) string {
	uri := defaultTestCockroachDBURI
	if e := os.Getenv(CockroachDBURIEnv); len(e) > 0 {
		uri = e
	}
	if dbName == "" {
		return uri
	}
	before, after, _ := strings.Cut(uri, "?")
	before = strings.TrimSuffix(before, "/") + "/" + dbName
	if after == "" {
		return before
	}
	return before + "?" + after
}

// MySQLAvailable indicates whether the configured MySQL database is available.
func MySQLAvailable() bool {
	return dbAvailable(DriverMySQL)
}

// CockroachDBAvailable indicates whether the configured CockroachDB database
// is available.
func CockroachDBAvailable() bool {
	return dbAvailable(DriverCockroachDB)
}

func dbAvailable(driver DriverName) bool {
	inf := drivers[driver]
	db, err := sql.Open(inf.sqlDriver, inf.uriFunc(""))
	if err != nil {
		klog.Infof("sql.Open(): %v", err)
		return false
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		klog.Infof("db.Ping(): %v", err)
		return false
	}
	return true
}

// SetFDLimit sets the soft limit on the maximum number of open file descriptors.
// See http://man7.org/linux/man-pages/man2/setrlimit.2.html
func SetFDLimit(uLimit uint64) error {
	var rLimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return err
	}
	if uLimit > rLimit.Max {
		return fmt.Errorf("could not set FD limit to %v, must be less than the hard limit %v", uLimit, rLimit.Max)
	}
	rLimit.Cur = uLimit
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
}

// newEmptyDB creates a randomly named, empty database. The returned clean-up
// function drops it; the handle must not be used afterwards.
func newEmptyDB(ctx context.Context, driver DriverName) (*sql.DB, func(context.Context), error) {
	if err := SetFDLimit(2048); err != nil {
		return nil, nil, err
	}
	inf, ok := drivers[driver]
	if !ok {
		return nil, nil, fmt.Errorf("unknown driver %q", driver)
	}
	db, err := sql.Open(inf.sqlDriver, inf.uriFunc(""))
	if err != nil {
		return nil, nil, err
	}

	name := fmt.Sprintf("vq_%v", time.Now().UnixNano())
	stmt := fmt.Sprintf("CREATE DATABASE %v", name)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("error running statement %q: %v", stmt, err)
	}
	db.Close()

	db, err = sql.Open(inf.sqlDriver, inf.uriFunc(name))
	if err != nil {
		return nil, nil, err
	}
	done := func(ctx context.Context) {
		defer db.Close()
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP DATABASE %v", name)); err != nil {
			klog.Warningf("Failed to drop test database %q: %v", name, err)
		}
	}
	return db, done, db.PingContext(ctx)
}

// NewQuotaDB creates an empty database with the quota schema of driver.
func NewQuotaDB(ctx context.Context, driver DriverName) (*sql.DB, func(context.Context), error) {
	db, done, err := newEmptyDB(ctx, driver)
	if err != nil {
		return nil, nil, err
	}
	script, err := os.ReadFile(drivers[driver].schema)
	if err != nil {
		done(ctx)
		return nil, nil, err
	}
	for _, stmt := range strings.Split(sanitize(string(script)), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			done(ctx)
			return nil, nil, fmt.Errorf("error running statement %q: %v", stmt, err)
		}
	}
	return db, done, nil
}

func sanitize(script string) string {
	buf := &bytes.Buffer{}
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "--") {
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	return buf.String()
}

// SkipIfNoMySQL is a test helper that skips tests that require a local MySQL.
func SkipIfNoMySQL(t *testing.T) {
	t.Helper()
	if !MySQLAvailable() {
		t.Skip("Skipping test as MySQL not available")
	}
	t.Logf("Test MySQL available at %q", mysqlURI(""))
}

// SkipIfNoCockroachDB is a test helper that skips tests that require a local
// CockroachDB.
func SkipIfNoCockroachDB(t *testing.T) {
	t.Helper()
	if !CockroachDBAvailable() {
		t.Skip("Skipping test as CockroachDB not available")
	}
}
