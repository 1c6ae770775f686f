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

// Package testdbpgx creates throwaway PostgreSQL databases carrying the quota
// schema for tests.
package testdbpgx

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

const (
	// PostgreSQLURIEnv names the environment variable holding the URI of the
	// server that test quota databases are created on.
	PostgreSQLURIEnv = "TEST_POSTGRESQL_URI"

	defaultTestPostgreSQLURI = "postgresql:///defaultdb?host=localhost&user=postgres&password=postgres"

	// fdLimit covers the connection pools of a parallel storage test run.
	fdLimit = 2048
)

var quotaSchema = relativeToPackage("../schema/storage.sql")

func relativeToPackage(p string) string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return p
	}
	return filepath.Join(filepath.Dir(file), p)
}

// serverURI returns the URI of the test server, pointed at database db when
// it is not empty.
func serverURI(db string) string {
	uri := os.Getenv(PostgreSQLURIEnv)
	if uri == "" {
		uri = defaultTestPostgreSQLURI
	}
	if db == "" {
		return uri
	}
	scheme, rest, ok := strings.Cut(uri, "//")
	if !ok {
		return uri
	}
	_, query, ok := strings.Cut(rest, "?")
	if !ok {
		return scheme + "///" + db
	}
	return scheme + "///" + db + "?" + query
}

// PostgreSQLAvailable reports whether the test server answers a ping.
func PostgreSQLAvailable() bool {
	ctx := context.Background()
	db, err := pgxpool.New(ctx, serverURI(""))
	if err != nil {
		klog.Infof("pgxpool.New(): %v", err)
		return false
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		klog.Infof("db.Ping(): %v", err)
		return false
	}
	return true
}

func raiseFDLimit() error {
	var rLimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return err
	}
	if rLimit.Cur >= fdLimit {
		return nil
	}
	if fdLimit > rLimit.Max {
		return fmt.Errorf("FD limit %d exceeds the hard limit %d", fdLimit, rLimit.Max)
	}
	rLimit.Cur = fdLimit
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
}

// NewQuotaDB creates a randomly named database holding the quota tables.
// The returned function drops it; the pool must not be used afterwards.
func NewQuotaDB(ctx context.Context) (*pgxpool.Pool, func(context.Context), error) {
	if err := raiseFDLimit(); err != nil {
		return nil, nil, err
	}
	admin, err := pgxpool.New(ctx, serverURI(""))
	if err != nil {
		return nil, nil, err
	}
	name := fmt.Sprintf("vq_%v", time.Now().UnixNano())
	_, err = admin.Exec(ctx, "CREATE DATABASE "+name)
	admin.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("creating quota database %s: %v", name, err)
	}

	db, err := pgxpool.New(ctx, serverURI(name))
	if err != nil {
		return nil, nil, err
	}
	done := func(ctx context.Context) {
		db.Close()
		admin, err := pgxpool.New(ctx, serverURI(""))
		if err != nil {
			klog.Warningf("Failed to reconnect: %v", err)
			return
		}
		defer admin.Close()
		if _, err := admin.Exec(ctx, "DROP DATABASE "+name); err != nil {
			klog.Warningf("Failed to drop quota database %q: %v", name, err)
		}
	}

	stmts, err := schemaStatements(quotaSchema)
	if err != nil {
		done(ctx)
		return nil, nil, err
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			done(ctx)
			return nil, nil, fmt.Errorf("error running statement %q: %v", stmt, err)
		}
	}
	return db, done, nil
}

// schemaStatements splits the schema file into statements, each ending with
// a semicolon at the end of a line. Comment lines are dropped.
func schemaStatements(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var stmts []string
	var cur strings.Builder
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "--") || strings.HasPrefix(line, "#") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(line, ";") {
			stmts = append(stmts, strings.TrimSuffix(strings.TrimSpace(cur.String()), ";"))
			cur.Reset()
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// SkipIfNoPostgreSQL skips t unless the test server is reachable.
func SkipIfNoPostgreSQL(t *testing.T) {
	t.Helper()
	if !PostgreSQLAvailable() {
		t.Skip("Skipping test as PostgreSQL not available")
	}
	t.Logf("Test PostgreSQL available at %q", serverURI(""))
}
