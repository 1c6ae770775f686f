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

package coresql

import (
	"fmt"
	"strings"
)

// Dialect captures the statement and error differences between databases.
type Dialect struct {
	// Name is used in log and error messages.
	Name string
	// Rebind rewrites the ? placeholders of a query. Nil keeps them.
	Rebind func(query string) string
	// Upsert returns the clause appended to an INSERT so that an existing row
	// with the same key gets cols overwritten.
	Upsert func(key, cols []string) string
	// InsertIgnore rewrites an INSERT so that a row whose key exists is
	// skipped without failing the transaction.
	InsertIgnore func(insert string, key []string) string
	// ForUpdate is appended to locking reads.
	ForUpdate string
	// MapError converts driver errors into status errors, with codes.Aborted
	// for conditions worth retrying. Nil leaves errors unchanged.
	MapError func(error) error
}

// DollarPlaceholders rewrites ? placeholders into $1, $2, ...
func DollarPlaceholders(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// OnConflictUpsert is the Upsert clause of PostgreSQL, CockroachDB and SQLite.
func OnConflictUpsert(key, cols []string) string {
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		sets = append(sets, fmt.Sprintf("%s=excluded.%s", c, c))
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(key, ", "), strings.Join(sets, ", "))
}

// OnConflictDoNothing is the InsertIgnore rewrite of PostgreSQL, CockroachDB
// and SQLite.
func OnConflictDoNothing(insert string, key []string) string {
	return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", insert, strings.Join(key, ", "))
}

func (d Dialect) rebind(query string) string {
	if d.Rebind == nil {
		return query
	}
	return d.Rebind(query)
}

func (d Dialect) mapError(err error) error {
	if err == nil || d.MapError == nil {
		return err
	}
	return d.MapError(err)
}

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
