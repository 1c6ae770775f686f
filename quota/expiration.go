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

package quota

import (
	"strconv"
	"strings"
	"time"
)

type expirationKind int

const (
	expireDefault expirationKind = iota
	expireRelative
	expireAbsolute
)

// Expiration tells when a reservation becomes eligible for expiry. The zero
// value selects the configured default.
type Expiration struct {
	kind expirationKind
	d    time.Duration
	at   time.Time
}

// ExpireAfter expires reservations d after they are created. A zero duration
// creates reservations that are already expired.
func ExpireAfter(d time.Duration) Expiration {
	return Expiration{kind: expireRelative, d: d}
}

// ExpireAfterSeconds is ExpireAfter in whole seconds.
func ExpireAfterSeconds(s int64) Expiration {
	return ExpireAfter(time.Duration(s) * time.Second)
}

// ExpireAt expires reservations at t.
func ExpireAt(t time.Time) Expiration {
	return Expiration{kind: expireAbsolute, at: t}
}

// ParseExpiration reads an expiration given as whole seconds ("3600"), a Go
// duration ("90m") or an RFC 3339 timestamp. The empty string selects the
// default.
func ParseExpiration(s string) (Expiration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Expiration{}, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ExpireAfterSeconds(n), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return ExpireAfter(d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return ExpireAt(t), nil
	}
	return Expiration{}, &InvalidExpirationError{Expire: strconv.Quote(s)}
}

// IsDefault reports whether e selects the configured default.
func (e Expiration) IsDefault() bool {
	return e.kind == expireDefault
}

func (e Expiration) String() string {
	switch e.kind {
	case expireRelative:
		return e.d.String()
	case expireAbsolute:
		return e.at.Format(time.RFC3339Nano)
	}
	return "default"
}

// Resolve returns the absolute expiration time of a reservation created at
// now, using def for the zero Expiration.
func (e Expiration) Resolve(now time.Time, def time.Duration) (time.Time, error) {
	switch e.kind {
	case expireDefault:
		return now.Add(def), nil
	case expireRelative:
		if e.d < 0 {
			return time.Time{}, &InvalidExpirationError{Expire: e.String()}
		}
		return now.Add(e.d), nil
	case expireAbsolute:
		if e.at.IsZero() {
			return time.Time{}, &InvalidExpirationError{Expire: "zero time"}
		}
		return e.at, nil
	}
	return time.Time{}, &InvalidExpirationError{Expire: e.String()}
}
