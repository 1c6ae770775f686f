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
	"errors"
	"testing"
	"time"
)

func TestExpirationResolve(t *testing.T) {
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	def := time.Hour

	for _, tc := range []struct {
		desc    string
		in      string
		exp     *Expiration
		want    time.Time
		wantErr bool
	}{
		{desc: "emptyIsDefault", in: "", want: now.Add(def)},
		{desc: "seconds", in: "3600", want: now.Add(time.Hour)},
		{desc: "zeroSeconds", in: "0", want: now},
		{desc: "duration", in: "90m", want: now.Add(90 * time.Minute)},
		{desc: "rfc3339", in: "2026-06-01T00:00:00Z", want: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		{desc: "negativeSeconds", in: "-5", wantErr: true},
		{desc: "negativeDuration", in: "-1h", wantErr: true},
		{desc: "garbage", in: "tomorrow", wantErr: true},
		{desc: "afterSeconds", exp: ptr(ExpireAfterSeconds(30)), want: now.Add(30 * time.Second)},
		{desc: "zeroValue", exp: &Expiration{}, want: now.Add(def)},
		{desc: "zeroTime", exp: ptr(ExpireAt(time.Time{})), wantErr: true},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			var exp Expiration
			if tc.exp != nil {
				exp = *tc.exp
			} else {
				var err error
				exp, err = ParseExpiration(tc.in)
				if err != nil {
					checkInvalidExpiration(t, err, tc.wantErr)
					return
				}
			}
			got, err := exp.Resolve(now, def)
			if err != nil {
				checkInvalidExpiration(t, err, tc.wantErr)
				return
			}
			if tc.wantErr {
				t.Fatalf("Resolve()=%v, want error", got)
			}
			if !got.Equal(tc.want) {
				t.Errorf("Resolve()=%v, want %v", got, tc.want)
			}
		})
	}
}

func checkInvalidExpiration(t *testing.T, err error, wantErr bool) {
	t.Helper()
	if !wantErr {
		t.Fatalf("unexpected error: %v", err)
	}
	var ie *InvalidExpirationError
	if !errors.As(err, &ie) {
		t.Errorf("error %v is not an *InvalidExpirationError", err)
	}
}

func ptr(e Expiration) *Expiration { return &e }

func TestExpirationIsDefault(t *testing.T) {
	if !(Expiration{}).IsDefault() {
		t.Error("zero Expiration is not the default")
	}
	if ExpireAfter(0).IsDefault() {
		t.Error("ExpireAfter(0) is the default")
	}
}
