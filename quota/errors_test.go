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
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorCodes(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want codes.Code
	}{
		{&ResourceUnknownError{Unknown: []string{"x"}}, codes.InvalidArgument},
		{&ProjectQuotaNotFoundError{ProjectID: "p"}, codes.NotFound},
		{&ClassNotFoundError{ClassName: "c"}, codes.NotFound},
		{&OverQuotaError{Overs: []string{"volumes"}}, codes.ResourceExhausted},
		{&InvalidExpirationError{Expire: "x"}, codes.InvalidArgument},
		{&InvalidValueError{Unders: []string{"x"}}, codes.InvalidArgument},
		{&ReservationNotFoundError{IDs: []string{"r"}}, codes.FailedPrecondition},
		{&UsageSyncError{ProjectID: "p", Resource: "volumes"}, codes.FailedPrecondition},
	} {
		if got := status.Code(tc.err); got != tc.want {
			t.Errorf("status.Code(%T)=%v, want %v", tc.err, got, tc.want)
		}
		wrapped := fmt.Errorf("context: %w", tc.err)
		if got := status.Code(wrapped); got != tc.want {
			t.Errorf("status.Code(wrapped %T)=%v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestOverQuotaMessage(t *testing.T) {
	err := &OverQuotaError{
		Overs:  []string{"gigabytes", "volumes"},
		Quotas: map[string]int64{"gigabytes": 3, "volumes": 2},
		Usages: map[string]UsageInfo{"gigabytes": {InUse: 2}, "volumes": {InUse: 1, Reserved: 1}},
		Deltas: map[string]int64{"gigabytes": 2, "volumes": 1},
	}
	want := "quota exceeded for resources [gigabytes volumes]: " +
		"gigabytes requested 2, quota is 3 and 2 has been consumed; " +
		"volumes requested 1, quota is 2 and 2 has been consumed"
	if got := err.Error(); got != want {
		t.Errorf("Error()=%q, want %q", got, want)
	}
}
