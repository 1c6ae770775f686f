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

package storage

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNotFound is returned when a row that must exist does not.
	ErrNotFound = status.Error(codes.NotFound, "storage: not found")
	// ErrAlreadyExists is returned when inserting a row that already exists.
	ErrAlreadyExists = status.Error(codes.AlreadyExists, "storage: already exists")
	// ErrTooManyConflicts is returned by optimistic backends that gave up
	// re-running a transaction after repeated write conflicts.
	ErrTooManyConflicts = status.Error(codes.Aborted, "storage: too many transaction conflicts")
)

// IsRetryable reports whether err signals a transient condition, such as a
// deadlock or a serialisation failure, after which the caller may retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTooManyConflicts) {
		return true
	}
	s, ok := status.FromError(err)
	return ok && (s.Code() == codes.Aborted || s.Code() == codes.Unavailable)
}
