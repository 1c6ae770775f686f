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

package docstore

import (
	"context"
	"errors"

	"github.com/volquota/volquota/storage"
	"k8s.io/klog/v2"
)

// DefaultMaxAttempts bounds how many times a conflicting transaction is run.
const DefaultMaxAttempts = 10

// ErrConflict is returned by a backend's commit step when a key read by the
// transaction was modified concurrently.
var ErrConflict = errors.New("docstore: transaction conflict")

// RetryConflicts calls attempt until it returns something other than
// ErrConflict. It gives up with storage.ErrTooManyConflicts after
// maxAttempts calls.
func RetryConflicts(ctx context.Context, maxAttempts int, attempt func() error) error {
	for i := 1; i <= maxAttempts; i++ {
		err := attempt()
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		klog.V(2).Infof("docstore: conflict on attempt %d of %d", i, maxAttempts)
	}
	return storage.ErrTooManyConflicts
}
