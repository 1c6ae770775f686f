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

// Package provider registers the storage backends linked into the binaries
// and picks their default selection.
package provider

import (
	"slices"

	"github.com/volquota/volquota/quota"
	"github.com/volquota/volquota/storage"
)

var (
	// DefaultStorageSystem is mysql when linked in, otherwise the first
	// registered storage provider.
	DefaultStorageSystem string
	// DefaultQuotaDriver is the db driver when registered, otherwise the
	// first registered quota driver.
	DefaultQuotaDriver string
)

func init() {
	DefaultStorageSystem = pick("mysql", storage.Providers())
	DefaultQuotaDriver = pick(quota.DBDriverName, quota.Drivers())
}

func pick(preferred string, available []string) string {
	if len(available) == 0 || slices.Contains(available, preferred) {
		return preferred
	}
	slices.Sort(available)
	return available[0]
}
