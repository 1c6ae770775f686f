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

// Package quota tracks per-project consumption of block-storage resources
// and enforces limits on it.
//
// Resources are declared in a Registry. Each has a Kind: Absolute resources
// only have a limit, Countable resources are measured on demand by a Counter,
// and Reservable resources keep cached usage counters that are changed
// through reservations and periodically resynchronised by a Syncer.
//
// The Engine is the entry point for callers. A typical mutating operation
// reserves the deltas it needs, performs its work and then commits the
// returned reservations, or rolls them back on failure:
//
//	ids, err := engine.Reserve(ctx, projectID, map[string]int64{"volumes": 1, "gigabytes": 10})
//	if err != nil {
//		return err // possibly an *OverQuotaError
//	}
//	if err := createVolume(ctx); err != nil {
//		engine.Rollback(ctx, projectID, ids)
//		return err
//	}
//	return engine.Commit(ctx, projectID, ids)
//
// Reservations that are never resolved are rolled back by Expire once their
// expiration passes.
//
// Limits are resolved from the most specific scope available: a project
// override, then a quota class override, then the resource default. A limit
// of -1 means unlimited.
package quota
