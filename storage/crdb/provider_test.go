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

package crdb

import (
	"testing"

	"github.com/volquota/volquota/storage"
	"github.com/volquota/volquota/util/flagsaver"
)

func TestCockroachDBStorageProviderErrorPersistence(t *testing.T) {
	flagsaver.SetForTest(t, "crdb_uri", "&bogus*:::?")

	// OpenDB pings, so a garbage URI fails here.
	_, err1 := storage.NewProvider(StorageProviderName, nil)
	if err1 == nil {
		t.Fatalf("Expected 'storage.NewProvider' to fail")
	}

	// The first error is cached.
	_, err2 := storage.NewProvider(StorageProviderName, nil)
	if err2 == nil {
		t.Fatalf("Expected second call to 'storage.NewProvider' to fail")
	}

	if err2 != err1 {
		t.Fatalf("Expected second call to 'storage.NewProvider' to fail with %q, instead got: %q", err1, err2)
	}
}
