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
	"sort"
	"sync"

	"github.com/volquota/volquota/storage"
	"github.com/volquota/volquota/util/clock"
)

// DriverOptions carries what a driver may need to be built.
type DriverOptions struct {
	Storage    storage.QuotaStorage
	Config     Config
	TimeSource clock.TimeSource
}

// NewDriverFunc is the signature of a function which can be registered to
// provide instances of quota drivers.
type NewDriverFunc func(DriverOptions) (Driver, error)

var (
	drMu     sync.RWMutex
	drByName = make(map[string]NewDriverFunc)
)

// RegisterDriver registers a NewDriverFunc by name.
func RegisterDriver(name string, f NewDriverFunc) error {
	drMu.Lock()
	defer drMu.Unlock()

	if _, exists := drByName[name]; exists {
		return fmt.Errorf("quota driver %v already registered", name)
	}
	drByName[name] = f
	return nil
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	drMu.RLock()
	defer drMu.RUnlock()

	r := make([]string, 0, len(drByName))
	for k := range drByName {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

// NewDriver returns a driver of the named type.
func NewDriver(name string, opts DriverOptions) (Driver, error) {
	drMu.RLock()
	f, exists := drByName[name]
	drMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown quota driver: %v, have %v", name, Drivers())
	}
	if opts.TimeSource == nil {
		opts.TimeSource = clock.System
	}
	return f(opts)
}
