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
	"sort"
	"sync"
)

// Registry holds the set of quota-tracked resources, keyed by name. It is
// safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

// NewRegistry returns a registry holding the given resources.
func NewRegistry(resources ...Resource) (*Registry, error) {
	r := &Registry{resources: make(map[string]Resource)}
	if err := r.RegisterAll(resources); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds res, replacing any resource of the same name.
func (r *Registry) Register(res Resource) error {
	if err := res.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[res.Name] = res
	return nil
}

// RegisterAll registers every resource in order, so the last registration
// for a name wins. Nothing is registered if any resource is invalid.
func (r *Registry) RegisterAll(resources []Resource) error {
	for _, res := range resources {
		if err := res.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range resources {
		r.resources[res.Name] = res
	}
	return nil
}

// Get returns the named resource and whether it exists.
func (r *Registry) Get(name string) (Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[name]
	return res, ok
}

// Names returns the sorted names of all registered resources.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.resources))
	for n := range r.resources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resources returns all registered resources sorted by name.
func (r *Registry) Resources() []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]Resource, 0, len(r.resources))
	for _, res := range r.resources {
		ret = append(ret, res)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

// snapshot returns a copy of the registered resources.
func (r *Registry) snapshot() Resources {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make(Resources, len(r.resources))
	for n, res := range r.resources {
		ret[n] = res
	}
	return ret
}

// Resources is a set of resources keyed by name, as handed to drivers.
type Resources map[string]Resource

// Names returns the sorted resource names.
func (rs Resources) Names() []string {
	names := make([]string, 0, len(rs))
	for n := range rs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OfKind returns the subset of rs with the given kind.
func (rs Resources) OfKind(k Kind) Resources {
	ret := make(Resources)
	for n, r := range rs {
		if r.Kind == k {
			ret[n] = r
		}
	}
	return ret
}
