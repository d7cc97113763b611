// Copyright (c) 2025, the EdgeGate authors.  All rights reserved.
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

package config

import "log/slog"

// KindModule is the kind tag for singleton module resources. Modules are
// indexed by name ("tls") rather than by kind.
const KindModule = "module"

// Aggregate is the indexed view of all raw resources for one compilation
// pass. Resources keep the order they were added in, per kind.
type Aggregate struct {
	modules   map[string]*Resource
	resources map[string][]*Resource
}

// NewAggregate creates an empty Aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{
		modules:   make(map[string]*Resource),
		resources: make(map[string][]*Resource),
	}
}

// Add indexes a raw resource. A resource of kind "module" registers as the
// singleton module for its name; a duplicate module name keeps the last one
// and logs the replacement.
func (a *Aggregate) Add(r *Resource) {
	if r == nil {
		return
	}
	if r.Kind == KindModule {
		if prev, ok := a.modules[r.Name]; ok {
			slog.Warn("module redefined, keeping later definition",
				"module", r.Name,
				"previous", prev.Location,
				"replacement", r.Location)
		}
		a.modules[r.Name] = r
		return
	}
	a.resources[r.Kind] = append(a.resources[r.Kind], r)
}

// GetModule returns the singleton module resource with the given name, or
// nil when the configuration does not define it.
func (a *Aggregate) GetModule(name string) *Resource {
	return a.modules[name]
}

// ResourcesOfKind returns all resources of the given kind in authoring
// order. A kind with no resources yields an empty slice.
func (a *Aggregate) ResourcesOfKind(kind string) []*Resource {
	return a.resources[kind]
}

// Kinds returns the distinct non-module kinds present in the aggregate.
func (a *Aggregate) Kinds() []string {
	kinds := make([]string, 0, len(a.resources))
	for k := range a.resources {
		kinds = append(kinds, k)
	}
	return kinds
}
