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

// Reserved keys extracted from a raw document into Resource identity fields.
// Everything else lands in Attrs.
const (
	KeyKind      = "kind"
	KeyName      = "name"
	KeyNamespace = "namespace"
	KeyEnabled   = "enabled"
)

// Resource is one raw configuration entity as authored by the user.
// RKey, Kind and Name are immutable provenance/identity; Attrs carries the
// open key/value attributes the entity factories interpret.
type Resource struct {
	// RKey is an opaque provenance identifier used in diagnostics,
	// e.g. "gateway.yaml.2" for the third document of gateway.yaml.
	RKey string

	// Kind is the resource type tag, e.g. "tls-context" or "module".
	Kind string

	// Name is unique within kind+namespace.
	Name string

	// Namespace the resource was authored in; empty means the compilation's
	// active namespace.
	Namespace string

	// Location is the human-readable source location, e.g. "gateway.yaml:3".
	Location string

	// Enabled gates whether the resource participates in validation.
	Enabled bool

	// Attrs holds every non-reserved key of the source document.
	Attrs map[string]any
}

// AsDict returns a copy of the free-form attributes. Identity fields are not
// included; factories receive them explicitly.
func (r *Resource) AsDict() map[string]any {
	out := make(map[string]any, len(r.Attrs))
	for k, v := range r.Attrs {
		out[k] = v
	}
	return out
}
