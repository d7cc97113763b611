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

package ir

import (
	"context"
	"encoding/json"

	"github.com/edgegate/edgegate/pkg/config"
	egerrors "github.com/edgegate/edgegate/pkg/errors"
)

// Identity is the immutable identity of one compiled entity: its kind tag,
// name, provenance key and source location.
type Identity struct {
	Kind     string `json:"kind" yaml:"kind"`
	Name     string `json:"name" yaml:"name"`
	RKey     string `json:"rkey,omitempty" yaml:"rkey,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// String returns "<kind>/<name>", the id scoped errors are tagged with.
func (id Identity) String() string {
	return id.Kind + "/" + id.Name
}

// Entity is the capability set every compiled IR object implements. Entity
// kinds are explicit implementations of this interface rather than a type
// hierarchy; factories know which concrete constructor to call per kind.
type Entity interface {
	// Identity returns the entity's immutable identity.
	Identity() Identity

	// Enabled reports whether the entity participates in validation.
	Enabled() bool

	// Valid reports the entity's derived validity after Setup has run.
	Valid() bool

	// Setup validates the entity, resolves references, backfills defaults
	// and records diagnostics on the pass aggregator. It returns the
	// entity's validity and never fails: all problems are posted, not
	// propagated.
	Setup(ctx context.Context, ir *IR, agg *config.Aggregate) bool

	// AsDict returns a snapshot of the entity for serialization. The
	// snapshot is stable: identical entities produce identical output.
	AsDict() map[string]any
}

// Resource is the base attribute bag embedded by every entity kind. It
// carries identity, the enabled flag, the open attribute mapping, and the
// diagnostic routing back to the pass aggregator. Attribute operations
// never fail; popping an absent key is a no-op.
type Resource struct {
	ident   Identity
	enabled bool
	attrs   map[string]any
	errs    *egerrors.Aggregator
}

// NewResource creates an entity base. The attribute map is copied; the
// caller keeps ownership of attrs.
func NewResource(errs *egerrors.Aggregator, ident Identity, enabled bool, attrs map[string]any) Resource {
	bag := make(map[string]any, len(attrs))
	for k, v := range attrs {
		bag[k] = v
	}
	return Resource{
		ident:   ident,
		enabled: enabled,
		attrs:   bag,
		errs:    errs,
	}
}

// Identity returns the entity's immutable identity.
func (r *Resource) Identity() Identity {
	return r.ident
}

// Enabled reports whether the entity participates in validation.
func (r *Resource) Enabled() bool {
	return r.enabled
}

// Get returns the attribute value for key and whether it was present.
func (r *Resource) Get(key string) (any, bool) {
	v, ok := r.attrs[key]
	return v, ok
}

// GetDefault returns the attribute value for key, or def when absent.
func (r *Resource) GetDefault(key string, def any) any {
	if v, ok := r.attrs[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present in the attribute bag.
func (r *Resource) Has(key string) bool {
	_, ok := r.attrs[key]
	return ok
}

// Set stores value under key, replacing any previous value.
func (r *Resource) Set(key string, value any) {
	r.attrs[key] = value
}

// Update merges every key of m into the attribute bag, overwriting
// existing values.
func (r *Resource) Update(m map[string]any) {
	for k, v := range m {
		r.attrs[k] = v
	}
}

// Pop removes key and returns its value. Absent keys are a no-op, not an
// error.
func (r *Resource) Pop(key string) (any, bool) {
	v, ok := r.attrs[key]
	if ok {
		delete(r.attrs, key)
	}
	return v, ok
}

// PostError records a scoped error against this entity on the pass
// aggregator. It never fails.
func (r *Resource) PostError(err *egerrors.StructuredError) {
	r.errs.PostResourceError(r.ident.Kind, r.ident.Name, err)
}

// Aggregator returns the pass aggregator this entity reports to.
func (r *Resource) Aggregator() *egerrors.Aggregator {
	return r.errs
}

// AsDict returns a snapshot of identity, enabled flag and attributes.
// Serializing the snapshot yields stable output: JSON and YAML marshaling
// emit map keys in sorted order.
func (r *Resource) AsDict() map[string]any {
	out := make(map[string]any, len(r.attrs)+4)
	for k, v := range r.attrs {
		out[k] = v
	}
	out["kind"] = r.ident.Kind
	out["name"] = r.ident.Name
	if r.ident.RKey != "" {
		out["rkey"] = r.ident.RKey
	}
	if r.ident.Location != "" {
		out["location"] = r.ident.Location
	}
	out["enabled"] = r.enabled
	return out
}

// Snapshotter is anything producing an AsDict snapshot: entities, the bare
// Resource base, or the IR itself.
type Snapshotter interface {
	AsDict() map[string]any
}

// AsJSON returns a Snapshotter's snapshot as indented JSON. A helper rather
// than a method so entity kinds that extend AsDict (typed fields on top of
// the bag) serialize through their own snapshot.
func AsJSON(s Snapshotter) (string, error) {
	b, err := json.MarshalIndent(s.AsDict(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
