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

package secrets

import (
	"context"
	"errors"
)

// Canonical attribute keys a resolver returns. They match the names the
// downstream renderer expects on a TLS context, so resolved material can be
// merged straight into an entity's attribute bag.
const (
	AttrCertificateChainFile = "certificate_chain_file"
	AttrPrivateKeyFile       = "private_key_file"
)

// ErrNotFound signals that the referenced secret does not exist. Callers
// distinguish it from transport or permission failures with errors.Is.
var ErrNotFound = errors.New("secret not found")

// Request identifies one secret lookup. Consumer is the "<kind>/<name>" of
// the entity asking, carried for diagnostics only.
type Request struct {
	Name      string
	Namespace string
	Consumer  string
}

// Resolver turns a symbolic secret reference into concrete key-material
// attributes. It is an optional capability of the compilation environment:
// an IR built without a Resolver simply performs no resolution.
//
// Resolve returns the resolved attributes, or an error wrapping ErrNotFound
// when the reference cannot be satisfied.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (map[string]any, error)
}

// Static is an in-memory Resolver for tests and development.
type Static struct {
	entries map[string]map[string]any
}

// NewStatic creates an empty Static resolver.
func NewStatic() *Static {
	return &Static{entries: make(map[string]map[string]any)}
}

// Put registers attributes for a namespace/name pair, replacing any previous
// entry.
func (s *Static) Put(namespace, name string, attrs map[string]any) {
	s.entries[namespace+"/"+name] = attrs
}

// Resolve implements Resolver.
func (s *Static) Resolve(_ context.Context, req Request) (map[string]any, error) {
	attrs, ok := s.entries[req.Namespace+"/"+req.Name]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out, nil
}
