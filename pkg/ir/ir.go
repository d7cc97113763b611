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
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgegate/edgegate/pkg/config"
	egerrors "github.com/edgegate/edgegate/pkg/errors"
	"github.com/edgegate/edgegate/pkg/secrets"
)

// NamespaceEnvVar names the environment variable holding the active
// namespace of the hosting environment.
const NamespaceEnvVar = "EDGEGATE_NAMESPACE"

var (
	nsOnce  sync.Once
	nsValue string
)

// ActiveNamespace returns the ambient namespace, resolved once per process
// from NamespaceEnvVar and defaulting to "default".
func ActiveNamespace() string {
	nsOnce.Do(func() {
		nsValue = os.Getenv(NamespaceEnvVar)
		if nsValue == "" {
			nsValue = "default"
		}
	})
	return nsValue
}

// FileChecker is the injected file-existence capability used to validate
// certificate paths.
type FileChecker func(path string) bool

func defaultFileChecker(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IR is the root of the compiled intermediate representation: it owns every
// compiled entity, the defaults table, the environment capabilities (secret
// resolver, file checker, namespace) and the pass aggregator. One IR is
// built per compilation pass and discarded wholesale when a new pass runs.
type IR struct {
	namespace   string
	fileChecker FileChecker
	resolver    secrets.Resolver // nil means no resolution capability
	tlsDefaults map[string]map[string]any
	errs        *egerrors.Aggregator
	factories   []Factory
	parallel    bool

	mu        sync.Mutex
	entities  map[string]map[string]Entity
	tlsModule *TLSModule
}

// Option configures an IR before its compilation pass runs.
type Option func(*IR)

// WithNamespace overrides the ambient active namespace for this pass.
func WithNamespace(ns string) Option {
	return func(ir *IR) {
		if ns != "" {
			ir.namespace = ns
		}
	}
}

// WithFileChecker injects the file-existence capability. Tests use this to
// avoid touching the real filesystem.
func WithFileChecker(fc FileChecker) Option {
	return func(ir *IR) {
		if fc != nil {
			ir.fileChecker = fc
		}
	}
}

// WithSecretResolver injects the optional secret-resolution capability.
// Without it, secret references are not resolved but still count toward
// TLS validity.
func WithSecretResolver(r secrets.Resolver) Option {
	return func(ir *IR) {
		ir.resolver = r
	}
}

// WithTLSDefaults replaces the defaults table entry for one context name.
func WithTLSDefaults(name string, defaults map[string]any) Option {
	return func(ir *IR) {
		ir.tlsDefaults[name] = defaults
	}
}

// WithFactories replaces the default factory registry. The slice order is
// the load order.
func WithFactories(factories ...Factory) Option {
	return func(ir *IR) {
		ir.factories = factories
	}
}

// WithParallelLoad runs factory LoadAll calls concurrently across kinds.
// Entity registration and the aggregator are already serialized; the
// load/finalize barrier is preserved.
func WithParallelLoad() Option {
	return func(ir *IR) {
		ir.parallel = true
	}
}

// New runs one compilation pass over agg and returns the populated IR.
// Entity validation failures never fail the pass; inspect
// Errors().HasFatalErrors() before handing the IR to a renderer. The error
// return fires only for infrastructure failures such as a canceled context.
func New(ctx context.Context, agg *config.Aggregate, opts ...Option) (*IR, error) {
	ir := &IR{
		namespace:   ActiveNamespace(),
		fileChecker: defaultFileChecker,
		tlsDefaults: builtinTLSDefaults(),
		errs:        egerrors.NewAggregator(),
		factories:   DefaultFactories(),
		entities:    make(map[string]map[string]Entity),
	}
	for _, opt := range opts {
		opt(ir)
	}

	start := time.Now()
	slog.Debug("compilation pass starting",
		"pass", ir.errs.PassID(),
		"namespace", ir.namespace,
		"parallel", ir.parallel)

	// Phase 1: every factory loads its kind. The barrier below guarantees
	// no Finalize sees a partially loaded IR.
	if ir.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for _, f := range ir.factories {
			f := f
			g.Go(func() error {
				return f.LoadAll(gctx, ir, agg)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, f := range ir.factories {
			if err := f.LoadAll(ctx, ir, agg); err != nil {
				return nil, err
			}
		}
	}

	// Phase 2: cross-entity reconciliation, always in registry order.
	for _, f := range ir.factories {
		if err := f.Finalize(ctx, ir, agg); err != nil {
			return nil, err
		}
	}

	compilePasses.Inc()
	compilePassDuration.Observe(time.Since(start).Seconds())
	slog.Debug("compilation pass finished",
		"pass", ir.errs.PassID(),
		"errors", ir.errs.ErrorCount(),
		"fatal", ir.errs.HasFatalErrors(),
		"duration", time.Since(start))

	return ir, nil
}

// Namespace returns the active namespace of this pass.
func (ir *IR) Namespace() string {
	return ir.namespace
}

// CheckFile reports whether path exists, through the injected capability.
func (ir *IR) CheckFile(path string) bool {
	return ir.fileChecker(path)
}

// Resolver returns the secret-resolution capability, or nil when the pass
// runs without one.
func (ir *IR) Resolver() secrets.Resolver {
	return ir.resolver
}

// Errors returns the pass aggregator.
func (ir *IR) Errors() *egerrors.Aggregator {
	return ir.errs
}

// TLSDefaults returns the defaults table entry for a context name, or nil.
// The table is read-only during the pass; defaults only fill attributes
// absent from an entity, never overwrite explicit values.
func (ir *IR) TLSDefaults(name string) map[string]any {
	return ir.tlsDefaults[name]
}

// SaveEntity registers an entity under its kind and name. Safe for
// concurrent use by parallel factories.
func (ir *IR) SaveEntity(e Entity) {
	id := e.Identity()

	ir.mu.Lock()
	defer ir.mu.Unlock()
	byName, ok := ir.entities[id.Kind]
	if !ok {
		byName = make(map[string]Entity)
		ir.entities[id.Kind] = byName
	}
	byName[id.Name] = e
}

// GetEntity returns the entity registered under kind and name, or nil.
func (ir *IR) GetEntity(kind, name string) Entity {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	return ir.entities[kind][name]
}

// AllValid returns the enabled, valid entities of one kind. Order is
// stable: entities sort by name.
func (ir *IR) AllValid(kind string) []Entity {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	out := make([]Entity, 0, len(ir.entities[kind]))
	for _, e := range ir.entities[kind] {
		if e.Enabled() && e.Valid() {
			out = append(out, e)
		}
	}
	sortEntities(out)
	return out
}

// AllOfKind returns every registered entity of one kind, valid or not,
// sorted by name.
func (ir *IR) AllOfKind(kind string) []Entity {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	out := make([]Entity, 0, len(ir.entities[kind]))
	for _, e := range ir.entities[kind] {
		out = append(out, e)
	}
	sortEntities(out)
	return out
}

// Kinds returns the kinds that have at least one registered entity, sorted.
func (ir *IR) Kinds() []string {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	out := make([]string, 0, len(ir.entities))
	for k := range ir.entities {
		out = append(out, k)
	}
	sortStrings(out)
	return out
}

// SetTLSModule records the singleton TLS module for this pass.
func (ir *IR) SetTLSModule(m *TLSModule) {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	ir.tlsModule = m
}

// TLSModule returns the singleton TLS module, or nil when the
// configuration does not define one.
func (ir *IR) TLSModule() *TLSModule {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	return ir.tlsModule
}

func sortEntities(es []Entity) {
	slices.SortFunc(es, func(a, b Entity) int {
		return strings.Compare(a.Identity().Name, b.Identity().Name)
	})
}

func sortStrings(s []string) {
	slices.Sort(s)
}

// AsDict returns a serializable snapshot of the whole IR, keyed by kind and
// name, for the renderer and diagnostics tooling.
func (ir *IR) AsDict() map[string]any {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	out := make(map[string]any, len(ir.entities))
	for kind, byName := range ir.entities {
		kindOut := make(map[string]any, len(byName))
		for name, e := range byName {
			kindOut[name] = e.AsDict()
		}
		out[kind] = kindOut
	}
	return out
}
