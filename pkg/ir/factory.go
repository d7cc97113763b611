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

	"github.com/edgegate/edgegate/pkg/config"
)

// Factory discovers the raw resources of one kind, builds the typed
// entities for them, and registers the entities on the IR. Validation
// failures are posted to the aggregator; the error return is reserved for
// infrastructure failures (a canceled context), never for bad user input.
//
// The pass runs in two phases with a barrier between them: every factory's
// LoadAll completes before any factory's Finalize starts, so Finalize may
// consult entities produced by other kinds.
type Factory interface {
	// Name identifies the factory in logs.
	Name() string

	// LoadAll pulls matching raw resources from agg, builds entities,
	// runs their Setup, and registers them on the IR. Zero matching
	// resources is a no-op, not an error. Called exactly once per pass.
	LoadAll(ctx context.Context, ir *IR, agg *config.Aggregate) error

	// Finalize performs cross-entity reconciliation after every factory's
	// LoadAll has completed.
	Finalize(ctx context.Context, ir *IR, agg *config.Aggregate) error
}

// DefaultFactories returns the factory registry in fixed dependency order:
// singleton modules load before the multi-instance kinds that may consult
// them.
func DefaultFactories() []Factory {
	return []Factory{
		&TLSModuleFactory{},
		&TLSContextFactory{},
	}
}
