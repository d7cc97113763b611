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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Compilation pass metrics
	compilePasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgegate_compile_passes_total",
			Help: "Total number of compilation passes run",
		},
	)
	compilePassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgegate_compile_pass_duration_seconds",
			Help:    "Duration of compilation passes in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 60},
		},
	)

	// Entity validation metrics
	invalidEntities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgegate_invalid_entities_total",
			Help: "Total number of enabled entities that failed validation",
		},
		[]string{"kind"},
	)
	secretResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgegate_secret_resolutions_total",
			Help: "Total number of secret resolution attempts by outcome",
		},
		[]string{"outcome"},
	)
)
