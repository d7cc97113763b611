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

package defaults

import "time"

// Secret resolution limits for Kubernetes API lookups.
const (
	// SecretResolveTimeout bounds one Secret GET against the API server.
	SecretResolveTimeout = 10 * time.Second

	// SecretAPIRateLimit is the sustained Secret lookups per second allowed
	// against the API server during a pass.
	SecretAPIRateLimit = 5

	// SecretAPIBurst is the lookup burst allowed above SecretAPIRateLimit.
	SecretAPIBurst = 10
)

// Compilation pass limits.
const (
	// CompileTimeout bounds one full compilation pass, including all secret
	// resolutions. Passes are synchronous; a caller that hits this deadline
	// discards the IR and may retry a fresh pass.
	CompileTimeout = 60 * time.Second
)

// File modes for materialized key material.
const (
	// CertDirMode is the permission for per-secret certificate directories.
	CertDirMode = 0o700

	// CertFileMode is the permission for written certificate/key files.
	CertFileMode = 0o600
)
