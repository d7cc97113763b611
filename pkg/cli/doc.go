// Package cli implements the command-line interface for the EdgeGate
// configuration compiler.
//
// # Commands
//
// compile - Compile raw configuration into validated IR:
//
//	egc compile [--format yaml|json] [--output FILE] FILE [FILE...]
//
// Loads YAML configuration files, runs one compilation pass, reports every
// diagnostic the pass recorded, and serializes the resulting IR snapshot.
// Output defaults to stdout in YAML format.
//
// version - Print build version information.
//
// # Environment Variables
//
//	LOG_LEVEL           Set logging verbosity (debug, info, warn, error)
//	EDGEGATE_NAMESPACE  Namespace for secret resolution
//	KUBECONFIG          Kubeconfig path for --resolve-secrets
//
// # Exit Codes
//
//	0  Success, including passes with invalid entities
//	1  General error, or a fatal pass error making the IR unusable
//
// The CLI uses the urfave/cli/v3 framework and delegates to pkg/config for
// loading, pkg/ir for compilation, pkg/secrets for resolution, and
// pkg/serializer for output. Version information is embedded at build time
// using ldflags:
//
//	go build -ldflags="-X 'github.com/edgegate/edgegate/pkg/cli.version=1.0.0'"
package cli
