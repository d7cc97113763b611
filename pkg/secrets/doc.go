// Package secrets defines the pluggable secret-resolution capability of the
// compilation environment and its standard implementations.
//
// A Resolver turns a symbolic reference like "upstream-tls" into the
// concrete key-material attributes a TLS context needs. The capability is
// optional and injected: an IR constructed without a Resolver performs no
// resolution at all, which is a distinct, testable configuration rather
// than an implicit nil check scattered through validation logic.
//
// Implementations:
//   - Static: in-memory, for tests and development.
//   - Directory: pre-mounted file tree (<root>/<ns>/<name>/tls.crt).
//   - Kubernetes: cluster Secret lookup via client-go, rate limited, with
//     key material written to a local cert directory.
package secrets
