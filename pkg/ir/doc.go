// Package ir compiles aggregated raw configuration into the validated
// intermediate representation a data-plane renderer consumes.
//
// One IR is built per compilation pass:
//
//	agg, _ := config.LoadFiles("gateway.yaml")
//	compiled, err := ir.New(ctx, agg,
//	    ir.WithSecretResolver(resolver),
//	    ir.WithNamespace("prod"),
//	)
//
// The pass runs every registered factory's LoadAll in fixed dependency
// order (optionally in parallel across kinds), then every Finalize after a
// barrier. Entities validate themselves in Setup: failures are posted to
// the pass aggregator, reflected in each entity's validity, and never
// propagated as Go errors. After the pass the caller checks
// compiled.Errors().HasFatalErrors() and either hands the IR to the
// renderer or rejects the configuration.
//
// The worked entity kinds are the TLS context (full validation: file
// existence, secret resolution, conflict detection, defaults backfill) and
// the TLS module (passthrough, demonstrating the minimal end of the
// lifecycle contract).
package ir
