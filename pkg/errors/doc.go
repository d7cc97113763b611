// Package errors provides structured error types and the per-pass
// diagnostic aggregator used throughout the compilation engine.
//
// Entities never return validation failures as Go errors; they post them to
// the pass Aggregator and reflect the outcome in their own valid/enabled
// state. The pass caller inspects the Aggregator after all factories have
// run:
//
//	agg := errors.NewAggregator()
//	// ... run the pass ...
//	if agg.HasFatalErrors() {
//	    return fmt.Errorf("configuration rejected")
//	}
//	for _, e := range agg.Messages() {
//	    slog.Error(e.Err.Message, "resource", e.ResourceID)
//	}
package errors
