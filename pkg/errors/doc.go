// Package errors provides the failure taxonomy of the live-migration
// orchestrator.
//
// Each error type includes a constructor, Error() method, and a type-checking
// helper using errors.As for proper error unwrapping.
//
// # Error Types Overview
//
//	┌──────────────────────────────────┬────────┬──────────────────────────────────────┐
//	│ Error Type                       │ HTTP   │ Description                          │
//	├──────────────────────────────────┼────────┼──────────────────────────────────────┤
//	│ InstanceNotRunningError          │ 409    │ Instance power state not "running"   │
//	│ ComputeServiceUnavailableError   │ 409    │ Host unknown or reported down        │
//	│ UnableToMigrateToSelfError       │ 400    │ Destination equals source            │
//	│ MigrationPreCheckError           │ 409    │ Aggregate/capacity/precheck failure  │
//	│ InvalidHypervisorTypeError       │ 409    │ Hypervisor types differ              │
//	│ DestinationHypervisorTooOldError │ 409    │ Destination version < source version │
//	│ NoValidHostError                 │ 409    │ Retry budget or candidates exhausted │
//	│ MigrationNotFoundError           │ 404    │ No record for the migration id       │
//	│ MigrationInProgressError         │ 409    │ Instance already being migrated      │
//	│ RollbackUnsupportedError         │ 409    │ Rollback requested, always refused   │
//	│ HostNotFoundError                │ n/a    │ Registry has no record for the host  │
//	└──────────────────────────────────┴────────┴──────────────────────────────────────┘
//
// # Retryability
//
// Failures raised while probing a scheduler-provided candidate are marked
// retryable through the Candidate field; the destination selector excludes
// the candidate and keeps looping. The same failure raised for the source
// host or an explicitly requested destination is terminal. The orchestrator
// never inspects concrete types to decide this; it calls IsRetryable:
//
//	if errors.IsRetryable(err) {
//	    attempted.Add(candidate)
//	    continue
//	}
//	return err
//
// # Type Checking Pattern
//
// All error types provide Is* helper functions that use errors.As
// for proper error chain unwrapping:
//
//	func IsNoValidHostError(err error) bool {
//	    var e *NoValidHostError
//	    return errors.As(err, &e)
//	}
//
// This allows checking wrapped errors:
//
//	wrapped := fmt.Errorf("selection failed: %w", errors.NewNoValidHostError("budget exhausted"))
//	errors.IsNoValidHostError(wrapped) // returns true
package errors
