package errors

import (
	"errors"
	"fmt"
	"strings"
)

// retryable marks failures that disqualify a single scheduler-provided
// candidate without ending the whole workflow. The destination selector
// branches on this instead of inspecting concrete error types.
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether the failure is scoped to one candidate host.
// Failures raised for the source host or an explicitly requested destination
// are never retryable.
func IsRetryable(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// InstanceNotRunningError indicates the instance power state is not "running".
type InstanceNotRunningError struct {
	InstanceID string
}

func NewInstanceNotRunningError(instanceID string) *InstanceNotRunningError {
	return &InstanceNotRunningError{InstanceID: instanceID}
}

func (e *InstanceNotRunningError) Error() string {
	return fmt.Sprintf("instance %s is not running", e.InstanceID)
}

// IsInstanceNotRunningError checks if the error is an InstanceNotRunningError.
func IsInstanceNotRunningError(err error) bool {
	var e *InstanceNotRunningError
	return errors.As(err, &e)
}

// ComputeServiceUnavailableError indicates a host is unknown to the registry
// or its compute service is reported down. Candidate marks hosts that came
// out of the scheduler, which the selector may exclude and move past.
type ComputeServiceUnavailableError struct {
	Host      string
	Candidate bool
}

func NewComputeServiceUnavailableError(host string) *ComputeServiceUnavailableError {
	return &ComputeServiceUnavailableError{Host: host}
}

func (e *ComputeServiceUnavailableError) Error() string {
	return fmt.Sprintf("compute service on host %s is unavailable", e.Host)
}

func (e *ComputeServiceUnavailableError) Retryable() bool { return e.Candidate }

func IsComputeServiceUnavailableError(err error) bool {
	var e *ComputeServiceUnavailableError
	return errors.As(err, &e)
}

// UnableToMigrateToSelfError indicates the requested destination equals the
// instance's current host.
type UnableToMigrateToSelfError struct {
	InstanceID string
	Host       string
}

func NewUnableToMigrateToSelfError(instanceID, host string) *UnableToMigrateToSelfError {
	return &UnableToMigrateToSelfError{InstanceID: instanceID, Host: host}
}

func (e *UnableToMigrateToSelfError) Error() string {
	return fmt.Sprintf("unable to migrate instance %s to its current host %s", e.InstanceID, e.Host)
}

func IsUnableToMigrateToSelfError(err error) bool {
	var e *UnableToMigrateToSelfError
	return errors.As(err, &e)
}

// MigrationPreCheckError indicates the destination failed a capacity or
// aggregate-membership check, or rejected the live-migration precheck call.
type MigrationPreCheckError struct {
	Reason    string
	Candidate bool
}

func NewMigrationPreCheckError(reason string) *MigrationPreCheckError {
	return &MigrationPreCheckError{Reason: reason}
}

func NewInsufficientMemoryError(instanceID, host string, available float64, required int64) *MigrationPreCheckError {
	return &MigrationPreCheckError{
		Reason: fmt.Sprintf("unable to migrate %s to %s: lack of memory (host: %.0f MB <= instance: %d MB)",
			instanceID, host, available, required),
	}
}

func NewHostNotInAggregateError(instanceID, host string) *MigrationPreCheckError {
	return &MigrationPreCheckError{
		Reason: fmt.Sprintf("unable to migrate %s to %s: destination host is not in any aggregate", instanceID, host),
	}
}

func NewHostInMultipleAggregatesError(instanceID, host string, aggregates []string) *MigrationPreCheckError {
	return &MigrationPreCheckError{
		Reason: fmt.Sprintf("unable to migrate %s to %s: destination host is in more than one aggregate: %s",
			instanceID, host, strings.Join(aggregates, ", ")),
	}
}

func (e *MigrationPreCheckError) Error() string {
	return fmt.Sprintf("migration precheck failed: %s", e.Reason)
}

func (e *MigrationPreCheckError) Retryable() bool { return e.Candidate }

func IsMigrationPreCheckError(err error) bool {
	var e *MigrationPreCheckError
	return errors.As(err, &e)
}

// InvalidHypervisorTypeError indicates source and destination run different
// hypervisor types.
type InvalidHypervisorTypeError struct {
	SourceType      string
	DestinationType string
	Candidate       bool
}

func NewInvalidHypervisorTypeError(sourceType, destinationType string) *InvalidHypervisorTypeError {
	return &InvalidHypervisorTypeError{SourceType: sourceType, DestinationType: destinationType}
}

func (e *InvalidHypervisorTypeError) Error() string {
	return fmt.Sprintf("hypervisor type mismatch: source %s, destination %s", e.SourceType, e.DestinationType)
}

func (e *InvalidHypervisorTypeError) Retryable() bool { return e.Candidate }

func IsInvalidHypervisorTypeError(err error) bool {
	var e *InvalidHypervisorTypeError
	return errors.As(err, &e)
}

// DestinationHypervisorTooOldError indicates the destination hypervisor
// version is older than the source's.
type DestinationHypervisorTooOldError struct {
	SourceVersion      int64
	DestinationVersion int64
	Candidate          bool
}

func NewDestinationHypervisorTooOldError(sourceVersion, destinationVersion int64) *DestinationHypervisorTooOldError {
	return &DestinationHypervisorTooOldError{SourceVersion: sourceVersion, DestinationVersion: destinationVersion}
}

func (e *DestinationHypervisorTooOldError) Error() string {
	return fmt.Sprintf("destination hypervisor version %d is older than source version %d",
		e.DestinationVersion, e.SourceVersion)
}

func (e *DestinationHypervisorTooOldError) Retryable() bool { return e.Candidate }

func IsDestinationHypervisorTooOldError(err error) bool {
	var e *DestinationHypervisorTooOldError
	return errors.As(err, &e)
}

// NoValidHostError indicates the retry budget is exhausted or the scheduler
// has no candidates left. Always terminal.
type NoValidHostError struct {
	Reason string
}

func NewNoValidHostError(reason string) *NoValidHostError {
	return &NoValidHostError{Reason: reason}
}

func (e *NoValidHostError) Error() string {
	return fmt.Sprintf("no valid host found: %s", e.Reason)
}

func IsNoValidHostError(err error) bool {
	var e *NoValidHostError
	return errors.As(err, &e)
}

// MigrationNotFoundError indicates no migration record exists for the id.
type MigrationNotFoundError struct {
	ID string
}

func NewMigrationNotFoundError(id string) *MigrationNotFoundError {
	return &MigrationNotFoundError{ID: id}
}

func (e *MigrationNotFoundError) Error() string {
	return fmt.Sprintf("migration %s not found", e.ID)
}

func IsMigrationNotFoundError(err error) bool {
	var e *MigrationNotFoundError
	return errors.As(err, &e)
}

// MigrationInProgressError indicates a workflow for the same instance is
// already running.
type MigrationInProgressError struct {
	InstanceID string
}

func NewMigrationInProgressError(instanceID string) *MigrationInProgressError {
	return &MigrationInProgressError{InstanceID: instanceID}
}

func (e *MigrationInProgressError) Error() string {
	return fmt.Sprintf("a migration of instance %s is already in progress", e.InstanceID)
}

func IsMigrationInProgressError(err error) bool {
	var e *MigrationInProgressError
	return errors.As(err, &e)
}

// RollbackUnsupportedError is returned whenever a rollback of a migration is
// requested. The orchestrator makes no state changes it could compensate;
// the compensating actions belong to the compute layer.
type RollbackUnsupportedError struct {
	ID string
}

func NewRollbackUnsupportedError(id string) *RollbackUnsupportedError {
	return &RollbackUnsupportedError{ID: id}
}

func (e *RollbackUnsupportedError) Error() string {
	return fmt.Sprintf("rollback of migration %s is not supported", e.ID)
}

func IsRollbackUnsupportedError(err error) bool {
	var e *RollbackUnsupportedError
	return errors.As(err, &e)
}

// HostNotFoundError indicates the host registry has no record for the host.
type HostNotFoundError struct {
	Host string
}

func NewHostNotFoundError(host string) *HostNotFoundError {
	return &HostNotFoundError{Host: host}
}

func (e *HostNotFoundError) Error() string {
	return fmt.Sprintf("host %s not found", e.Host)
}

func IsHostNotFoundError(err error) bool {
	var e *HostNotFoundError
	return errors.As(err, &e)
}

// InstanceNotFoundError indicates the registry has no record for the
// instance.
type InstanceNotFoundError struct {
	InstanceID string
}

func NewInstanceNotFoundError(instanceID string) *InstanceNotFoundError {
	return &InstanceNotFoundError{InstanceID: instanceID}
}

func (e *InstanceNotFoundError) Error() string {
	return fmt.Sprintf("instance %s not found", e.InstanceID)
}

func IsInstanceNotFoundError(err error) bool {
	var e *InstanceNotFoundError
	return errors.As(err, &e)
}

// MarkCandidate flags err as raised for a scheduler-provided candidate,
// which makes candidate-scoped kinds retryable. Kinds that are terminal
// regardless of origin are left untouched.
func MarkCandidate(err error) error {
	var unavailable *ComputeServiceUnavailableError
	if errors.As(err, &unavailable) {
		unavailable.Candidate = true
		return err
	}
	var precheck *MigrationPreCheckError
	if errors.As(err, &precheck) {
		precheck.Candidate = true
		return err
	}
	var hvType *InvalidHypervisorTypeError
	if errors.As(err, &hvType) {
		hvType.Candidate = true
		return err
	}
	var hvOld *DestinationHypervisorTooOldError
	if errors.As(err, &hvOld) {
		hvOld.Candidate = true
		return err
	}
	return err
}
