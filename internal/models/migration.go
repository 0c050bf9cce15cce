package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MigrationStateType represents the current state of one migration workflow.
type MigrationStateType string

const (
	// MigrationStatePending - request accepted, workflow not started yet
	MigrationStatePending MigrationStateType = "pending"
	// MigrationStateValidating - checking instance and source host preconditions
	MigrationStateValidating MigrationStateType = "validating"
	// MigrationStateSelecting - asking the scheduler for candidate destinations
	MigrationStateSelecting MigrationStateType = "selecting-destination"
	// MigrationStateValidatingDestination - single pass over an explicitly requested destination
	MigrationStateValidatingDestination MigrationStateType = "validating-destination"
	// MigrationStateDispatching - triggering the migration on the source host
	MigrationStateDispatching MigrationStateType = "dispatching"
	// MigrationStateDone - trigger call accepted; hypervisor progress is out of scope
	MigrationStateDone MigrationStateType = "done"
	// MigrationStateFailed - terminal failure, FailureKind set
	MigrationStateFailed MigrationStateType = "failed"
)

// Terminal reports whether the workflow has finished, successfully or not.
func (s MigrationStateType) Terminal() bool {
	return s == MigrationStateDone || s == MigrationStateFailed
}

// FailureKind tags terminal failures for operator diagnosis.
type FailureKind string

const (
	FailureNone                        FailureKind = ""
	FailureInstanceNotRunning          FailureKind = "instance-not-running"
	FailureComputeServiceUnavailable   FailureKind = "compute-service-unavailable"
	FailureUnableToMigrateToSelf       FailureKind = "unable-to-migrate-to-self"
	FailureMigrationPreCheck           FailureKind = "migration-precheck"
	FailureInvalidHypervisorType       FailureKind = "invalid-hypervisor-type"
	FailureDestinationHypervisorTooOld FailureKind = "destination-hypervisor-too-old"
	FailureNoValidHost                 FailureKind = "no-valid-host"
	FailureDispatch                    FailureKind = "dispatch"
	FailureInternal                    FailureKind = "internal"
)

// MigrationRequest is the immutable input to one workflow execution. All
// subsequent state is derived from it.
type MigrationRequest struct {
	InstanceID     string
	Destination    string
	BlockMigration bool
	DiskOverCommit bool
}

// MigrateData is the opaque handshake payload produced by the destination's
// precheck call and required, unmodified, by the final trigger call. The
// orchestrator never looks inside.
type MigrateData json.RawMessage

// Migration is one workflow record: the request, the live state, and the
// outcome. Persisted for audit; never consulted for placement decisions.
type Migration struct {
	ID             uuid.UUID
	InstanceID     string
	SourceHost     string
	Destination    string
	Requested      string
	BlockMigration bool
	DiskOverCommit bool
	State          MigrationStateType
	FailureKind    FailureKind
	Error          string
	AttemptedHosts []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AttemptedHosts is the ordered, append-only exclusion set of one workflow
// execution. It starts with the source host and grows by one entry per
// rejected candidate. Its length minus one is the number of retries spent.
type AttemptedHosts struct {
	hosts []string
}

// NewAttemptedHosts seeds the set with the source host, which never counts
// as a retry.
func NewAttemptedHosts(source string) *AttemptedHosts {
	return &AttemptedHosts{hosts: []string{source}}
}

func (a *AttemptedHosts) Add(host string) {
	a.hosts = append(a.hosts, host)
}

func (a *AttemptedHosts) Contains(host string) bool {
	for _, h := range a.hosts {
		if h == host {
			return true
		}
	}
	return false
}

// Hosts returns a copy of the exclusion list, in insertion order.
func (a *AttemptedHosts) Hosts() []string {
	out := make([]string, len(a.hosts))
	copy(out, a.hosts)
	return out
}

// Retries is the number of candidates already rejected.
func (a *AttemptedHosts) Retries() int {
	return len(a.hosts) - 1
}
