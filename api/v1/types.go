// Package v1 defines the request and response payloads of the orchestrator's
// HTTP API.
package v1

import "time"

// MigrationStartRequest asks for a live migration of one instance. When
// Destination is empty the orchestrator picks one through the placement
// scheduler.
type MigrationStartRequest struct {
	InstanceId     string `json:"instance_id" binding:"required"`
	Destination    string `json:"destination"`
	BlockMigration bool   `json:"block_migration"`
	DiskOverCommit bool   `json:"disk_over_commit"`
}

type Migration struct {
	Id                   string    `json:"id"`
	InstanceId           string    `json:"instance_id"`
	SourceHost           string    `json:"source_host"`
	Destination          string    `json:"destination,omitempty"`
	RequestedDestination string    `json:"requested_destination,omitempty"`
	BlockMigration       bool      `json:"block_migration"`
	DiskOverCommit       bool      `json:"disk_over_commit"`
	State                string    `json:"state"`
	FailureKind          string    `json:"failure_kind,omitempty"`
	Error                *string   `json:"error,omitempty"`
	AttemptedHosts       []string  `json:"attempted_hosts"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type MigrationList struct {
	Items []Migration `json:"items"`
	Total int         `json:"total"`
}
