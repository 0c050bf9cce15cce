// Package handlers implements the HTTP API layer of the live-migration
// orchestrator.
//
// Handlers delegate all workflow logic to the services layer and focus on
// request validation, parameter parsing, error mapping, and model-to-API
// conversion.
//
// # Routes
//
//	POST   /api/v1/migrations      start a workflow (202 + record)
//	GET    /api/v1/migrations      list records (instance_id/state/source_host filters, limit/offset)
//	GET    /api/v1/migrations/:id  one record
//	DELETE /api/v1/migrations/:id  rollback attempt, always refused (409)
//	GET    /api/v1/health          liveness
//
// # Error Mapping
//
//	InstanceNotFoundError     → 404
//	MigrationNotFoundError    → 404
//	MigrationInProgressError  → 409
//	RollbackUnsupportedError  → 409
//	anything else             → 500 (logged, body kept generic)
//
// Workflow failures (NoValidHost, MigrationPreCheckError, ...) are not HTTP
// errors: the start call already returned 202 and the failure lands in the
// record's state/failure_kind fields, fetched via GET.
package handlers
