package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
	"github.com/kubev2v/live-migration-orchestrator/internal/store"
	srvErrors "github.com/kubev2v/live-migration-orchestrator/pkg/errors"
	"github.com/kubev2v/live-migration-orchestrator/pkg/workers"
)

// MigrationService owns the end-to-end workflow: validate preconditions,
// select or validate the destination, dispatch. Each accepted request runs
// as one unit of work on the pool; all workflow state is owned by that one
// execution, so no locking is needed inside it.
type MigrationService struct {
	pool       *workers.Pool
	store      *store.Store
	instances  InstanceLookup
	validator  *PreconditionValidator
	checker    *CompatibilityChecker
	selector   *DestinationSelector
	dispatcher *MigrationDispatcher
	logger     *zap.SugaredLogger

	mu       sync.Mutex
	inflight map[string]uuid.UUID
}

func NewMigrationService(
	pool *workers.Pool,
	st *store.Store,
	instances InstanceLookup,
	validator *PreconditionValidator,
	checker *CompatibilityChecker,
	selector *DestinationSelector,
	dispatcher *MigrationDispatcher,
) *MigrationService {
	return &MigrationService{
		pool:       pool,
		store:      st,
		instances:  instances,
		validator:  validator,
		checker:    checker,
		selector:   selector,
		dispatcher: dispatcher,
		logger:     zap.S().Named("migration"),
		inflight:   make(map[string]uuid.UUID),
	}
}

// Start accepts a migration request, persists the pending record, and hands
// the workflow to the pool. Only one workflow per instance may be in flight.
func (s *MigrationService) Start(ctx context.Context, request models.MigrationRequest) (*models.Migration, error) {
	instance, err := s.instances.GetInstance(ctx, request.InstanceID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if id, busy := s.inflight[request.InstanceID]; busy {
		s.mu.Unlock()
		s.logger.Debugw("rejecting duplicate request", "instance_id", request.InstanceID, "running_migration", id)
		return nil, srvErrors.NewMigrationInProgressError(request.InstanceID)
	}
	id := uuid.New()
	s.inflight[request.InstanceID] = id
	s.mu.Unlock()

	now := time.Now().UTC()
	m := &models.Migration{
		ID:             id,
		InstanceID:     request.InstanceID,
		SourceHost:     instance.Host,
		Requested:      request.Destination,
		BlockMigration: request.BlockMigration,
		DiskOverCommit: request.DiskOverCommit,
		State:          models.MigrationStatePending,
		AttemptedHosts: []string{instance.Host},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Migration().Create(ctx, m); err != nil {
		s.clearInflight(request.InstanceID)
		return nil, err
	}

	// The workflow goroutine owns m once submitted; the caller gets its own
	// snapshot of the accepted record.
	accepted := *m
	accepted.AttemptedHosts = append([]string(nil), m.AttemptedHosts...)

	s.pool.Submit(func(runCtx context.Context) (any, error) {
		defer s.clearInflight(request.InstanceID)
		s.execute(runCtx, m, request, instance)
		return nil, nil
	})

	return &accepted, nil
}

// Get returns one workflow record.
func (s *MigrationService) Get(ctx context.Context, id uuid.UUID) (*models.Migration, error) {
	return s.store.Migration().Get(ctx, id)
}

// List returns workflow records matching the filter.
func (s *MigrationService) List(ctx context.Context, filter *store.MigrationQueryFilter) ([]models.Migration, error) {
	return s.store.Migration().List(ctx, filter)
}

// Count returns the number of records matching the filter.
func (s *MigrationService) Count(ctx context.Context, filter *store.MigrationQueryFilter) (int, error) {
	return s.store.Migration().Count(ctx, filter)
}

// Rollback always refuses. The orchestrator performs no compensating action
// after dispatch; the correct clean-up is owned by the compute layer, so a
// rollback request fails loudly instead of pretending.
func (s *MigrationService) Rollback(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.Migration().Get(ctx, id); err != nil {
		return err
	}
	s.logger.Warnw("rollback requested", "migration_id", id)
	return srvErrors.NewRollbackUnsupportedError(id.String())
}

// execute drives one workflow through its states. Terminal failures land the
// record in the failed state carrying the failure kind and identifiers.
func (s *MigrationService) execute(ctx context.Context, m *models.Migration, request models.MigrationRequest, instance *models.Instance) {
	s.setState(ctx, m, models.MigrationStateValidating)

	if err := s.validator.ValidateRunning(instance); err != nil {
		s.fail(ctx, m, err)
		return
	}
	if err := s.validator.ValidateHostLive(ctx, instance.Host); err != nil {
		s.fail(ctx, m, err)
		return
	}

	attempted := models.NewAttemptedHosts(instance.Host)

	var (
		destination string
		data        models.MigrateData
		err         error
	)
	if request.Destination == "" {
		s.setState(ctx, m, models.MigrationStateSelecting)
		destination, data, err = s.selector.FindDestination(ctx, request, instance, attempted)
		m.AttemptedHosts = attempted.Hosts()
		if err != nil {
			s.fail(ctx, m, err)
			return
		}
	} else {
		// An explicit destination gets exactly one compatibility pass. If it
		// fails, the workflow fails; no substitute is scheduled.
		s.setState(ctx, m, models.MigrationStateValidatingDestination)
		data, err = s.checker.Check(ctx, request, instance, request.Destination, false)
		if err != nil {
			s.fail(ctx, m, err)
			return
		}
		destination = request.Destination
	}

	m.Destination = destination
	s.setState(ctx, m, models.MigrationStateDispatching)

	if err := s.dispatcher.Dispatch(ctx, request, instance, destination, data); err != nil {
		s.failWithKind(ctx, m, models.FailureDispatch, err)
		return
	}

	s.setState(ctx, m, models.MigrationStateDone)
	s.logger.Infow("migration workflow finished",
		"migration_id", m.ID,
		"instance_id", m.InstanceID,
		"destination", destination,
	)
}

func (s *MigrationService) setState(ctx context.Context, m *models.Migration, state models.MigrationStateType) {
	m.State = state
	m.UpdatedAt = time.Now().UTC()
	if err := s.store.Migration().Update(ctx, m); err != nil {
		s.logger.Errorw("failed to persist migration state", "migration_id", m.ID, "state", state, "error", err)
	}
}

func (s *MigrationService) fail(ctx context.Context, m *models.Migration, err error) {
	s.failWithKind(ctx, m, failureKindOf(err), err)
}

func (s *MigrationService) failWithKind(ctx context.Context, m *models.Migration, kind models.FailureKind, err error) {
	m.FailureKind = kind
	m.Error = err.Error()
	s.setState(ctx, m, models.MigrationStateFailed)
	s.logger.Errorw("migration workflow failed",
		"migration_id", m.ID,
		"instance_id", m.InstanceID,
		"failure_kind", m.FailureKind,
		"error", err,
	)
}

func (s *MigrationService) clearInflight(instanceID string) {
	s.mu.Lock()
	delete(s.inflight, instanceID)
	s.mu.Unlock()
}

func failureKindOf(err error) models.FailureKind {
	switch {
	case srvErrors.IsInstanceNotRunningError(err):
		return models.FailureInstanceNotRunning
	case srvErrors.IsComputeServiceUnavailableError(err):
		return models.FailureComputeServiceUnavailable
	case srvErrors.IsUnableToMigrateToSelfError(err):
		return models.FailureUnableToMigrateToSelf
	case srvErrors.IsMigrationPreCheckError(err):
		return models.FailureMigrationPreCheck
	case srvErrors.IsInvalidHypervisorTypeError(err):
		return models.FailureInvalidHypervisorType
	case srvErrors.IsDestinationHypervisorTooOldError(err):
		return models.FailureDestinationHypervisorTooOld
	case srvErrors.IsNoValidHostError(err):
		return models.FailureNoValidHost
	default:
		return models.FailureInternal
	}
}
