package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
	srvErrors "github.com/kubev2v/live-migration-orchestrator/pkg/errors"
)

// UnlimitedRetries disables the retry budget: the selector loops until a
// candidate passes or the scheduler runs out of hosts.
const UnlimitedRetries = -1

// PlacementScheduler is the external scheduler collaborator. Filtering and
// weighing of hosts happen on its side; the selector only passes the request
// descriptor and the exclusion list.
type PlacementScheduler interface {
	SelectDestination(ctx context.Context, spec models.PlacementSpec) (string, error)
}

// DestinationSelector finds a destination host by asking the scheduler for
// ranked candidates, one at a time, until one passes the compatibility
// checker or the retry budget runs out.
type DestinationSelector struct {
	placement  PlacementScheduler
	checker    *CompatibilityChecker
	maxRetries int
	logger     *zap.SugaredLogger
}

func NewDestinationSelector(placement PlacementScheduler, checker *CompatibilityChecker, maxRetries int) *DestinationSelector {
	return &DestinationSelector{
		placement:  placement,
		checker:    checker,
		maxRetries: maxRetries,
		logger:     zap.S().Named("selector"),
	}
}

// FindDestination returns the first compatible candidate and its MigrateData.
//
// Every rejected candidate is appended to attempted, which both feeds the
// scheduler's exclusion list and counts against the retry budget. Retryable
// rejections continue the loop; hard failures propagate unchanged.
func (s *DestinationSelector) FindDestination(ctx context.Context, request models.MigrationRequest, instance *models.Instance, attempted *models.AttemptedHosts) (string, models.MigrateData, error) {
	for {
		if err := s.checkRetryBudget(instance.ID, attempted); err != nil {
			return "", nil, err
		}

		spec := models.PlacementSpec{
			InstanceID:   instance.ID,
			Instance:     *instance,
			Flavor:       instance.Flavor,
			ImageRef:     instance.ImageRef,
			ExcludeHosts: attempted.Hosts(),
		}

		host, err := s.placement.SelectDestination(ctx, spec)
		if err != nil {
			return "", nil, err
		}

		data, err := s.checker.Check(ctx, request, instance, host, true)
		if err != nil {
			if srvErrors.IsRetryable(err) {
				s.logger.Debugw("skipping host", "host", host, "error", err)
				attempted.Add(host)
				continue
			}
			return "", nil, err
		}

		return host, data, nil
	}
}

// checkRetryBudget fails with NoValidHost once more candidates were rejected
// than the budget allows. The source host seed does not count as a retry.
func (s *DestinationSelector) checkRetryBudget(instanceID string, attempted *models.AttemptedHosts) error {
	if s.maxRetries == UnlimitedRetries {
		return nil
	}

	retries := attempted.Retries()
	if retries > s.maxRetries {
		return srvErrors.NewNoValidHostError(
			fmt.Sprintf("exceeded max scheduling retries %d for instance %s during live migration", retries, instanceID))
	}
	return nil
}
