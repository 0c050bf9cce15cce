package services_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
	"github.com/kubev2v/live-migration-orchestrator/internal/services"
	"github.com/kubev2v/live-migration-orchestrator/internal/store"
	"github.com/kubev2v/live-migration-orchestrator/internal/store/migrations"
	srvErrors "github.com/kubev2v/live-migration-orchestrator/pkg/errors"
	"github.com/kubev2v/live-migration-orchestrator/pkg/workers"
)

var _ = Describe("MigrationService", func() {
	var (
		ctx       context.Context
		db        *sql.DB
		st        *store.Store
		pool      *workers.Pool
		registry  *MockHostRegistry
		compute   *MockComputeAPI
		scheduler *MockPlacementScheduler
		service   *services.MigrationService
	)

	newService := func(maxRetries int) *services.MigrationService {
		validator := services.NewPreconditionValidator(registry)
		checker := services.NewCompatibilityChecker(registry, compute, validator)
		selector := services.NewDestinationSelector(scheduler, checker, maxRetries)
		dispatcher := services.NewMigrationDispatcher(compute)
		return services.NewMigrationService(pool, st, registry, validator, checker, selector, dispatcher)
	}

	// stateOf polls the persisted record.
	stateOf := func(id uuid.UUID) func() models.MigrationStateType {
		return func() models.MigrationStateType {
			m, err := st.Migration().Get(ctx, id)
			if err != nil {
				return ""
			}
			return m.State
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
		Expect(migrations.Run(ctx, db)).To(Succeed())
		st = store.NewStore(db)

		pool = workers.NewPool(2)
		registry = NewMockHostRegistry()
		compute = NewMockComputeAPI()
		scheduler = &MockPlacementScheduler{}

		registry.Instances["vm-1"] = runningInstance("vm-1", "host-src")
		registry.Facts["host-src"] = upHost("host-src")

		service = newService(services.UnlimitedRetries)
	})

	AfterEach(func() {
		pool.Close()
		if db != nil {
			db.Close()
		}
	})

	Describe("Start with scheduler-selected destination", func() {
		It("should run the workflow to done and dispatch to the selected host", func() {
			registry.Facts["host-1"] = upHost("host-1")
			scheduler.Candidates = []string{"host-1"}

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(m.State).To(Equal(models.MigrationStatePending))
			Expect(m.SourceHost).To(Equal("host-src"))
			Expect(m.AttemptedHosts).To(Equal([]string{"host-src"}))

			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateDone))

			final, err := st.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.Destination).To(Equal("host-1"))
			Expect(final.FailureKind).To(Equal(models.FailureNone))
			Expect(compute.TriggerCallCount()).To(Equal(1))
			Expect(compute.LastTriggerDst).To(Equal("host-1"))
			Expect(compute.LastTriggerData).To(Equal(compute.CheckData))
		})

		It("should persist the attempted hosts of a retried selection", func() {
			down := upHost("host-1")
			down.Up = false
			registry.Facts["host-1"] = down
			registry.Facts["host-2"] = upHost("host-2")
			scheduler.Candidates = []string{"host-1", "host-2"}

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateDone))

			final, err := st.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.Destination).To(Equal("host-2"))
			Expect(final.AttemptedHosts).To(Equal([]string{"host-src", "host-1"}))
		})

		It("should fail with no-valid-host when the scheduler is exhausted", func() {
			scheduler.Candidates = nil

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateFailed))

			final, err := st.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.FailureKind).To(Equal(models.FailureNoValidHost))
			Expect(compute.TriggerCallCount()).To(Equal(0))
		})
	})

	Describe("Start return value", func() {
		// Given an accepted request whose workflow is still running
		// When the caller reads the returned record concurrently
		// Then it sees a stable snapshot the workflow never mutates
		It("should return a snapshot untouched by the running workflow", func() {
			registry.Facts["host-1"] = upHost("host-1")
			scheduler.Candidates = []string{"host-1"}

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(err).NotTo(HaveOccurred())

			reads := make(chan models.MigrationStateType, 1)
			go func() {
				var last models.MigrationStateType
				for range 100 {
					last = m.State
					time.Sleep(time.Millisecond)
				}
				reads <- last
			}()

			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateDone))
			Eventually(reads, 5*time.Second).Should(Receive(Equal(models.MigrationStatePending)))
			Expect(m.AttemptedHosts).To(Equal([]string{"host-src"}))
		})
	})

	Describe("Start with explicit destination", func() {
		It("should validate the destination once and never contact the scheduler", func() {
			registry.Facts["host-2"] = upHost("host-2")

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1", Destination: "host-2"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateDone))

			Expect(scheduler.CallCount()).To(Equal(0))
			final, err := st.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.Destination).To(Equal("host-2"))
			Expect(final.Requested).To(Equal("host-2"))
		})

		It("should fail terminally when the destination is incompatible, without substitution", func() {
			old := upHost("host-2")
			old.HypervisorVersion = 4
			registry.Facts["host-2"] = old
			registry.Facts["host-3"] = upHost("host-3")
			scheduler.Candidates = []string{"host-3"}

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1", Destination: "host-2"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateFailed))

			final, err := st.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.FailureKind).To(Equal(models.FailureDestinationHypervisorTooOld))
			Expect(scheduler.CallCount()).To(Equal(0))
			Expect(compute.TriggerCallCount()).To(Equal(0))
		})

		It("should refuse the instance's current host as destination", func() {
			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1", Destination: "host-src"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateFailed))

			final, err := st.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.FailureKind).To(Equal(models.FailureUnableToMigrateToSelf))
			Expect(scheduler.CallCount()).To(Equal(0))
		})
	})

	Describe("precondition failures", func() {
		It("should fail a non-running instance before contacting scheduler or compute", func() {
			registry.Instances["vm-1"].PowerState = models.PowerStatePaused
			scheduler.Candidates = []string{"host-1"}

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateFailed))

			final, err := st.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.FailureKind).To(Equal(models.FailureInstanceNotRunning))
			Expect(scheduler.CallCount()).To(Equal(0))
			Expect(compute.CheckCallCount()).To(Equal(0))
			Expect(compute.TriggerCallCount()).To(Equal(0))
		})

		It("should fail when the source compute service is down", func() {
			down := upHost("host-src")
			down.Up = false
			registry.Facts["host-src"] = down

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateFailed))

			final, err := st.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.FailureKind).To(Equal(models.FailureComputeServiceUnavailable))
		})

		It("should reject a request for an unknown instance", func() {
			_, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-missing"})
			Expect(srvErrors.IsInstanceNotFoundError(err)).To(BeTrue())
		})
	})

	Describe("dispatch failures", func() {
		It("should record the dispatch failure kind", func() {
			registry.Facts["host-1"] = upHost("host-1")
			scheduler.Candidates = []string{"host-1"}
			compute.TriggerErr = context.DeadlineExceeded

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateFailed))

			final, err := st.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.FailureKind).To(Equal(models.FailureDispatch))
			Expect(final.Error).NotTo(BeEmpty())
		})
	})

	Describe("duplicate requests", func() {
		It("should refuse a second workflow for the same instance while one is in flight", func() {
			registry.Facts["host-1"] = upHost("host-1")
			scheduler.Candidates = []string{"host-1"}

			// Occupy all workers so the first workflow stays queued.
			blockers := make(chan struct{})
			for range 2 {
				pool.Submit(func(ctx context.Context) (any, error) {
					<-blockers
					return nil, nil
				})
			}

			first, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(srvErrors.IsMigrationInProgressError(err)).To(BeTrue())

			close(blockers)
			Eventually(stateOf(first.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateDone))

			// A finished workflow no longer blocks a new one.
			second, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1", Destination: "host-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).NotTo(Equal(first.ID))
		})
	})

	Describe("Rollback", func() {
		It("should always refuse", func() {
			registry.Facts["host-1"] = upHost("host-1")
			scheduler.Candidates = []string{"host-1"}

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(err).NotTo(HaveOccurred())
			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateDone))

			err = service.Rollback(ctx, m.ID)
			Expect(srvErrors.IsRollbackUnsupportedError(err)).To(BeTrue())
		})

		It("should report unknown migrations as not found", func() {
			err := service.Rollback(ctx, uuid.New())
			Expect(srvErrors.IsMigrationNotFoundError(err)).To(BeTrue())
		})
	})

	Describe("Get and List", func() {
		It("should return persisted records", func() {
			registry.Facts["host-1"] = upHost("host-1")
			scheduler.Candidates = []string{"host-1"}

			m, err := service.Start(ctx, models.MigrationRequest{InstanceID: "vm-1"})
			Expect(err).NotTo(HaveOccurred())
			Eventually(stateOf(m.ID), 5*time.Second, 50*time.Millisecond).Should(Equal(models.MigrationStateDone))

			got, err := service.Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.InstanceID).To(Equal("vm-1"))

			list, err := service.List(ctx, store.NewMigrationQueryFilter().ByInstanceID("vm-1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))

			count, err := service.Count(ctx, store.NewMigrationQueryFilter().ByInstanceID("vm-1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})
	})
})
