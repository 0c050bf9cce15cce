package store_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
	"github.com/kubev2v/live-migration-orchestrator/internal/store"
	"github.com/kubev2v/live-migration-orchestrator/internal/store/migrations"
	srvErrors "github.com/kubev2v/live-migration-orchestrator/pkg/errors"
)

var _ = Describe("MigrationStore", func() {
	var (
		ctx context.Context
		s   *store.Store
		db  *sql.DB
	)

	newRecord := func(instanceID, sourceHost string, state models.MigrationStateType) *models.Migration {
		now := time.Now().UTC().Truncate(time.Millisecond)
		return &models.Migration{
			ID:             uuid.New(),
			InstanceID:     instanceID,
			SourceHost:     sourceHost,
			State:          state,
			AttemptedHosts: []string{sourceHost},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
		Expect(migrations.Run(ctx, db)).To(Succeed())

		s = store.NewStore(db)
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("Create and Get", func() {
		It("should round-trip a full record", func() {
			m := newRecord("vm-1", "host-src", models.MigrationStatePending)
			m.Requested = "host-2"
			m.BlockMigration = true
			m.DiskOverCommit = true

			Expect(s.Migration().Create(ctx, m)).To(Succeed())

			got, err := s.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.InstanceID).To(Equal("vm-1"))
			Expect(got.SourceHost).To(Equal("host-src"))
			Expect(got.Requested).To(Equal("host-2"))
			Expect(got.BlockMigration).To(BeTrue())
			Expect(got.DiskOverCommit).To(BeTrue())
			Expect(got.State).To(Equal(models.MigrationStatePending))
			Expect(got.AttemptedHosts).To(Equal([]string{"host-src"}))
		})

		It("should return MigrationNotFoundError for an unknown id", func() {
			_, err := s.Migration().Get(ctx, uuid.New())
			Expect(srvErrors.IsMigrationNotFoundError(err)).To(BeTrue())
		})
	})

	Describe("Update", func() {
		It("should persist state transitions and the growing exclusion list", func() {
			m := newRecord("vm-1", "host-src", models.MigrationStatePending)
			Expect(s.Migration().Create(ctx, m)).To(Succeed())

			m.State = models.MigrationStateFailed
			m.FailureKind = models.FailureNoValidHost
			m.Error = "no valid host found"
			m.Destination = ""
			m.AttemptedHosts = []string{"host-src", "host-1", "host-2"}
			Expect(s.Migration().Update(ctx, m)).To(Succeed())

			got, err := s.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.State).To(Equal(models.MigrationStateFailed))
			Expect(got.FailureKind).To(Equal(models.FailureNoValidHost))
			Expect(got.Error).To(Equal("no valid host found"))
			Expect(got.AttemptedHosts).To(Equal([]string{"host-src", "host-1", "host-2"}))
		})

		It("should persist the caller's updated_at", func() {
			m := newRecord("vm-1", "host-src", models.MigrationStatePending)
			Expect(s.Migration().Create(ctx, m)).To(Succeed())

			m.State = models.MigrationStateDone
			m.UpdatedAt = m.CreatedAt.Add(5 * time.Second)
			Expect(s.Migration().Update(ctx, m)).To(Succeed())

			got, err := s.Migration().Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UpdatedAt).To(BeTemporally("~", m.UpdatedAt, time.Millisecond))
			Expect(got.UpdatedAt).To(BeTemporally(">", got.CreatedAt))
		})
	})

	Describe("List and Count", func() {
		BeforeEach(func() {
			first := newRecord("vm-1", "host-a", models.MigrationStateDone)
			second := newRecord("vm-2", "host-a", models.MigrationStateFailed)
			third := newRecord("vm-3", "host-b", models.MigrationStateDone)
			second.CreatedAt = first.CreatedAt.Add(time.Second)
			third.CreatedAt = first.CreatedAt.Add(2 * time.Second)

			for _, m := range []*models.Migration{first, second, third} {
				Expect(s.Migration().Create(ctx, m)).To(Succeed())
			}
		})

		It("should return all records without a filter", func() {
			list, err := s.Migration().List(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(3))
		})

		It("should filter by instance id", func() {
			list, err := s.Migration().List(ctx, store.NewMigrationQueryFilter().ByInstanceID("vm-2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].InstanceID).To(Equal("vm-2"))
		})

		It("should filter by state", func() {
			list, err := s.Migration().List(ctx, store.NewMigrationQueryFilter().ByStates(models.MigrationStateDone))
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
		})

		It("should filter by source host", func() {
			list, err := s.Migration().List(ctx, store.NewMigrationQueryFilter().BySourceHost("host-a"))
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
		})

		It("should order newest first and paginate", func() {
			filter := store.NewMigrationQueryFilter().OrderByNewest().Limit(2)
			list, err := s.Migration().List(ctx, filter)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].InstanceID).To(Equal("vm-3"))
			Expect(list[1].InstanceID).To(Equal("vm-2"))

			next, err := s.Migration().List(ctx, store.NewMigrationQueryFilter().OrderByNewest().Limit(2).Offset(2))
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(HaveLen(1))
			Expect(next[0].InstanceID).To(Equal("vm-1"))
		})

		It("should count matching records ignoring pagination", func() {
			filter := store.NewMigrationQueryFilter().BySourceHost("host-a").OrderByNewest().Limit(1)
			count, err := s.Migration().Count(ctx, filter)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})
})
