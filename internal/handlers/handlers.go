package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
	"github.com/kubev2v/live-migration-orchestrator/internal/store"
)

// MigrationService is the workflow surface the handlers expose.
type MigrationService interface {
	Start(ctx context.Context, request models.MigrationRequest) (*models.Migration, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Migration, error)
	List(ctx context.Context, filter *store.MigrationQueryFilter) ([]models.Migration, error)
	Count(ctx context.Context, filter *store.MigrationQueryFilter) (int, error)
	Rollback(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	migrationSrv MigrationService
}

func New(migrationSrv MigrationService) *Handler {
	return &Handler{
		migrationSrv: migrationSrv,
	}
}

// Register wires the API routes onto the router group.
func (h *Handler) Register(router *gin.RouterGroup) {
	router.GET("/health", h.Health)
	router.POST("/migrations", h.StartMigration)
	router.GET("/migrations", h.ListMigrations)
	router.GET("/migrations/:id", h.GetMigration)
	router.DELETE("/migrations/:id", h.RollbackMigration)
}

// Health reports liveness.
// (GET /health)
func (h *Handler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
