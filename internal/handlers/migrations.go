package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/live-migration-orchestrator/api/v1"
	"github.com/kubev2v/live-migration-orchestrator/internal/models"
	"github.com/kubev2v/live-migration-orchestrator/internal/store"
	srvErrors "github.com/kubev2v/live-migration-orchestrator/pkg/errors"
)

const defaultListLimit = 100

// StartMigration accepts a live-migration request and starts the workflow.
// (POST /migrations)
func (h *Handler) StartMigration(c *gin.Context) {
	var req v1.MigrationStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	migration, err := h.migrationSrv.Start(c.Request.Context(), req.ToModel())
	if err != nil {
		switch {
		case srvErrors.IsInstanceNotFoundError(err):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case srvErrors.IsMigrationInProgressError(err):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			zap.S().Named("migration_handler").Errorw("failed to start migration", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start migration"})
		}
		return
	}

	c.JSON(http.StatusAccepted, v1.NewMigration(*migration))
}

// ListMigrations returns workflow records, newest first.
// (GET /migrations)
func (h *Handler) ListMigrations(c *gin.Context) {
	filter := store.NewMigrationQueryFilter().
		ByInstanceID(c.Query("instance_id")).
		BySourceHost(c.Query("source_host"))

	if state := c.Query("state"); state != "" {
		filter = filter.ByStates(models.MigrationStateType(state))
	}

	total, err := h.migrationSrv.Count(c.Request.Context(), filter)
	if err != nil {
		zap.S().Named("migration_handler").Errorw("failed to count migrations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list migrations"})
		return
	}

	limit := intQuery(c, "limit", defaultListLimit)
	offset := intQuery(c, "offset", 0)
	filter = filter.OrderByNewest().Limit(limit).Offset(offset)

	migrations, err := h.migrationSrv.List(c.Request.Context(), filter)
	if err != nil {
		zap.S().Named("migration_handler").Errorw("failed to list migrations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list migrations"})
		return
	}

	c.JSON(http.StatusOK, v1.NewMigrationList(migrations, total))
}

// GetMigration returns one workflow record.
// (GET /migrations/:id)
func (h *Handler) GetMigration(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid migration id"})
		return
	}

	migration, err := h.migrationSrv.Get(c.Request.Context(), id)
	if err != nil {
		if srvErrors.IsMigrationNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		zap.S().Named("migration_handler").Errorw("failed to get migration", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get migration"})
		return
	}

	c.JSON(http.StatusOK, v1.NewMigration(*migration))
}

// RollbackMigration refuses to roll back, loudly. The orchestrator has no
// compensating actions; see the migration service.
// (DELETE /migrations/:id)
func (h *Handler) RollbackMigration(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid migration id"})
		return
	}

	err = h.migrationSrv.Rollback(c.Request.Context(), id)
	switch {
	case err == nil:
		// Rollback never succeeds; treat a nil error as a programming error.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rollback unexpectedly succeeded"})
	case srvErrors.IsMigrationNotFoundError(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case srvErrors.IsRollbackUnsupportedError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		zap.S().Named("migration_handler").Errorw("rollback failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rollback failed"})
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
