package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kubev2v/live-migration-orchestrator/internal/config"
	"github.com/kubev2v/live-migration-orchestrator/internal/handlers"
	"github.com/kubev2v/live-migration-orchestrator/internal/server"
	"github.com/kubev2v/live-migration-orchestrator/internal/services"
	"github.com/kubev2v/live-migration-orchestrator/internal/store"
	"github.com/kubev2v/live-migration-orchestrator/internal/store/migrations"
	"github.com/kubev2v/live-migration-orchestrator/pkg/compute"
	"github.com/kubev2v/live-migration-orchestrator/pkg/placement"
	"github.com/kubev2v/live-migration-orchestrator/pkg/registry"
	"github.com/kubev2v/live-migration-orchestrator/pkg/workers"
)

const envPrefix = "ORCHESTRATOR"

const databaseFileName = "orchestrator.db"

func NewRunCommand(cfg *config.Configuration) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Run the live-migration orchestrator",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			viper.AutomaticEnv()
			viper.SetEnvPrefix(envPrefix)
			viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			cobraflags.PresetRequiredFlags(envPrefix, make(map[*pflag.Flag]bool), cmd)

			return validateConfiguration(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.Server.HTTPPort, "server-http-port", cfg.Server.HTTPPort, "port the API server listens on")
	flags.StringVar(&cfg.Server.ServerMode, "server-mode", cfg.Server.ServerMode, "server mode: dev or prod")
	flags.IntVar(&cfg.Orchestrator.MaxRetries, "migrate-max-retries", cfg.Orchestrator.MaxRetries,
		"number of times to retry live-migration before failing; -1 retries until out of hosts, 0 tries once")
	flags.IntVar(&cfg.Orchestrator.NumWorkers, "num-workers", cfg.Orchestrator.NumWorkers, "number of concurrent migration workflows")
	flags.StringVar(&cfg.Orchestrator.DataFolder, "data-folder", cfg.Orchestrator.DataFolder, "folder holding the orchestrator database")
	flags.StringVar(&cfg.Collaborators.RegistryURL, "registry-url", cfg.Collaborators.RegistryURL, "base URL of the host registry")
	flags.StringVar(&cfg.Collaborators.SchedulerURL, "scheduler-url", cfg.Collaborators.SchedulerURL, "base URL of the placement scheduler")
	flags.StringVar(&cfg.Collaborators.ComputeURL, "compute-url", cfg.Collaborators.ComputeURL, "base URL of the compute host API")
	flags.DurationVar(&cfg.Collaborators.CallTimeout, "call-timeout", cfg.Collaborators.CallTimeout, "timeout of individual collaborator calls")

	return cmd
}

func run(ctx context.Context, cfg *config.Configuration) error {
	logger, err := newLogger(cfg.Server.ServerMode)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Orchestrator.DataFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create data folder: %w", err)
	}

	db, err := store.NewDB(filepath.Join(cfg.Orchestrator.DataFolder, databaseFileName))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	st := store.NewStore(db)
	defer func() { _ = st.Close() }()

	pool := workers.NewPool(cfg.Orchestrator.NumWorkers)
	defer pool.Close()

	registryClient := registry.NewClient(cfg.Collaborators.RegistryURL, cfg.Collaborators.CallTimeout)
	placementClient := placement.NewClient(cfg.Collaborators.SchedulerURL, cfg.Collaborators.CallTimeout)
	computeClient := compute.NewClient(cfg.Collaborators.ComputeURL, cfg.Collaborators.CallTimeout)

	validator := services.NewPreconditionValidator(registryClient)
	checker := services.NewCompatibilityChecker(registryClient, computeClient, validator)
	selector := services.NewDestinationSelector(placementClient, checker, cfg.Orchestrator.MaxRetries)
	dispatcher := services.NewMigrationDispatcher(computeClient)
	migrationSrv := services.NewMigrationService(pool, st, registryClient, validator, checker, selector, dispatcher)

	handler := handlers.New(migrationSrv)
	srv, err := server.NewServer(cfg, func(router *gin.RouterGroup) {
		handler.Register(router)
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("starting server", "port", cfg.Server.HTTPPort, "mode", cfg.Server.ServerMode)
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Stop(shutdownCtx)

	return nil
}

func validateConfiguration(cfg *config.Configuration) error {
	if cfg.Server.HTTPPort < 1 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http-port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.ServerMode != server.DevServer && cfg.Server.ServerMode != server.ProductionServer {
		return fmt.Errorf("invalid server mode: %s", cfg.Server.ServerMode)
	}
	if cfg.Orchestrator.NumWorkers < 1 {
		return fmt.Errorf("invalid num-workers: %d", cfg.Orchestrator.NumWorkers)
	}
	if cfg.Orchestrator.MaxRetries < -1 {
		return fmt.Errorf("invalid migrate-max-retries: %d", cfg.Orchestrator.MaxRetries)
	}
	if cfg.Orchestrator.DataFolder == "" {
		return fmt.Errorf("data-folder cannot be empty")
	}
	if cfg.Collaborators.RegistryURL == "" {
		return fmt.Errorf("registry-url cannot be empty")
	}
	if cfg.Collaborators.SchedulerURL == "" {
		return fmt.Errorf("scheduler-url cannot be empty")
	}
	if cfg.Collaborators.ComputeURL == "" {
		return fmt.Errorf("compute-url cannot be empty")
	}
	if cfg.Collaborators.CallTimeout <= 0 {
		return fmt.Errorf("invalid call-timeout: %s", cfg.Collaborators.CallTimeout)
	}

	return cfg.Validate()
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == server.ProductionServer {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
