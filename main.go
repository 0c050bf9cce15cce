package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kubev2v/live-migration-orchestrator/cmd"
	"github.com/kubev2v/live-migration-orchestrator/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "live-migration-orchestrator",
		Short:        "Orchestrates VM live-migration workflows",
		SilenceUsage: true,
	}
	root.AddCommand(cmd.NewRunCommand(config.NewConfigurationWithOptionsAndDefaults()))

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
