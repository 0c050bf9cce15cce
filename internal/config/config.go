// Package config holds the process configuration of the orchestrator.
// Defaults come from struct tags; flags and environment variables override
// them in the run command.
package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

type Server struct {
	HTTPPort   int    `default:"8000" validate:"gt=0,lte=65535"`
	ServerMode string `default:"dev" validate:"oneof=dev prod"`
}

type Orchestrator struct {
	// MaxRetries bounds how many destination candidates one workflow may
	// reject before giving up. -1 retries until the scheduler is out of
	// hosts; 0 tries exactly once.
	MaxRetries int `default:"-1" validate:"gte=-1"`
	// NumWorkers bounds how many migration workflows run concurrently.
	NumWorkers int    `default:"4" validate:"gt=0"`
	DataFolder string `default:"/var/lib/live-migration-orchestrator" validate:"required"`
}

// Collaborators are the external services the workflow coordinates with.
// Timeouts of individual calls live here; the workflow itself has no
// internal timeout beyond the retry budget.
type Collaborators struct {
	RegistryURL  string        `default:"http://localhost:8090" validate:"url"`
	SchedulerURL string        `default:"http://localhost:8091" validate:"url"`
	ComputeURL   string        `default:"http://localhost:8092" validate:"url"`
	CallTimeout  time.Duration `default:"30s" validate:"gt=0"`
}

type Configuration struct {
	Server        Server
	Orchestrator  Orchestrator
	Collaborators Collaborators
}

func NewConfigurationWithOptionsAndDefaults() *Configuration {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		// Only reachable with broken default tags.
		panic(fmt.Sprintf("failed to apply configuration defaults: %v", err))
	}
	return cfg
}

func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
