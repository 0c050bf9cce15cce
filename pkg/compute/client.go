// Package compute implements the client for compute hosts: the destination's
// live-migration precheck and the source-side migration trigger.
package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
	srvErrors "github.com/kubev2v/live-migration-orchestrator/pkg/errors"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type checkTargetRequest struct {
	Instance       models.Instance `json:"instance"`
	BlockMigration bool            `json:"block_migration"`
	DiskOverCommit bool            `json:"disk_over_commit"`
}

// CheckTarget runs the live-migration precheck on the destination host.
// POST /api/v1/hosts/{host}/migration-check
//
// On success it returns the MigrateData handshake payload, kept opaque and
// handed unmodified to TriggerMigration. A 409 means the destination judged
// the migration infeasible; the caller decides whether that disqualifies the
// whole workflow or just this candidate.
func (c *Client) CheckTarget(ctx context.Context, instance *models.Instance, destination string, blockMigration, diskOverCommit bool) (models.MigrateData, error) {
	body, err := json.Marshal(checkTargetRequest{
		Instance:       *instance,
		BlockMigration: blockMigration,
		DiskOverCommit: diskOverCommit,
	})
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/api/v1/hosts/%s/migration-check", c.baseURL, url.PathEscape(destination))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("migration check on host %s failed: %w", destination, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read migrate data from host %s: %w", destination, err)
		}
		return models.MigrateData(data), nil
	case resp.StatusCode == http.StatusConflict:
		return nil, srvErrors.NewMigrationPreCheckError(readErrorMessage(resp.Body, resp.Status))
	default:
		return nil, fmt.Errorf("migration check on host %s failed: %s", destination, resp.Status)
	}
}

type triggerRequest struct {
	Instance       models.Instance `json:"instance"`
	Destination    string          `json:"destination"`
	BlockMigration bool            `json:"block_migration"`
	MigrateData    json.RawMessage `json:"migrate_data"`
}

// TriggerMigration asks the source host to start the live migration.
// POST /api/v1/hosts/{host}/migrations
//
// A 2xx only acknowledges that the migration was accepted for execution;
// the hypervisor-level transfer proceeds asynchronously.
func (c *Client) TriggerMigration(ctx context.Context, source, destination string, instance *models.Instance, blockMigration bool, data models.MigrateData) error {
	body, err := json.Marshal(triggerRequest{
		Instance:       *instance,
		Destination:    destination,
		BlockMigration: blockMigration,
		MigrateData:    json.RawMessage(data),
	})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/api/v1/hosts/%s/migrations", c.baseURL, url.PathEscape(source))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to trigger migration on host %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("failed to trigger migration on host %s: %s", source, resp.Status)
}

func readErrorMessage(r io.Reader, fallback string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil || payload.Error == "" {
		return fallback
	}
	return payload.Error
}
