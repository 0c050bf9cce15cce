// Package placement implements the client for the external placement
// scheduler. Host filtering and weighing happen entirely on the scheduler
// side; this client only ships the request descriptor and the exclusion list
// and reads back one ranked candidate.
package placement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
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

type selectionResponse struct {
	Host string `json:"host"`
}

// SelectDestination asks the scheduler for the best host matching the spec,
// ignoring every host on the exclusion list.
// POST /api/v1/selections
//
// A scheduler with no candidates left answers 404 (or an empty host), which
// surfaces as NoValidHost.
func (c *Client) SelectDestination(ctx context.Context, spec models.PlacementSpec) (string, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/api/v1/selections", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to select destination for instance %s: %w", spec.InstanceID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var selection selectionResponse
		if err := json.NewDecoder(resp.Body).Decode(&selection); err != nil {
			return "", fmt.Errorf("failed to decode selection for instance %s: %w", spec.InstanceID, err)
		}
		if selection.Host == "" {
			return "", srvErrors.NewNoValidHostError(
				fmt.Sprintf("scheduler returned no candidate for instance %s", spec.InstanceID))
		}
		return selection.Host, nil
	case resp.StatusCode == http.StatusNotFound:
		return "", srvErrors.NewNoValidHostError(
			fmt.Sprintf("scheduler has no candidates left for instance %s", spec.InstanceID))
	default:
		return "", fmt.Errorf("failed to select destination for instance %s: %s", spec.InstanceID, resp.Status)
	}
}
