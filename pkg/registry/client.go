// Package registry implements the client for the host registry, the service
// that knows which compute hosts exist, whether they are up, and what
// resources they carry.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
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

// GetHostFacts fetches the current resource facts for a host.
// GET /api/v1/hosts/{host}
//
// Facts are fetched fresh on every call. Callers must not cache them: the
// capacity check depends on current memory usage.
func (c *Client) GetHostFacts(ctx context.Context, host string) (*models.HostFacts, error) {
	u := fmt.Sprintf("%s/api/v1/hosts/%s", c.baseURL, url.PathEscape(host))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch host facts for %s: %w", host, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var facts models.HostFacts
		if err := json.NewDecoder(resp.Body).Decode(&facts); err != nil {
			return nil, fmt.Errorf("failed to decode host facts for %s: %w", host, err)
		}
		return &facts, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, srvErrors.NewHostNotFoundError(host)
	default:
		return nil, fmt.Errorf("failed to fetch host facts for %s: %s", host, resp.Status)
	}
}

// GetInstance fetches the current snapshot of an instance.
// GET /api/v1/instances/{id}
func (c *Client) GetInstance(ctx context.Context, instanceID string) (*models.Instance, error) {
	u := fmt.Sprintf("%s/api/v1/instances/%s", c.baseURL, url.PathEscape(instanceID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instance %s: %w", instanceID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var instance models.Instance
		if err := json.NewDecoder(resp.Body).Decode(&instance); err != nil {
			return nil, fmt.Errorf("failed to decode instance %s: %w", instanceID, err)
		}
		return &instance, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, srvErrors.NewInstanceNotFoundError(instanceID)
	default:
		return nil, fmt.Errorf("failed to fetch instance %s: %s", instanceID, resp.Status)
	}
}
