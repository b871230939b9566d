// Package argocd queries the GitOps delivery controller for application
// sync/health state and removes applications on teardown.
package argocd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrAppNotFound marks an application the controller does not know about,
// which typically means it was deleted or never synced.
var ErrAppNotFound = errors.New("argocd application not found")

const defaultRequestTimeout = 15 * time.Second

// AppStatus is the controller's view of one application.
type AppStatus struct {
	SyncStatus   string `json:"sync_status"`
	HealthStatus string `json:"health_status"`
}

// Synced reports whether the controller considers the application in sync
// with its desired state.
func (s AppStatus) Synced() bool {
	return s.SyncStatus == "Synced"
}

type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a client for the given ArgoCD server. Each call is a
// live query; no status is cached.
func NewClient(baseURL, authToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// applicationResponse mirrors the slice of the ArgoCD application resource
// this client reads.
type applicationResponse struct {
	Status struct {
		Sync struct {
			Status string `json:"status"`
		} `json:"sync"`
		Health struct {
			Status string `json:"status"`
		} `json:"health"`
	} `json:"status"`
}

// GetApplicationStatus fetches live sync and health state for the named
// application.
func (c *Client) GetApplicationStatus(ctx context.Context, appName string) (AppStatus, error) {
	endpoint := fmt.Sprintf("%s/api/v1/applications/%s", c.baseURL, url.PathEscape(appName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return AppStatus{}, fmt.Errorf("get application request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AppStatus{}, fmt.Errorf("get application %s: %w", appName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return AppStatus{}, fmt.Errorf("application %s: %w", appName, ErrAppNotFound)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return AppStatus{}, fmt.Errorf("get application %s: status %d: %s", appName, resp.StatusCode, string(body))
	}

	var app applicationResponse
	if err := json.NewDecoder(resp.Body).Decode(&app); err != nil {
		return AppStatus{}, fmt.Errorf("decode application %s: %w", appName, err)
	}

	return AppStatus{
		SyncStatus:   app.Status.Sync.Status,
		HealthStatus: app.Status.Health.Status,
	}, nil
}

// DeleteApplication removes the named application with cascading deletion.
// An application the controller no longer knows about counts as deleted.
func (c *Client) DeleteApplication(ctx context.Context, appName string) error {
	endpoint := fmt.Sprintf("%s/api/v1/applications/%s?cascade=true", c.baseURL, url.PathEscape(appName))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("delete application request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete application %s: %w", appName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete application %s: status %d: %s", appName, resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}
