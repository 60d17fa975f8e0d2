// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// taskRow is the subset of httpapi's task view the dashboard renders.
// Kept as a standalone decode target (rather than importing httpapi's
// unexported envelope) since the dashboard is a client of the wire
// format, not a library user of the server package.
type taskRow struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Execution string    `json:"execution"`
	Disabled  bool      `json:"disabled"`
	RunID     string    `json:"run_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// APIClient polls a running scheduler's inspection API.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient builds a client against baseURL (e.g. http://localhost:8080).
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// FetchTasks retrieves every registered task's current view.
func (c *APIClient) FetchTasks(ctx context.Context) ([]taskRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tasks", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.OK {
		return nil, fmt.Errorf("api error: %s", env.Error)
	}

	var rows []taskRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return rows, nil
}

// ForceRun requests the named task run ahead of its start condition.
func (c *APIClient) ForceRun(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tasks/"+name+"/force-run", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.OK {
		return fmt.Errorf("api error: %s", env.Error)
	}
	return nil
}
