// Package apiclient is the agent's HTTP client for the punch store API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"punchclock.service/internal/agent"
	"punchclock.service/internal/core/model"
)

// Client talks to the remote punch store over HTTP. Callers distinguish
// failure classes with errors.Is against agent.ErrTransport and
// agent.ErrRejected.
type Client struct {
	client  *http.Client
	baseURL string
}

// New builds a client for the given base URL. The timeout bounds every
// request so a hung submission cannot stall a whole sync pass.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

type submitResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// SubmitPunch posts one punch and returns the server-assigned id.
func (c *Client) SubmitPunch(ctx context.Context, p model.Punch) (int64, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal punch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/punch", bytes.NewBuffer(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create punch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", agent.ErrTransport, err)
	}
	defer resp.Body.Close()

	var body submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && err != io.EOF {
		body = submitResponse{}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body.ID, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return 0, fmt.Errorf("%w: status %d: %s", agent.ErrRejected, resp.StatusCode, body.Error)
	default:
		return 0, fmt.Errorf("%w: status %d", agent.ErrTransport, resp.StatusCode)
	}
}

// ListPunches fetches the employee's punch history, newest first.
func (c *Client) ListPunches(ctx context.Context, employeeID int64) ([]model.Punch, error) {
	var punches []model.Punch
	url := fmt.Sprintf("%s/api/punches/%d", c.baseURL, employeeID)
	if err := c.getJSON(ctx, url, &punches); err != nil {
		return nil, err
	}
	return punches, nil
}

// WeeklySummary fetches the trailing-week total as a two-decimal string.
func (c *Client) WeeklySummary(ctx context.Context, employeeID int64) (string, error) {
	var body struct {
		TotalHours string `json:"totalHours"`
	}
	url := fmt.Sprintf("%s/api/weekly-summary/%d", c.baseURL, employeeID)
	if err := c.getJSON(ctx, url, &body); err != nil {
		return "", err
	}
	return body.TotalHours, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", agent.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", agent.ErrTransport, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", agent.ErrTransport, err)
	}
	return nil
}
