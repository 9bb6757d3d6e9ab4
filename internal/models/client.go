package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Source reports model statuses
type Source interface {
	Statuses(ctx context.Context) (Statuses, error)
}

// Client fetches model statuses from the detection service
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the service at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Statuses fetches the status of every model the service reports. Unknown
// model keys are skipped.
func (c *Client) Statuses(ctx context.Context) (Statuses, error) {
	url := fmt.Sprintf("%s/models/status", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model status API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model status API error (status %d): %s", resp.StatusCode, string(body))
	}

	var raw map[string]wireInfo
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	statuses := make(Statuses, len(raw))
	for name, w := range raw {
		key, err := ParseKey(name)
		if err != nil {
			slog.Warn("Skipping unknown model", "key", name)
			continue
		}
		info, err := w.toInfo(key)
		if err != nil {
			return nil, err
		}
		statuses[key] = info
	}
	return statuses, nil
}
