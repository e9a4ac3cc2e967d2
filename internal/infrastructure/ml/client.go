// Package ml talks to a self-hosted inference service over plain JSON.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"IDCIntel/internal/ports"
)

// Client posts prompts to {endpoint}/complete and reads {"text": "..."} back.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

var _ ports.ChatClient = (*Client)(nil)

// NewClient creates a reusable HTTP client. The per-call deadline comes from
// the caller's context; timeout is only an upper bound.
func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
	}
}

type completeRequest struct {
	Model  string `json:"model,omitempty"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
}

type completeResponse struct {
	Text string `json:"text"`
}

// Complete sends a single prompt.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	var resp completeResponse
	if err := c.post(ctx, "/complete", completeRequest{Model: c.model, System: system, Prompt: user}, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "ml: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "ml: new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "ml: do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eris.Errorf("ml: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return eris.Wrap(err, "ml: decode response")
	}
	return nil
}
