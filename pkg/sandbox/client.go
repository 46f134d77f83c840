package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rhuss/codebridge/pkg/api"
)

// ExecuteRequest is the request body for POST /execute on a REST-fronted
// runtime.
type ExecuteRequest struct {
	Code           string   `json:"code"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
	Requirements   []string `json:"requirements,omitempty"`
}

// Client calls a REST-fronted runtime's /execute endpoint. It is the
// transport of choice when the runtime runs as a long-lived service rather
// than a per-request subprocess; no tool bridge is available on this path.
type Client struct {
	baseURL        string
	timeoutSeconds int
	requirements   []string
	authToken      string
	httpClient     *http.Client
}

// Ensure Client implements Runner at compile time.
var _ Runner = (*Client)(nil)

// NewClient creates a runtime REST client. timeoutSeconds bounds a single
// execution; the HTTP timeout is set above it so the runtime's own deadline
// fires first and reports a proper run-error envelope.
func NewClient(baseURL string, timeoutSeconds int, requirements []string) *Client {
	return &Client{
		baseURL:        baseURL,
		timeoutSeconds: timeoutSeconds,
		requirements:   requirements,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds+30) * time.Second,
		},
	}
}

// WithAuthToken sets a bearer token sent on every request.
func (c *Client) WithAuthToken(token string) *Client {
	c.authToken = token
	return c
}

// Run implements Runner.
func (c *Client) Run(ctx context.Context, code string) (*api.Envelope, error) {
	return c.Execute(ctx, &ExecuteRequest{
		Code:           code,
		TimeoutSeconds: c.timeoutSeconds,
		Requirements:   c.requirements,
	})
}

// Execute sends one code execution request and decodes the envelope.
func (c *Client) Execute(ctx context.Context, req *ExecuteRequest) (*api.Envelope, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("runtime request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("runtime at capacity (HTTP 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runtime returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return api.DecodeEnvelope(respBody)
}
