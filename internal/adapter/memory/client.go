package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client forwards persistent-memory operations to the external agent-memory
// service. The service is an opaque collaborator: the gateway relays requests
// and errors without interpreting the stored values.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a memory service client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ServiceError carries the remote service's status and body so the handler
// can relay failures instead of masking them.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("memory service error (%d): %s", e.StatusCode, e.Body)
}

// Get retrieves the value stored under key.
func (c *Client) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/v1/memory/"+url.PathEscape(key), nil)
}

// Put stores value under key.
func (c *Client) Put(ctx context.Context, key string, value json.RawMessage) (json.RawMessage, error) {
	body := map[string]json.RawMessage{"value": value}
	return c.do(ctx, http.MethodPut, "/v1/memory/"+url.PathEscape(key), body)
}

// Delete removes the value stored under key.
func (c *Client) Delete(ctx context.Context, key string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, "/v1/memory/"+url.PathEscape(key), nil)
}

// Search runs a free-text search over stored memories.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	body := map[string]string{"query": query}
	return c.do(ctx, http.MethodPost, "/v1/memory/search", body)
}

// do issues one request and returns the raw response body.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("memory service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
