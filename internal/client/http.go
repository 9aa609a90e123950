package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// HTTPClient implements StatusClient using the validator's HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *HTTPClient) ListScores(ctx context.Context, req *ListScoresRequest) ([]*model.MinerScore, error) {
	q := url.Values{}
	if req.TaskType != "" {
		q.Set("task_type", string(req.TaskType))
	}
	if req.Hotkey != "" {
		q.Set("hotkey", req.Hotkey)
	}
	if req.UID != nil {
		q.Set("uid", strconv.Itoa(*req.UID))
	}
	if !req.Since.IsZero() {
		q.Set("since", req.Since.UTC().Format(time.RFC3339))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	path := "/v1/scores"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Scores []*model.MinerScore `json:"scores"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Scores, nil
}

func (c *HTTPClient) Weights(ctx context.Context) ([]Weight, error) {
	var resp struct {
		Weights []Weight `json:"weights"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/weights", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Weights, nil
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
