package miner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/alfredjeanlab/patrol/internal/idgen"
	"github.com/alfredjeanlab/patrol/internal/model"
)

// DefaultTimeout bounds a single task round trip.
const DefaultTimeout = 60 * time.Second

// DefaultMaxResponseBytes caps the size of a miner's answer.
const DefaultMaxResponseBytes = 64 << 20

// HTTPClient posts JSON tasks to http://ip:port/<TaskName>.
type HTTPClient struct {
	httpClient *http.Client
	maxBytes   int64
	logger     *slog.Logger
}

// NewHTTPClient creates a client with the given per-task timeout and response
// size limit. Zero values select the defaults.
func NewHTTPClient(timeout time.Duration, maxBytes int64, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// HotkeyOwnership sends a hotkey ownership task and returns the miner's answer
// and how long it took.
func (c *HTTPClient) HotkeyOwnership(ctx context.Context, m model.Miner, task HotkeyOwnershipTask) (*HotkeyOwnershipTask, time.Duration, error) {
	var resp HotkeyOwnershipTask
	elapsed, err := c.send(ctx, m, HotkeyOwnershipTaskName, task.TaskID, task.BatchID, task, &resp)
	if err != nil {
		return nil, 0, err
	}
	return &resp, elapsed, nil
}

// ColdkeySearch sends a coldkey search task.
func (c *HTTPClient) ColdkeySearch(ctx context.Context, m model.Miner, task ColdkeySearchTask) (*ColdkeySearchTask, time.Duration, error) {
	var resp ColdkeySearchTask
	elapsed, err := c.send(ctx, m, ColdkeySearchTaskName, task.TaskID, task.BatchID, task, &resp)
	if err != nil {
		return nil, 0, err
	}
	return &resp, elapsed, nil
}

// send posts body and decodes the answer into result. Every failure is
// returned as a *model.TaskError.
func (c *HTTPClient) send(ctx context.Context, m model.Miner, name, taskID, batchID string, body, result any) (time.Duration, error) {
	fail := func(msg string, err error) error {
		return &model.TaskError{Message: msg, TaskID: taskID, BatchID: batchID, Err: err}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return 0, fail("encode task", err)
	}

	url := "http://" + net.JoinHostPort(m.IP, strconv.Itoa(m.Port)) + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, fail("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id, err := idgen.RequestID(); err == nil {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, fail("Timeout", err)
		}
		return 0, fail(err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, fail(fmt.Sprintf("Error: %s; status %d", http.StatusText(resp.StatusCode), resp.StatusCode), nil)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	elapsed := time.Since(start)
	if err != nil {
		if isTimeout(err) {
			return 0, fail("Timeout", err)
		}
		return 0, fail("read response: "+err.Error(), err)
	}
	if int64(len(raw)) > c.maxBytes {
		return 0, fail(fmt.Sprintf("response exceeds %d bytes", c.maxBytes), nil)
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return 0, fail("decode response: "+err.Error(), err)
	}

	c.logger.Debug("miner task completed", "uid", m.UID, "task", name, "task_id", taskID, "elapsed", elapsed)
	return elapsed, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
