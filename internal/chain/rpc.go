// Package chain reads chain state from a JSON-RPC 2.0 gateway.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// DefaultTimeout bounds a single RPC call.
const DefaultTimeout = 30 * time.Second

// RPCError is an error object returned by the gateway.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// RPCClient implements ownership queries, head tracking and event reads
// against a chain gateway.
type RPCClient struct {
	url        string
	token      string
	httpClient *http.Client
	nextID     atomic.Int64
}

// NewRPCClient creates a client for the gateway at url. When token is
// non-empty it is sent as a bearer token.
func NewRPCClient(url, token string, timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RPCClient{
		url:        strings.TrimRight(url, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CurrentBlock returns the number of the chain head.
func (c *RPCClient) CurrentBlock(ctx context.Context) (int64, error) {
	var head struct {
		Number int64 `json:"number"`
	}
	if err := c.call(ctx, "chain_getHead", nil, &head); err != nil {
		return 0, err
	}
	return head.Number, nil
}

// GetOwner returns the coldkey that owned hotkey at block.
func (c *RPCClient) GetOwner(ctx context.Context, hotkey string, block int64) (string, error) {
	var owner string
	if err := c.call(ctx, "patrol_ownerAt", []any{hotkey, block}, &owner); err != nil {
		return "", err
	}
	return owner, nil
}

// EventsInRange returns the balance and staking events of blocks from through
// to, inclusive.
func (c *RPCClient) EventsInRange(ctx context.Context, from, to int64) ([]model.ChainEvent, error) {
	var events []model.ChainEvent
	if err := c.call(ctx, "patrol_eventsInRange", []any{from, to}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}
	data, err := json.Marshal(request{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rpcResp response
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}
