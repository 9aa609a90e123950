package miner

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// minerFor points a model.Miner at a test server.
func minerFor(t *testing.T, srv *httptest.Server) model.Miner {
	t.Helper()
	host, port, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("split host: %v", err)
	}
	p, _ := strconv.Atoi(port)
	return model.Miner{UID: 1, Hotkey: "hk", IP: host, Port: p}
}

func requireTaskError(t *testing.T, err error) *model.TaskError {
	t.Helper()
	var te *model.TaskError
	if !errors.As(err, &te) {
		t.Fatalf("error %v is not a TaskError", err)
	}
	return te
}

func TestHotkeyOwnership_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/HotkeyOwnershipSynapse" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("X-Request-ID"), "req-") {
			t.Errorf("X-Request-ID = %q", r.Header.Get("X-Request-ID"))
		}
		var task HotkeyOwnershipTask
		if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
			t.Errorf("decode: %v", err)
		}
		task.SubgraphOutput = &model.Subgraph{
			Nodes: []model.Node{{ID: "a"}, {ID: "b"}},
			Edges: []model.Edge{{ColdkeySource: "a", ColdkeyDestination: "b", Evidence: &model.Evidence{EffectiveBlockNumber: 10}}},
		}
		_ = json.NewEncoder(w).Encode(task)
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, 0, nil)
	resp, elapsed, err := c.HotkeyOwnership(context.Background(), minerFor(t, srv), HotkeyOwnershipTask{TaskID: "t1", BatchID: "b1", TargetHotkey: "hk", MaxBlockNumber: 100})
	if err != nil {
		t.Fatalf("HotkeyOwnership: %v", err)
	}
	if elapsed <= 0 {
		t.Errorf("elapsed = %v, want > 0", elapsed)
	}
	if resp.TaskID != "t1" || resp.SubgraphOutput == nil || len(resp.SubgraphOutput.Edges) != 1 {
		t.Errorf("response = %+v", resp)
	}
	if got := resp.SubgraphOutput.Edges[0].EffectiveBlock(); got != 10 {
		t.Errorf("effective block = %d", got)
	}
}

func TestSend_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, 0, nil)
	_, _, err := c.ColdkeySearch(context.Background(), minerFor(t, srv), ColdkeySearchTask{TaskID: "t1", BatchID: "b1"})
	te := requireTaskError(t, err)
	if te.Message != "Error: Service Unavailable; status 503" || te.TaskID != "t1" || te.BatchID != "b1" {
		t.Errorf("TaskError = %+v", te)
	}
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewHTTPClient(50*time.Millisecond, 0, nil)
	_, _, err := c.ColdkeySearch(context.Background(), minerFor(t, srv), ColdkeySearchTask{TaskID: "t1"})
	if te := requireTaskError(t, err); te.Message != "Timeout" {
		t.Errorf("message = %q, want Timeout", te.Message)
	}
}

func TestSend_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"task_id":"` + strings.Repeat("x", 200) + `"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, 64, nil)
	_, _, err := c.ColdkeySearch(context.Background(), minerFor(t, srv), ColdkeySearchTask{})
	if te := requireTaskError(t, err); te.Message != "response exceeds 64 bytes" {
		t.Errorf("message = %q", te.Message)
	}
}

func TestSend_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, 0, nil)
	_, _, err := c.ColdkeySearch(context.Background(), minerFor(t, srv), ColdkeySearchTask{})
	if te := requireTaskError(t, err); !strings.HasPrefix(te.Message, "decode response:") {
		t.Errorf("message = %q", te.Message)
	}
}

func TestSend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	m := minerFor(t, srv)
	srv.Close()

	c := NewHTTPClient(time.Second, 0, nil)
	_, _, err := c.HotkeyOwnership(context.Background(), m, HotkeyOwnershipTask{TaskID: "t9"})
	if te := requireTaskError(t, err); te.TaskID != "t9" || te.Err == nil {
		t.Errorf("TaskError = %+v", te)
	}
}
