package coldkey

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alfredjeanlab/patrol/internal/model"
)

const (
	lowerBlock = 3014341
	maxBlock   = 4000000
)

// fakeStore knows the hashes of the edges it was seeded with.
type fakeStore struct {
	known map[string]struct{}
	err   error
}

func newFakeStore(edges ...model.Edge) *fakeStore {
	s := &fakeStore{known: map[string]struct{}{}}
	for i := range edges {
		s.known[edges[i].ChainEvent().EdgeHash] = struct{}{}
	}
	return s
}

func (s *fakeStore) ExistingHashes(_ context.Context, hashes []string) (map[string]struct{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]struct{}{}
	for _, h := range hashes {
		if _, ok := s.known[h]; ok {
			out[h] = struct{}{}
		}
	}
	return out, nil
}

func transfer(from, to string, block, rao int64) model.Edge {
	return model.Edge{
		ColdkeySource:      from,
		ColdkeyDestination: to,
		Category:           model.CategoryBalance,
		Type:               "transfer",
		Evidence:           &model.Evidence{BlockNumber: block, RaoAmount: rao},
	}
}

func nodes(ids ...string) []model.Node {
	out := make([]model.Node, len(ids))
	for i, id := range ids {
		out[i] = model.Node{ID: id, Type: "wallet", Origin: "bittensor"}
	}
	return out
}

func TestValidate_Passes(t *testing.T) {
	e1 := transfer("alice", "bob", 3500000, 10)
	e2 := transfer("bob", "carol", 3500001, 20)
	v := NewValidator(newFakeStore(e1, e2), lowerBlock, nil)

	res := v.Validate(context.Background(), "alice", &model.Subgraph{Nodes: nodes("alice", "bob", "carol"), Edges: []model.Edge{e1, e2}}, maxBlock)
	if !res.Passed {
		t.Fatalf("Validate failed: %s", res.Message)
	}
	if res.Volume != 5 || res.Message != "Validation passed." {
		t.Errorf("result = %+v, want volume 5", res)
	}
}

func TestValidate_PartialVolume(t *testing.T) {
	e1 := transfer("alice", "bob", 3500000, 10)
	e2 := transfer("bob", "carol", 3500001, 20)
	zero := transfer("carol", "dave", 3500002, 0)
	// e2 is not in the store; zero moved nothing.
	v := NewValidator(newFakeStore(e1, zero), lowerBlock, nil)

	res := v.Validate(context.Background(), "alice", &model.Subgraph{Nodes: nodes("alice", "bob", "carol", "dave"), Edges: []model.Edge{e1, e2, zero}}, maxBlock)
	if !res.Passed {
		t.Fatalf("Validate failed: %s", res.Message)
	}
	if res.Volume != 3 {
		t.Errorf("volume = %d, want 3 (alice, bob, one edge)", res.Volume)
	}
	if !strings.Contains(res.Message, "Original Volume:7, Validated Volume: 3") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestValidate_StakingOwnerJoins(t *testing.T) {
	stake := model.Edge{
		ColdkeySource:      "alice",
		ColdkeyDestination: "validator",
		ColdkeyOwner:       "owner",
		Category:           model.CategoryStaking,
		Type:               "add_stake",
		Evidence:           &model.Evidence{BlockNumber: 3500000, RaoAmount: 5, DelegateHotkeyDestination: "hk"},
	}
	v := NewValidator(newFakeStore(stake), lowerBlock, nil)

	res := v.Validate(context.Background(), "owner", &model.Subgraph{Nodes: nodes("alice", "validator", "owner"), Edges: []model.Edge{stake}}, maxBlock)
	if !res.Passed || res.Volume != 4 {
		t.Errorf("result = %+v, want pass with volume 4", res)
	}
}

func TestValidate_Failures(t *testing.T) {
	ok := transfer("alice", "bob", 3500000, 10)
	for _, tc := range []struct {
		name   string
		graph  *model.Subgraph
		store  *fakeStore
		want   string
		volume int
	}{
		{"nil payload", nil, newFakeStore(), "Empty/Null Payload received.", 0},
		{"empty payload", &model.Subgraph{}, newFakeStore(), "Empty/Null Payload received.", 0},
		{"single node", &model.Subgraph{Nodes: nodes("alice")}, newFakeStore(), "Only single node provided.", 1},
		{"duplicate node", &model.Subgraph{Nodes: nodes("alice", "alice")}, newFakeStore(), "Duplicate node detected: alice", 2},
		{"duplicate edge", &model.Subgraph{Nodes: nodes("alice", "bob"), Edges: []model.Edge{ok, ok}}, newFakeStore(ok), "Duplicate edge detected: (alice, bob, balance, transfer, 10, 3500000)", 4},
		{"missing evidence", &model.Subgraph{Nodes: nodes("alice", "bob"), Edges: []model.Edge{{ColdkeySource: "alice", ColdkeyDestination: "bob"}}}, newFakeStore(), "Edge is missing the 'evidence' field.", 3},
		{"target absent", &model.Subgraph{Nodes: nodes("bob", "carol"), Edges: []model.Edge{transfer("bob", "carol", 3500000, 1)}}, newFakeStore(), "Target not found in payload.", 3},
		{"undeclared node", &model.Subgraph{Nodes: nodes("alice", "carol"), Edges: []model.Edge{ok}}, newFakeStore(ok), "Edge refers to a node not in the payload", 3},
		{"disconnected", &model.Subgraph{Nodes: nodes("alice", "bob", "carol"), Edges: []model.Edge{ok}}, newFakeStore(ok), "Graph is not fully connected.", 4},
		{"block below limit", &model.Subgraph{Nodes: nodes("alice", "bob"), Edges: []model.Edge{transfer("alice", "bob", 100, 1)}}, newFakeStore(), "Found 1 invalid block(s) outside the allowed range [3014341, 4000000]: [100]", 3},
		{"block above max", &model.Subgraph{Nodes: nodes("alice", "bob"), Edges: []model.Edge{transfer("alice", "bob", maxBlock+1, 1)}}, newFakeStore(), "Found 1 invalid block(s) outside the allowed range [3014341, 4000000]: [4000001]", 3},
		{"no matches", &model.Subgraph{Nodes: nodes("alice", "bob"), Edges: []model.Edge{ok}}, newFakeStore(), "No matching edges found in payload.", 3},
		{"store error", &model.Subgraph{Nodes: nodes("alice", "bob"), Edges: []model.Edge{ok}}, &fakeStore{err: errors.New("db down")}, "Unable to verify edges: db down", 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v := NewValidator(tc.store, lowerBlock, nil)
			res := v.Validate(context.Background(), "alice", tc.graph, maxBlock)
			if res.Passed {
				t.Fatalf("Validate passed, want failure %q", tc.want)
			}
			if res.Message != tc.want {
				t.Errorf("message = %q, want %q", res.Message, tc.want)
			}
			if res.Volume != tc.volume {
				t.Errorf("volume = %d, want %d", res.Volume, tc.volume)
			}
		})
	}
}
