// Package coldkey validates coldkey search responses against the event store.
package coldkey

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/patrol/internal/graph"
	"github.com/alfredjeanlab/patrol/internal/model"
)

// HashChecker reports which edge hashes are known to the event store.
type HashChecker interface {
	ExistingHashes(ctx context.Context, hashes []string) (map[string]struct{}, error)
}

// Validator checks a miner's claimed transfer graph around a target coldkey.
type Validator struct {
	events     HashChecker
	lowerBlock int64
	logger     *slog.Logger
}

// NewValidator creates a Validator accepting edges from lowerBlock onwards.
func NewValidator(events HashChecker, lowerBlock int64, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{events: events, lowerBlock: lowerBlock, logger: logger}
}

type edgeKey struct {
	source, destination, category, typ string
	rao, block                         int64
}

func keyOf(e *model.Edge) edgeKey {
	k := edgeKey{source: e.ColdkeySource, destination: e.ColdkeyDestination, category: e.Category, typ: e.Type}
	if e.Evidence != nil {
		k.rao, k.block = e.Evidence.RaoAmount, e.Evidence.BlockNumber
	}
	return k
}

// Validate checks the response for target. A failed result carries the
// volume the miner submitted; a passing one carries the volume that could be
// verified: the nodes and edges reachable from target over stored events.
func (v *Validator) Validate(ctx context.Context, target string, g *model.Subgraph, maxBlock int64) model.ValidationResult {
	if g == nil || (len(g.Nodes) == 0 && len(g.Edges) == 0) {
		return model.ValidationResult{Message: "Empty/Null Payload received."}
	}
	submitted := g.Volume()

	matched, err := v.check(ctx, target, g, maxBlock)
	if err != nil {
		return model.ValidationResult{Message: err.Error(), Volume: submitted}
	}

	volume := validatedVolume(matched, target)
	msg := "Validation passed."
	if volume < submitted {
		msg = fmt.Sprintf("Validation passed with some edges unverifiable or zero rao amount for certain edges found: Original Volume:%d, Validated Volume: %d", submitted, volume)
	}
	return model.ValidationResult{Passed: true, Message: msg, Volume: volume}
}

// check runs the structural rules and returns the edges found in the store.
func (v *Validator) check(ctx context.Context, target string, g *model.Subgraph, maxBlock int64) ([]model.Edge, error) {
	nodes := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := nodes[n.ID]; dup {
			return nil, model.Invalidf("Duplicate node detected: %s", n.ID)
		}
		nodes[n.ID] = struct{}{}
	}

	edges := make(map[edgeKey]struct{}, len(g.Edges))
	for i := range g.Edges {
		e := &g.Edges[i]
		if e.Evidence == nil {
			return nil, model.Invalidf("Edge is missing the 'evidence' field.")
		}
		k := keyOf(e)
		if _, dup := edges[k]; dup {
			return nil, model.Invalidf("Duplicate edge detected: (%s, %s, %s, %s, %d, %d)",
				k.source, k.destination, k.category, k.typ, k.rao, k.block)
		}
		edges[k] = struct{}{}
	}

	if len(g.Nodes) < 2 {
		return nil, model.Invalidf("Only single node provided.")
	}
	if !touches(g.Edges, target) {
		return nil, model.Invalidf("Target not found in payload.")
	}

	for _, e := range g.Edges {
		if _, ok := nodes[e.ColdkeySource]; !ok {
			return nil, model.Invalidf("Edge refers to a node not in the payload")
		}
		if _, ok := nodes[e.ColdkeyDestination]; !ok {
			return nil, model.Invalidf("Edge refers to a node not in the payload")
		}
		if e.ColdkeyOwner != "" {
			if _, ok := nodes[e.ColdkeyOwner]; !ok {
				return nil, model.Invalidf("Edge owner refers to a node not in the payload")
			}
		}
	}
	if !graph.WeaklyConnectedWithOwners(g.Nodes, g.Edges) {
		return nil, model.Invalidf("Graph is not fully connected.")
	}

	var invalid []int64
	for _, e := range g.Edges {
		if b := e.Evidence.BlockNumber; b < v.lowerBlock || b > maxBlock {
			invalid = append(invalid, b)
		}
	}
	if len(invalid) > 0 {
		return nil, model.Invalidf("Found %d invalid block(s) outside the allowed range [%d, %d]: %v",
			len(invalid), v.lowerBlock, maxBlock, invalid)
	}

	hashes := make([]string, len(g.Edges))
	for i := range g.Edges {
		hashes[i] = g.Edges[i].ChainEvent().EdgeHash
	}
	known, err := v.events.ExistingHashes(ctx, hashes)
	if err != nil {
		v.logger.Error("check edge hashes", "target", target, "err", err)
		return nil, model.Invalidf("Unable to verify edges: %v", err)
	}

	var matched []model.Edge
	for i, h := range hashes {
		if _, ok := known[h]; ok {
			matched = append(matched, g.Edges[i])
		}
	}
	if len(matched) == 0 {
		return nil, model.Invalidf("No matching edges found in payload.")
	}
	return matched, nil
}

func touches(edges []model.Edge, target string) bool {
	for _, e := range edges {
		if e.ColdkeySource == target || e.ColdkeyDestination == target || e.ColdkeyOwner == target {
			return true
		}
	}
	return false
}

// validatedVolume counts the nodes and distinct edges reachable from target
// over edges that moved a non-zero amount. Edges link source, destination and
// owner pairwise, ignoring direction.
func validatedVolume(edges []model.Edge, target string) int {
	type link struct {
		neighbor string
		edge     edgeKey
	}
	adj := make(map[string][]link)
	connect := func(a, b string, k edgeKey) {
		if a == "" || b == "" {
			return
		}
		adj[a] = append(adj[a], link{b, k})
		adj[b] = append(adj[b], link{a, k})
	}
	for i := range edges {
		e := &edges[i]
		if e.Evidence.RaoAmount == 0 {
			continue
		}
		k := keyOf(e)
		connect(e.ColdkeySource, e.ColdkeyDestination, k)
		connect(e.ColdkeySource, e.ColdkeyOwner, k)
		connect(e.ColdkeyDestination, e.ColdkeyOwner, k)
	}

	seenNodes := map[string]struct{}{target: {}}
	seenEdges := make(map[edgeKey]struct{})
	queue := []string{target}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, l := range adj[cur] {
			seenEdges[l.edge] = struct{}{}
			if _, ok := seenNodes[l.neighbor]; !ok {
				seenNodes[l.neighbor] = struct{}{}
				queue = append(queue, l.neighbor)
			}
		}
	}
	return len(seenNodes) + len(seenEdges)
}
