// Package graph checks that a miner's claimed subgraph is well formed before
// any of its claims are verified against the chain.
package graph

import (
	"github.com/alfredjeanlab/patrol/internal/model"
)

type edgeKey struct {
	from, to string
	block    int64
}

// Validate returns a *model.ValidationError describing the first rule the
// subgraph breaks, or nil if it is a weakly connected graph of unique nodes
// joined by distinct, non-looping edges between declared nodes.
func Validate(g *model.Subgraph) error {
	if g == nil {
		return model.Invalidf("Missing graph")
	}
	if len(g.Nodes) == 0 {
		return model.Invalidf("Zero nodes")
	}

	nodes := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := nodes[n.ID]; dup {
			return model.Invalidf("Duplicate node [%s]", n.ID)
		}
		nodes[n.ID] = struct{}{}
	}

	seen := make(map[edgeKey]struct{}, len(g.Edges))
	for i := range g.Edges {
		e := &g.Edges[i]
		if e.ColdkeySource == e.ColdkeyDestination {
			return model.Invalidf("Edge has same source and destination")
		}
		if _, ok := nodes[e.ColdkeySource]; !ok {
			return model.Invalidf("Edge source [%s] is not a node", e.ColdkeySource)
		}
		if _, ok := nodes[e.ColdkeyDestination]; !ok {
			return model.Invalidf("Edge destination [%s] is not a node", e.ColdkeyDestination)
		}
		k := edgeKey{e.ColdkeySource, e.ColdkeyDestination, e.EffectiveBlock()}
		if _, dup := seen[k]; dup {
			return model.Invalidf("Duplicate edge (from=%s, to=%s, block=%d)", k.from, k.to, k.block)
		}
		seen[k] = struct{}{}
	}

	if !WeaklyConnected(g.Nodes, g.Edges) {
		return model.Invalidf("Graph is not fully connected")
	}
	return nil
}

// WeaklyConnected reports whether every node is reachable from every other
// when edge direction is ignored. Only edge endpoints join components; edge
// endpoints that are not declared as nodes count as vertices too. An empty
// graph is not connected.
func WeaklyConnected(nodes []model.Node, edges []model.Edge) bool {
	return connected(nodes, edges, false)
}

// WeaklyConnectedWithOwners is WeaklyConnected with each edge's coldkey
// owner, when present, joined to the edge's source. Coldkey search answers
// link staking edges to their owning coldkey this way.
func WeaklyConnectedWithOwners(nodes []model.Node, edges []model.Edge) bool {
	return connected(nodes, edges, true)
}

func connected(nodes []model.Node, edges []model.Edge, owners bool) bool {
	uf := newUnionFind()
	for _, n := range nodes {
		uf.add(n.ID)
	}
	for _, e := range edges {
		uf.union(e.ColdkeySource, e.ColdkeyDestination)
		if owners && e.ColdkeyOwner != "" {
			uf.union(e.ColdkeySource, e.ColdkeyOwner)
		}
	}
	return len(uf.parent) > 0 && uf.sets == 1
}
