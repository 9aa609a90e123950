// Package ownership checks a miner's claimed hotkey ownership history against
// the chain.
package ownership

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// ChainReader answers point-in-time ownership queries.
type ChainReader interface {
	// GetOwner returns the coldkey that owned hotkey at block.
	GetOwner(ctx context.Context, hotkey string, block int64) (string, error)
}

// Verifier checks ownership continuity of validated subgraphs.
type Verifier struct {
	chain  ChainReader
	limit  int
	logger *slog.Logger
}

// NewVerifier creates a Verifier. limit bounds the number of concurrent chain
// queries per verification; 0 means unlimited.
func NewVerifier(chain ChainReader, limit int, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{chain: chain, limit: limit, logger: logger}
}

// Verify checks that the owners of hotkey at lower and upper are nodes of the
// graph, and that every edge is consistent with the chain: the source owned
// the hotkey the block before the edge and the destination the block after.
// The first violation is returned as a *model.ValidationError; outstanding
// queries are cancelled.
func (v *Verifier) Verify(ctx context.Context, hotkey string, nodes []model.Node, edges []model.Edge, lower, upper int64) error {
	ids := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = struct{}{}
	}

	start, err := v.owner(ctx, hotkey, lower)
	if err != nil {
		return err
	}
	end, err := v.owner(ctx, hotkey, upper)
	if err != nil {
		return err
	}
	if _, ok := ids[start]; !ok {
		return model.Invalidf("Start owner [%s] is not in the graph", start)
	}
	if _, ok := ids[end]; !ok {
		return model.Invalidf("End owner [%s] is not in the graph", end)
	}

	g, gctx := errgroup.WithContext(ctx)
	if v.limit > 0 {
		g.SetLimit(v.limit)
	}
	for _, e := range edges {
		block := e.EffectiveBlock()
		g.Go(func() error { return v.expectOwner(gctx, hotkey, block-1, e.ColdkeySource) })
		g.Go(func() error { return v.expectOwner(gctx, hotkey, block+1, e.ColdkeyDestination) })
	}
	return g.Wait()
}

func (v *Verifier) expectOwner(ctx context.Context, hotkey string, block int64, expected string) error {
	actual, err := v.owner(ctx, hotkey, block)
	if err != nil {
		return err
	}
	if actual != expected {
		return model.Invalidf("Expected hotkey_owner [%s]; actual [%s] for block [%d]", expected, actual, block)
	}
	return nil
}

// owner queries the chain, turning a failed query into a validation failure
// so the audit still records a score.
func (v *Verifier) owner(ctx context.Context, hotkey string, block int64) (string, error) {
	owner, err := v.chain.GetOwner(ctx, hotkey, block)
	if err == nil {
		return owner, nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// A sibling already failed; its error is the one reported.
		return "", err
	}
	v.logger.Warn("chain owner query failed", "hotkey", hotkey, "block", block, "err", err)
	return "", model.Invalidf("Unable to query owner of [%s] at block [%d]: %v", hotkey, block, err)
}
