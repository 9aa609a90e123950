package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/patrol/internal/graph"
	"github.com/alfredjeanlab/patrol/internal/metrics"
	"github.com/alfredjeanlab/patrol/internal/miner"
	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/scoring"
)

// OwnershipVerifier checks a validated subgraph against the chain.
type OwnershipVerifier interface {
	Verify(ctx context.Context, hotkey string, nodes []model.Node, edges []model.Edge, lower, upper int64) error
}

// HotkeyOwnership audits a miner's account of who owned a hotkey over time.
type HotkeyOwnership struct {
	miners     HotkeyOwnershipMiner
	verifier   OwnershipVerifier
	engine     *scoring.Engine
	scores     ScoreSink
	reporter   Reporter
	lowerBlock int64
	logger     *slog.Logger
}

// NewHotkeyOwnership creates the challenge. reporter may be nil. lowerBlock
// is the earliest block whose owner the graph must contain.
func NewHotkeyOwnership(
	miners HotkeyOwnershipMiner,
	verifier OwnershipVerifier,
	engine *scoring.Engine,
	scores ScoreSink,
	reporter Reporter,
	lowerBlock int64,
	logger *slog.Logger,
) *HotkeyOwnership {
	if logger == nil {
		logger = slog.Default()
	}
	return &HotkeyOwnership{
		miners:     miners,
		verifier:   verifier,
		engine:     engine,
		scores:     scores,
		reporter:   reporter,
		lowerBlock: lowerBlock,
		logger:     logger,
	}
}

// Execute runs one audit of m for hotkey. Validation and transport failures
// produce a zero score; the returned error is reserved for failures to score
// or persist.
func (c *HotkeyOwnership) Execute(ctx context.Context, m model.Miner, hotkey string, batchID uuid.UUID, maxBlock int64) (Outcome, error) {
	started := time.Now()
	out := Outcome{TaskID: uuid.New(), Stage: Dispatched}
	audit := scoring.Audit{TaskID: out.TaskID, BatchID: batchID, Miner: m}
	outcome := metrics.OutcomePassed

	resp, elapsed, err := c.miners.HotkeyOwnership(ctx, m, miner.HotkeyOwnershipTask{
		BatchID:        batchID.String(),
		TaskID:         out.TaskID.String(),
		TargetHotkey:   hotkey,
		MaxBlockNumber: maxBlock,
	})
	if err != nil {
		audit.Failure = taskFailure(err)
		outcome = metrics.OutcomeTaskFailed
	} else {
		audit.ResponseTimeSeconds = elapsed.Seconds()
		if err := c.validate(ctx, resp, hotkey, maxBlock, &out); err != nil {
			msg, ok := validationFailure(err)
			if !ok {
				return out, fmt.Errorf("verify ownership: %w", err)
			}
			audit.Failure = msg
			outcome = metrics.OutcomeInvalid
		}
	}

	score, err := c.engine.ScoreOwnership(ctx, audit)
	if err != nil {
		return out, fmt.Errorf("score audit: %w", err)
	}
	out.Score = score
	out.Stage = Scored

	if err := finish(ctx, c.scores, c.reporter, c.logger, started, outcome, &out); err != nil {
		return out, fmt.Errorf("persist score: %w", err)
	}
	return out, nil
}

func (c *HotkeyOwnership) validate(ctx context.Context, resp *miner.HotkeyOwnershipTask, hotkey string, maxBlock int64, out *Outcome) error {
	if err := graph.Validate(resp.SubgraphOutput); err != nil {
		return err
	}
	out.Stage = StructurallyValidated

	g := resp.SubgraphOutput
	if err := c.verifier.Verify(ctx, hotkey, g.Nodes, g.Edges, c.lowerBlock, maxBlock); err != nil {
		return err
	}
	out.Stage = OwnershipVerified
	return nil
}
