package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/patrol/internal/metrics"
	"github.com/alfredjeanlab/patrol/internal/miner"
	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/scoring"
)

// SearchValidator checks a coldkey search answer.
type SearchValidator interface {
	Validate(ctx context.Context, target string, g *model.Subgraph, maxBlock int64) model.ValidationResult
}

// ColdkeySearch audits a miner's map of the transfers around a coldkey.
type ColdkeySearch struct {
	miners    ColdkeySearchMiner
	validator SearchValidator
	engine    *scoring.Engine
	scores    ScoreSink
	reporter  Reporter
	logger    *slog.Logger
}

// NewColdkeySearch creates the challenge. reporter may be nil.
func NewColdkeySearch(miners ColdkeySearchMiner, validator SearchValidator, engine *scoring.Engine, scores ScoreSink, reporter Reporter, logger *slog.Logger) *ColdkeySearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &ColdkeySearch{
		miners:    miners,
		validator: validator,
		engine:    engine,
		scores:    scores,
		reporter:  reporter,
		logger:    logger,
	}
}

// Execute runs one audit of m for the coldkey target.
func (c *ColdkeySearch) Execute(ctx context.Context, m model.Miner, target string, batchID uuid.UUID, maxBlock int64) (Outcome, error) {
	started := time.Now()
	out := Outcome{TaskID: uuid.New(), Stage: Dispatched}
	audit := scoring.Audit{TaskID: out.TaskID, BatchID: batchID, Miner: m}
	outcome := metrics.OutcomePassed

	resp, elapsed, err := c.miners.ColdkeySearch(ctx, m, miner.ColdkeySearchTask{
		BatchID:        batchID.String(),
		TaskID:         out.TaskID.String(),
		Target:         target,
		MaxBlockNumber: maxBlock,
	})
	if err != nil {
		audit.Failure = taskFailure(err)
		outcome = metrics.OutcomeTaskFailed
	} else {
		audit.ResponseTimeSeconds = elapsed.Seconds()
		res := c.validator.Validate(ctx, target, resp.SubgraphOutput, maxBlock)
		audit.Volume = res.Volume
		if res.Passed {
			out.Stage = StructurallyValidated
		} else {
			audit.Failure = res.Message
			outcome = metrics.OutcomeInvalid
		}
	}

	score, err := c.engine.ScoreVolume(ctx, audit)
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
