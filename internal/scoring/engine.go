package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// History supplies a miner's recent overall scores, most recent first.
type History interface {
	FindLatestOverallScores(ctx context.Context, key model.MinerKey, taskType model.TaskType, limit int) ([]float64, error)
}

// Audit is the outcome of one challenge, ready to be scored.
type Audit struct {
	TaskID              uuid.UUID
	BatchID             uuid.UUID
	Miner               model.Miner
	ResponseTimeSeconds float64
	// Failure is the validation or transport error message; empty when the
	// response passed validation.
	Failure string
	// Volume is the validated item count for volume audits.
	Volume int
}

// Engine scores audits and blends them into each miner's moving average.
type Engine struct {
	history History
	params  Params
	scorer  AuditScorer
	now     func() time.Time
}

// NewEngine creates an Engine that scores pass/fail audits with scorer. A nil
// scorer selects the weighted default for p.
func NewEngine(history History, p Params, scorer AuditScorer) *Engine {
	if scorer == nil {
		scorer = NewWeightedAuditScorer(p)
	}
	return &Engine{
		history: history,
		params:  p,
		scorer:  scorer,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Params returns the constants the engine was built with.
func (e *Engine) Params() Params {
	return e.params
}

// ScoreOwnership scores a hotkey ownership audit.
func (e *Engine) ScoreOwnership(ctx context.Context, a Audit) (*model.MinerScore, error) {
	passed := a.Failure == ""
	s := e.scorer.Score(passed, a.ResponseTimeSeconds)

	prior, err := e.history.FindLatestOverallScores(ctx, a.Miner.Key(), model.TaskHotkeyOwnership, e.params.OwnershipWindow-1)
	if err != nil {
		return nil, fmt.Errorf("load score history: %w", err)
	}

	score := e.base(a, model.TaskHotkeyOwnership)
	score.OverallScore = s.Overall
	score.ResponsivenessScore = s.Responsiveness
	score.OverallScoreMovingAverage = PassFailMovingAverage(prior, s.Overall, e.params.OwnershipWindow)
	score.ValidationPassed = passed
	score.ErrorMessage = a.Failure
	return score, nil
}

// ScoreVolume scores a coldkey search audit. Failed audits keep the volume
// they report.
func (e *Engine) ScoreVolume(ctx context.Context, a Audit) (*model.MinerScore, error) {
	var volumeScore, responsiveness, overall float64
	passed := a.Failure == ""
	if passed {
		volumeScore = VolumeScore(e.params, a.Volume)
		responsiveness = Responsiveness(e.params.ResponseTimeHalfScore, a.ResponseTimeSeconds)
		overall = e.params.VolumeWeight*volumeScore + e.params.ResponsivenessWeight*responsiveness
	}

	prior, err := e.history.FindLatestOverallScores(ctx, a.Miner.Key(), model.TaskColdkeySearch, e.params.VolumeWindow-1)
	if err != nil {
		return nil, fmt.Errorf("load score history: %w", err)
	}

	score := e.base(a, model.TaskColdkeySearch)
	score.OverallScore = overall
	score.VolumeScore = volumeScore
	score.Volume = a.Volume
	score.ResponsivenessScore = responsiveness
	score.OverallScoreMovingAverage = VolumeMovingAverage(prior, overall, e.params.VolumeWindow, e.params.DiscardLowest)
	score.ValidationPassed = passed
	score.ErrorMessage = a.Failure
	return score, nil
}

func (e *Engine) base(a Audit, task model.TaskType) *model.MinerScore {
	return &model.MinerScore{
		ID:                  a.TaskID,
		BatchID:             a.BatchID,
		CreatedAt:           e.now(),
		UID:                 a.Miner.UID,
		Hotkey:              a.Miner.Hotkey,
		Coldkey:             a.Miner.Coldkey,
		ResponseTimeSeconds: a.ResponseTimeSeconds,
		TaskType:            task,
	}
}
