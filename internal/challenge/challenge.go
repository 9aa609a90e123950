// Package challenge runs audits: it dispatches a task to a miner, validates
// and scores the answer, persists the score and reports it.
package challenge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/patrol/internal/metrics"
	"github.com/alfredjeanlab/patrol/internal/miner"
	"github.com/alfredjeanlab/patrol/internal/model"
)

// Stage is how far an audit progressed.
type Stage int

const (
	Dispatched Stage = iota
	StructurallyValidated
	OwnershipVerified
	Scored
	Persisted
	Reported
)

var stageNames = [...]string{
	Dispatched:            "DISPATCHED",
	StructurallyValidated: "STRUCTURALLY_VALIDATED",
	OwnershipVerified:     "OWNERSHIP_VERIFIED",
	Scored:                "SCORED",
	Persisted:             "PERSISTED",
	Reported:              "REPORTED",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "UNKNOWN"
}

// Outcome describes a finished audit.
type Outcome struct {
	TaskID uuid.UUID
	Score  *model.MinerScore
	Stage  Stage
}

// HotkeyOwnershipMiner dispatches hotkey ownership tasks.
type HotkeyOwnershipMiner interface {
	HotkeyOwnership(ctx context.Context, m model.Miner, task miner.HotkeyOwnershipTask) (*miner.HotkeyOwnershipTask, time.Duration, error)
}

// ColdkeySearchMiner dispatches coldkey search tasks.
type ColdkeySearchMiner interface {
	ColdkeySearch(ctx context.Context, m model.Miner, task miner.ColdkeySearchTask) (*miner.ColdkeySearchTask, time.Duration, error)
}

// ScoreSink persists scores.
type ScoreSink interface {
	Add(ctx context.Context, score *model.MinerScore) error
}

// Reporter sends finished scores to an external dashboard.
type Reporter interface {
	SendScore(ctx context.Context, score *model.MinerScore) error
}

// taskFailure returns the message recorded on the zero score of an audit
// whose miner could not be reached or answered garbage.
func taskFailure(err error) string {
	var te *model.TaskError
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}

// validationFailure returns the message of a failed validation. ok is false
// for any other error.
func validationFailure(err error) (string, bool) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	return "", false
}

// finish persists and reports a scored audit.
func finish(ctx context.Context, sink ScoreSink, reporter Reporter, logger *slog.Logger, started time.Time, outcome string, out *Outcome) error {
	s := out.Score
	if err := sink.Add(ctx, s); err != nil {
		metrics.ObserveAudit(string(s.TaskType), metrics.OutcomeError, time.Since(started), 0)
		return err
	}
	out.Stage = Persisted

	metrics.ObserveAudit(string(s.TaskType), outcome, time.Since(started), s.OverallScore)

	logger.Info("miner scored",
		"task_type", s.TaskType,
		"task_id", s.ID,
		"batch_id", s.BatchID,
		"uid", s.UID,
		"hotkey", s.Hotkey,
		"overall_score", s.OverallScore,
		"moving_average", s.OverallScoreMovingAverage,
		"validation_passed", s.ValidationPassed,
		"error_message", s.ErrorMessage,
	)

	if reporter == nil {
		return nil
	}
	if err := reporter.SendScore(ctx, s); err != nil {
		logger.Warn("failed to report score", "task_id", s.ID, "err", err)
		metrics.TelemetryFailed("dashboard")
		return nil
	}
	out.Stage = Reported
	return nil
}
