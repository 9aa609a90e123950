package store

import (
	"context"
	"time"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// InsertOutcome is the result of storing a single chain event.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	Duplicate
	Failed
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// ItemFailure records an event that could not be stored for a reason other
// than a uniqueness conflict.
type ItemFailure struct {
	EdgeHash string
	Err      error
}

// BulkResult summarizes an AddEvents call. Inserted + Duplicates + len(Failures)
// equals the number of events submitted.
type BulkResult struct {
	Inserted   int
	Duplicates int
	Failures   []ItemFailure
}

// Record folds one per-event outcome into the result.
func (r *BulkResult) Record(hash string, outcome InsertOutcome, err error) {
	switch outcome {
	case Inserted:
		r.Inserted++
	case Duplicate:
		r.Duplicates++
	default:
		r.Failures = append(r.Failures, ItemFailure{EdgeHash: hash, Err: err})
	}
}

// Total is the number of events accounted for.
func (r BulkResult) Total() int {
	return r.Inserted + r.Duplicates + len(r.Failures)
}

// EventStore is the content-addressed store of chain events.
type EventStore interface {
	// AddEvents stores events idempotently. Duplicates are counted, never
	// returned as errors; the error return is reserved for failures that
	// prevented any attempt (e.g. a cancelled context).
	AddEvents(ctx context.Context, events []model.ChainEvent) (BulkResult, error)
	FindByColdkey(ctx context.Context, coldkey string) ([]model.ChainEvent, error)
	// HighestBlockNumber returns ok=false when the store holds no events.
	HighestBlockNumber(ctx context.Context) (block int64, ok bool, err error)
	ExistingHashes(ctx context.Context, hashes []string) (map[string]struct{}, error)
	SampleHotkeys(ctx context.Context, n int) ([]string, error)
	SampleColdkeys(ctx context.Context, n int) ([]string, error)
}

// ScoreFilter narrows ListScores.
type ScoreFilter struct {
	TaskType model.TaskType
	Hotkey   string
	UID      *int
	Since    time.Time
	Limit    int
}

// ScoreRepository is the append-only log of miner scores.
type ScoreRepository interface {
	// Add is idempotent on score.ID.
	Add(ctx context.Context, score *model.MinerScore) error
	// FindLatestOverallScores returns at most limit overall scores, most recent first.
	FindLatestOverallScores(ctx context.Context, key model.MinerKey, taskType model.TaskType, limit int) ([]float64, error)
	FindLastMovingAverages(ctx context.Context, taskType model.TaskType) (map[model.MinerKey]float64, error)
	ListScores(ctx context.Context, filter ScoreFilter) ([]*model.MinerScore, error)
	ScoresSince(ctx context.Context, since time.Time) ([]*model.MinerScore, error)
}

// Store combines both repositories behind one connection.
type Store interface {
	EventStore
	ScoreRepository
	Close() error
}
