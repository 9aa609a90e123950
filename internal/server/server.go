// Package server exposes validator status over HTTP and gRPC.
package server

import (
	"context"
	"log/slog"

	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/store"
)

// ScoreReader is the read side of the score repository.
type ScoreReader interface {
	ListScores(ctx context.Context, filter store.ScoreFilter) ([]*model.MinerScore, error)
	FindLastMovingAverages(ctx context.Context, taskType model.TaskType) (map[model.MinerKey]float64, error)
}

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server answers status queries about scores and weights.
type Server struct {
	scores      ScoreReader
	db          Pinger
	taskWeights map[model.TaskType]float64
	logger      *slog.Logger
}

// New creates a Server. db may be nil, in which case /healthz only reports
// that the process is up.
func New(scores ScoreReader, db Pinger, taskWeights map[model.TaskType]float64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{scores: scores, db: db, taskWeights: taskWeights, logger: logger}
}
