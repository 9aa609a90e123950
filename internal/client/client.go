// Package client talks to a running patrol validator: the HTTP/JSON status
// API for scores and weights, and the gRPC health service.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// StatusClient is the read-only view of a validator used by the CLI when
// it is pointed at a server instead of the database.
type StatusClient interface {
	Health(ctx context.Context) (string, error)
	ListScores(ctx context.Context, req *ListScoresRequest) ([]*model.MinerScore, error)
	Weights(ctx context.Context) ([]Weight, error)
	Close() error
}

// ListScoresRequest mirrors the query parameters of GET /v1/scores.
type ListScoresRequest struct {
	TaskType model.TaskType
	Hotkey   string
	UID      *int
	Since    time.Time
	Limit    int
}

// Weight is one miner's blended weight as served by GET /v1/weights.
type Weight struct {
	UID    int     `json:"uid"`
	Hotkey string  `json:"hotkey"`
	Weight float64 `json:"weight"`
}
