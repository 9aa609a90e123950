// Package export periodically writes miner scores as JSONL to object storage.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// ScoreSource lists scores created at or after a point in time, oldest first.
type ScoreSource interface {
	ScoresSince(ctx context.Context, since time.Time) ([]*model.MinerScore, error)
}

// header is the first JSONL record written by WriteJSONL.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Since      time.Time `json:"since"`
	ScoreCount int       `json:"score_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WriteJSONL writes a header followed by one record per score to w.
func WriteJSONL(w io.Writer, since, now time.Time, scores []*model.MinerScore) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    "1",
		Type:       "header",
		Timestamp:  now,
		Since:      since,
		ScoreCount: len(scores),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, s := range scores {
		if err := enc.Encode(record{Type: "score", Data: s}); err != nil {
			return fmt.Errorf("encode score %s: %w", s.ID, err)
		}
	}
	return nil
}

// ObjectName names the export written at now.
func ObjectName(now time.Time) string {
	return "scores-" + now.UTC().Format("20060102T150405Z") + ".jsonl"
}
