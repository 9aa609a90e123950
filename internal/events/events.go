// Package events publishes validator telemetry on the NATS bus.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// Event topic constants
const (
	TopicScoreRecorded  = "patrol.score.recorded"
	TopicBatchCompleted = "patrol.batch.completed"

	// TopicAll matches every patrol topic.
	TopicAll = "patrol.>"
)

// ScoreRecorded is published after a miner score is persisted.
type ScoreRecorded struct {
	Score *model.MinerScore `json:"score"`
}

// BatchCompleted is published when every audit of a batch has finished.
type BatchCompleted struct {
	BatchID    uuid.UUID      `json:"batch_id"`
	TaskType   model.TaskType `json:"task_type"`
	MaxBlock   int64          `json:"max_block_number"`
	Audited    int            `json:"audited"`
	Failed     int            `json:"failed"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber delivers raw event payloads. Calling the returned cancel
// function unsubscribes and closes the channel.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
