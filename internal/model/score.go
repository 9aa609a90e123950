package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskType identifies the kind of audit a score was produced by.
type TaskType string

const (
	TaskHotkeyOwnership  TaskType = "HOTKEY_OWNERSHIP"
	TaskColdkeySearch    TaskType = "COLDKEY_SEARCH"
	TaskPredictAlphaSell TaskType = "PREDICT_ALPHA_SELL"
)

// String returns the string representation of the task type.
func (t TaskType) String() string {
	return string(t)
}

// IsValid checks whether the task type is a known value.
func (t TaskType) IsValid() bool {
	switch t {
	case TaskHotkeyOwnership, TaskColdkeySearch, TaskPredictAlphaSell:
		return true
	}
	return false
}

// MinerKey identifies a miner's score history.
type MinerKey struct {
	Hotkey string `json:"hotkey"`
	UID    int    `json:"uid"`
}

// MinerScore is the outcome of one audit. Scores are append-only.
type MinerScore struct {
	ID                        uuid.UUID `json:"id"`
	BatchID                   uuid.UUID `json:"batch_id"`
	CreatedAt                 time.Time `json:"created_at"`
	UID                       int       `json:"uid"`
	Hotkey                    string    `json:"hotkey"`
	Coldkey                   string    `json:"coldkey"`
	OverallScore              float64   `json:"overall_score"`
	OverallScoreMovingAverage float64   `json:"overall_score_moving_average"`
	ResponsivenessScore       float64   `json:"responsiveness_score"`
	ResponseTimeSeconds       float64   `json:"response_time_seconds"`
	Volume                    int       `json:"volume"`
	VolumeScore               float64   `json:"volume_score"`
	NoveltyScore              float64   `json:"novelty_score"`
	ValidationPassed          bool      `json:"validation_passed"`
	ErrorMessage              string    `json:"error_message,omitempty"`
	TaskType                  TaskType  `json:"task_type"`
}

// Miner returns the key the score's history is stored under.
func (s *MinerScore) Miner() MinerKey {
	return MinerKey{Hotkey: s.Hotkey, UID: s.UID}
}

// ValidationResult is the outcome of validating a coldkey search response.
type ValidationResult struct {
	Passed  bool
	Message string
	Volume  int
}

// Miner is a registered miner and the endpoint it serves tasks on.
type Miner struct {
	UID     int    `json:"uid"`
	Hotkey  string `json:"hotkey"`
	Coldkey string `json:"coldkey"`
	IP      string `json:"ip"`
	Port    int    `json:"port"`
}

// Key returns the miner's score history key.
func (m Miner) Key() MinerKey {
	return MinerKey{Hotkey: m.Hotkey, UID: m.UID}
}

// IsServing reports whether the miner advertises a reachable endpoint.
func (m Miner) IsServing() bool {
	return m.IP != "" && m.IP != "0.0.0.0" && m.Port > 0
}
