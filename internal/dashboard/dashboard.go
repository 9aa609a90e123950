// Package dashboard reports miner scores to external observers.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/patrol/internal/events"
	"github.com/alfredjeanlab/patrol/internal/model"
)

// Client sends a finished score somewhere.
type Client interface {
	SendScore(ctx context.Context, score *model.MinerScore) error
}

// Score is the dashboard's view of a miner score.
type Score struct {
	BatchID                   uuid.UUID      `json:"batch_id"`
	CreatedAt                 time.Time      `json:"created_at"`
	UID                       int            `json:"uid"`
	Hotkey                    string         `json:"hotkey"`
	Coldkey                   string         `json:"coldkey"`
	Volume                    int            `json:"volume"`
	VolumeScore               float64        `json:"volume_score"`
	ResponseTimeSeconds       float64        `json:"response_time_seconds"`
	ResponseTimeScore         float64        `json:"response_time_score"`
	OverallScore              float64        `json:"overall_score"`
	OverallMovingAverageScore float64        `json:"overall_moving_average_score"`
	IsValid                   bool           `json:"is_valid"`
	TaskType                  model.TaskType `json:"task_type"`
	ErrorMessage              *string        `json:"error_message"`
}

// FromMinerScore converts s for the dashboard.
func FromMinerScore(s *model.MinerScore) Score {
	out := Score{
		BatchID:                   s.BatchID,
		CreatedAt:                 s.CreatedAt,
		UID:                       s.UID,
		Hotkey:                    s.Hotkey,
		Coldkey:                   s.Coldkey,
		Volume:                    s.Volume,
		VolumeScore:               s.VolumeScore,
		ResponseTimeSeconds:       s.ResponseTimeSeconds,
		ResponseTimeScore:         s.ResponsivenessScore,
		OverallScore:              s.OverallScore,
		OverallMovingAverageScore: s.OverallScoreMovingAverage,
		IsValid:                   s.ValidationPassed,
		TaskType:                  s.TaskType,
	}
	if s.ErrorMessage != "" {
		msg := s.ErrorMessage
		out.ErrorMessage = &msg
	}
	return out
}

// HTTPClient PUTs scores to the dashboard API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the dashboard at baseURL.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendScore stores the score under its id; repeated sends overwrite.
func (c *HTTPClient) SendScore(ctx context.Context, score *model.MinerScore) error {
	data, err := json.Marshal(FromMinerScore(score))
	if err != nil {
		return fmt.Errorf("marshaling score: %w", err)
	}

	url := c.baseURL + "/patrol/dashboard/api/miner-scores/" + score.ID.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending score: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("sending score: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// PublisherClient announces scores on the event bus.
type PublisherClient struct {
	publisher events.Publisher
}

// NewPublisherClient creates a client publishing through p.
func NewPublisherClient(p events.Publisher) *PublisherClient {
	return &PublisherClient{publisher: p}
}

// SendScore publishes the score on events.TopicScoreRecorded.
func (c *PublisherClient) SendScore(ctx context.Context, score *model.MinerScore) error {
	return c.publisher.Publish(ctx, events.TopicScoreRecorded, events.ScoreRecorded{Score: score})
}

// Multi sends every score to each client in turn.
type Multi []Client

// SendScore tries every client and joins their errors.
func (m Multi) SendScore(ctx context.Context, score *model.MinerScore) error {
	var errs []error
	for _, c := range m {
		if err := c.SendScore(ctx, score); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
