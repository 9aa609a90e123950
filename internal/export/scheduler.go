package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/patrol/internal/metrics"
)

// Destination is where exports are written.
type Destination interface {
	Write(ctx context.Context, name string, data []byte) error
}

// Scheduler exports the scores recorded since its last successful run to
// one or more destinations at a fixed interval.
type Scheduler struct {
	source       ScoreSource
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	cursor time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler whose first export covers scores created
// from since onwards.
func NewScheduler(source ScoreSource, destinations []Destination, interval time.Duration, since time.Time, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:       source,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		cursor:       since,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.exportLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.exportLogged(ctx)
		}
	}
}

func (s *Scheduler) exportLogged(ctx context.Context) {
	err := s.ExportOnce(ctx)
	metrics.ObserveExport(err)
	if err != nil {
		s.logger.Error("score export failed", "err", err)
	}
}

// ExportOnce writes one export. The cursor only advances when every
// destination accepted it, so failed windows are retried in full.
func (s *Scheduler) ExportOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	scores, err := s.source.ScoresSince(ctx, s.cursor)
	if err != nil {
		return fmt.Errorf("list scores: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteJSONL(&buf, s.cursor, now, scores); err != nil {
		return err
	}
	data := buf.Bytes()
	name := ObjectName(now)

	var errs []error
	for i, dest := range s.destinations {
		if err := dest.Write(ctx, name, data); err != nil {
			s.logger.Error("export destination write failed", "destination", fmt.Sprintf("%d", i), "err", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.cursor = now
	s.logger.Info("score export completed", "object", name, "scores", len(scores), "bytes", len(data))
	return nil
}
