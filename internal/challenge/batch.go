package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/patrol/internal/events"
	"github.com/alfredjeanlab/patrol/internal/model"
)

// DefaultConcurrency is how many audits of a batch run at once.
const DefaultConcurrency = 8

// DefaultBlockLag keeps audits clear of blocks that may still be reorganized.
const DefaultBlockLag = 10

// Auditor runs one audit of a miner for a target.
type Auditor interface {
	Execute(ctx context.Context, m model.Miner, target string, batchID uuid.UUID, maxBlock int64) (Outcome, error)
}

// TargetGenerator picks audit targets.
type TargetGenerator interface {
	Targets(ctx context.Context, maxBlock int64, n int) ([]string, error)
}

// HeadReader reports the current chain head.
type HeadReader interface {
	CurrentBlock(ctx context.Context) (int64, error)
}

// Roster lists registered miners.
type Roster interface {
	Miners(ctx context.Context) ([]model.Miner, error)
}

// BatchResult summarizes one batch.
type BatchResult struct {
	BatchID  uuid.UUID
	MaxBlock int64
	Audited  int
	Failed   int
}

// Batch audits every serving miner once per run.
type Batch struct {
	task        model.TaskType
	auditor     Auditor
	targets     TargetGenerator
	head        HeadReader
	roster      Roster
	concurrency int
	blockLag    int64
	publisher   events.Publisher
	logger      *slog.Logger
	shuffle     func(n int, swap func(i, j int))
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithConcurrency bounds the audits in flight; values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBlockLag sets how far behind the head audits are pinned.
func WithBlockLag(lag int64) BatchOption {
	return func(b *Batch) { b.blockLag = lag }
}

// WithPublisher announces finished batches on the event bus.
func WithPublisher(p events.Publisher) BatchOption {
	return func(b *Batch) { b.publisher = p }
}

// NewBatch creates a batch for the task type.
func NewBatch(task model.TaskType, auditor Auditor, targets TargetGenerator, head HeadReader, roster Roster, logger *slog.Logger, opts ...BatchOption) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Batch{
		task:        task,
		auditor:     auditor,
		targets:     targets,
		head:        head,
		roster:      roster,
		concurrency: DefaultConcurrency,
		blockLag:    DefaultBlockLag,
		publisher:   events.NoopPublisher{},
		logger:      logger,
		shuffle:     rand.Shuffle,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run audits each serving miner once against its own target. Individual
// audit failures are logged and counted; they never abort the batch.
func (b *Batch) Run(ctx context.Context) (BatchResult, error) {
	res := BatchResult{BatchID: uuid.New()}
	logger := b.logger.With("batch_id", res.BatchID, "task_type", b.task)

	head, err := b.head.CurrentBlock(ctx)
	if err != nil {
		return res, fmt.Errorf("read chain head: %w", err)
	}
	res.MaxBlock = head - b.blockLag

	all, err := b.roster.Miners(ctx)
	if err != nil {
		return res, fmt.Errorf("list miners: %w", err)
	}
	var miners []model.Miner
	for _, m := range all {
		if m.IsServing() {
			miners = append(miners, m)
		}
	}
	if len(miners) == 0 {
		logger.Info("no serving miners, skipping batch")
		return res, nil
	}

	targets, err := b.targets.Targets(ctx, res.MaxBlock, len(miners))
	if err != nil {
		return res, fmt.Errorf("generate targets: %w", err)
	}
	if len(targets) == 0 {
		return res, errors.New("generate targets: no targets available")
	}

	assigned := make(map[int]string, len(miners))
	for i, m := range miners {
		assigned[m.UID] = targets[i%len(targets)]
	}
	b.shuffle(len(miners), func(i, j int) { miners[i], miners[j] = miners[j], miners[i] })

	logger.Info("batch started", "miners", len(miners), "max_block", res.MaxBlock)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(b.concurrency)
	for _, m := range miners {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return res, err
		}
		g.Go(func() error {
			_, err := b.auditor.Execute(ctx, m, assigned[m.UID], res.BatchID, res.MaxBlock)
			mu.Lock()
			defer mu.Unlock()
			res.Audited++
			if err != nil {
				res.Failed++
				logger.Error("audit failed", "uid", m.UID, "hotkey", m.Hotkey, "err", err)
			}
			// Audit errors never stop the batch.
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("batch completed", "audited", res.Audited, "failed", res.Failed)
	if err := b.publisher.Publish(ctx, events.TopicBatchCompleted, events.BatchCompleted{
		BatchID:    res.BatchID,
		TaskType:   b.task,
		MaxBlock:   res.MaxBlock,
		Audited:    res.Audited,
		Failed:     res.Failed,
		FinishedAt: time.Now().UTC(),
	}); err != nil {
		logger.Warn("failed to publish batch completion", "err", err)
	}
	return res, nil
}

// RunEvery runs batches until ctx is cancelled, waiting interval after each
// one finishes.
func (b *Batch) RunEvery(ctx context.Context, interval time.Duration) {
	for {
		if _, err := b.Run(ctx); err != nil && ctx.Err() == nil {
			b.logger.Error("batch failed", "task_type", b.task, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
