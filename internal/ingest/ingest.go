// Package ingest copies chain events into the event store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/patrol/internal/metrics"
	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/store"
)

// DefaultWindow is the number of blocks requested from the source at once.
const DefaultWindow = 100

// EventSource reads balance and staking events from the chain.
type EventSource interface {
	CurrentBlock(ctx context.Context) (int64, error)
	// EventsInRange returns the events of blocks from through to, inclusive.
	EventsInRange(ctx context.Context, from, to int64) ([]model.ChainEvent, error)
}

// Sink is the part of the event store the collector writes to.
type Sink interface {
	AddEvents(ctx context.Context, events []model.ChainEvent) (store.BulkResult, error)
	HighestBlockNumber(ctx context.Context) (int64, bool, error)
}

// Collector pulls events from the chain in block windows and stores them.
type Collector struct {
	source     EventSource
	sink       Sink
	lowerBlock int64
	window     int64
	interval   time.Duration
	logger     *slog.Logger

	// scanned is the last block whose window stored without failures. It
	// lets passes skip trailing blocks that held no events.
	mu      sync.Mutex
	scanned int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCollector creates a collector that starts at lowerBlock when the store
// is empty. A window below 1 selects DefaultWindow.
func NewCollector(source EventSource, sink Sink, lowerBlock, window int64, interval time.Duration, logger *slog.Logger) *Collector {
	if window < 1 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		source:     source,
		sink:       sink,
		lowerBlock: lowerBlock,
		window:     window,
		interval:   interval,
		logger:     logger,
	}
}

// Start begins periodic collection. It runs a pass immediately, then on
// each tick.
func (c *Collector) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

// Stop cancels collection and waits for the current pass to finish.
func (c *Collector) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Collector) run(ctx context.Context) {
	c.pass(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pass(ctx)
		}
	}
}

func (c *Collector) pass(ctx context.Context) {
	if _, err := c.RunOnce(ctx); err != nil && ctx.Err() == nil {
		c.logger.Error("ingest failed", "err", err)
	}
}

// RunOnce stores every event from the block after the highest stored one,
// or after the last cleanly scanned block when that is later, up to the chain
// head, one window at a time. It returns the combined result of
// the windows that completed.
func (c *Collector) RunOnce(ctx context.Context) (store.BulkResult, error) {
	var total store.BulkResult

	head, err := c.source.CurrentBlock(ctx)
	if err != nil {
		return total, fmt.Errorf("read chain head: %w", err)
	}
	from, err := c.start(ctx)
	if err != nil {
		return total, err
	}

	clean := true
	for from <= head {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		to := min(from+c.window-1, head)

		events, err := c.source.EventsInRange(ctx, from, to)
		if err != nil {
			return total, fmt.Errorf("read events %d-%d: %w", from, to, err)
		}
		res, err := c.sink.AddEvents(ctx, events)
		if err != nil {
			return total, fmt.Errorf("store events %d-%d: %w", from, to, err)
		}
		merge(&total, res)
		metrics.ObserveIngest(res, to)
		if clean = clean && len(res.Failures) == 0; clean {
			c.markScanned(to)
		}

		for _, f := range res.Failures {
			c.logger.Error("event not stored", "edge_hash", f.EdgeHash, "err", f.Err)
		}
		c.logger.Info("events ingested",
			"from", from,
			"to", to,
			"inserted", res.Inserted,
			"duplicates", res.Duplicates,
			"failed", len(res.Failures),
		)
		from = to + 1
	}
	return total, nil
}

func (c *Collector) start(ctx context.Context) (int64, error) {
	highest, ok, err := c.sink.HighestBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("read highest stored block: %w", err)
	}
	from := c.lowerBlock
	if ok && highest+1 > from {
		from = highest + 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scanned+1 > from {
		from = c.scanned + 1
	}
	return from, nil
}

func (c *Collector) markScanned(block int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if block > c.scanned {
		c.scanned = block
	}
}

func merge(dst *store.BulkResult, src store.BulkResult) {
	dst.Inserted += src.Inserted
	dst.Duplicates += src.Duplicates
	dst.Failures = append(dst.Failures, src.Failures...)
}
