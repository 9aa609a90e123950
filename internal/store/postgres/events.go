package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/store"
)

// eventColumns is the column list used for INSERT and SELECT statements on
// the event_store table.
const eventColumns = `edge_hash, created_at, coldkey_source, coldkey_destination,
	edge_category, edge_type, coldkey_owner, block_number, rao_amount,
	destination_net_uid, source_net_uid, alpha_amount,
	delegate_hotkey_source, delegate_hotkey_destination`

const eventColumnCount = 14

// maxRowsPerInsert keeps a multi-row INSERT under the 65535 parameter limit.
const maxRowsPerInsert = 1000

// AddEvents stores events in one transaction and, if that fails for any
// reason, retries each event in its own transaction so that one bad or
// duplicate row cannot sink the rest.
func (s *PostgresStore) AddEvents(ctx context.Context, events []model.ChainEvent) (store.BulkResult, error) {
	var result store.BulkResult
	if len(events) == 0 {
		return result, nil
	}

	prepared := s.prepareEvents(events)

	err := s.runInTransaction(ctx, func(tx executor) error {
		for start := 0; start < len(prepared); start += maxRowsPerInsert {
			end := min(start+maxRowsPerInsert, len(prepared))
			if err := queryInsertEvents(ctx, tx, prepared[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		result.Inserted = len(prepared)
		return result, nil
	}

	if isUniqueViolation(err) {
		s.logger.Debug("bulk insert hit existing events, retrying individually", "count", len(prepared))
	} else {
		s.logger.Warn("bulk insert failed, retrying individually", "count", len(prepared), "err", err)
	}

	for i := range prepared {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("add events: %w", err)
		}
		e := &prepared[i]
		outcome, err := s.insertOne(ctx, e)
		switch outcome {
		case store.Duplicate:
			s.logger.Debug("duplicate event", "edge_hash", e.EdgeHash)
		case store.Failed:
			s.logger.Error("insert event", "edge_hash", e.EdgeHash, "block_number", e.BlockNumber, "err", err)
		}
		result.Record(e.EdgeHash, outcome, err)
	}
	return result, nil
}

// prepareEvents copies events with their hash and creation time assigned.
func (s *PostgresStore) prepareEvents(events []model.ChainEvent) []model.ChainEvent {
	now := s.now()
	out := make([]model.ChainEvent, len(events))
	for i, e := range events {
		e = e.WithHash()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		out[i] = e
	}
	return out
}

func (s *PostgresStore) insertOne(ctx context.Context, e *model.ChainEvent) (store.InsertOutcome, error) {
	err := s.runInTransaction(ctx, func(tx executor) error {
		return queryInsertEvents(ctx, tx, []model.ChainEvent{*e})
	})
	switch {
	case err == nil:
		return store.Inserted, nil
	case isUniqueViolation(err):
		return store.Duplicate, nil
	default:
		return store.Failed, err
	}
}

func queryInsertEvents(ctx context.Context, db executor, events []model.ChainEvent) error {
	var (
		b    strings.Builder
		args = make([]any, 0, len(events)*eventColumnCount)
	)
	b.WriteString("INSERT INTO event_store (" + eventColumns + ") VALUES ")
	for i, e := range events {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < eventColumnCount; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*eventColumnCount+c+1)
		}
		b.WriteByte(')')
		args = append(args,
			e.EdgeHash,
			e.CreatedAt,
			e.ColdkeySource,
			e.ColdkeyDestination,
			e.EdgeCategory,
			e.EdgeType,
			nullString(e.ColdkeyOwner),
			e.BlockNumber,
			e.RaoAmount,
			nullInt64Ptr(e.DestinationNetUID),
			nullInt64Ptr(e.SourceNetUID),
			nullInt64Ptr(e.AlphaAmount),
			nullString(e.DelegateHotkeySource),
			nullString(e.DelegateHotkeyDestination),
		)
	}
	if _, err := db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}
	return nil
}

// FindByColdkey returns every event where coldkey is the source or destination.
func (s *PostgresStore) FindByColdkey(ctx context.Context, coldkey string) ([]model.ChainEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM event_store
		WHERE coldkey_source = $1 OR coldkey_destination = $1
		ORDER BY block_number, edge_hash`, coldkey)
	if err != nil {
		return nil, fmt.Errorf("find events by coldkey: %w", err)
	}
	defer rows.Close()

	events, err := scanChainEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}

// HighestBlockNumber returns the largest stored block number. ok is false
// when the store is empty.
func (s *PostgresStore) HighestBlockNumber(ctx context.Context) (int64, bool, error) {
	var block sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(block_number) FROM event_store`).Scan(&block); err != nil {
		return 0, false, fmt.Errorf("highest block number: %w", err)
	}
	if !block.Valid {
		return 0, false, nil
	}
	return block.Int64, true, nil
}

// ExistingHashes returns the subset of hashes already stored.
func (s *PostgresStore) ExistingHashes(ctx context.Context, hashes []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(hashes) == 0 {
		return found, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT edge_hash FROM event_store WHERE edge_hash = ANY($1)`, pq.Array(hashes))
	if err != nil {
		return nil, fmt.Errorf("existing hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan edge hash: %w", err)
		}
		found[h] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan edge hash: %w", err)
	}
	return found, nil
}

// SampleHotkeys returns up to n random distinct delegate hotkeys seen in
// staking events.
func (s *PostgresStore) SampleHotkeys(ctx context.Context, n int) ([]string, error) {
	return s.sampleKeys(ctx, `
		SELECT k FROM (
			SELECT delegate_hotkey_source AS k FROM event_store WHERE delegate_hotkey_source IS NOT NULL
			UNION
			SELECT delegate_hotkey_destination FROM event_store WHERE delegate_hotkey_destination IS NOT NULL
		) keys ORDER BY random() LIMIT $1`, n)
}

// SampleColdkeys returns up to n random distinct coldkeys seen in any event.
func (s *PostgresStore) SampleColdkeys(ctx context.Context, n int) ([]string, error) {
	return s.sampleKeys(ctx, `
		SELECT k FROM (
			SELECT coldkey_source AS k FROM event_store
			UNION
			SELECT coldkey_destination FROM event_store
		) keys ORDER BY random() LIMIT $1`, n)
}

func (s *PostgresStore) sampleKeys(ctx context.Context, query string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("sample keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan key: %w", err)
	}
	return keys, nil
}
