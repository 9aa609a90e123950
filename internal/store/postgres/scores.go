package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/store"
)

// scoreColumns is the column list used for INSERT and SELECT statements on
// the miner_score table.
const scoreColumns = `id, batch_id, created_at, uid, hotkey, coldkey,
	overall_score, overall_score_moving_average, responsiveness_score,
	response_time_seconds, volume, volume_score, novelty_score,
	validation_passed, error_message, task_type`

// Add appends a score. Re-adding a score with the same id is a no-op.
func (s *PostgresStore) Add(ctx context.Context, score *model.MinerScore) error {
	if score.CreatedAt.IsZero() {
		score.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO miner_score (`+scoreColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16
		) ON CONFLICT (id) DO NOTHING`,
		score.ID,
		score.BatchID,
		score.CreatedAt,
		score.UID,
		score.Hotkey,
		score.Coldkey,
		score.OverallScore,
		score.OverallScoreMovingAverage,
		score.ResponsivenessScore,
		score.ResponseTimeSeconds,
		score.Volume,
		score.VolumeScore,
		score.NoveltyScore,
		score.ValidationPassed,
		nullString(score.ErrorMessage),
		string(score.TaskType),
	)
	if err != nil {
		return fmt.Errorf("add score: %w", err)
	}
	return nil
}

// FindLatestOverallScores returns the overall scores of the miner's most
// recent audits of the given task type, newest first.
func (s *PostgresStore) FindLatestOverallScores(ctx context.Context, key model.MinerKey, taskType model.TaskType, limit int) ([]float64, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT overall_score FROM miner_score
		WHERE hotkey = $1 AND uid = $2 AND task_type = $3
		ORDER BY created_at DESC
		LIMIT $4`, key.Hotkey, key.UID, string(taskType), limit)
	if err != nil {
		return nil, fmt.Errorf("find latest scores: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan score: %w", err)
	}
	return scores, nil
}

// FindLastMovingAverages returns each miner's most recent moving average for
// the task type.
func (s *PostgresStore) FindLastMovingAverages(ctx context.Context, taskType model.TaskType) (map[model.MinerKey]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (hotkey, uid) hotkey, uid, overall_score_moving_average
		FROM miner_score
		WHERE task_type = $1
		ORDER BY hotkey, uid, created_at DESC`, string(taskType))
	if err != nil {
		return nil, fmt.Errorf("find moving averages: %w", err)
	}
	defer rows.Close()

	out := make(map[model.MinerKey]float64)
	for rows.Next() {
		var (
			key model.MinerKey
			avg float64
		)
		if err := rows.Scan(&key.Hotkey, &key.UID, &avg); err != nil {
			return nil, fmt.Errorf("scan moving average: %w", err)
		}
		out[key] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan moving average: %w", err)
	}
	return out, nil
}

// ListScores returns scores matching the filter, newest first.
func (s *PostgresStore) ListScores(ctx context.Context, filter store.ScoreFilter) ([]*model.MinerScore, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.TaskType != "" {
		whereClauses = append(whereClauses, "task_type = "+nextArg())
		args = append(args, string(filter.TaskType))
	}
	if filter.Hotkey != "" {
		whereClauses = append(whereClauses, "hotkey = "+nextArg())
		args = append(args, filter.Hotkey)
	}
	if filter.UID != nil {
		whereClauses = append(whereClauses, "uid = "+nextArg())
		args = append(args, *filter.UID)
	}
	if !filter.Since.IsZero() {
		whereClauses = append(whereClauses, "created_at >= "+nextArg())
		args = append(args, filter.Since)
	}

	query := "SELECT " + scoreColumns + " FROM miner_score"
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	scores, err := scanMinerScores(rows)
	if err != nil {
		return nil, fmt.Errorf("scan scores: %w", err)
	}
	return scores, nil
}

// ScoresSince returns every score created at or after since, oldest first.
func (s *PostgresStore) ScoresSince(ctx context.Context, since time.Time) ([]*model.MinerScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM miner_score WHERE created_at >= $1 ORDER BY created_at, id`, since)
	if err != nil {
		return nil, fmt.Errorf("scores since: %w", err)
	}
	defer rows.Close()

	scores, err := scanMinerScores(rows)
	if err != nil {
		return nil, fmt.Errorf("scan scores: %w", err)
	}
	return scores, nil
}
