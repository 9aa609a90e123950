package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// scannable is satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanChainEvent scans a single row into a model.ChainEvent.
func scanChainEvent(row scannable) (model.ChainEvent, error) {
	var (
		e              model.ChainEvent
		owner          sql.NullString
		destNetUID     sql.NullInt64
		srcNetUID      sql.NullInt64
		alpha          sql.NullInt64
		delegateSource sql.NullString
		delegateDest   sql.NullString
	)

	err := row.Scan(
		&e.EdgeHash,
		&e.CreatedAt,
		&e.ColdkeySource,
		&e.ColdkeyDestination,
		&e.EdgeCategory,
		&e.EdgeType,
		&owner,
		&e.BlockNumber,
		&e.RaoAmount,
		&destNetUID,
		&srcNetUID,
		&alpha,
		&delegateSource,
		&delegateDest,
	)
	if err != nil {
		return e, err
	}

	e.ColdkeyOwner = owner.String
	e.DestinationNetUID = int64Ptr(destNetUID)
	e.SourceNetUID = int64Ptr(srcNetUID)
	e.AlphaAmount = int64Ptr(alpha)
	e.DelegateHotkeySource = delegateSource.String
	e.DelegateHotkeyDestination = delegateDest.String
	return e, nil
}

// scanChainEvents scans multiple rows into a slice of model.ChainEvent.
func scanChainEvents(rows *sql.Rows) ([]model.ChainEvent, error) {
	var events []model.ChainEvent
	for rows.Next() {
		e, err := scanChainEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// scanMinerScore scans a single row into a model.MinerScore.
func scanMinerScore(row scannable) (*model.MinerScore, error) {
	var (
		s        model.MinerScore
		errMsg   sql.NullString
		taskType string
	)
	err := row.Scan(
		&s.ID,
		&s.BatchID,
		&s.CreatedAt,
		&s.UID,
		&s.Hotkey,
		&s.Coldkey,
		&s.OverallScore,
		&s.OverallScoreMovingAverage,
		&s.ResponsivenessScore,
		&s.ResponseTimeSeconds,
		&s.Volume,
		&s.VolumeScore,
		&s.NoveltyScore,
		&s.ValidationPassed,
		&errMsg,
		&taskType,
	)
	if err != nil {
		return nil, err
	}
	s.ErrorMessage = errMsg.String
	s.TaskType = model.TaskType(taskType)
	return &s, nil
}

// scanMinerScores scans multiple rows into a slice of model.MinerScore pointers.
func scanMinerScores(rows *sql.Rows) ([]*model.MinerScore, error) {
	var scores []*model.MinerScore
	for rows.Next() {
		s, err := scanMinerScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullInt64Ptr converts a *int64 to sql.NullInt64.
func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
