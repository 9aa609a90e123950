package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/store"
)

var scoreRowColumns = []string{
	"id", "batch_id", "created_at", "uid", "hotkey", "coldkey",
	"overall_score", "overall_score_moving_average", "responsiveness_score",
	"response_time_seconds", "volume", "volume_score", "novelty_score",
	"validation_passed", "error_message", "task_type",
}

func TestAddScore(t *testing.T) {
	s, mock := newMockStore(t)
	score := &model.MinerScore{
		ID:                        uuid.New(),
		BatchID:                   uuid.New(),
		UID:                       7,
		Hotkey:                    "hk",
		Coldkey:                   "ck",
		OverallScore:              0.75,
		OverallScoreMovingAverage: 0.5,
		ResponsivenessScore:       0.5,
		ResponseTimeSeconds:       2,
		ValidationPassed:          true,
		TaskType:                  model.TaskHotkeyOwnership,
	}

	mock.ExpectExec("INSERT INTO miner_score .+ ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs(score.ID, score.BatchID, testNow, 7, "hk", "ck",
			0.75, 0.5, 0.5, 2.0, 0, 0.0, 0.0, true, nil, "HOTKEY_OWNERSHIP").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Add(context.Background(), score); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !score.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", score.CreatedAt, testNow)
	}
}

func TestFindLatestOverallScores(t *testing.T) {
	s, mock := newMockStore(t)
	key := model.MinerKey{Hotkey: "hk", UID: 3}

	mock.ExpectQuery("SELECT overall_score FROM miner_score").
		WithArgs("hk", 3, "COLDKEY_SEARCH", 19).
		WillReturnRows(sqlmock.NewRows([]string{"overall_score"}).AddRow(0.9).AddRow(0.1))

	got, err := s.FindLatestOverallScores(context.Background(), key, model.TaskColdkeySearch, 19)
	if err != nil {
		t.Fatalf("FindLatestOverallScores: %v", err)
	}
	if len(got) != 2 || got[0] != 0.9 || got[1] != 0.1 {
		t.Errorf("scores = %v, want [0.9 0.1]", got)
	}

	if got, err := s.FindLatestOverallScores(context.Background(), key, model.TaskColdkeySearch, 0); err != nil || got != nil {
		t.Errorf("limit 0 = %v, %v; want nil, nil", got, err)
	}
}

func TestFindLastMovingAverages(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT DISTINCT ON \\(hotkey, uid\\)").
		WithArgs("HOTKEY_OWNERSHIP").
		WillReturnRows(sqlmock.NewRows([]string{"hotkey", "uid", "overall_score_moving_average"}).
			AddRow("a", 1, 0.25).
			AddRow("b", 2, 0.75))

	got, err := s.FindLastMovingAverages(context.Background(), model.TaskHotkeyOwnership)
	if err != nil {
		t.Fatalf("FindLastMovingAverages: %v", err)
	}
	want := map[model.MinerKey]float64{{Hotkey: "a", UID: 1}: 0.25, {Hotkey: "b", UID: 2}: 0.75}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("avg[%v] = %v, want %v", k, got[k], v)
		}
	}
}

func TestListScores_Filter(t *testing.T) {
	s, mock := newMockStore(t)
	id, batch := uuid.New(), uuid.New()
	uid := 4
	since := testNow.Add(-time.Hour)

	mock.ExpectQuery("SELECT .+ FROM miner_score WHERE task_type = \\$1 AND hotkey = \\$2 AND uid = \\$3 AND created_at >= \\$4 ORDER BY created_at DESC LIMIT \\$5").
		WithArgs("COLDKEY_SEARCH", "hk", 4, since, 10).
		WillReturnRows(sqlmock.NewRows(scoreRowColumns).
			AddRow(id.String(), batch.String(), testNow, 4, "hk", "ck", 0.0, 0.1, 0.0, 0.0, 12, 0.0, 0.0, false, "Only single node provided.", "COLDKEY_SEARCH"))

	scores, err := s.ListScores(context.Background(), store.ScoreFilter{
		TaskType: model.TaskColdkeySearch,
		Hotkey:   "hk",
		UID:      &uid,
		Since:    since,
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("ListScores: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("got %d scores, want 1", len(scores))
	}
	got := scores[0]
	if got.ID != id || got.BatchID != batch || got.Volume != 12 || got.ValidationPassed {
		t.Errorf("score = %+v", got)
	}
	if got.ErrorMessage != "Only single node provided." || got.TaskType != model.TaskColdkeySearch {
		t.Errorf("score message/type = %q/%q", got.ErrorMessage, got.TaskType)
	}
}

func TestListScores_NoFilter(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT .+ FROM miner_score ORDER BY created_at DESC$").
		WillReturnRows(sqlmock.NewRows(scoreRowColumns))

	scores, err := s.ListScores(context.Background(), store.ScoreFilter{})
	if err != nil || len(scores) != 0 {
		t.Errorf("ListScores = %v, %v", scores, err)
	}
}

func TestScoresSince(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT .+ FROM miner_score WHERE created_at >= \\$1 ORDER BY created_at, id").
		WithArgs(testNow).
		WillReturnRows(sqlmock.NewRows(scoreRowColumns).
			AddRow(uuid.NewString(), uuid.NewString(), testNow, 1, "hk", "", 1.0, 1.0, 1.0, 0.0, 0, 0.0, 0.0, true, nil, "HOTKEY_OWNERSHIP"))

	scores, err := s.ScoresSince(context.Background(), testNow)
	if err != nil {
		t.Fatalf("ScoresSince: %v", err)
	}
	if len(scores) != 1 || scores[0].ErrorMessage != "" || !scores[0].ValidationPassed {
		t.Errorf("ScoresSince = %+v", scores)
	}
}
