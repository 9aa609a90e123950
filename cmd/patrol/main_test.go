package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/patrol/internal/config"
	"github.com/alfredjeanlab/patrol/internal/events"
	"github.com/alfredjeanlab/patrol/internal/miner"
	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/ui"
)

func init() {
	ui.ForceNoColor()
}

func TestLoadRoster(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		cfg := &config.Config{MinersJSON: `[{"uid":1,"hotkey":"a"},{"uid":2,"hotkey":"b"}]`}
		r, err := loadRoster(cfg)
		if err != nil {
			t.Fatalf("loadRoster: %v", err)
		}
		miners, err := r.Miners(context.Background())
		if err != nil {
			t.Fatalf("Miners: %v", err)
		}
		if len(miners) != 2 {
			t.Errorf("got %d miners, want 2", len(miners))
		}
	})
	t.Run("inline invalid", func(t *testing.T) {
		_, err := loadRoster(&config.Config{MinersJSON: `[{"uid":1},{"uid":1}]`})
		if err == nil || !strings.Contains(err.Error(), "PATROL_MINERS_JSON") {
			t.Errorf("err = %v, want PATROL_MINERS_JSON error", err)
		}
	})
	t.Run("file", func(t *testing.T) {
		r, err := loadRoster(&config.Config{MinersFile: "/etc/patrol/miners.json"})
		if err != nil {
			t.Fatalf("loadRoster: %v", err)
		}
		if fr, ok := r.(miner.FileRoster); !ok || fr.Path != "/etc/patrol/miners.json" {
			t.Errorf("roster = %#v, want FileRoster", r)
		}
	})
	t.Run("missing", func(t *testing.T) {
		if _, err := loadRoster(&config.Config{}); err == nil {
			t.Error("expected error without a roster")
		}
	})
}

func newScoresFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "scores"}
	cmd.Flags().String("task", "", "")
	cmd.Flags().String("hotkey", "", "")
	cmd.Flags().String("uid", "", "")
	cmd.Flags().Duration("since", 0, "")
	cmd.Flags().Int("limit", 50, "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestScoreFilterFromFlags(t *testing.T) {
	cmd := newScoresFlags(t, "--task", "COLDKEY_SEARCH", "--hotkey", "hk", "--uid", "7", "--since", "1h", "--limit", "5")
	before := time.Now().UTC().Add(-time.Hour)
	f, err := scoreFilterFromFlags(cmd)
	if err != nil {
		t.Fatalf("scoreFilterFromFlags: %v", err)
	}
	if f.TaskType != model.TaskColdkeySearch || f.Hotkey != "hk" || f.Limit != 5 {
		t.Errorf("filter = %+v", f)
	}
	if f.UID == nil || *f.UID != 7 {
		t.Errorf("UID = %v, want 7", f.UID)
	}
	if f.Since.Before(before.Add(-time.Second)) || f.Since.After(time.Now().UTC()) {
		t.Errorf("Since = %v, want about an hour ago", f.Since)
	}
}

func TestScoreFilterFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"task", []string{"--task", "bogus"}},
		{"uid", []string{"--uid", "seven"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := scoreFilterFromFlags(newScoresFlags(t, tc.args...)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDescribeEvent(t *testing.T) {
	batch, _ := json.Marshal(events.BatchCompleted{
		TaskType:   model.TaskHotkeyOwnership,
		MaxBlock:   190,
		Audited:    4,
		Failed:     1,
		FinishedAt: time.Now(),
	})
	score, _ := json.Marshal(events.ScoreRecorded{Score: &model.MinerScore{
		UID:              3,
		TaskType:         model.TaskColdkeySearch,
		OverallScore:     0.75,
		ValidationPassed: true,
		CreatedAt:        time.Now(),
	}})

	tests := []struct {
		name string
		data []byte
		want []string
	}{
		{"batch", batch, []string{"batch", "HOTKEY_OWNERSHIP", "audited=4", "failed=1", "max_block=190"}},
		{"score", score, []string{"score", "COLDKEY_SEARCH", "uid=3", "0.7500"}},
		{"unknown", []byte(`{"other":true}`), []string{`{"other":true}`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := describeEvent(tc.data)
			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Errorf("describeEvent = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
	}
	for _, tc := range tests {
		if got := formatAge(time.Now().Add(-tc.ago)); got != tc.want {
			t.Errorf("formatAge(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
	old := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	if got := formatAge(old); got != "2025-03-04" {
		t.Errorf("formatAge(old) = %q", got)
	}
}
