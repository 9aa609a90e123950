package miner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alfredjeanlab/patrol/internal/model"
)

func TestParseRoster(t *testing.T) {
	miners, err := ParseRoster([]byte(`[
		{"uid": 1, "hotkey": "hk1", "coldkey": "ck1", "ip": "10.0.0.1", "port": 8091},
		{"uid": 2, "hotkey": "hk2", "ip": "0.0.0.0", "port": 0}
	]`))
	if err != nil {
		t.Fatalf("ParseRoster: %v", err)
	}
	if len(miners) != 2 || miners[0].Hotkey != "hk1" || !miners[0].IsServing() || miners[1].IsServing() {
		t.Errorf("miners = %+v", miners)
	}

	for _, bad := range []string{`{"uid": 1}`, `[{"uid": 1}, {"uid": 1}]`} {
		if _, err := ParseRoster([]byte(bad)); err == nil {
			t.Errorf("ParseRoster(%s): expected error", bad)
		}
	}
}

func TestFileRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miners.json")
	if err := os.WriteFile(path, []byte(`[{"uid": 5, "hotkey": "hk5"}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	r := FileRoster{Path: path}

	miners, err := r.Miners(context.Background())
	if err != nil {
		t.Fatalf("Miners: %v", err)
	}
	if len(miners) != 1 || miners[0].UID != 5 {
		t.Errorf("miners = %+v", miners)
	}

	// Edits are picked up on the next call.
	if err := os.WriteFile(path, []byte(`[]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if miners, _ := r.Miners(context.Background()); len(miners) != 0 {
		t.Errorf("miners after edit = %+v", miners)
	}

	if _, err := (FileRoster{Path: filepath.Join(t.TempDir(), "missing.json")}).Miners(context.Background()); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys([]model.Miner{{UID: 1, Hotkey: "a"}, {UID: 2, Hotkey: "b"}})
	if len(keys) != 2 || keys[1] != (model.MinerKey{Hotkey: "b", UID: 2}) {
		t.Errorf("keys = %v", keys)
	}
}
