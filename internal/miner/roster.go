package miner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alfredjeanlab/patrol/internal/model"
)

// ParseRoster decodes a JSON array of miners.
func ParseRoster(data []byte) ([]model.Miner, error) {
	var miners []model.Miner
	if err := json.Unmarshal(data, &miners); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	seen := make(map[int]struct{}, len(miners))
	for _, m := range miners {
		if _, dup := seen[m.UID]; dup {
			return nil, fmt.Errorf("decode roster: duplicate uid %d", m.UID)
		}
		seen[m.UID] = struct{}{}
	}
	return miners, nil
}

// StaticRoster is a fixed list of miners.
type StaticRoster []model.Miner

// Miners returns the list.
func (r StaticRoster) Miners(context.Context) ([]model.Miner, error) {
	return r, nil
}

// FileRoster rereads a JSON roster file on every call so edits take effect
// at the next batch.
type FileRoster struct {
	Path string
}

// Miners reads and decodes the file.
func (r FileRoster) Miners(context.Context) ([]model.Miner, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}

// Keys returns the score history key of every miner.
func Keys(miners []model.Miner) []model.MinerKey {
	keys := make([]model.MinerKey, len(miners))
	for i, m := range miners {
		keys[i] = m.Key()
	}
	return keys
}
