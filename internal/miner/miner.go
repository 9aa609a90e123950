// Package miner dispatches audit tasks to miners over HTTP.
package miner

import (
	"github.com/alfredjeanlab/patrol/internal/model"
)

// Task names double as the request path on the miner's endpoint.
const (
	HotkeyOwnershipTaskName = "HotkeyOwnershipSynapse"
	ColdkeySearchTaskName   = "PatrolSynapse"
)

// HotkeyOwnershipTask asks a miner for the ownership history of a hotkey up
// to MaxBlockNumber. The miner answers with the same document with
// SubgraphOutput filled in.
type HotkeyOwnershipTask struct {
	BatchID        string          `json:"batch_id"`
	TaskID         string          `json:"task_id"`
	TargetHotkey   string          `json:"target_hotkey_ss58"`
	MaxBlockNumber int64           `json:"max_block_number"`
	SubgraphOutput *model.Subgraph `json:"subgraph_output,omitempty"`
}

// ColdkeySearchTask asks a miner for the transfer and stake graph around a
// coldkey.
type ColdkeySearchTask struct {
	BatchID        string          `json:"batch_id"`
	TaskID         string          `json:"task_id"`
	Target         string          `json:"target"`
	MaxBlockNumber int64           `json:"max_block_number"`
	SubgraphOutput *model.Subgraph `json:"subgraph_output,omitempty"`
}
