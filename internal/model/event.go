package model

import "time"

// Edge categories recorded by the chain event collector.
const (
	CategoryBalance = "balance"
	CategoryStaking = "staking"
)

// ChainEvent is an immutable record of one ledger transfer or stake action.
// EdgeHash is its content address and the sole deduplication key.
type ChainEvent struct {
	EdgeHash  string    `json:"edge_hash"`
	CreatedAt time.Time `json:"created_at"`

	ColdkeySource      string `json:"coldkey_source"`
	ColdkeyDestination string `json:"coldkey_destination"`
	EdgeCategory       string `json:"edge_category"`
	EdgeType           string `json:"edge_type"`
	ColdkeyOwner       string `json:"coldkey_owner,omitempty"`

	BlockNumber int64 `json:"block_number"`
	RaoAmount   int64 `json:"rao_amount"`

	// Staking evidence; nil for non-staking events.
	DestinationNetUID         *int64 `json:"destination_net_uid,omitempty"`
	SourceNetUID              *int64 `json:"source_net_uid,omitempty"`
	AlphaAmount               *int64 `json:"alpha_amount,omitempty"`
	DelegateHotkeySource      string `json:"delegate_hotkey_source,omitempty"`
	DelegateHotkeyDestination string `json:"delegate_hotkey_destination,omitempty"`
}

// IsStaking reports whether the event carries staking evidence in its identity.
func (e *ChainEvent) IsStaking() bool {
	return e.EdgeCategory == CategoryStaking
}

// WithHash returns a copy of e with EdgeHash computed from its identity fields.
func (e ChainEvent) WithHash() ChainEvent {
	e.EdgeHash = EdgeHash(&e)
	return e
}
