package model

// Node is a wallet identity in a miner's claimed subgraph.
type Node struct {
	ID     string `json:"id"`
	Type   string `json:"type,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// Evidence backs an edge. Ownership edges carry only EffectiveBlockNumber;
// coldkey search edges carry the transfer or stake fields.
type Evidence struct {
	EffectiveBlockNumber int64 `json:"effective_block_number,omitempty"`

	BlockNumber               int64  `json:"block_number,omitempty"`
	RaoAmount                 int64  `json:"rao_amount,omitempty"`
	DestinationNetUID         *int64 `json:"destination_net_uid,omitempty"`
	SourceNetUID              *int64 `json:"source_net_uid,omitempty"`
	AlphaAmount               *int64 `json:"alpha_amount,omitempty"`
	DelegateHotkeySource      string `json:"delegate_hotkey_source,omitempty"`
	DelegateHotkeyDestination string `json:"delegate_hotkey_destination,omitempty"`
}

// Edge is a claimed ownership transfer between two nodes.
type Edge struct {
	ColdkeySource      string    `json:"coldkey_source"`
	ColdkeyDestination string    `json:"coldkey_destination"`
	Category           string    `json:"category"`
	Type               string    `json:"type"`
	ColdkeyOwner       string    `json:"coldkey_owner,omitempty"`
	Evidence           *Evidence `json:"evidence"`
}

// EffectiveBlock returns the block at which the edge took effect, or 0 when
// the edge carries no evidence.
func (e *Edge) EffectiveBlock() int64 {
	if e.Evidence == nil {
		return 0
	}
	return e.Evidence.EffectiveBlockNumber
}

// ChainEvent converts a coldkey search edge into the event it claims happened.
func (e *Edge) ChainEvent() ChainEvent {
	ev := ChainEvent{
		ColdkeySource:      e.ColdkeySource,
		ColdkeyDestination: e.ColdkeyDestination,
		EdgeCategory:       e.Category,
		EdgeType:           e.Type,
		ColdkeyOwner:       e.ColdkeyOwner,
	}
	if e.Evidence != nil {
		ev.BlockNumber = e.Evidence.BlockNumber
		ev.RaoAmount = e.Evidence.RaoAmount
		if e.Category == CategoryStaking {
			ev.DestinationNetUID = e.Evidence.DestinationNetUID
			ev.SourceNetUID = e.Evidence.SourceNetUID
			ev.AlphaAmount = e.Evidence.AlphaAmount
			ev.DelegateHotkeySource = e.Evidence.DelegateHotkeySource
			ev.DelegateHotkeyDestination = e.Evidence.DelegateHotkeyDestination
		}
	}
	return ev.WithHash()
}

// Subgraph is the node and edge set a miner returns for a task.
type Subgraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Volume is the number of items the miner submitted.
func (g *Subgraph) Volume() int {
	if g == nil {
		return 0
	}
	return len(g.Nodes) + len(g.Edges)
}
