package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func int64p(v int64) *int64 { return &v }

func transfer() *ChainEvent {
	return &ChainEvent{
		ColdkeySource:      "a",
		ColdkeyDestination: "b",
		EdgeCategory:       "balance",
		EdgeType:           "transfer",
		BlockNumber:        100,
		RaoAmount:          5,
	}
}

func TestEdgeHash_MatchesReferenceEncoding(t *testing.T) {
	// Expected digests produced by json.dumps(fields, sort_keys=True, default=str).
	if got, want := EdgeHash(transfer()), "a950941d2b3b85e05cb07c57003413c76b9c05e2ccef26de7779bbef90d022c0"; got != want {
		t.Errorf("EdgeHash(transfer) = %s, want %s", got, want)
	}

	stake := transfer()
	stake.EdgeCategory = CategoryStaking
	stake.DestinationNetUID = int64p(3)
	stake.DelegateHotkeyDestination = "hk"
	if got, want := EdgeHash(stake), "35970dd9f27f64a349971fbb4bc074370d6ee9ef4d9a1d01f0f43c64a7adb274"; got != want {
		t.Errorf("EdgeHash(stake) = %s, want %s", got, want)
	}
}

func TestEdgeHash_IgnoresNonIdentityFields(t *testing.T) {
	base := EdgeHash(transfer())

	e := transfer()
	e.ColdkeyOwner = "owner"
	e.AlphaAmount = int64p(99)
	e.EdgeHash = "stale"
	if got := EdgeHash(e); got != base {
		t.Errorf("non-identity fields changed hash: %s != %s", got, base)
	}

	// Staking fields only count for staking events.
	e = transfer()
	e.DestinationNetUID = int64p(7)
	e.DelegateHotkeySource = "hk"
	if got := EdgeHash(e); got != base {
		t.Errorf("staking fields changed hash of a balance event: %s != %s", got, base)
	}
}

func TestEdgeHash_DiffersOnIdentityFields(t *testing.T) {
	base := EdgeHash(transfer())
	for _, tc := range []struct {
		name   string
		mutate func(e *ChainEvent)
	}{
		{"source", func(e *ChainEvent) { e.ColdkeySource = "x" }},
		{"destination", func(e *ChainEvent) { e.ColdkeyDestination = "x" }},
		{"category", func(e *ChainEvent) { e.EdgeCategory = "other" }},
		{"type", func(e *ChainEvent) { e.EdgeType = "other" }},
		{"block", func(e *ChainEvent) { e.BlockNumber++ }},
		{"rao", func(e *ChainEvent) { e.RaoAmount++ }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := transfer()
			tc.mutate(e)
			if EdgeHash(e) == base {
				t.Errorf("changing %s did not change the hash", tc.name)
			}
		})
	}
}

func TestEdgeHash_StakingFieldsCount(t *testing.T) {
	a := transfer()
	a.EdgeCategory = CategoryStaking
	a.SourceNetUID = int64p(1)
	b := transfer()
	b.EdgeCategory = CategoryStaking
	b.SourceNetUID = int64p(2)
	if EdgeHash(a) == EdgeHash(b) {
		t.Error("staking events with different source_net_uid share a hash")
	}
}

func TestCanonicalJSON(t *testing.T) {
	got := canonicalJSON(map[string]any{"b": int64(1), "a": "x", "c": (*int64)(nil)})
	if want := `{"a": "x", "b": 1, "c": null}`; got != want {
		t.Errorf("canonicalJSON = %s, want %s", got, want)
	}
}

func TestWriteString_ASCIIEscapes(t *testing.T) {
	var b strings.Builder
	writeString(&b, "é\x7f\U0001F600\"\n")
	if got, want := b.String(), `"\u00e9\u007f\ud83d\ude00\"\n"`; got != want {
		t.Errorf("writeString = %s, want %s", got, want)
	}
}

func TestWithHash(t *testing.T) {
	e := transfer().WithHash()
	if e.EdgeHash != EdgeHash(transfer()) {
		t.Errorf("WithHash set %q", e.EdgeHash)
	}
}

func TestEdgeHash_EmptyDelegateIsNull(t *testing.T) {
	stake := transfer()
	stake.EdgeCategory = CategoryStaking
	fields := map[string]any{
		"coldkey_source":              stake.ColdkeySource,
		"coldkey_destination":         stake.ColdkeyDestination,
		"edge_category":               stake.EdgeCategory,
		"edge_type":                   stake.EdgeType,
		"block_number":                stake.BlockNumber,
		"rao_amount":                  stake.RaoAmount,
		"destination_net_uid":         (*int64)(nil),
		"source_net_uid":              (*int64)(nil),
		"delegate_hotkey_source":      nil,
		"delegate_hotkey_destination": nil,
	}
	encoded := canonicalJSON(fields)
	if !strings.Contains(encoded, `"delegate_hotkey_source": null`) {
		t.Fatalf("canonicalJSON = %s, want delegate_hotkey_source null", encoded)
	}
	sum := sha256.Sum256([]byte(encoded))
	if got, want := EdgeHash(stake), hex.EncodeToString(sum[:]); got != want {
		t.Errorf("EdgeHash with empty delegates = %s, want the null encoding %s", got, want)
	}

	literal := strings.Replace(encoded, `"delegate_hotkey_source": null`, `"delegate_hotkey_source": ""`, 1)
	lsum := sha256.Sum256([]byte(literal))
	if EdgeHash(stake) == hex.EncodeToString(lsum[:]) {
		t.Error("empty delegate hashed as a literal empty string")
	}
}
