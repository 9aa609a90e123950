package challenge

import (
	"context"
	"fmt"
)

// Sampler draws random keys already known to the event store.
type Sampler interface {
	SampleHotkeys(ctx context.Context, n int) ([]string, error)
	SampleColdkeys(ctx context.Context, n int) ([]string, error)
}

// HotkeyTargets draws hotkey ownership targets from stored staking events.
type HotkeyTargets struct{ Store Sampler }

// Targets returns up to n distinct hotkeys.
func (t HotkeyTargets) Targets(ctx context.Context, _ int64, n int) ([]string, error) {
	keys, err := t.Store.SampleHotkeys(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("sample hotkeys: %w", err)
	}
	return keys, nil
}

// ColdkeyTargets draws coldkey search targets from stored events.
type ColdkeyTargets struct{ Store Sampler }

// Targets returns up to n distinct coldkeys.
func (t ColdkeyTargets) Targets(ctx context.Context, _ int64, n int) ([]string, error) {
	keys, err := t.Store.SampleColdkeys(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("sample coldkeys: %w", err)
	}
	return keys, nil
}

// StaticTargets always returns the same keys.
type StaticTargets []string

// Targets returns the configured keys.
func (t StaticTargets) Targets(context.Context, int64, int) ([]string, error) {
	return []string(t), nil
}
