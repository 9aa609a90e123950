// Package scoring turns audit outcomes into miner scores, moving averages and
// chain weights.
package scoring

// Params holds the numeric constants scoring depends on. The zero value is
// not useful; start from DefaultParams.
type Params struct {
	// ResponseTimeHalfScore is the response time in seconds that earns half
	// the responsiveness score.
	ResponseTimeHalfScore float64 `toml:"response_time_half_score"`
	// ValidityWeight and ResponseWeight blend pass/fail audits.
	ValidityWeight float64 `toml:"validity_weight"`
	ResponseWeight float64 `toml:"response_weight"`

	// Volume sigmoid: items at InflectionPoint score 0.5.
	Steepness       float64 `toml:"steepness"`
	InflectionPoint float64 `toml:"inflection_point"`
	// VolumeWeight and ResponsivenessWeight blend volume audits and sum to 1.
	VolumeWeight         float64 `toml:"volume_weight"`
	ResponsivenessWeight float64 `toml:"responsiveness_weight"`

	// OwnershipWindow is the moving average denominator for pass/fail audits.
	OwnershipWindow int `toml:"ownership_window"`
	// VolumeWindow is the moving average denominator for volume audits, of
	// which the DiscardLowest lowest scores are dropped.
	VolumeWindow  int `toml:"volume_window"`
	DiscardLowest int `toml:"discard_lowest"`
}

// DefaultParams returns the reference scoring constants.
func DefaultParams() Params {
	return Params{
		ResponseTimeHalfScore: 2,
		ValidityWeight:        50,
		ResponseWeight:        50,
		Steepness:             0.005,
		InflectionPoint:       1000,
		VolumeWeight:          0.9,
		ResponsivenessWeight:  0.1,
		OwnershipWindow:       12,
		VolumeWindow:          20,
		DiscardLowest:         2,
	}
}
