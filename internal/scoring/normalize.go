package scoring

import "math"

// NormalizeScores rescales scores to [0, 1] by min-max, rounded to six
// decimals. An empty input yields an empty map; when every score is equal,
// every miner gets 1.0.
func NormalizeScores[K comparable](scores map[K]float64) map[K]float64 {
	out := make(map[K]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range scores {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	for k, v := range scores {
		if lo == hi {
			out[k] = 1.0
			continue
		}
		out[k] = round6((v - lo) / (hi - lo))
	}
	return out
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
