package scoring

import (
	"slices"
)

// PassFailMovingAverage averages latest with the prior scores, which are most
// recent first, over at most window values.
func PassFailMovingAverage(prior []float64, latest float64, window int) float64 {
	scores := append(slices.Clone(prior), latest)
	if window > 0 && len(scores) > window {
		scores = scores[:window]
	}
	return mean(scores)
}

// VolumeMovingAverage averages the best window-discard values of the prior
// scores plus latest. When fewer values exist every one is kept.
func VolumeMovingAverage(prior []float64, latest float64, window, discard int) float64 {
	scores := append(slices.Clone(prior), latest)
	slices.Sort(scores)
	slices.Reverse(scores)
	if keep := window - discard; keep > 0 && len(scores) > keep {
		scores = scores[:keep]
	}
	return mean(scores)
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
