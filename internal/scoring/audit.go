package scoring

import "math"

// AuditScore is the component breakdown of a pass/fail audit.
type AuditScore struct {
	Validity       float64
	Responsiveness float64
	Overall        float64
}

// AuditScorer scores a pass/fail audit from its validity and latency.
type AuditScorer interface {
	Score(valid bool, responseTimeSeconds float64) AuditScore
}

// WeightedAuditScorer blends validity and responsiveness by fixed weights.
type WeightedAuditScorer struct {
	HalfScore      float64
	ValidityWeight float64
	ResponseWeight float64
}

var _ AuditScorer = WeightedAuditScorer{}

// NewWeightedAuditScorer returns the default pass/fail scorer for p.
func NewWeightedAuditScorer(p Params) WeightedAuditScorer {
	return WeightedAuditScorer{
		HalfScore:      p.ResponseTimeHalfScore,
		ValidityWeight: p.ValidityWeight,
		ResponseWeight: p.ResponseWeight,
	}
}

// Score returns all zeros for an invalid response.
func (s WeightedAuditScorer) Score(valid bool, responseTimeSeconds float64) AuditScore {
	if !valid {
		return AuditScore{}
	}
	rt := Responsiveness(s.HalfScore, responseTimeSeconds)
	overall := (s.ValidityWeight + rt*s.ResponseWeight) / (s.ValidityWeight + s.ResponseWeight)
	return AuditScore{Validity: 1, Responsiveness: rt, Overall: overall}
}

// Responsiveness is h/(t+h): 1 for an instant response, 0.5 at the half score.
func Responsiveness(halfScore, responseTimeSeconds float64) float64 {
	return halfScore / (responseTimeSeconds + halfScore)
}

// VolumeScore is a logistic curve over the number of validated items.
func VolumeScore(p Params, items int) float64 {
	return 1 / (1 + math.Exp(-p.Steepness*(float64(items)-p.InflectionPoint)))
}
