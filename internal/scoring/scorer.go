package scoring

import (
	"log/slog"
)

// Scorer orchestrates the weighted additive scoring of normalized candidates.
type Scorer struct {
	criteria []CriterionSpec
	logger   *slog.Logger
}

// NewScorer creates a Scorer for the given criteria. Weights are assumed to
// have been validated with ValidateCriteria at configuration time.
func NewScorer(criteria []CriterionSpec, logger *slog.Logger) *Scorer {
	return &Scorer{
		criteria: criteria,
		logger:   logger,
	}
}

// ScoreCandidate computes the score and per-criterion breakdown of one
// normalized candidate.
func (s *Scorer) ScoreCandidate(nc NormalizedCandidate) ScoredCandidate {
	factors := make([]FactorResult, len(s.criteria))
	for i, c := range s.criteria {
		v := nc.Values[c.Name]
		factors[i] = FactorResult{
			Name:     c.Name,
			Value:    v,
			Weight:   c.Weight,
			Weighted: v * c.Weight,
		}
	}
	total := Score(nc, s.criteria)

	s.logger.Debug("candidate scored", "candidate", nc.ID, "score", total)

	return ScoredCandidate{
		NormalizedCandidate: nc,
		Score:               total,
		Factors:             factors,
	}
}

// Score is the pure weighted sum of normalized values. Criteria are summed in
// declaration order so the result is reproducible bit for bit.
//
//	score = Σ weight_i × normalized_i
func Score(nc NormalizedCandidate, criteria []CriterionSpec) float64 {
	var total float64
	for _, c := range criteria {
		total += nc.Values[c.Name] * c.Weight
	}
	return total
}
