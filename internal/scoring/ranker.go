package scoring

import (
	"math"
	"sort"
)

// Ranker orders and classifies scored candidates.
type Ranker struct {
	criteria     []CriterionSpec
	policy       ClassificationPolicy
	requirements []Requirement
	paretoLimit  int
}

// NewRanker creates a Ranker for one run.
func NewRanker(criteria []CriterionSpec, policy ClassificationPolicy, reqs []Requirement) *Ranker {
	return &Ranker{criteria: criteria, policy: policy, requirements: reqs, paretoLimit: DefaultParetoLimit}
}

// WithParetoLimit bounds the frontier computation; a negative limit disables it.
func (r *Ranker) WithParetoLimit(limit int) *Ranker {
	r.paretoLimit = limit
	return r
}

// Rank classifies every candidate, sorts them and computes the summary. The
// input slice is not modified.
//
// Ordering is by score (descending unless the policy says lower is better)
// with ties broken by identifier so identical input always ranks identically.
func (r *Ranker) Rank(scored []ScoredCandidate) ([]ScoredCandidate, Summary) {
	out := make([]ScoredCandidate, len(scored))
	copy(out, scored)

	for i := range out {
		Classify(&out[i], r.policy, r.requirements)
	}

	SortByScore(out, r.policy.LowerIsBetter)
	for i := range out {
		out[i].Rank = i + 1
	}
	if r.paretoLimit >= 0 && len(out) <= r.paretoLimit {
		MarkParetoFrontier(out, r.criteria)
	}

	return out, r.summarize(out)
}

// SortByScore stable-sorts candidates by score, ties by identifier.
func SortByScore(results []ScoredCandidate, ascending bool) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			if ascending {
				return a.Score < b.Score
			}
			return a.Score > b.Score
		}
		return a.ID < b.ID
	})
}

func (r *Ranker) summarize(results []ScoredCandidate) Summary {
	s := Summary{
		Count:        len(results),
		StatusCounts: make(map[string]int),
	}
	if len(results) == 0 {
		return s
	}

	s.MinScore, s.MaxScore = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, sc := range results {
		sum += sc.Score
		s.MinScore = math.Min(s.MinScore, sc.Score)
		s.MaxScore = math.Max(s.MaxScore, sc.Score)
		s.StatusCounts[sc.Status]++

		if r.policy.Passing(sc.Status) {
			s.Passing++
			continue
		}
		s.Failing++
		s.Failures = append(s.Failures, FailingCandidate{
			ID:     sc.ID,
			Score:  sc.Score,
			Status: sc.Status,
			Failed: failingCriteria(sc, r.criteria, r.policy),
		})
	}
	s.MeanScore = sum / float64(len(results))
	return s
}
