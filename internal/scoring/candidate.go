package scoring

// Candidate is one evaluated entity with its raw criterion values.
type Candidate struct {
	ID     string             `json:"id"`
	Values map[string]float64 `json:"values"`
}

// NormalizedCandidate carries the orientation-resolved values of a candidate.
// Higher is always better in Values, whatever the criterion orientation.
type NormalizedCandidate struct {
	ID     string             `json:"id"`
	Raw    map[string]float64 `json:"raw"`
	Values map[string]float64 `json:"normalized"`
}

// FactorResult captures one criterion's contribution to the total score.
type FactorResult struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// ScoredCandidate is the externally visible result row.
type ScoredCandidate struct {
	NormalizedCandidate
	Score              float64        `json:"score"`
	Factors            []FactorResult `json:"factors"`
	Status             string         `json:"status,omitempty"`
	FailedRequirements []string       `json:"failed_requirements,omitempty"`
	Rank               int            `json:"rank"`
	ParetoOptimal      bool           `json:"pareto_optimal"`
}

// FailingCandidate names a candidate that did not pass, with every criterion
// or requirement it failed on.
type FailingCandidate struct {
	ID     string   `json:"id"`
	Score  float64  `json:"score"`
	Status string   `json:"status"`
	Failed []string `json:"failed"`
}

// Summary holds the run-level aggregates of a result set.
type Summary struct {
	Count        int                `json:"count"`
	MeanScore    float64            `json:"mean_score"`
	MinScore     float64            `json:"min_score"`
	MaxScore     float64            `json:"max_score"`
	StatusCounts map[string]int     `json:"status_counts"`
	Passing      int                `json:"passing"`
	Failing      int                `json:"failing"`
	Failures     []FailingCandidate `json:"failures,omitempty"`
}

// RankedResultSet is the ordered output of one run.
type RankedResultSet struct {
	RunID    string              `json:"run_id"`
	Method   NormalizationMethod `json:"method"`
	Criteria []CriterionSpec     `json:"criteria"`
	Results  []ScoredCandidate   `json:"results"`
	Summary  Summary             `json:"summary"`
}

// Lookup returns the result with the given id.
func (rs *RankedResultSet) Lookup(id string) (ScoredCandidate, bool) {
	for _, r := range rs.Results {
		if r.ID == id {
			return r, true
		}
	}
	return ScoredCandidate{}, false
}

// IDs returns candidate ids in rank order.
func (rs *RankedResultSet) IDs() []string {
	ids := make([]string, len(rs.Results))
	for i, r := range rs.Results {
		ids[i] = r.ID
	}
	return ids
}
