package scoring

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MinNormalizationCandidates is the smallest candidate count for which a
// per-criterion range is defined.
const MinNormalizationCandidates = 2

// NormalizationMethod selects how raw values are rescaled. One method is used
// for the whole run.
type NormalizationMethod string

const (
	// MinMax rescales onto [0,1]; the canonical method.
	MinMax NormalizationMethod = "minmax"
	// ZScore centres on the mean in units of population standard deviation.
	ZScore NormalizationMethod = "zscore"
	// Raw passes raw values through unchanged. Only used by the explicit
	// single-candidate fallback policy.
	Raw NormalizationMethod = "raw"
)

// Valid reports whether m is a selectable normalization method.
func (m NormalizationMethod) Valid() bool {
	return m == MinMax || m == ZScore
}

// CriterionStats are the global statistics of one criterion across a run.
type CriterionStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Statistics holds the global normalization statistics of a run. It is
// immutable after Fit and safe to share between goroutines.
type Statistics struct {
	method   NormalizationMethod
	criteria []CriterionSpec
	stats    map[string]CriterionStats
}

// Method returns the normalization method the statistics apply.
func (s *Statistics) Method() NormalizationMethod { return s.method }

// Of returns the statistics for the named criterion.
func (s *Statistics) Of(criterion string) (CriterionStats, bool) {
	st, ok := s.stats[criterion]
	return st, ok
}

// Normalizer rescales candidates for a fixed criterion set and method.
type Normalizer struct {
	criteria []CriterionSpec
	method   NormalizationMethod
}

// NewNormalizer creates a Normalizer. An empty method selects MinMax.
func NewNormalizer(criteria []CriterionSpec, method NormalizationMethod) *Normalizer {
	if method == "" {
		method = MinMax
	}
	return &Normalizer{criteria: criteria, method: method}
}

// Fit computes the global statistics over all candidates. It fails with a
// SchemaError when any candidate's criterion set differs from the configured
// one, and with InsufficientDataError when fewer than two candidates exist.
func (n *Normalizer) Fit(candidates []Candidate) (*Statistics, error) {
	if len(candidates) == 0 {
		return nil, &EmptyInputError{}
	}
	if err := CheckCandidates(n.criteria, candidates); err != nil {
		return nil, err
	}
	if len(candidates) < MinNormalizationCandidates {
		return nil, &InsufficientDataError{Have: len(candidates), Need: MinNormalizationCandidates}
	}
	if !n.method.Valid() {
		return nil, fmt.Errorf("unknown normalization method %q", n.method)
	}

	stats := make(map[string]CriterionStats, len(n.criteria))
	column := make([]float64, len(candidates))
	for _, c := range n.criteria {
		for i, cand := range candidates {
			column[i] = cand.Values[c.Name]
		}
		stats[c.Name] = describe(column)
	}

	return &Statistics{method: n.method, criteria: n.criteria, stats: stats}, nil
}

// describe computes the range, mean and population standard deviation of
// one criterion. A constant column has exactly zero deviation.
func describe(x []float64) CriterionStats {
	st := CriterionStats{Min: floats.Min(x), Max: floats.Max(x)}
	st.Mean, st.StdDev = stat.PopMeanStdDev(x, nil)
	if st.Min == st.Max {
		st.Mean, st.StdDev = st.Min, 0
	}
	return st
}

// Normalize fits global statistics and applies them to every candidate.
func (n *Normalizer) Normalize(candidates []Candidate) ([]NormalizedCandidate, error) {
	st, err := n.Fit(candidates)
	if err != nil {
		return nil, err
	}
	out := make([]NormalizedCandidate, len(candidates))
	for i, c := range candidates {
		nc, err := st.Apply(c)
		if err != nil {
			return nil, err
		}
		out[i] = nc
	}
	return out, nil
}

// Passthrough returns statistics that copy raw values unchanged. It is the
// explicit fallback for runs too small to normalize.
func Passthrough(criteria []CriterionSpec) *Statistics {
	return &Statistics{method: Raw, criteria: criteria, stats: map[string]CriterionStats{}}
}

// Apply normalizes a single candidate against the global statistics.
func (s *Statistics) Apply(c Candidate) (NormalizedCandidate, error) {
	if err := CheckCandidates(s.criteria, []Candidate{c}); err != nil {
		return NormalizedCandidate{}, err
	}

	nc := NormalizedCandidate{
		ID:     c.ID,
		Raw:    make(map[string]float64, len(s.criteria)),
		Values: make(map[string]float64, len(s.criteria)),
	}
	for _, crit := range s.criteria {
		raw := c.Values[crit.Name]
		nc.Raw[crit.Name] = raw
		if s.method == Raw {
			nc.Values[crit.Name] = raw
			continue
		}
		st, ok := s.stats[crit.Name]
		if !ok {
			return NormalizedCandidate{}, fmt.Errorf("no statistics for criterion %q", crit.Name)
		}
		nc.Values[crit.Name] = normalizeValue(raw, st, crit.Orientation, s.method)
	}
	return nc, nil
}

func normalizeValue(raw float64, st CriterionStats, o Orientation, method NormalizationMethod) float64 {
	switch method {
	case ZScore:
		if st.StdDev == 0 {
			return 0
		}
		if o == Minimize {
			return (st.Mean - raw) / st.StdDev
		}
		return (raw - st.Mean) / st.StdDev
	default:
		span := st.Max - st.Min
		if span == 0 {
			return 1.0
		}
		if o == Minimize {
			return (st.Max - raw) / span
		}
		return (raw - st.Min) / span
	}
}

// CheckCandidates verifies that every candidate carries exactly the configured
// criteria with finite values. All problems are reported in one SchemaError.
func CheckCandidates(criteria []CriterionSpec, candidates []Candidate) error {
	want := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		want[c.Name] = true
	}

	var problems []ColumnProblem
	for _, cand := range candidates {
		for _, c := range criteria {
			v, ok := cand.Values[c.Name]
			if !ok {
				problems = append(problems, ColumnProblem{Column: c.Name, Candidate: cand.ID, Reason: "missing criterion"})
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				problems = append(problems, ColumnProblem{Column: c.Name, Candidate: cand.ID, Reason: "value is not a finite number"})
			}
		}
		var extra []string
		for name := range cand.Values {
			if !want[name] {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			problems = append(problems, ColumnProblem{Column: name, Candidate: cand.ID, Reason: "criterion not configured for this run"})
		}
	}
	if len(problems) > 0 {
		return &SchemaError{Problems: problems}
	}
	return nil
}
