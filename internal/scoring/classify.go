package scoring

import (
	"fmt"
	"math"
)

const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// DefaultPassThreshold is the score cutoff of the default two-band policy.
const DefaultPassThreshold = 0.7

// Band maps every score at or above Min to Label. Under a lower-is-better
// policy Min is an upper bound: scores at or below it get Label.
type Band struct {
	Min   float64 `json:"min" yaml:"min"`
	Label string  `json:"label" yaml:"label"`
}

// ClassificationPolicy buckets scores into qualitative labels. Bands are
// checked in order, highest Min first (lowest first when LowerIsBetter); a
// score outside every band gets FallbackLabel. A candidate failing any
// Requirement is forced to FallbackLabel whatever its score.
type ClassificationPolicy struct {
	Bands         []Band   `json:"bands" yaml:"bands"`
	FallbackLabel string   `json:"fallback_label" yaml:"fallback_label"`
	PassLabels    []string `json:"pass_labels" yaml:"pass_labels"`
	LowerIsBetter bool     `json:"lower_is_better" yaml:"lower_is_better"`
}

// DefaultPolicy returns the two-band pass/fail policy at DefaultPassThreshold.
func DefaultPolicy() ClassificationPolicy {
	return ThresholdPolicy(DefaultPassThreshold, StatusPass, StatusFail)
}

// ThresholdPolicy returns a single-cutoff policy: score >= cutoff gets pass.
func ThresholdPolicy(cutoff float64, pass, fail string) ClassificationPolicy {
	return ClassificationPolicy{
		Bands:         []Band{{Min: cutoff, Label: pass}},
		FallbackLabel: fail,
		PassLabels:    []string{pass},
	}
}

// Validate checks that labels are set and bands are strictly descending, or
// strictly ascending when lower is better.
func (p ClassificationPolicy) Validate() error {
	if p.FallbackLabel == "" {
		return fmt.Errorf("classification: fallback label is required")
	}
	for i, b := range p.Bands {
		if b.Label == "" {
			return fmt.Errorf("classification: band %d has no label", i)
		}
		if math.IsNaN(b.Min) {
			return fmt.Errorf("classification: band %q has NaN cutoff", b.Label)
		}
		if i == 0 {
			continue
		}
		prev := p.Bands[i-1].Min
		if p.LowerIsBetter && b.Min <= prev {
			return fmt.Errorf("classification: band %q cutoff %.4f must be above %.4f", b.Label, b.Min, prev)
		}
		if !p.LowerIsBetter && b.Min >= prev {
			return fmt.Errorf("classification: band %q cutoff %.4f must be below %.4f", b.Label, b.Min, prev)
		}
	}
	return nil
}

// Label returns the band label for a score.
func (p ClassificationPolicy) Label(score float64) string {
	for _, b := range p.Bands {
		if p.within(score, b.Min) {
			return b.Label
		}
	}
	return p.FallbackLabel
}

// within reports whether score is on the passing side of cutoff.
func (p ClassificationPolicy) within(score, cutoff float64) bool {
	if p.LowerIsBetter {
		return score <= cutoff
	}
	return score >= cutoff
}

// Passing reports whether a status counts as passing.
func (p ClassificationPolicy) Passing(status string) bool {
	for _, l := range p.PassLabels {
		if l == status {
			return true
		}
	}
	return false
}

// passCutoff is the loosest cutoff among passing bands: the lowest Min, or
// the highest when lower is better. Criteria on the wrong side of it are
// reported as failing criteria of a failing candidate.
func (p ClassificationPolicy) passCutoff() (float64, bool) {
	found := false
	var cutoff float64
	for _, b := range p.Bands {
		if !p.Passing(b.Label) {
			continue
		}
		if !found || p.within(cutoff, b.Min) {
			cutoff, found = b.Min, true
		}
	}
	return cutoff, found
}

// Comparator is the direction of a requirement threshold.
type Comparator string

const (
	AtLeast Comparator = ">="
	AtMost  Comparator = "<="
)

// Requirement is a threshold on one criterion's raw value, e.g. a
// regulatory minimum.
type Requirement struct {
	Name       string     `json:"name" yaml:"name"`
	Criterion  string     `json:"criterion" yaml:"criterion"`
	Comparator Comparator `json:"comparator" yaml:"comparator"`
	Threshold  float64    `json:"threshold" yaml:"threshold"`
}

// Met reports whether a raw value satisfies the requirement.
func (r Requirement) Met(raw float64) bool {
	if r.Comparator == AtMost {
		return raw <= r.Threshold
	}
	return raw >= r.Threshold
}

// ValidateRequirements checks that every requirement names a configured
// criterion and a known comparator.
func ValidateRequirements(reqs []Requirement, criteria []CriterionSpec) error {
	known := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		known[c.Name] = true
	}
	for _, r := range reqs {
		if r.Name == "" {
			return fmt.Errorf("requirement on %q has no name", r.Criterion)
		}
		if !known[r.Criterion] {
			return &SchemaError{Problems: []ColumnProblem{{Column: r.Criterion, Reason: fmt.Sprintf("requirement %q references unknown criterion", r.Name)}}}
		}
		if r.Comparator != AtLeast && r.Comparator != AtMost {
			return fmt.Errorf("requirement %q: unknown comparator %q", r.Name, r.Comparator)
		}
	}
	return nil
}

// Classify sets Status and FailedRequirements on a scored candidate. Every
// failing requirement is listed, in declaration order.
func Classify(sc *ScoredCandidate, policy ClassificationPolicy, reqs []Requirement) {
	sc.Status = policy.Label(sc.Score)
	sc.FailedRequirements = nil
	for _, r := range reqs {
		if !r.Met(sc.Raw[r.Criterion]) {
			sc.FailedRequirements = append(sc.FailedRequirements, r.Name)
		}
	}
	if len(sc.FailedRequirements) > 0 {
		sc.Status = policy.FallbackLabel
	}
}

// failingCriteria names what a failing candidate failed on: its failed
// requirements, or else the criteria whose normalized value is below the
// passing cutoff (above it when lower is better).
func failingCriteria(sc ScoredCandidate, criteria []CriterionSpec, policy ClassificationPolicy) []string {
	if len(sc.FailedRequirements) > 0 {
		return append([]string(nil), sc.FailedRequirements...)
	}
	cutoff, ok := policy.passCutoff()
	if !ok {
		return nil
	}
	var out []string
	for _, c := range criteria {
		if !policy.within(sc.Values[c.Name], cutoff) {
			out = append(out, c.Name)
		}
	}
	return out
}
