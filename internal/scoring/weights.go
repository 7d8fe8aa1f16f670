package scoring

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance is the allowed deviation of the weight sum from 1.0.
const WeightTolerance = 0.001

// Orientation says whether higher or lower raw values are preferable.
type Orientation string

const (
	Maximize Orientation = "maximize"
	Minimize Orientation = "minimize"
)

// Valid reports whether o is a known orientation.
func (o Orientation) Valid() bool {
	return o == Maximize || o == Minimize
}

// CriterionSpec defines one criterion of a run. Weights of all criteria of a
// run sum to 1.0 (±WeightTolerance).
type CriterionSpec struct {
	Name        string      `json:"name" yaml:"name"`
	Orientation Orientation `json:"orientation" yaml:"orientation"`
	Weight      float64     `json:"weight" yaml:"weight"`
}

// SumWeights returns the total of all criterion weights.
func SumWeights(criteria []CriterionSpec) float64 {
	var sum float64
	for _, c := range criteria {
		sum += c.Weight
	}
	return sum
}

// ValidateCriteria checks names, orientations and weights of a criterion set.
func ValidateCriteria(criteria []CriterionSpec) error {
	if len(criteria) == 0 {
		return &WeightConfigurationError{Reason: "no criteria configured"}
	}
	seen := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		if c.Name == "" {
			return &WeightConfigurationError{Reason: "criterion with empty name"}
		}
		if seen[c.Name] {
			return &WeightConfigurationError{Criterion: c.Name, Reason: "duplicate criterion"}
		}
		seen[c.Name] = true
		if !c.Orientation.Valid() {
			return &WeightConfigurationError{Criterion: c.Name, Reason: fmt.Sprintf("unknown orientation %q", c.Orientation)}
		}
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			return &WeightConfigurationError{Criterion: c.Name, Reason: "weight is not a finite number"}
		}
		if c.Weight < 0 {
			return &WeightConfigurationError{Criterion: c.Name, Reason: fmt.Sprintf("negative weight: %f", c.Weight)}
		}
	}
	if sum := SumWeights(criteria); math.Abs(sum-1.0) > WeightTolerance {
		return &WeightConfigurationError{Reason: fmt.Sprintf("weights sum to %.4f, must sum to 1.0", sum)}
	}
	return nil
}

// ApplyWeights returns a copy of criteria with weights taken from the given
// map. The map must name exactly the configured criteria.
func ApplyWeights(criteria []CriterionSpec, weights map[string]float64) ([]CriterionSpec, error) {
	known := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		known[c.Name] = true
	}

	var unknown []string
	for name := range weights {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &WeightConfigurationError{Criterion: unknown[0], Reason: "weight given for undeclared criterion"}
	}

	out := make([]CriterionSpec, len(criteria))
	for i, c := range criteria {
		w, ok := weights[c.Name]
		if !ok {
			return nil, &WeightConfigurationError{Criterion: c.Name, Reason: "no weight given"}
		}
		c.Weight = w
		out[i] = c
	}
	if err := ValidateCriteria(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CriterionNames returns the names of criteria in declaration order.
func CriterionNames(criteria []CriterionSpec) []string {
	names := make([]string, len(criteria))
	for i, c := range criteria {
		names[i] = c.Name
	}
	return names
}
