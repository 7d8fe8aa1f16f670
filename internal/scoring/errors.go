package scoring

import (
	"fmt"
	"strings"
)

// ColumnProblem describes one missing or malformed column (or criterion value).
type ColumnProblem struct {
	Column    string `json:"column"`
	Candidate string `json:"candidate,omitempty"`
	Row       int    `json:"row,omitempty"`
	Reason    string `json:"reason"`
}

func (p ColumnProblem) String() string {
	var b strings.Builder
	b.WriteString(p.Column)
	switch {
	case p.Candidate != "":
		fmt.Fprintf(&b, " (candidate %q)", p.Candidate)
	case p.Row > 0:
		fmt.Fprintf(&b, " (row %d)", p.Row)
	}
	b.WriteString(": ")
	b.WriteString(p.Reason)
	return b.String()
}

// SchemaError lists every missing or malformed column found in the input.
type SchemaError struct {
	Problems []ColumnProblem `json:"problems"`
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "schema: " + strings.Join(parts, "; ")
}

// Columns returns the distinct column names named by the error, in order.
func (e *SchemaError) Columns() []string {
	seen := make(map[string]bool, len(e.Problems))
	var out []string
	for _, p := range e.Problems {
		if !seen[p.Column] {
			seen[p.Column] = true
			out = append(out, p.Column)
		}
	}
	return out
}

// EmptyInputError is returned when the input holds no usable rows.
type EmptyInputError struct {
	Source string
}

func (e *EmptyInputError) Error() string {
	if e.Source == "" {
		return "empty input: no candidate rows"
	}
	return fmt.Sprintf("empty input: %s has no candidate rows", e.Source)
}

// WeightConfigurationError reports invalid or mismatched criterion weights.
type WeightConfigurationError struct {
	Criterion string
	Reason    string
}

func (e *WeightConfigurationError) Error() string {
	if e.Criterion == "" {
		return "weight configuration: " + e.Reason
	}
	return fmt.Sprintf("weight configuration: criterion %q: %s", e.Criterion, e.Reason)
}

// InsufficientDataError is returned when normalization has too few candidates
// to define a range.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: normalization needs at least %d candidates, got %d", e.Need, e.Have)
}

// WorkerFailureError wraps the failure of one partition of a parallel run.
type WorkerFailureError struct {
	Chunk     int
	Candidate string
	Err       error
}

func (e *WorkerFailureError) Error() string {
	if e.Candidate != "" {
		return fmt.Sprintf("worker failure: chunk %d, candidate %q: %v", e.Chunk, e.Candidate, e.Err)
	}
	return fmt.Sprintf("worker failure: chunk %d: %v", e.Chunk, e.Err)
}

func (e *WorkerFailureError) Unwrap() error { return e.Err }
