package hermes

import "time"

// RunRequestEvent asks a listening server to evaluate a table.
type RunRequestEvent struct {
	RunID     string             `json:"run_id,omitempty"`
	Profile   string             `json:"profile"`
	Weights   map[string]float64 `json:"weights,omitempty"`
	Threshold *float64           `json:"threshold,omitempty"`
	Method    string             `json:"method,omitempty"`
	Columns   []string           `json:"columns"`
	Rows      [][]string         `json:"rows"`
	Advise    bool               `json:"advise,omitempty"`
}

type FailureSummary struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Failed []string `json:"failed"`
}

type RunCompletedEvent struct {
	RunID      string           `json:"run_id"`
	Profile    string           `json:"profile"`
	Method     string           `json:"method"`
	Candidates int              `json:"candidates"`
	MeanScore  float64          `json:"mean_score"`
	Passing    int              `json:"passing"`
	Failing    int              `json:"failing"`
	Top        []string         `json:"top,omitempty"`
	Failures   []FailureSummary `json:"failures,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	Timestamp  time.Time        `json:"timestamp"`
}

type RunFailedEvent struct {
	RunID     string    `json:"run_id"`
	Profile   string    `json:"profile"`
	Kind      string    `json:"kind"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

type RunAdvisedEvent struct {
	RunID     string    `json:"run_id"`
	Profile   string    `json:"profile"`
	Lever     string    `json:"lever"`
	Params    string    `json:"params"`
	CVError   float64   `json:"cv_error"`
	Flagged   []string  `json:"flagged,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
