// Package advisor fits a random forest to a scored result set to find which
// criteria drive the score, and suggests which criterion each candidate
// should improve.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

// MinTrainingCandidates is the smallest result set the advisor will train on.
const MinTrainingCandidates = 8

// InsufficientTrainingDataError is returned when the result set is too small
// to cross-validate a model.
type InsufficientTrainingDataError struct {
	Have int
	Need int
}

func (e *InsufficientTrainingDataError) Error() string {
	return fmt.Sprintf("insufficient training data: advisor needs at least %d candidates, got %d", e.Need, e.Have)
}

// Config controls the advisor.
type Config struct {
	Grid    Grid  `yaml:"grid"`
	Folds   int   `yaml:"folds"`
	Seed    int64 `yaml:"seed"`
	Workers int   `yaml:"workers"`
	// LeverStdDevs is how far below the cohort mean, in standard deviations,
	// a candidate's lever value must be before the suggestion is flagged.
	LeverStdDevs float64 `yaml:"lever_std_devs"`
}

// DefaultConfig returns the standard advisor settings.
func DefaultConfig() Config {
	return Config{
		Grid:         DefaultGrid(),
		Folds:        3,
		Seed:         42,
		LeverStdDevs: 1.0,
	}
}

// Importance is one criterion's share of the model's impurity reduction.
type Importance struct {
	Criterion  string  `json:"criterion"`
	Importance float64 `json:"importance"`
	Rank       int     `json:"rank"`
}

// Deficit is a criterion on which a candidate sits below the cohort mean.
type Deficit struct {
	Criterion  string  `json:"criterion"`
	Value      float64 `json:"value"`
	CohortMean float64 `json:"cohort_mean"`
	Gap        float64 `json:"gap"`
	Importance float64 `json:"importance"`
	Priority   float64 `json:"priority"`
}

// Suggestion is the improvement advice for one candidate.
type Suggestion struct {
	Candidate     string    `json:"candidate"`
	Lever         string    `json:"lever"`
	Value         float64   `json:"value"`
	CohortMean    float64   `json:"cohort_mean"`
	Gap           float64   `json:"gap"`
	Flagged       bool      `json:"flagged"`
	PredictedGain float64   `json:"predicted_gain"`
	Deficits      []Deficit `json:"deficits,omitempty"`
}

// Report is the advisor output for one run.
type Report struct {
	RunID        string       `json:"run_id"`
	TrainingSize int          `json:"training_size"`
	Params       Params       `json:"params"`
	CVError      float64      `json:"cv_error"`
	Evaluated    []GridResult `json:"evaluated"`
	Importances  []Importance `json:"importances"`
	Suggestions  []Suggestion `json:"suggestions"`
}

// Advisor trains on ranked results and produces improvement suggestions.
type Advisor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Advisor.
func New(cfg Config, logger *slog.Logger) *Advisor {
	return &Advisor{cfg: cfg, logger: logger}
}

// Advise fits a model predicting score from normalized criterion values and
// derives importances and per-candidate suggestions. The result set is not
// modified.
func (a *Advisor) Advise(ctx context.Context, rs *scoring.RankedResultSet) (*Report, error) {
	if rs == nil || len(rs.Results) < MinTrainingCandidates {
		have := 0
		if rs != nil {
			have = len(rs.Results)
		}
		return nil, &InsufficientTrainingDataError{Have: have, Need: MinTrainingCandidates}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := TrainingData(rs)
	sel, err := SelectModel(data, SearchOptions{
		Grid:    a.cfg.Grid,
		Folds:   a.cfg.Folds,
		Seed:    a.cfg.Seed,
		Workers: a.cfg.Workers,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.logger.Info("advisor model selected",
		"run_id", rs.RunID,
		"params", sel.Best.String(),
		"cv_error", sel.CVError,
		"grid_points", len(sel.Evaluated),
	)

	imp := sel.Forest.Importances()
	report := &Report{
		RunID:        rs.RunID,
		TrainingSize: len(data.X),
		Params:       sel.Best,
		CVError:      sel.CVError,
		Evaluated:    sel.Evaluated,
		Importances:  rankImportances(data.Features, imp),
	}
	report.Suggestions = suggest(data, sel.Forest, imp, report.Importances[0].Criterion, a.cfg.LeverStdDevs)
	return report, nil
}

// TrainingData turns a result set into a dataset: one feature per criterion
// in declaration order, the normalized value as input and the score as target.
func TrainingData(rs *scoring.RankedResultSet) Dataset {
	d := Dataset{Features: scoring.CriterionNames(rs.Criteria)}
	for _, r := range rs.Results {
		row := make([]float64, len(d.Features))
		for j, name := range d.Features {
			row[j] = r.Values[name]
		}
		d.IDs = append(d.IDs, r.ID)
		d.X = append(d.X, row)
		d.Y = append(d.Y, r.Score)
	}
	return d
}

func rankImportances(features []string, imp []float64) []Importance {
	out := make([]Importance, len(features))
	for j, f := range features {
		out[j] = Importance{Criterion: f, Importance: imp[j]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

type cohortStat struct {
	mean, stddev float64
}

func cohort(data Dataset) []cohortStat {
	stats := make([]cohortStat, len(data.Features))
	column := make([]float64, len(data.X))
	for j := range data.Features {
		for i, row := range data.X {
			column[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if lo := floats.Min(column); lo == floats.Max(column) {
			mean, std = lo, 0
		}
		stats[j] = cohortStat{mean: mean, stddev: std}
	}
	return stats
}

func suggest(data Dataset, f *Forest, imp []float64, lever string, k float64) []Suggestion {
	stats := cohort(data)
	leverIdx := 0
	for j, name := range data.Features {
		if name == lever {
			leverIdx = j
		}
	}
	ls := stats[leverIdx]

	out := make([]Suggestion, 0, len(data.X))
	for i, row := range data.X {
		s := Suggestion{
			Candidate:  data.IDs[i],
			Lever:      lever,
			Value:      row[leverIdx],
			CohortMean: ls.mean,
			Gap:        math.Max(0, ls.mean-row[leverIdx]),
		}
		if ls.stddev > 0 && row[leverIdx] < ls.mean-k*ls.stddev {
			s.Flagged = true
		}
		if row[leverIdx] < ls.mean {
			raised := append([]float64(nil), row...)
			raised[leverIdx] = ls.mean
			s.PredictedGain = f.Predict(raised) - f.Predict(row)
		}

		for j, name := range data.Features {
			if row[j] >= stats[j].mean {
				continue
			}
			gap := stats[j].mean - row[j]
			s.Deficits = append(s.Deficits, Deficit{
				Criterion:  name,
				Value:      row[j],
				CohortMean: stats[j].mean,
				Gap:        gap,
				Importance: imp[j],
				Priority:   imp[j] * gap,
			})
		}
		sort.SliceStable(s.Deficits, func(a, b int) bool {
			return s.Deficits[a].Priority > s.Deficits[b].Priority
		})

		out = append(out, s)
	}
	return out
}
