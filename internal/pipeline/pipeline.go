// Package pipeline runs one evaluation end to end: schema checks, scoring,
// the optional advisor, metrics and run events.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Verdant/internal/advisor"
	"github.com/MikeSquared-Agency/Verdant/internal/config"
	"github.com/MikeSquared-Agency/Verdant/internal/dataset"
	"github.com/MikeSquared-Agency/Verdant/internal/hermes"
	"github.com/MikeSquared-Agency/Verdant/internal/metrics"
	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

// topN is how many leading candidates a completed event names.
const topN = 5

// Request describes one run.
type Request struct {
	Profile   string
	Table     *dataset.Table
	Overrides config.Overrides
	// Advise runs the advisor even when the profile does not enable it, and
	// makes its failure fail the run.
	Advise bool
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    string                   `json:"run_id"`
	Profile  string                   `json:"profile"`
	IDColumn string                   `json:"id_column"`
	Results  *scoring.RankedResultSet `json:"results"`
	Advisory *advisor.Report          `json:"advisory,omitempty"`
	// AdvisorSkipped explains why a profile-enabled advisor produced nothing.
	AdvisorSkipped string        `json:"advisor_skipped,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
}

// Runner executes runs. Each run is isolated; the runner itself only holds
// process-wide collaborators. A nil hermes client disables events.
type Runner struct {
	cfg     *config.Config
	hermes  hermes.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewRunner(cfg *config.Config, h hermes.Client, m *metrics.Metrics, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, hermes: h, metrics: m, logger: logger.With("component", "pipeline")}
}

// Config returns the runner's configuration.
func (r *Runner) Config() *config.Config { return r.cfg }

// Run evaluates req.Table under the named profile. On failure no result is
// returned and a failed event is published.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := req.Overrides.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	req.Overrides.RunID = runID
	logger := r.logger.With("run_id", runID, "profile", req.Profile)

	res, err := r.run(ctx, logger, runID, req)
	if err != nil {
		r.fail(logger, runID, req.Profile, start, err)
		return nil, err
	}
	res.Duration = time.Since(start)

	summary := res.Results.Summary
	if r.metrics != nil {
		r.metrics.RecordRun(req.Profile, metrics.OutcomeCompleted, res.Duration, summary.Count, summary.Failing)
	}
	r.publish(logger, hermes.SubjectRunCompleted(runID), completedEvent(res))
	if res.Advisory != nil {
		r.publish(logger, hermes.SubjectRunAdvised(runID), advisedEvent(res))
	}

	logger.Info("run completed",
		"candidates", summary.Count,
		"passing", summary.Passing,
		"failing", summary.Failing,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, runID string, req Request) (*Result, error) {
	profile, err := r.cfg.Profile(req.Profile)
	if err != nil {
		return nil, err
	}
	rc, err := r.cfg.ToRunConfig(profile, req.Overrides)
	if err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	if req.Table == nil {
		return nil, &scoring.EmptyInputError{}
	}

	candidates, err := dataset.BuildCandidates(req.Table, profile.IDColumn, rc.Criteria)
	if err != nil {
		return nil, err
	}

	rs, err := r.evaluate(ctx, logger, rc, candidates)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: runID, Profile: req.Profile, IDColumn: profile.IDColumn, Results: rs}
	if !req.Advise && !profile.Advisor {
		return res, nil
	}

	report, err := r.advise(ctx, logger, req.Profile, rs)
	if err != nil {
		var ite *advisor.InsufficientTrainingDataError
		if req.Advise || !errors.As(err, &ite) {
			return nil, err
		}
		logger.Warn("advisor skipped", "error", err)
		res.AdvisorSkipped = err.Error()
		return res, nil
	}
	res.Advisory = report
	return res, nil
}

// Evaluate scores candidates that were built elsewhere, with the same events
// and metrics as Run.
func (r *Runner) Evaluate(ctx context.Context, profile string, rc scoring.RunConfig, candidates []scoring.Candidate) (*scoring.RankedResultSet, error) {
	start := time.Now()
	if rc.RunID == "" {
		rc.RunID = uuid.NewString()
	}
	logger := r.logger.With("run_id", rc.RunID, "profile", profile)

	rs, err := r.evaluate(ctx, logger, rc, candidates)
	if err != nil {
		r.fail(logger, rc.RunID, profile, start, err)
		return nil, err
	}

	d := time.Since(start)
	if r.metrics != nil {
		r.metrics.RecordRun(profile, metrics.OutcomeCompleted, d, rs.Summary.Count, rs.Summary.Failing)
	}
	r.publish(logger, hermes.SubjectRunCompleted(rc.RunID), completedEvent(&Result{
		RunID: rc.RunID, Profile: profile, Results: rs, Duration: d,
	}))
	return rs, nil
}

func (r *Runner) evaluate(ctx context.Context, logger *slog.Logger, rc scoring.RunConfig, candidates []scoring.Candidate) (*scoring.RankedResultSet, error) {
	e, err := scoring.NewEvaluator(rc, logger)
	if err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	return e.Evaluate(ctx, candidates)
}

func (r *Runner) advise(ctx context.Context, logger *slog.Logger, profile string, rs *scoring.RankedResultSet) (*advisor.Report, error) {
	report, err := advisor.New(r.cfg.Advisor, logger).Advise(ctx, rs)
	if r.metrics != nil {
		if err != nil {
			r.metrics.RecordAdvisorFit(profile, metrics.OutcomeFailed, 0)
		} else {
			r.metrics.RecordAdvisorFit(profile, metrics.OutcomeCompleted, report.CVError)
		}
	}
	return report, err
}

func (r *Runner) fail(logger *slog.Logger, runID, profile string, start time.Time, err error) {
	kind := ErrorKind(err)
	logger.Error("run failed", "kind", kind, "error", err)
	if r.metrics != nil {
		r.metrics.RecordRun(profile, metrics.OutcomeFailed, time.Since(start), 0, 0)
	}
	r.publish(logger, hermes.SubjectRunFailed(runID), hermes.RunFailedEvent{
		RunID:     runID,
		Profile:   profile,
		Kind:      kind,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (r *Runner) publish(logger *slog.Logger, subject string, event any) {
	if r.hermes == nil {
		return
	}
	if err := r.hermes.Publish(subject, event); err != nil {
		logger.Warn("failed to publish run event", "subject", subject, "error", err)
	}
}

func completedEvent(res *Result) hermes.RunCompletedEvent {
	rs := res.Results
	ev := hermes.RunCompletedEvent{
		RunID:      res.RunID,
		Profile:    res.Profile,
		Method:     string(rs.Method),
		Candidates: rs.Summary.Count,
		MeanScore:  rs.Summary.MeanScore,
		Passing:    rs.Summary.Passing,
		Failing:    rs.Summary.Failing,
		DurationMs: res.Duration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	ids := rs.IDs()
	ev.Top = ids[:min(topN, len(ids))]
	for _, f := range rs.Summary.Failures {
		ev.Failures = append(ev.Failures, hermes.FailureSummary{ID: f.ID, Status: f.Status, Failed: f.Failed})
	}
	return ev
}

func advisedEvent(res *Result) hermes.RunAdvisedEvent {
	a := res.Advisory
	ev := hermes.RunAdvisedEvent{
		RunID:     res.RunID,
		Profile:   res.Profile,
		Params:    a.Params.String(),
		CVError:   a.CVError,
		Timestamp: time.Now().UTC(),
	}
	if len(a.Importances) > 0 {
		ev.Lever = a.Importances[0].Criterion
	}
	for _, s := range a.Suggestions {
		if s.Flagged {
			ev.Flagged = append(ev.Flagged, s.Candidate)
		}
	}
	return ev
}
