package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Verdant/internal/compliance"
	"github.com/MikeSquared-Agency/Verdant/internal/config"
	"github.com/MikeSquared-Agency/Verdant/internal/dataset"
	"github.com/MikeSquared-Agency/Verdant/internal/hermes"
	"github.com/MikeSquared-Agency/Verdant/internal/kpi"
	"github.com/MikeSquared-Agency/Verdant/internal/metrics"
	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

const (
	ProfileCompliance = "compliance"
	ProfileKPI        = "kpi"
)

// ComplianceResult pairs the row-level compliance report with the scored
// entity ranking. Results is nil when no entity has a finding for every
// regulation; RankingSkipped then says so.
type ComplianceResult struct {
	Report         *compliance.Report       `json:"report"`
	Results        *scoring.RankedResultSet `json:"results,omitempty"`
	RankingSkipped string                   `json:"ranking_skipped,omitempty"`
}

// RunCompliance checks data against regulations, then scores and ranks the
// entities that have a finding for every regulation, with each regulation as
// a requirement. A single complete entity is ranked on its raw statuses.
func (r *Runner) RunCompliance(ctx context.Context, data, regulations *dataset.Table, o config.Overrides) (*ComplianceResult, error) {
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	start := time.Now()
	logger := r.logger.With("run_id", o.RunID, "profile", ProfileCompliance)

	regs, err := compliance.LoadRegulations(regulations)
	if err != nil {
		r.fail(logger, o.RunID, ProfileCompliance, start, err)
		return nil, err
	}
	report, err := compliance.Check(data, regs)
	if err != nil {
		r.fail(logger, o.RunID, ProfileCompliance, start, err)
		return nil, err
	}
	criteria, reqs, cands, err := compliance.Pivot(report, regs)
	if err != nil {
		r.fail(logger, o.RunID, ProfileCompliance, start, err)
		return nil, err
	}

	res := &ComplianceResult{Report: report}
	if len(cands) == 0 {
		res.RankingSkipped = "no entity has a finding for every regulation"
		logger.Warn("compliance ranking skipped", "reason", res.RankingSkipped)
		if r.metrics != nil {
			r.metrics.RecordRun(ProfileCompliance, metrics.OutcomeCompleted, time.Since(start), 0, 0)
		}
		logger.Info("compliance checked", "compliant", report.Compliant, "non_compliant", report.NonCompliant)
		return res, nil
	}

	rc, err := r.cfg.ToRunConfig(config.Profile{IDColumn: "Entity", Criteria: criteria, Requirements: reqs}, o)
	if err != nil {
		r.fail(logger, o.RunID, ProfileCompliance, start, err)
		return nil, err
	}
	if len(cands) < scoring.MinNormalizationCandidates {
		rc.SingleCandidate = scoring.RawOnSingle
	}

	rs, err := r.Evaluate(ctx, ProfileCompliance, rc, cands)
	if err != nil {
		return nil, err
	}
	res.Results = rs

	logger.Info("compliance checked", "compliant", report.Compliant, "non_compliant", report.NonCompliant)
	return res, nil
}

// RunKPI computes KPI performance, the per-KPI summary and the trend.
func (r *Runner) RunKPI(t *dataset.Table) (*kpi.Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID, "profile", ProfileKPI)

	records, err := kpi.FromTable(t)
	if err != nil {
		r.fail(logger, runID, ProfileKPI, start, err)
		return nil, err
	}
	report := kpi.Track(records)

	onTrack := 0
	for _, s := range report.Summary {
		onTrack += s.OnTrackCount
	}
	if r.metrics != nil {
		r.metrics.RecordRun(ProfileKPI, metrics.OutcomeCompleted, time.Since(start), len(records), len(records)-onTrack)
	}
	logger.Info("kpis tracked", "records", len(records), "kpis", len(report.Summary), "on_track", onTrack)
	return report, nil
}

// Listen subscribes to run requests and returns. Requests are served in the
// background until ctx is done, which also ends the subscription. Each
// request is an independent run; its outcome goes out as a completed or
// failed event.
func (r *Runner) Listen(ctx context.Context) error {
	if r.hermes == nil {
		return nil
	}
	return r.hermes.Subscribe(ctx, hermes.SubjectRunRequest, func(_ string, data []byte) {
		r.HandleRequest(ctx, data)
	})
}

// HandleRequest decodes and runs one RunRequestEvent.
func (r *Runner) HandleRequest(ctx context.Context, data []byte) {
	var ev hermes.RunRequestEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		r.logger.Warn("invalid run request", "error", err)
		return
	}
	_, _ = r.Run(ctx, Request{
		Profile: ev.Profile,
		Table:   &dataset.Table{Source: hermes.SubjectRunRequest, Columns: ev.Columns, Rows: ev.Rows},
		Overrides: config.Overrides{
			RunID:     ev.RunID,
			Weights:   ev.Weights,
			Threshold: ev.Threshold,
			Method:    ev.Method,
		},
		Advise: ev.Advise,
	})
}
