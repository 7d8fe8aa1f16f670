package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/MikeSquared-Agency/Verdant/internal/advisor"
	"github.com/MikeSquared-Agency/Verdant/internal/compliance"
	"github.com/MikeSquared-Agency/Verdant/internal/kpi"
	"github.com/MikeSquared-Agency/Verdant/internal/pipeline"
	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func printSummary(w io.Writer, res *pipeline.Result) {
	rs := res.Results
	fmt.Fprintf(w, "Run %s (profile %s, method %s)\n\n", res.RunID, res.Profile, rs.Method)
	printRanking(w, res.IDColumn, rs)

	s := rs.Summary
	fmt.Fprintf(w, "\n%d candidates, %d passing, %d failing, mean score %.4f (min %.4f, max %.4f)\n",
		s.Count, s.Passing, s.Failing, s.MeanScore, s.MinScore, s.MaxScore)
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  %s: %s", f.ID, f.Status)
		if len(f.Failed) > 0 {
			fmt.Fprintf(w, " (failed: %s)", strings.Join(f.Failed, ", "))
		}
		fmt.Fprintln(w)
	}
}

func printRanking(w io.Writer, idColumn string, rs *scoring.RankedResultSet) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "RANK\t%s\tSCORE\tSTATUS\tPARETO\n", strings.ToUpper(idColumn))
	for _, r := range rs.Results {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%s\t%s\n", r.Rank, r.ID, r.Score, r.Status, yesNo(r.ParetoOptimal))
	}
	tw.Flush()
}

func printAdvisory(w io.Writer, rep *advisor.Report) {
	fmt.Fprintf(w, "\nAdvisor: %s, cv error %.6f, trained on %d candidates\n\n", rep.Params, rep.CVError, rep.TrainingSize)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCRITERION\tIMPORTANCE")
	for _, imp := range rep.Importances {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\n", imp.Rank, imp.Criterion, imp.Importance)
	}
	tw.Flush()
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CANDIDATE\tLEVER\tVALUE\tCOHORT MEAN\tGAP\tFLAGGED\tPREDICTED GAIN")
	for _, s := range rep.Suggestions {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\t%s\t%.4f\n",
			s.Candidate, s.Lever, s.Value, s.CohortMean, s.Gap, yesNo(s.Flagged), s.PredictedGain)
	}
	tw.Flush()
}

func printKPI(w io.Writer, rep *kpi.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KPI\tOBSERVATIONS\tAVG PERFORMANCE\tON TRACK")
	for _, s := range rep.Summary {
		fmt.Fprintf(tw, "%s\t%d\t%.2f%%\t%d\n", s.KPI, s.Observations, s.AveragePerformance, s.OnTrackCount)
	}
	tw.Flush()
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKPI\tPERFORMANCE")
	for _, p := range rep.Trend {
		fmt.Fprintf(tw, "%s\t%s\t%.2f%%\n", p.Date.Format("2006-01-02"), p.KPI, p.Performance)
	}
	tw.Flush()
}

func printCompliance(w io.Writer, rep *compliance.Report, rs *scoring.RankedResultSet, skipped string) {
	fmt.Fprintf(w, "%d compliant, %d non-compliant findings\n\n", rep.Compliant, rep.NonCompliant)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tCOMPLIANT\tNON-COMPLIANT\tFAILED")
	for _, e := range rep.Entities {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", e.Entity, e.Compliant, e.NonCompliant, strings.Join(e.Failed, ", "))
	}
	tw.Flush()

	if rs != nil {
		fmt.Fprintln(w)
		printRanking(w, "Entity", rs)
	} else if skipped != "" {
		fmt.Fprintf(w, "\nRanking skipped: %s\n", skipped)
	}
}
