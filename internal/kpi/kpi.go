// Package kpi tracks actual-versus-target performance of sustainability KPIs.
package kpi

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Verdant/internal/dataset"
	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

const (
	StatusOnTrack          = "On Track"
	StatusNeedsImprovement = "Needs Improvement"

	// OnTrackPerformance is the performance percentage at which a KPI meets
	// its target.
	OnTrackPerformance = 100.0
)

// Columns are the columns a KPI table must carry.
var Columns = []dataset.ColumnRequirement{
	{Name: "KPI", Type: dataset.Category},
	{Name: "Target", Type: dataset.Numeric},
	{Name: "Actual", Type: dataset.Numeric},
	{Name: "Date", Type: dataset.Date},
}

// Record is one KPI observation with its computed performance.
type Record struct {
	KPI         string    `json:"kpi"`
	Target      float64   `json:"target"`
	Actual      float64   `json:"actual"`
	Date        time.Time `json:"date"`
	Performance float64   `json:"performance"`
	Status      string    `json:"status"`
}

// Summary aggregates the observations of one KPI.
type Summary struct {
	KPI                string  `json:"kpi"`
	Observations       int     `json:"observations"`
	AveragePerformance float64 `json:"average_performance"`
	OnTrackCount       int     `json:"on_track_count"`
}

// TrendPoint is the mean performance of one KPI on one date.
type TrendPoint struct {
	Date        time.Time `json:"date"`
	KPI         string    `json:"kpi"`
	Performance float64   `json:"performance"`
}

// Report is the outcome of tracking a KPI table.
type Report struct {
	Records []Record     `json:"records"`
	Summary []Summary    `json:"summary"`
	Trend   []TrendPoint `json:"trend"`
}

// Performance returns actual as a percentage of target.
func Performance(actual, target float64) (float64, error) {
	if target == 0 {
		return 0, fmt.Errorf("target is zero")
	}
	return actual * 100 / target, nil
}

// Status labels a performance percentage.
func Status(performance float64) string {
	if performance >= OnTrackPerformance {
		return StatusOnTrack
	}
	return StatusNeedsImprovement
}

// FromTable validates a KPI table and computes the performance of every row.
// Rows with a zero target are reported together in a SchemaError.
func FromTable(t *dataset.Table) ([]Record, error) {
	if err := dataset.Validate(t, Columns); err != nil {
		return nil, err
	}

	var problems []scoring.ColumnProblem
	records := make([]Record, 0, len(t.Rows))
	for r := range t.Rows {
		name, _ := t.Value(r, "KPI")
		target, _ := t.Float(r, "Target")
		actual, _ := t.Float(r, "Actual")
		ds, _ := t.Value(r, "Date")
		date, _ := dataset.ParseDate(ds)

		perf, err := Performance(actual, target)
		if err != nil {
			problems = append(problems, scoring.ColumnProblem{Column: "Target", Row: r + 1, Reason: err.Error()})
			continue
		}
		records = append(records, Record{
			KPI:         strings.TrimSpace(name),
			Target:      target,
			Actual:      actual,
			Date:        date,
			Performance: perf,
			Status:      Status(perf),
		})
	}

	if len(problems) > 0 {
		return nil, &scoring.SchemaError{Problems: problems}
	}
	return records, nil
}

// Track summarizes records per KPI and builds the per-date trend. Summaries
// are ordered by KPI name, trend points by date then KPI.
func Track(records []Record) *Report {
	type acc struct {
		sum     float64
		n       int
		onTrack int
	}
	perKPI := map[string]*acc{}
	type key struct {
		date time.Time
		kpi  string
	}
	perDay := map[key]*acc{}

	for _, rec := range records {
		a := perKPI[rec.KPI]
		if a == nil {
			a = &acc{}
			perKPI[rec.KPI] = a
		}
		a.sum += rec.Performance
		a.n++
		if rec.Status == StatusOnTrack {
			a.onTrack++
		}

		k := key{date: rec.Date.UTC(), kpi: rec.KPI}
		d := perDay[k]
		if d == nil {
			d = &acc{}
			perDay[k] = d
		}
		d.sum += rec.Performance
		d.n++
	}

	report := &Report{Records: records}
	for name, a := range perKPI {
		report.Summary = append(report.Summary, Summary{
			KPI:                name,
			Observations:       a.n,
			AveragePerformance: a.sum / float64(a.n),
			OnTrackCount:       a.onTrack,
		})
	}
	sort.Slice(report.Summary, func(i, j int) bool { return report.Summary[i].KPI < report.Summary[j].KPI })

	for k, a := range perDay {
		report.Trend = append(report.Trend, TrendPoint{Date: k.date, KPI: k.kpi, Performance: a.sum / float64(a.n)})
	}
	sort.Slice(report.Trend, func(i, j int) bool {
		if !report.Trend[i].Date.Equal(report.Trend[j].Date) {
			return report.Trend[i].Date.Before(report.Trend[j].Date)
		}
		return report.Trend[i].KPI < report.Trend[j].KPI
	})
	return report
}

// WriteCSV writes the records with their performance and status.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"KPI", "Target", "Actual", "Date", "Performance", "Status"}); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.KPI,
			strconv.FormatFloat(r.Target, 'f', -1, 64),
			strconv.FormatFloat(r.Actual, 'f', -1, 64),
			r.Date.Format("2006-01-02"),
			strconv.FormatFloat(r.Performance, 'f', 2, 64),
			r.Status,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write %s: %w", r.KPI, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
