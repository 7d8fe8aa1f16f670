// Package compliance checks entities against regulatory thresholds and turns
// long-format compliance rows into scoring candidates.
package compliance

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Verdant/internal/dataset"
	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

const (
	Compliant    = "Compliant"
	NonCompliant = "Non-Compliant"
)

// DataColumns are required in the compliance data table.
var DataColumns = []dataset.ColumnRequirement{
	{Name: "Entity", Type: dataset.Category},
	{Name: "Requirement", Type: dataset.Category},
	{Name: "Status", Type: dataset.Numeric},
	{Name: "Date", Type: dataset.Date},
}

// RegulationColumns are required in the regulations table.
var RegulationColumns = []dataset.ColumnRequirement{
	{Name: "Requirement", Type: dataset.Category},
	{Name: "Threshold", Type: dataset.Numeric},
}

// Regulation is a requirement with its minimum acceptable status.
type Regulation struct {
	Requirement string  `json:"requirement"`
	Description string  `json:"description,omitempty"`
	Threshold   float64 `json:"threshold"`
}

// Finding is one entity's status against one requirement.
type Finding struct {
	Entity      string    `json:"entity"`
	Requirement string    `json:"requirement"`
	Status      float64   `json:"status"`
	Threshold   float64   `json:"threshold"`
	Date        time.Time `json:"date"`
	Compliance  string    `json:"compliance"`
}

// EntitySummary counts one entity's findings and names every failed
// requirement in regulation order. A regulation the entity has no finding
// for is unmet: it is listed in Missing and in Failed.
type EntitySummary struct {
	Entity       string   `json:"entity"`
	Compliant    int      `json:"compliant"`
	NonCompliant int      `json:"non_compliant"`
	Failed       []string `json:"failed,omitempty"`
	Missing      []string `json:"missing,omitempty"`
}

// Report is the outcome of a compliance check.
type Report struct {
	Findings     []Finding       `json:"findings"`
	Entities     []EntitySummary `json:"entities"`
	Compliant    int             `json:"compliant"`
	NonCompliant int             `json:"non_compliant"`
}

// LoadRegulations reads the regulations table. Duplicate requirements are a
// SchemaError.
func LoadRegulations(t *dataset.Table) ([]Regulation, error) {
	if err := dataset.Validate(t, RegulationColumns); err != nil {
		return nil, err
	}

	seen := map[string]int{}
	var problems []scoring.ColumnProblem
	regs := make([]Regulation, 0, len(t.Rows))
	for r := range t.Rows {
		name, _ := t.Value(r, "Requirement")
		name = strings.TrimSpace(name)
		if first, dup := seen[name]; dup {
			problems = append(problems, scoring.ColumnProblem{
				Column: "Requirement",
				Row:    r + 1,
				Reason: fmt.Sprintf("duplicate requirement %q (first at row %d)", name, first),
			})
			continue
		}
		seen[name] = r + 1

		threshold, _ := t.Float(r, "Threshold")
		desc, _ := t.Value(r, "Description")
		regs = append(regs, Regulation{Requirement: name, Description: desc, Threshold: threshold})
	}
	if len(problems) > 0 {
		return nil, &scoring.SchemaError{Problems: problems}
	}
	return regs, nil
}

// Check evaluates every data row against its regulation: a row complies when
// its status is at least the threshold. Rows naming an unknown requirement
// are reported together in a SchemaError.
func Check(t *dataset.Table, regs []Regulation) (*Report, error) {
	if err := dataset.Validate(t, DataColumns); err != nil {
		return nil, err
	}

	byName := make(map[string]Regulation, len(regs))
	order := make(map[string]int, len(regs))
	for i, reg := range regs {
		byName[reg.Requirement] = reg
		order[reg.Requirement] = i
	}

	report := &Report{}
	var problems []scoring.ColumnProblem
	entityIdx := map[string]int{}
	seen := map[string]map[string]bool{}

	for r := range t.Rows {
		entity, _ := t.Value(r, "Entity")
		req, _ := t.Value(r, "Requirement")
		entity, req = strings.TrimSpace(entity), strings.TrimSpace(req)

		reg, ok := byName[req]
		if !ok {
			problems = append(problems, scoring.ColumnProblem{
				Column: "Requirement",
				Row:    r + 1,
				Reason: fmt.Sprintf("no regulation for requirement %q", req),
			})
			continue
		}

		status, _ := t.Float(r, "Status")
		ds, _ := t.Value(r, "Date")
		date, _ := dataset.ParseDate(ds)

		f := Finding{Entity: entity, Requirement: req, Status: status, Threshold: reg.Threshold, Date: date, Compliance: Compliant}
		if status < reg.Threshold {
			f.Compliance = NonCompliant
		}
		report.Findings = append(report.Findings, f)

		i, ok := entityIdx[entity]
		if !ok {
			i = len(report.Entities)
			entityIdx[entity] = i
			report.Entities = append(report.Entities, EntitySummary{Entity: entity})
		}
		if seen[entity] == nil {
			seen[entity] = map[string]bool{}
		}
		seen[entity][req] = true
		es := &report.Entities[i]
		if f.Compliance == Compliant {
			es.Compliant++
			report.Compliant++
		} else {
			es.NonCompliant++
			report.NonCompliant++
			if !slices.Contains(es.Failed, req) {
				es.Failed = append(es.Failed, req)
			}
		}
	}

	if len(problems) > 0 {
		return nil, &scoring.SchemaError{Problems: problems}
	}

	for i := range report.Entities {
		es := &report.Entities[i]
		for _, reg := range regs {
			if seen[es.Entity][reg.Requirement] {
				continue
			}
			es.Missing = append(es.Missing, reg.Requirement)
			es.Failed = append(es.Failed, reg.Requirement)
		}
		failed := es.Failed
		sort.SliceStable(failed, func(a, b int) bool { return order[failed[a]] < order[failed[b]] })
	}
	return report, nil
}

// NonCompliantFindings returns the failing findings in input order.
func (r *Report) NonCompliantFindings() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Compliance == NonCompliant {
			out = append(out, f)
		}
	}
	return out
}

// Pivot turns the findings into one candidate per entity with one criterion
// per regulation. Every criterion is maximized with an equal weight, and each
// regulation becomes a ">=" requirement on the raw status. When an entity has
// several findings for a requirement the latest date wins, later rows winning
// ties. Entities with missing findings have no defined value for every
// criterion and are left out; the result may hold no candidates.
func Pivot(report *Report, regs []Regulation) ([]scoring.CriterionSpec, []scoring.Requirement, []scoring.Candidate, error) {
	if len(regs) == 0 {
		return nil, nil, nil, &scoring.EmptyInputError{Source: "regulations"}
	}
	if report == nil || len(report.Entities) == 0 {
		return nil, nil, nil, &scoring.EmptyInputError{Source: "compliance data"}
	}

	weight := 1.0 / float64(len(regs))
	criteria := make([]scoring.CriterionSpec, len(regs))
	reqs := make([]scoring.Requirement, len(regs))
	for i, reg := range regs {
		criteria[i] = scoring.CriterionSpec{Name: reg.Requirement, Orientation: scoring.Maximize, Weight: weight}
		reqs[i] = scoring.Requirement{
			Name:       reg.Requirement,
			Criterion:  reg.Requirement,
			Comparator: scoring.AtLeast,
			Threshold:  reg.Threshold,
		}
	}

	type latest struct {
		value float64
		date  time.Time
	}
	values := map[string]map[string]latest{}
	for _, f := range report.Findings {
		m := values[f.Entity]
		if m == nil {
			m = map[string]latest{}
			values[f.Entity] = m
		}
		if prev, ok := m[f.Requirement]; ok && f.Date.Before(prev.date) {
			continue
		}
		m[f.Requirement] = latest{value: f.Status, date: f.Date}
	}

	cands := make([]scoring.Candidate, 0, len(report.Entities))
	for _, es := range report.Entities {
		if len(es.Missing) > 0 {
			continue
		}
		c := scoring.Candidate{ID: es.Entity, Values: make(map[string]float64, len(regs))}
		for _, reg := range regs {
			c.Values[reg.Requirement] = values[es.Entity][reg.Requirement].value
		}
		cands = append(cands, c)
	}
	return criteria, reqs, cands, nil
}
