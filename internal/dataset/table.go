package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

// Table is raw tabular input: a header row plus string cells.
type Table struct {
	Source  string     `json:"source,omitempty"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Index returns the position of a column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the cell at row r of the named column.
func (t *Table) Value(r int, column string) (string, bool) {
	i := t.Index(column)
	if i < 0 || r < 0 || r >= len(t.Rows) || i >= len(t.Rows[r]) {
		return "", false
	}
	return t.Rows[r][i], true
}

// Float parses the cell at row r of the named column.
func (t *Table) Float(r int, column string) (float64, error) {
	v, ok := t.Value(r, column)
	if !ok {
		return 0, fmt.Errorf("column %q not present", column)
	}
	return ParseNumber(v)
}

// ParseNumber parses a finite number, tolerating surrounding whitespace.
func ParseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
}

// ParseDate accepts ISO dates, RFC 3339 timestamps and US/slash dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognised date", s)
}

// BuildCandidates turns validated rows into candidates. The identifier is
// taken from idColumn, criterion values from the column of the same name.
// Duplicate identifiers and unparseable cells are reported together.
func BuildCandidates(t *Table, idColumn string, criteria []scoring.CriterionSpec) ([]scoring.Candidate, error) {
	if len(t.Rows) == 0 {
		return nil, &scoring.EmptyInputError{Source: t.Source}
	}

	reqs := []ColumnRequirement{{Name: idColumn, Type: Category}}
	for _, c := range criteria {
		reqs = append(reqs, ColumnRequirement{Name: c.Name, Type: Numeric})
	}
	if err := Validate(t, reqs); err != nil {
		return nil, err
	}

	idIdx := t.Index(idColumn)
	seen := make(map[string]int, len(t.Rows))
	var problems []scoring.ColumnProblem
	out := make([]scoring.Candidate, 0, len(t.Rows))

	for r, row := range t.Rows {
		id := strings.TrimSpace(row[idIdx])
		if first, dup := seen[id]; dup {
			problems = append(problems, scoring.ColumnProblem{
				Column: idColumn,
				Row:    r + 1,
				Reason: fmt.Sprintf("duplicate identifier %q (first at row %d)", id, first),
			})
			continue
		}
		seen[id] = r + 1

		c := scoring.Candidate{ID: id, Values: make(map[string]float64, len(criteria))}
		for _, crit := range criteria {
			// Validate has already checked every cell parses.
			v, _ := t.Float(r, crit.Name)
			c.Values[crit.Name] = v
		}
		out = append(out, c)
	}

	if len(problems) > 0 {
		return nil, &scoring.SchemaError{Problems: problems}
	}
	return out, nil
}
