package dataset

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

// ColumnType is the semantic type a column must hold.
type ColumnType string

const (
	Numeric  ColumnType = "numeric"
	Date     ColumnType = "date"
	Category ColumnType = "category"
)

// ColumnRequirement names a required column and its semantic type.
type ColumnRequirement struct {
	Name string
	Type ColumnType
}

// Validate checks that every required column exists and that every cell of
// it has the expected type. All missing and malformed columns are reported
// in a single SchemaError; for a malformed column the first offending row is
// named. A table without rows is an EmptyInputError. The table is not
// modified.
func Validate(t *Table, reqs []ColumnRequirement) error {
	if t == nil || len(t.Rows) == 0 {
		src := ""
		if t != nil {
			src = t.Source
		}
		return &scoring.EmptyInputError{Source: src}
	}

	var problems []scoring.ColumnProblem
	for _, req := range reqs {
		idx := t.Index(req.Name)
		if idx < 0 {
			problems = append(problems, scoring.ColumnProblem{Column: req.Name, Reason: "missing column"})
			continue
		}
		for r, row := range t.Rows {
			if idx >= len(row) {
				problems = append(problems, scoring.ColumnProblem{Column: req.Name, Row: r + 1, Reason: "row is too short"})
				break
			}
			if err := checkCell(row[idx], req.Type); err != nil {
				problems = append(problems, scoring.ColumnProblem{
					Column: req.Name,
					Row:    r + 1,
					Reason: fmt.Sprintf("expected %s: %v", req.Type, err),
				})
				break
			}
		}
	}

	if len(problems) > 0 {
		return &scoring.SchemaError{Problems: problems}
	}
	return nil
}

func checkCell(v string, typ ColumnType) error {
	switch typ {
	case Numeric:
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("empty cell")
		}
		_, err := ParseNumber(v)
		return err
	case Date:
		_, err := ParseDate(v)
		return err
	case Category:
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("empty cell")
		}
		return nil
	default:
		return fmt.Errorf("unknown column type %q", typ)
	}
}
