package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

// LoadCSV reads a CSV file into a Table. The first record is the header.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	return ReadCSV(f, path)
}

// ReadCSV parses CSV from r. source names the input in errors.
func ReadCSV(r io.Reader, source string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", source, err)
	}

	if len(records) == 0 {
		return nil, &scoring.EmptyInputError{Source: source}
	}

	headers := records[0]
	headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	return &Table{
		Source:  source,
		Columns: headers,
		Rows:    records[1:],
	}, nil
}

// ResultColumns returns the header of the results table for the criteria.
func ResultColumns(idColumn string, criteria []scoring.CriterionSpec) []string {
	cols := []string{idColumn}
	for _, c := range criteria {
		cols = append(cols, "raw_"+c.Name)
	}
	for _, c := range criteria {
		cols = append(cols, "norm_"+c.Name)
	}
	return append(cols, "score", "status", "rank", "pareto_optimal", "failed_requirements")
}

// WriteResults writes one row per candidate in rank order: raw values,
// normalized values, score, status, rank, frontier flag and failed
// requirements.
func WriteResults(w io.Writer, idColumn string, rs *scoring.RankedResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultColumns(idColumn, rs.Criteria)); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, r := range rs.Results {
		row := []string{r.ID}
		for _, c := range rs.Criteria {
			row = append(row, formatFloat(r.Raw[c.Name]))
		}
		for _, c := range rs.Criteria {
			row = append(row, formatFloat(r.Values[c.Name]))
		}
		row = append(row,
			formatFloat(r.Score),
			r.Status,
			strconv.Itoa(r.Rank),
			strconv.FormatBool(r.ParetoOptimal),
			strings.Join(r.FailedRequirements, ";"),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteResultsFile writes the results table to path. Nothing is created when
// rs is nil, so a failed run leaves no partial file behind.
func WriteResultsFile(path, idColumn string, rs *scoring.RankedResultSet) error {
	if rs == nil {
		return fmt.Errorf("csv: no results to write")
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("csv: create %s: %w", path, err)
	}
	if err := WriteResults(f, idColumn, rs); err != nil {
		f.Close()      //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("csv: close %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
