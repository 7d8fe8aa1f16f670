package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Verdant/internal/config"
	"github.com/MikeSquared-Agency/Verdant/internal/dataset"
	"github.com/MikeSquared-Agency/Verdant/internal/pipeline"
	"github.com/MikeSquared-Agency/Verdant/internal/store"
)

type evaluateOptions struct {
	profile    string
	runID      string
	weights    []string
	threshold  float64
	workers    int
	method     string
	output     string
	format     string
	failOnFail bool
	fromDB     bool
	query      string
}

func newEvaluateCommand(a *app, advise bool) *cobra.Command {
	o := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate [data.csv]",
		Short: "Score and rank candidates under a profile",
		Long: `Score and rank the candidates of a CSV file (or a Postgres query with
--from-db) under a named profile.

Weights, the pass threshold, the normalization method and the worker count can
be overridden per run. With --output the ranked results are written as CSV.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, a, args, advise)
		},
	}
	if advise {
		cmd.Use = "advise [data.csv]"
		cmd.Short = "Evaluate, then suggest which criterion each candidate should improve"
		cmd.Long = `Evaluate candidates under a profile, then train the advisor on the ranked
results and report criterion importances and per-candidate suggestions.

The advisor needs at least 8 candidates.`
	}

	cmd.Flags().StringVarP(&o.profile, "profile", "p", "packaging", "Evaluation profile")
	cmd.Flags().StringVar(&o.runID, "run-id", "", "Run id (default: random UUID)")
	cmd.Flags().StringArrayVarP(&o.weights, "weight", "w", nil, "Criterion weight as name=value (repeat for every criterion)")
	cmd.Flags().Float64Var(&o.threshold, "threshold", 0, "Pass threshold on the weighted score")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "Number of evaluation workers")
	cmd.Flags().StringVar(&o.method, "method", "", "Normalization method: minmax, zscore")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Write ranked results CSV to this file")
	cmd.Flags().StringVar(&o.format, "format", "table", "Summary format: table, json")
	cmd.Flags().BoolVar(&o.failOnFail, "fail-on-fail", false, "Exit with code 1 when any candidate fails")
	cmd.Flags().BoolVar(&o.fromDB, "from-db", false, "Load candidates from the configured database")
	cmd.Flags().StringVar(&o.query, "query", "", "SQL query for --from-db (default: database.query from config)")

	return cmd
}

func (o *evaluateOptions) overrides(cmd *cobra.Command) (config.Overrides, error) {
	ov := config.Overrides{RunID: o.runID, Method: o.method}
	if len(o.weights) > 0 {
		w, err := parseWeights(o.weights)
		if err != nil {
			return ov, err
		}
		ov.Weights = w
	}
	if cmd.Flags().Changed("threshold") {
		t := o.threshold
		ov.Threshold = &t
	}
	if cmd.Flags().Changed("workers") {
		n := o.workers
		ov.Workers = &n
	}
	return ov, nil
}

func (o *evaluateOptions) run(cmd *cobra.Command, a *app, args []string, advise bool) error {
	if o.format != "table" && o.format != "json" {
		return fmt.Errorf("unknown format %q (want table or json)", o.format)
	}
	ov, err := o.overrides(cmd)
	if err != nil {
		return err
	}
	tbl, err := o.loadTable(cmd.Context(), a, args)
	if err != nil {
		return err
	}

	res, err := a.runner().Run(cmd.Context(), pipeline.Request{
		Profile:   o.profile,
		Table:     tbl,
		Overrides: ov,
		Advise:    advise,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", pipeline.ErrorKind(err), err)
	}

	if o.output != "" {
		if err := dataset.WriteResultsFile(o.output, res.IDColumn, res.Results); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if o.format == "json" {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		printSummary(out, res)
		if res.Advisory != nil {
			printAdvisory(out, res.Advisory)
		}
	}

	if o.failOnFail && res.Results.Summary.Failing > 0 {
		return &FailingCandidatesError{Failing: res.Results.Summary.Failing, Total: res.Results.Summary.Count}
	}
	return nil
}

func (o *evaluateOptions) loadTable(ctx context.Context, a *app, args []string) (*dataset.Table, error) {
	if !o.fromDB {
		if len(args) != 1 {
			return nil, fmt.Errorf("a CSV file is required unless --from-db is set")
		}
		return dataset.LoadCSV(args[0])
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("--from-db does not take a CSV file")
	}

	query := o.query
	if query == "" {
		query = a.cfg.Database.Query
	}
	src, err := store.NewPostgresSource(ctx, a.cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return src.LoadTable(ctx, query)
}

// parseWeights reads repeated name=value flags.
func parseWeights(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid weight %q (want name=value)", p)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", p, err)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("weight for %q given twice", name)
		}
		out[name] = w
	}
	return out, nil
}
