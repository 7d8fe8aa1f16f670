package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Verdant/internal/config"
	"github.com/MikeSquared-Agency/Verdant/internal/dataset"
	"github.com/MikeSquared-Agency/Verdant/internal/kpi"
	"github.com/MikeSquared-Agency/Verdant/internal/pipeline"
)

func newComplianceCommand(a *app) *cobra.Command {
	var (
		format     string
		output     string
		failOnFail bool
	)
	cmd := &cobra.Command{
		Use:   "compliance <data.csv> <regulations.csv>",
		Short: "Check entities against regulation thresholds",
		Long: `Check every Entity/Requirement/Status/Date row of data.csv against the
Requirement/Threshold rows of regulations.csv.

Entities with a finding for every regulation are then scored with each
regulation as a requirement, so an entity fails when any of its latest
findings is below threshold. A regulation with no finding counts as unmet.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := dataset.LoadCSV(args[0])
			if err != nil {
				return err
			}
			regs, err := dataset.LoadCSV(args[1])
			if err != nil {
				return err
			}

			res, err := a.runner().RunCompliance(cmd.Context(), data, regs, config.Overrides{})
			if err != nil {
				return fmt.Errorf("%s: %w", pipeline.ErrorKind(err), err)
			}
			if output != "" && res.Results != nil {
				if err := dataset.WriteResultsFile(output, "Entity", res.Results); err != nil {
					return err
				}
			}

			if format == "json" {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				printCompliance(cmd.OutOrStdout(), res.Report, res.Results, res.RankingSkipped)
			}

			if failOnFail {
				failing := 0
				for _, e := range res.Report.Entities {
					if len(e.Failed) > 0 {
						failing++
					}
				}
				if failing > 0 {
					return &FailingCandidatesError{Failing: failing, Total: len(res.Report.Entities)}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the entity ranking CSV to this file")
	cmd.Flags().BoolVar(&failOnFail, "fail-on-fail", false, "Exit with code 1 when any finding is non-compliant")

	return cmd
}

func newKPICommand(a *app) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "kpi <kpis.csv>",
		Short: "Track KPI performance against targets",
		Long: `Compute the performance of every KPI/Target/Actual/Date row as a percentage
of target, classify it as On Track or Needs Improvement, and summarize each KPI
with its trend over time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := dataset.LoadCSV(args[0])
			if err != nil {
				return err
			}
			rep, err := a.runner().RunKPI(tbl)
			if err != nil {
				return fmt.Errorf("%s: %w", pipeline.ErrorKind(err), err)
			}
			if output != "" {
				if err := writeKPIFile(output, rep); err != nil {
					return err
				}
			}
			if format == "json" {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			printKPI(cmd.OutOrStdout(), rep)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write per-row performance CSV to this file")

	return cmd
}

func writeKPIFile(path string, rep *kpi.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := kpi.WriteCSV(f, rep.Records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newProfilesCommand(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List evaluation profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if format == "json" {
				return printJSON(out, a.cfg.Profiles)
			}
			for _, name := range a.cfg.ProfileNames() {
				p := a.cfg.Profiles[name]
				fmt.Fprintf(out, "%s (id column %s)", name, p.IDColumn)
				if p.Advisor {
					fmt.Fprint(out, " [advisor]")
				}
				fmt.Fprintln(out)
				if p.Description != "" {
					fmt.Fprintf(out, "  %s\n", p.Description)
				}
				for _, c := range p.Criteria {
					fmt.Fprintf(out, "  - %s: %s, weight %.2f\n", c.Name, c.Orientation, c.Weight)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	return cmd
}
