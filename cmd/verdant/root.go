package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Verdant/internal/config"
	"github.com/MikeSquared-Agency/Verdant/internal/metrics"
	"github.com/MikeSquared-Agency/Verdant/internal/pipeline"
)

var version = "dev"

// app holds what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	cleanup func() error
}

func newRootCommand() *cobra.Command {
	a := &app{}
	return a.rootCommand(os.Stderr)
}

func (a *app) rootCommand(logOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verdant",
		Short: "Verdant - multi-criteria sustainability evaluation",
		Long: `Verdant scores and ranks candidates (materials, suppliers, lifecycle stages)
against weighted sustainability criteria.

It normalizes each criterion, combines them into a weighted score, classifies
every candidate, and can train an advisor that suggests which criterion each
candidate should improve first.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (overrides config): debug, info, warn, error")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.load(logOut)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a.cleanup != nil {
			return a.cleanup()
		}
		return nil
	}

	cmd.AddCommand(newEvaluateCommand(a, false))
	cmd.AddCommand(newEvaluateCommand(a, true))
	cmd.AddCommand(newComplianceCommand(a))
	cmd.AddCommand(newKPICommand(a))
	cmd.AddCommand(newProfilesCommand(a))
	cmd.AddCommand(newServeCommand(a))

	return cmd
}

func (a *app) load(logOut io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logger, cleanup, err := config.NewLogger(cfg.Logging, logOut)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	a.cleanup = cleanup
	a.metrics = metrics.New()
	return nil
}

// runner builds a pipeline runner without an event bus; only serve
// connects to NATS.
func (a *app) runner() *pipeline.Runner {
	return pipeline.NewRunner(a.cfg, nil, a.metrics, a.logger)
}

func execute() error {
	return newRootCommand().ExecuteContext(context.Background())
}
