package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Verdant/internal/api"
	"github.com/MikeSquared-Agency/Verdant/internal/hermes"
	"github.com/MikeSquared-Agency/Verdant/internal/pipeline"
)

func newServeCommand(a *app) *cobra.Command {
	var ratePerMinute int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP evaluation API and the metrics server",
		Long: `Run the HTTP evaluation API (POST /api/v1/evaluate, /advise, /compliance,
/kpi; GET /api/v1/profiles) and a separate metrics server (/health, /metrics).

When hermes.url is configured the server also publishes run events to NATS
and serves run requests arriving on verdant.run.request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), ratePerMinute)
		},
	}
	cmd.Flags().IntVar(&ratePerMinute, "rate-limit", 120, "Requests per minute per client (0 disables)")
	return cmd
}

func (a *app) serve(ctx context.Context, ratePerMinute int) error {
	cfg, logger := a.cfg, a.logger

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	runner := pipeline.NewRunner(cfg, hermesClient, a.metrics, logger)
	if err := runner.Listen(ctx); err != nil {
		return fmt.Errorf("subscribing to run requests: %w", err)
	}

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(runner, cfg.Server.AdminToken, ratePerMinute, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(a.metrics.Registry()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("API server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error("server error", "error", serveErr)
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return serveErr
}
