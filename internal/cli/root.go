// Package cli implements the placesync command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/placesync/internal/adapter/catalog"
	"github.com/couchcryptid/placesync/internal/adapter/opencage"
	"github.com/couchcryptid/placesync/internal/config"
	"github.com/couchcryptid/placesync/internal/domain"
	"github.com/couchcryptid/placesync/internal/observability"
	"github.com/couchcryptid/placesync/internal/pipeline"
	"github.com/couchcryptid/placesync/internal/report"
)

// Exit codes reported by Execute.
const (
	// ExitOK means the run completed and the full report was written.
	// Row-local failures still exit 0; the report carries them.
	ExitOK = 0
	// ExitStartup means the run could not start; no report was produced.
	ExitStartup = 1
	// ExitAborted means the run started but did not finish; the report
	// written is partial.
	ExitAborted = 2
)

// exitError carries the process exit code alongside the underlying failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "placesync:", err)
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		return ExitStartup
	}
	return ExitOK
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "placesync",
		Short:         "Reconcile and submit place records to a remote catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// Missing .env is fine; the environment may be set directly.
			_ = godotenv.Load()
		},
	}
	cmd.AddCommand(newImportCmd(), newUpdateCmd(), newReviewCmd(), newReadCmd())
	return cmd
}

// runtime bundles the collaborators every subcommand needs.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	catalog *catalog.Client
}

var (
	// Registration with the default prometheus registry must happen at most
	// once per process.
	metricsOnce   sync.Once
	sharedMetrics *observability.Metrics
)

func runMetrics() *observability.Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = observability.NewMetrics()
	})
	return sharedMetrics
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	metrics := runMetrics()

	cat, err := catalog.NewClient(cfg.CatalogAPIURL, cfg.CatalogTimeout, logger)
	if err != nil {
		return nil, err
	}
	return &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		catalog: cat,
	}, nil
}

// enricher builds the geocoding stage. With geocoding disabled, rows without
// coordinates will be skipped with a geocoding_failed reason.
func (rt *runtime) enricher() pipeline.Enricher {
	var geocoder domain.Geocoder
	if rt.cfg.GeocodingEnabled {
		client := opencage.NewClient(rt.cfg.OpenCageAPIKey, rt.cfg.OpenCageTimeout, rt.metrics, rt.logger)
		geocoder = opencage.NewCachedGeocoder(client, rt.cfg.OpenCageCacheSize)
		rt.logger.Info("opencage geocoding enabled",
			"cache_size", rt.cfg.OpenCageCacheSize,
			"timeout", rt.cfg.OpenCageTimeout,
		)
	} else {
		rt.logger.Info("geocoding disabled, rows without coordinates will be skipped")
	}
	return pipeline.GeocodeEnricher{Geocoder: geocoder}
}

// runBatch drives one import/update/patch run and finishes the report.
func runBatch(ctx context.Context, rt *runtime, mode pipeline.Mode, src pipeline.Source, ignoreDuplicates bool, workers int, reportFile string) error {
	if workers <= 0 {
		workers = rt.cfg.PipelineWorkers
	}
	retries := rt.cfg.EnrichRetries
	if !rt.cfg.GeocodingEnabled {
		retries = 0
	}

	acc := report.NewAccumulator(string(mode), nil)
	submitter := pipeline.NewSubmitter(rt.catalog, mode, ignoreDuplicates, rt.logger, rt.metrics)
	driver := pipeline.NewDriver(src, rt.enricher(), submitter, acc, rt.logger, rt.metrics, nil, pipeline.Options{
		Workers:       workers,
		EnrichRetries: retries,
	})

	return finishRun(rt, acc, reportFile, driver.Run(ctx))
}

// finishRun writes the report, full or partial, and maps the run outcome onto
// an exit code.
func finishRun(rt *runtime, acc *report.Accumulator, reportFile string, runErr error) error {
	if err := writeReport(acc, reportFile); err != nil {
		if runErr == nil {
			return &exitError{code: ExitAborted, err: err}
		}
		rt.logger.Error("failed to write report", "error", err)
	}

	if runErr != nil {
		rt.logger.Error("run aborted, report is partial", "error", runErr, "rows_reported", acc.Len())
		return &exitError{code: ExitAborted, err: runErr}
	}

	summary := acc.Snapshot().Summary
	rt.logger.Info("run complete",
		"total", summary.Total,
		"imported", summary.Imported,
		"updated", summary.Updated,
		"duplicates", summary.Duplicates,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return nil
}

func writeReport(acc *report.Accumulator, reportFile string) error {
	if reportFile == "" {
		return acc.Write(os.Stdout)
	}
	return acc.WriteFile(reportFile)
}
