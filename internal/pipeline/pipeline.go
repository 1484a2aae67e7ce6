// Package pipeline drives batch runs: it pulls decoded rows from a source,
// enriches missing coordinates, submits each record to the catalog, and
// appends exactly one report entry per row. Row-local failures never stop the
// run; transport and authentication failures do, leaving a partial report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/placesync/internal/decode"
	"github.com/couchcryptid/placesync/internal/domain"
	"github.com/couchcryptid/placesync/internal/observability"
	"github.com/couchcryptid/placesync/internal/report"
)

// Source yields decoded rows in input order. Next returns io.EOF after the
// last row; a malformed row arrives with Row.Err set, not as an error.
type Source interface {
	Next() (decode.Row, error)
}

// Enricher fills missing coordinates on a record.
type Enricher interface {
	Enrich(ctx context.Context, rec domain.Record) (domain.Record, error)
}

// GeocodeEnricher adapts a domain.Geocoder into the pipeline's Enricher.
type GeocodeEnricher struct {
	Geocoder domain.Geocoder
}

func (g GeocodeEnricher) Enrich(ctx context.Context, rec domain.Record) (domain.Record, error) {
	return domain.EnrichCoordinates(ctx, rec, g.Geocoder)
}

// RecordSubmitter classifies one enriched record against the catalog.
type RecordSubmitter interface {
	Submit(ctx context.Context, row int, rec domain.Record) (report.Entry, error)
}

// Options tunes one driver run.
type Options struct {
	// Workers is the enrich+submit fan-out. Values below 2 run sequentially.
	Workers int
	// EnrichRetries is the number of retries after a transient geocoding
	// failure. Non-transient failures are never retried.
	EnrichRetries int
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// Driver runs one batch from source exhaustion or first fatal error.
type Driver struct {
	source    Source
	enricher  Enricher
	submitter RecordSubmitter
	acc       *report.Accumulator
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	opts      Options
}

// NewDriver wires a driver for one run. Pass a nil clock to use the real one.
func NewDriver(source Source, enricher Enricher, submitter RecordSubmitter, acc *report.Accumulator, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, opts Options) *Driver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Driver{
		source:    source,
		enricher:  enricher,
		submitter: submitter,
		acc:       acc,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		opts:      opts,
	}
}

// Run processes rows until the source is exhausted or a fatal error occurs.
// On a fatal error the accumulator still holds entries for every row that
// completed, so the caller can flush a partial report.
func (d *Driver) Run(ctx context.Context) error {
	start := d.clock.Now()
	defer func() {
		d.metrics.RunDuration.Observe(d.clock.Since(start).Seconds())
	}()

	if d.opts.Workers > 1 {
		return d.runConcurrent(ctx)
	}
	return d.runSequential(ctx)
}

func (d *Driver) runSequential(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, ok, err := d.nextRow()
		if err != nil || !ok {
			return err
		}
		if row.Err != nil {
			d.append(report.Failed(row.Number, row.Err))
			continue
		}

		d.metrics.RowsInFlight.Inc()
		entry, err := d.processRow(ctx, row)
		d.metrics.RowsInFlight.Dec()
		if err != nil {
			return err
		}
		d.append(entry)
	}
}

func (d *Driver) runConcurrent(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	var readErr error
	for gctx.Err() == nil {
		row, ok, err := d.nextRow()
		if err != nil {
			readErr = err
			break
		}
		if !ok {
			break
		}
		if row.Err != nil {
			d.append(report.Failed(row.Number, row.Err))
			continue
		}

		d.metrics.RowsInFlight.Inc()
		g.Go(func() error {
			defer d.metrics.RowsInFlight.Dec()
			entry, err := d.processRow(gctx, row)
			if err != nil {
				return err
			}
			d.append(entry)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return readErr
}

// nextRow reads one row from the source. ok is false once the source is
// exhausted. The decoder is not safe for concurrent use, so all reads happen
// on the driver goroutine.
func (d *Driver) nextRow() (decode.Row, bool, error) {
	row, err := d.source.Next()
	if errors.Is(err, io.EOF) {
		return decode.Row{}, false, nil
	}
	if err != nil {
		return decode.Row{}, false, fmt.Errorf("read input: %w", err)
	}
	d.metrics.RowsDecoded.Inc()
	if row.Err != nil {
		d.metrics.DecodeErrors.Inc()
		d.logger.Warn("row failed to decode", "row", row.Number, "error", row.Err)
	}
	return row, true, nil
}

// processRow enriches and submits one well-formed row. A geocoding failure
// skips the row; any error returned is run-fatal.
func (d *Driver) processRow(ctx context.Context, row decode.Row) (report.Entry, error) {
	rec, err := d.enrich(ctx, row.Record)
	if err != nil {
		if ctx.Err() != nil {
			return report.Entry{}, ctx.Err()
		}
		d.logger.Warn("geocoding failed, skipping row", "row", row.Number, "title", row.Record.Title, "error", err)
		return report.SkippedGeocoding(row.Number, err), nil
	}
	return d.submitter.Submit(ctx, row.Number, rec)
}

// enrich resolves coordinates, retrying transient provider failures with a
// doubling backoff.
func (d *Driver) enrich(ctx context.Context, rec domain.Record) (domain.Record, error) {
	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		enriched, err := d.enricher.Enrich(ctx, rec)
		if err == nil {
			return enriched, nil
		}

		var enrichErr *domain.EnrichError
		if !errors.As(err, &enrichErr) || !enrichErr.Retryable() || attempt >= d.opts.EnrichRetries {
			return domain.Record{}, err
		}

		d.logger.Debug("retrying geocoding", "attempt", attempt+1, "backoff", backoff)
		if err := d.sleep(ctx, backoff); err != nil {
			return domain.Record{}, err
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (d *Driver) sleep(ctx context.Context, dur time.Duration) error {
	timer := d.clock.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func (d *Driver) append(e report.Entry) {
	if err := d.acc.Append(e); err != nil {
		d.logger.Error("dropping report entry", "row", e.Row, "error", err)
	}
}
