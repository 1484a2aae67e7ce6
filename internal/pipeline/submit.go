package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/placesync/internal/domain"
	"github.com/couchcryptid/placesync/internal/observability"
	"github.com/couchcryptid/placesync/internal/report"
)

// Mode names the run mode driving submission.
type Mode string

const (
	ModeImport Mode = "import"
	ModeUpdate Mode = "update"
	ModePatch  Mode = "patch"
	ModeReview Mode = "review"
)

// Submitter invokes the catalog operation matching the run mode and
// classifies the outcome for the report.
type Submitter struct {
	catalog domain.Catalog
	mode    Mode

	// ignoreDuplicates skips the duplicate scan for every row of the batch.
	// There is no per-row override within a single run.
	ignoreDuplicates bool

	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSubmitter creates a Submitter for one run.
func NewSubmitter(catalog domain.Catalog, mode Mode, ignoreDuplicates bool, logger *slog.Logger, metrics *observability.Metrics) *Submitter {
	return &Submitter{
		catalog:          catalog,
		mode:             mode,
		ignoreDuplicates: ignoreDuplicates,
		logger:           logger,
		metrics:          metrics,
	}
}

// Submit runs one enriched record against the catalog. Row-local problems are
// classified into the returned entry; a non-nil error is run-fatal and means
// no entry was produced for the row.
func (s *Submitter) Submit(ctx context.Context, row int, rec domain.Record) (report.Entry, error) {
	var entry report.Entry
	var err error

	switch s.mode {
	case ModeImport:
		entry, err = s.submitCreate(ctx, row, rec)
	case ModeUpdate:
		entry, err = s.submitReplace(ctx, row, rec, s.catalog.Update, "update")
	case ModePatch:
		entry, err = s.submitReplace(ctx, row, rec, s.catalog.Patch, "patch")
	default:
		entry, err = report.Entry{}, fmt.Errorf("unsupported run mode %q", s.mode)
	}

	if err == nil {
		s.metrics.Submissions.WithLabelValues(string(s.mode), string(entry.Status)).Inc()
	}
	return entry, err
}

// submitCreate implements create-with-duplicate-check and forced create.
// On any duplicate signal the record is not created: on ambiguity a missed
// import beats an accidental duplicate entry.
func (s *Submitter) submitCreate(ctx context.Context, row int, rec domain.Record) (report.Entry, error) {
	if !s.ignoreDuplicates {
		candidates, err := s.catalog.SearchDuplicates(ctx, rec)
		if err != nil {
			return s.classify(row, err)
		}
		if len(candidates) > 0 {
			s.logger.Warn("possible duplicates found, skipping create",
				"row", row,
				"title", rec.Title,
				"candidates", len(candidates),
			)
			return report.Duplicate(row, candidates), nil
		}
	}

	id, err := s.catalog.Create(ctx, rec)
	if err != nil {
		return s.classify(row, err)
	}
	s.logger.Debug("record created", "row", row, "title", rec.Title, "id", id)
	return report.Imported(row, id), nil
}

func (s *Submitter) submitReplace(ctx context.Context, row int, rec domain.Record, op func(context.Context, domain.Record) (string, error), verb string) (report.Entry, error) {
	id, err := op(ctx, rec)
	if err != nil {
		return s.classify(row, err)
	}
	s.logger.Debug("record "+verb+"d", "row", row, "id", id, "version", rec.Version)
	return report.Updated(row, id), nil
}

// classify turns a catalog error into a row-local failure entry, or escalates
// it as run-fatal (connectivity, authentication).
func (s *Submitter) classify(row int, err error) (report.Entry, error) {
	if domain.RowLocal(err) {
		s.logger.Warn("catalog rejected row", "row", row, "error", err)
		return report.Failed(row, err), nil
	}
	return report.Entry{}, err
}
