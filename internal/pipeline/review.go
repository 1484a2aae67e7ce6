package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/placesync/internal/decode"
	"github.com/couchcryptid/placesync/internal/domain"
	"github.com/couchcryptid/placesync/internal/observability"
	"github.com/couchcryptid/placesync/internal/report"
)

// ReviewSource yields decoded review assignment rows. Next returns io.EOF
// after the last row.
type ReviewSource interface {
	Next() (decode.ReviewRow, error)
}

// Reviewer applies moderation decisions against the catalog. Assignments
// sharing the same decision travel in one catalog call, but the report still
// carries one entry per input row.
type Reviewer struct {
	catalog domain.Catalog
	acc     *report.Accumulator
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewReviewer wires a reviewer for one run.
func NewReviewer(catalog domain.Catalog, acc *report.Accumulator, logger *slog.Logger, metrics *observability.Metrics) *Reviewer {
	return &Reviewer{
		catalog: catalog,
		acc:     acc,
		logger:  logger,
		metrics: metrics,
	}
}

// Run reads the whole input, groups assignments by decision, and applies each
// group. The full input is read up front: grouping needs the complete set
// before the first catalog call. A non-row-local failure aborts the remaining
// groups, leaving entries for every group applied so far.
func (r *Reviewer) Run(ctx context.Context, src ReviewSource) error {
	var assignments []domain.ReviewAssignment
	rows := make(map[domain.ReviewDecision]map[string][]int)

	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		r.metrics.RowsDecoded.Inc()
		if row.Err != nil {
			r.metrics.DecodeErrors.Inc()
			r.logger.Warn("row failed to decode", "row", row.Number, "error", row.Err)
			r.append(report.Failed(row.Number, row.Err))
			continue
		}

		a := row.Assignment
		assignments = append(assignments, a)
		if rows[a.Decision] == nil {
			rows[a.Decision] = make(map[string][]int)
		}
		rows[a.Decision][a.ID] = append(rows[a.Decision][a.ID], row.Number)
	}

	for _, group := range domain.GroupAssignments(assignments) {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := r.catalog.SetReviewState(ctx, group.IDs, group.Decision)
		if err != nil && !domain.RowLocal(err) {
			return err
		}
		if err != nil {
			r.logger.Warn("catalog rejected review group",
				"status", group.Decision.Status,
				"entries", len(group.IDs),
				"error", err,
			)
		} else {
			r.logger.Info("review decision applied",
				"status", group.Decision.Status,
				"entries", len(group.IDs),
			)
		}

		for _, id := range group.IDs {
			for _, rowNum := range rows[group.Decision][id] {
				if err != nil {
					r.metrics.Submissions.WithLabelValues(string(ModeReview), string(report.StatusError)).Inc()
					r.append(report.Failed(rowNum, err))
				} else {
					r.metrics.Submissions.WithLabelValues(string(ModeReview), string(report.StatusUpdated)).Inc()
					r.append(report.Updated(rowNum, id))
				}
			}
		}
	}
	return nil
}

func (r *Reviewer) append(e report.Entry) {
	if err := r.acc.Append(e); err != nil {
		r.logger.Error("dropping report entry", "row", e.Row, "error", err)
	}
}
