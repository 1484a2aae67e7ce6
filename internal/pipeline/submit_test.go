package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/placesync/internal/domain"
	"github.com/couchcryptid/placesync/internal/observability"
	"github.com/couchcryptid/placesync/internal/report"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCatalog is an in-memory domain.Catalog with scriptable failures.
type fakeCatalog struct {
	mu sync.Mutex

	duplicates []domain.DuplicateCandidate
	searchErr  error
	createErr  error
	updateErr  error
	patchErr   error
	reviewErr  error

	searchCalls int
	createCalls int
	updateCalls int
	patchCalls  int

	created     []domain.Record
	reviewIDs   [][]string
	reviewCalls []domain.ReviewDecision
}

var _ domain.Catalog = (*fakeCatalog)(nil)

func (f *fakeCatalog) SearchDuplicates(_ context.Context, _ domain.Record) ([]domain.DuplicateCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.duplicates, nil
}

func (f *fakeCatalog) Create(_ context.Context, rec domain.Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, rec)
	return uuid.NewString(), nil
}

func (f *fakeCatalog) FetchByID(_ context.Context, _ string) (domain.Record, error) {
	return domain.Record{}, domain.ErrNotFound
}

func (f *fakeCatalog) Update(_ context.Context, rec domain.Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return "", f.updateErr
	}
	return rec.ID, nil
}

func (f *fakeCatalog) Patch(_ context.Context, rec domain.Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patchCalls++
	if f.patchErr != nil {
		return "", f.patchErr
	}
	return rec.ID, nil
}

func (f *fakeCatalog) SetReviewState(_ context.Context, ids []string, decision domain.ReviewDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewIDs = append(f.reviewIDs, ids)
	f.reviewCalls = append(f.reviewCalls, decision)
	return f.reviewErr
}

func placedRecord(title string) domain.Record {
	return domain.Record{
		Title:       title,
		Description: "A place",
		Pos:         &domain.Coordinates{Lat: 52.5, Lng: 13.4},
		License:     "CC0-1.0",
	}
}

func TestSubmitter_ImportCreatesWhenNoDuplicates(t *testing.T) {
	cat := &fakeCatalog{}
	s := NewSubmitter(cat, ModeImport, false, testLogger(), observability.NewMetricsForTesting())

	entry, err := s.Submit(context.Background(), 1, placedRecord("Cafe X"))
	require.NoError(t, err)
	assert.Equal(t, report.StatusImported, entry.Status)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, 1, cat.searchCalls)
	assert.Equal(t, 1, cat.createCalls)
}

func TestSubmitter_ImportSkipsOnDuplicates(t *testing.T) {
	cat := &fakeCatalog{
		duplicates: []domain.DuplicateCandidate{
			{ID: "dup-1", Title: "Cafe X", Distance: 8.5},
			{ID: "dup-2", Title: "Café X", Distance: 14.0},
		},
	}
	s := NewSubmitter(cat, ModeImport, false, testLogger(), observability.NewMetricsForTesting())

	entry, err := s.Submit(context.Background(), 1, placedRecord("Cafe X"))
	require.NoError(t, err)
	assert.Equal(t, report.StatusDuplicate, entry.Status)
	assert.Len(t, entry.Duplicates, 2, "all candidates stay in the report")
	assert.Zero(t, cat.createCalls, "a suspected duplicate must never be created")
}

func TestSubmitter_ImportIgnoreDuplicatesForcesCreate(t *testing.T) {
	cat := &fakeCatalog{
		duplicates: []domain.DuplicateCandidate{{ID: "dup-1", Title: "Cafe X"}},
	}
	s := NewSubmitter(cat, ModeImport, true, testLogger(), observability.NewMetricsForTesting())

	entry, err := s.Submit(context.Background(), 1, placedRecord("Cafe X"))
	require.NoError(t, err)
	assert.Equal(t, report.StatusImported, entry.Status)
	assert.Zero(t, cat.searchCalls, "forced create skips the duplicate scan")
	assert.Equal(t, 1, cat.createCalls)
}

func TestSubmitter_ImportCatalogRejectionIsRowLocal(t *testing.T) {
	cat := &fakeCatalog{
		createErr: &domain.CatalogError{StatusCode: 400, Message: "title too short"},
	}
	s := NewSubmitter(cat, ModeImport, true, testLogger(), observability.NewMetricsForTesting())

	entry, err := s.Submit(context.Background(), 7, placedRecord("X"))
	require.NoError(t, err, "a catalog rejection must not abort the run")
	assert.Equal(t, report.StatusError, entry.Status)
	assert.Equal(t, 7, entry.Row)
	assert.Contains(t, entry.Error, "title too short")
}

func TestSubmitter_UpdateVersionConflictIsRowLocal(t *testing.T) {
	cat := &fakeCatalog{updateErr: domain.ErrVersionConflict}
	s := NewSubmitter(cat, ModeUpdate, false, testLogger(), observability.NewMetricsForTesting())

	rec := placedRecord("Cafe X")
	rec.ID = "abc-123"
	rec.Version = 3

	entry, err := s.Submit(context.Background(), 2, rec)
	require.NoError(t, err)
	assert.Equal(t, report.StatusError, entry.Status)
	assert.Contains(t, entry.Error, "version conflict")
}

func TestSubmitter_UpdateSuccess(t *testing.T) {
	cat := &fakeCatalog{}
	s := NewSubmitter(cat, ModeUpdate, false, testLogger(), observability.NewMetricsForTesting())

	rec := placedRecord("Cafe X")
	rec.ID = "abc-123"
	rec.Version = 5

	entry, err := s.Submit(context.Background(), 1, rec)
	require.NoError(t, err)
	assert.Equal(t, report.StatusUpdated, entry.Status)
	assert.Equal(t, "abc-123", entry.ID)
	assert.Equal(t, 1, cat.updateCalls)
	assert.Zero(t, cat.patchCalls)
}

func TestSubmitter_PatchUsesPatchOperation(t *testing.T) {
	cat := &fakeCatalog{}
	s := NewSubmitter(cat, ModePatch, false, testLogger(), observability.NewMetricsForTesting())

	rec := placedRecord("Cafe X")
	rec.ID = "abc-123"
	rec.Version = 5

	entry, err := s.Submit(context.Background(), 1, rec)
	require.NoError(t, err)
	assert.Equal(t, report.StatusUpdated, entry.Status)
	assert.Equal(t, 1, cat.patchCalls)
	assert.Zero(t, cat.updateCalls)
}

func TestSubmitter_UnauthorizedIsFatal(t *testing.T) {
	cat := &fakeCatalog{createErr: domain.ErrUnauthorized}
	s := NewSubmitter(cat, ModeImport, true, testLogger(), observability.NewMetricsForTesting())

	_, err := s.Submit(context.Background(), 1, placedRecord("Cafe X"))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSubmitter_TransportErrorIsFatal(t *testing.T) {
	cat := &fakeCatalog{searchErr: errors.New("catalog unavailable: status 502")}
	s := NewSubmitter(cat, ModeImport, false, testLogger(), observability.NewMetricsForTesting())

	_, err := s.Submit(context.Background(), 1, placedRecord("Cafe X"))
	require.Error(t, err)
	assert.Zero(t, cat.createCalls)
}
