// Package report accumulates per-row outcomes into the durable, ordered
// report a batch run produces. The accumulator is append-only: a row's entry
// is immutable once set, and a partial report can be flushed at any time.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/placesync/internal/domain"
)

// Status classifies one row's outcome.
type Status string

const (
	StatusImported  Status = "imported"
	StatusUpdated   Status = "updated"
	StatusDuplicate Status = "duplicate"
	StatusSkipped   Status = "skipped"
	StatusError     Status = "error"
)

// ReasonGeocodingFailed marks rows skipped because no coordinates could be
// resolved for their address.
const ReasonGeocodingFailed = "geocoding_failed"

// Entry is the outcome for one input row, keyed by the row's original
// 1-based number.
type Entry struct {
	Row        int                         `json:"row"`
	ID         string                      `json:"id,omitempty"`
	Status     Status                      `json:"status"`
	Duplicates []domain.DuplicateCandidate `json:"duplicates,omitempty"`
	Reason     string                      `json:"reason,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

// Imported records a successful create with the catalog-assigned ID.
func Imported(row int, id string) Entry {
	return Entry{Row: row, ID: id, Status: StatusImported}
}

// Updated records a successful update or patch.
func Updated(row int, id string) Entry {
	return Entry{Row: row, ID: id, Status: StatusUpdated}
}

// Duplicate records a row the catalog refused to create because of possible
// duplicates. All candidates are retained so a reviewer sees the full
// conflict set.
func Duplicate(row int, candidates []domain.DuplicateCandidate) Entry {
	return Entry{Row: row, Status: StatusDuplicate, Duplicates: candidates}
}

// SkippedGeocoding records a row whose coordinates could not be resolved.
func SkippedGeocoding(row int, err error) Entry {
	return Entry{Row: row, Status: StatusSkipped, Reason: ReasonGeocodingFailed, Error: err.Error()}
}

// Failed records a row-local failure (decode error, catalog rejection,
// version conflict).
func Failed(row int, err error) Entry {
	return Entry{Row: row, Status: StatusError, Error: err.Error()}
}

// Summary counts entries by outcome.
type Summary struct {
	Total      int `json:"total"`
	Imported   int `json:"imported"`
	Updated    int `json:"updated"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Report is the serialized outcome of one batch run, entries in original
// row order.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Mode        string    `json:"mode"`
	Summary     Summary   `json:"summary"`
	Entries     []Entry   `json:"entries"`
}

// Accumulator collects entries, safe for concurrent append when the driver
// fans out rows. One accumulator per run.
type Accumulator struct {
	mode  string
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[int]Entry
}

// NewAccumulator creates an accumulator for the given run mode. Pass nil to
// use the real clock.
func NewAccumulator(mode string, clock clockwork.Clock) *Accumulator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Accumulator{
		mode:    mode,
		clock:   clock,
		entries: make(map[int]Entry),
	}
}

// Append records the outcome for one row. Exactly one entry per row: a
// second append for the same row number is a programming error and rejected.
func (a *Accumulator) Append(e Entry) error {
	if e.Row <= 0 {
		return fmt.Errorf("report entry has invalid row number %d", e.Row)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.entries[e.Row]; exists {
		return fmt.Errorf("report already has an entry for row %d", e.Row)
	}
	a.entries[e.Row] = e
	return nil
}

// Len returns the number of entries recorded so far.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Snapshot returns the report accumulated so far, entries sorted by row
// number. Safe to call mid-run for partial flushes.
func (a *Accumulator) Snapshot() Report {
	a.mu.Lock()
	entries := make([]Entry, 0, len(a.entries))
	for _, e := range a.entries {
		entries = append(entries, e)
	}
	a.mu.Unlock()

	slices.SortFunc(entries, func(x, y Entry) int { return x.Row - y.Row })

	var s Summary
	for _, e := range entries {
		s.Total++
		switch e.Status {
		case StatusImported:
			s.Imported++
		case StatusUpdated:
			s.Updated++
		case StatusDuplicate:
			s.Duplicates++
		case StatusSkipped:
			s.Skipped++
		case StatusError:
			s.Failed++
		}
	}

	return Report{
		GeneratedAt: a.clock.Now().UTC(),
		Mode:        a.mode,
		Summary:     s,
		Entries:     entries,
	}
}

// Write serializes the current snapshot as indented JSON.
func (a *Accumulator) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.Snapshot()); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteFile writes the current snapshot to path, creating or truncating it.
func (a *Accumulator) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := a.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}
	return nil
}
