package domain

import "context"

// DefaultDuplicateRadiusMeters is the catalog's documented proximity threshold
// for duplicate detection. Informational only: the scan runs server-side.
const DefaultDuplicateRadiusMeters = 20.0

// ReviewStatus is a moderation state an existing entry can transition to.
type ReviewStatus string

const (
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewRejected  ReviewStatus = "rejected"
	ReviewArchived  ReviewStatus = "archived"
)

// ParseReviewStatus validates a review status from input data.
func ParseReviewStatus(s string) (ReviewStatus, bool) {
	switch ReviewStatus(s) {
	case ReviewConfirmed, ReviewRejected, ReviewArchived:
		return ReviewStatus(s), true
	}
	return "", false
}

// ReviewDecision is a moderation-state transition with an optional comment.
type ReviewDecision struct {
	Status  ReviewStatus `json:"status"`
	Comment string       `json:"comment,omitempty"`
}

// ReviewAssignment binds a decision to one catalog entry ID.
type ReviewAssignment struct {
	ID       string
	Decision ReviewDecision
}

// Catalog abstracts the remote catalog service through the operations it
// exposes. Duplicate detection is the catalog's decision, not the pipeline's.
type Catalog interface {
	// SearchDuplicates asks the catalog for existing entries within its
	// proximity threshold of the record. An empty slice means safe to create.
	SearchDuplicates(ctx context.Context, rec Record) ([]DuplicateCandidate, error)

	// Create creates a new entry and returns its catalog-assigned ID.
	Create(ctx context.Context, rec Record) (string, error)

	// FetchByID reads an existing entry.
	FetchByID(ctx context.Context, id string) (Record, error)

	// Update fully replaces the entry identified by rec.ID. The catalog
	// returns ErrVersionConflict unless rec.Version matches its current
	// version for that ID.
	Update(ctx context.Context, rec Record) (string, error)

	// Patch partially updates the entry, touching only the fields present in
	// rec. Same version precondition as Update.
	Patch(ctx context.Context, rec Record) (string, error)

	// SetReviewState transitions the moderation state of the given entries.
	// Requires moderation rights; the catalog answers ErrUnauthorized
	// otherwise.
	SetReviewState(ctx context.Context, ids []string, decision ReviewDecision) error
}
