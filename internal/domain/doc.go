// Package domain models candidate place entries and the capabilities used to
// reconcile them against a remote catalog.
//
// # Records
//
// A [Record] is one candidate entry, built once per input row by the decoders in
// internal/decode, optionally mutated once by [EnrichCoordinates] to fill in
// missing coordinates, and never mutated after submission. New entries carry no
// ID; update, patch and review targets carry the catalog-assigned opaque ID and
// a caller-supplied version number.
//
// # Field conventions
//
//	Coordinates:  WGS-84 decimal degrees, lat ∈ [-90, 90], lng ∈ [-180, 180].
//	              A nil Pos means "needs geocoding".
//	Founded date: fixed "2006-01-02" layout, see [DateFormat].
//	Tags:         comma-separated in tabular input, split by [ParseTags];
//	              empty segments dropped, case-sensitive dedupe, first
//	              appearance wins.
//	License:      free-text identifier, mandatory on create, forbidden on patch.
//
// # Duplicate checking
//
// The catalog performs its own proximity scan (documented default radius:
// [DefaultDuplicateRadiusMeters]) and returns [DuplicateCandidate] references.
// The pipeline never re-implements that geometry; it only interprets the
// catalog's decision. On any duplicate signal the record is not created, so a
// false negative is always preferred over an accidental duplicate entry.
//
// # Error taxonomy
//
// Row-scoped failures are closed typed errors ([DecodeError], [EnrichError],
// [CatalogError]) recorded in the run report without affecting sibling rows.
// Run-scoped failures surface as sentinel errors ([ErrUnauthorized]) or plain
// transport errors and abort the remaining batch.
package domain
