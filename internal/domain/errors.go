package domain

import (
	"errors"
	"fmt"
)

// DecodeErrorKind classifies row decoding failures. The set is closed; switch
// statements over it should be exhaustive.
type DecodeErrorKind string

const (
	DecodeMissingField        DecodeErrorKind = "missing_field"
	DecodeInvalidCoordinate   DecodeErrorKind = "invalid_coordinate"
	DecodeInvalidEmail        DecodeErrorKind = "invalid_email"
	DecodeInvalidDate         DecodeErrorKind = "invalid_date"
	DecodeInvalidRecord       DecodeErrorKind = "invalid_record"
	DecodeLicenseNotPatchable DecodeErrorKind = "license_not_patchable"
	DecodeMissingVersion      DecodeErrorKind = "missing_version"
)

// DecodeError describes why a single input row could not be decoded.
// It is row-local: decoding of subsequent rows is never affected.
type DecodeError struct {
	Kind   DecodeErrorKind
	Field  string
	Detail string
}

func (e *DecodeError) Error() string {
	switch {
	case e.Field != "" && e.Detail != "":
		return fmt.Sprintf("%s: field %q: %s", e.Kind, e.Field, e.Detail)
	case e.Field != "":
		return fmt.Sprintf("%s: field %q", e.Kind, e.Field)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	default:
		return string(e.Kind)
	}
}

// EnrichErrorKind classifies geocoding enrichment failures.
type EnrichErrorKind string

const (
	// EnrichNoResult means the provider found nothing for the address.
	EnrichNoResult EnrichErrorKind = "no_result"
	// EnrichProviderError means the provider call itself failed
	// (transport, quota, invalid response).
	EnrichProviderError EnrichErrorKind = "provider_error"
	// EnrichAmbiguous means the provider returned multiple candidates with
	// no confidence signal to rank them.
	EnrichAmbiguous EnrichErrorKind = "ambiguous_address"
)

// EnrichError describes why coordinate enrichment failed for a record.
type EnrichError struct {
	Kind   EnrichErrorKind
	Detail string
	Err    error
}

func (e *EnrichError) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EnrichError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient from the pipeline's
// viewpoint. A provider "no result" is authoritative and never retried.
func (e *EnrichError) Retryable() bool {
	return e.Kind == EnrichProviderError
}

// Sentinel errors surfaced by the catalog collaborator.
var (
	// ErrVersionConflict signals that a submitted version does not match the
	// catalog's current version for the entry. Row-local.
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized signals missing or insufficient credentials.
	// Run-scoped: it aborts the remaining batch.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound signals that the referenced entry does not exist. Row-local.
	ErrNotFound = errors.New("entry not found")
)

// CatalogError is a rejection reported by the catalog itself, e.g. a hard
// validation failure for one record. Row-local, unlike transport errors.
type CatalogError struct {
	StatusCode int
	Message    string
}

func (e *CatalogError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog rejected request (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("catalog rejected request (status %d): %s", e.StatusCode, e.Message)
}

// RowLocal reports whether err is scoped to a single row. Anything else
// (transport failures, ErrUnauthorized) escalates and stops new row intake.
func RowLocal(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return false
	}
	if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrNotFound) {
		return true
	}
	var catErr *CatalogError
	return errors.As(err, &catErr)
}
