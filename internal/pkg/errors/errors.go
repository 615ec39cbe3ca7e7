package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProviderUnavailable means the embedding provider could not be reached
	// after retries. Aborts the enclosing batch; retryable.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrUnknownOntology means resolution was requested against an ontology
	// that does not exist. Ontologies are never auto-created.
	ErrUnknownOntology = errors.New("unknown ontology")
	// ErrMalformedCandidate means a candidate is missing its label or is
	// otherwise unembeddable. Rejects only that candidate.
	ErrMalformedCandidate = errors.New("malformed candidate")
	// ErrVocabularyConflict means two concurrent registrations raced on the
	// same type name; the caller should reuse the winning row.
	ErrVocabularyConflict = errors.New("vocabulary registration conflict")
	// ErrReversedRelationshipType means a raw type carries the reversed-suffix
	// marker and must not be normalized onto its forward counterpart.
	ErrReversedRelationshipType = errors.New("reversed relationship type")
	// ErrEmbeddingDimsMismatch means a stored embedding and a freshly computed
	// one come from incompatible models and must not be compared.
	ErrEmbeddingDimsMismatch = errors.New("embedding dimensionality mismatch")
)
