package core

import (
	"errors"
	"fmt"

	"subgate/internal/models"
)

var (
	ErrMetadataUnavailable = errors.New("metadata provider unavailable")
	ErrNotFound            = errors.New("movie not found")
	ErrInvalidIdentifier   = errors.New("invalid movie identifier")
	// ErrArtifactUnavailable is only logged; the fetcher substitutes a placeholder.
	ErrArtifactUnavailable = errors.New("artifact unavailable")
)

// ResolveError records which identifier failed to resolve.
type ResolveError struct {
	Kind       models.IdentifierKind
	Identifier string
	Err        error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s %q: %v", e.Kind, e.Identifier, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
