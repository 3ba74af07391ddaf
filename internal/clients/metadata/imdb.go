package metadata

import (
	"fmt"
	"strings"
)

// IMDb has no public API, so IMDb identifiers are only validated and normalised.

// NormalizeIMDBID accepts "tt0137523" or "0137523" and returns the "tt" form.
func NormalizeIMDBID(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	id = strings.TrimPrefix(id, "tt")
	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidIMDBID, raw)
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidIMDBID, raw)
		}
	}
	return "tt" + id, nil
}
