package subtitles

import (
	"context"
	"errors"

	"subgate/internal/models"
)

// ErrProviderUnavailable marks adapter failures in logs and attempt traces.
var ErrProviderUnavailable = errors.New("subtitle provider unavailable")

// Adapter is the interface for all subtitle providers. Search never returns an
// error: upstream failures are logged and reported as StatusUnavailable.
type Adapter interface {
	Name() string
	Search(ctx context.Context, movie models.MovieDescriptor, language string) ([]models.SubtitleRecord, models.Status)
}

// HealthChecker is implemented by adapters that talk to a remote upstream.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

func statusFor(records []models.SubtitleRecord) models.Status {
	if len(records) == 0 {
		return models.StatusEmpty
	}
	return models.StatusOK
}
