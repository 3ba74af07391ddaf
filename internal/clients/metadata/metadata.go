package metadata

import (
	"context"
	"errors"
)

var (
	ErrMovieNotFound = errors.New("movie not found")
	ErrAPIError      = errors.New("metadata API error")
	ErrInvalidIMDBID = errors.New("invalid IMDb id")
	ErrAPIKeyMissing = errors.New("metadata API key is not configured")
)

// Client is the interface for movie metadata providers.
type Client interface {
	GetMovie(ctx context.Context, id int) (*MovieResult, error)
	SearchMovies(ctx context.Context, query string) ([]MovieResult, error)
}

// MovieResult is a standardized struct for movie metadata.
type MovieResult struct {
	ID            string // Use string to accommodate different providers (e.g., tt12345)
	IMDBID        string
	Title         string
	OriginalTitle string
	Year          int
	Overview      string
	PosterURL     string
	Rating        float64
}
