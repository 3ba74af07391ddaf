package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"subgate/internal/clients/metadata"
	"subgate/internal/models"
)

// Resolver turns an identifier of any supported kind into a MovieDescriptor.
type Resolver struct {
	client metadata.Client
	logger zerolog.Logger
}

func NewResolver(client metadata.Client, logger zerolog.Logger) *Resolver {
	return &Resolver{
		client: client,
		logger: logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve makes at most two metadata calls and never retries. Errors are
// *ResolveError wrapping ErrInvalidIdentifier, ErrNotFound or ErrMetadataUnavailable.
func (r *Resolver) Resolve(ctx context.Context, identifier string, kind models.IdentifierKind) (models.MovieDescriptor, error) {
	identifier = strings.TrimSpace(identifier)

	var (
		movie models.MovieDescriptor
		err   error
	)
	switch kind {
	case models.KindTMDB:
		movie, err = r.resolveTMDB(ctx, identifier)
	case models.KindIMDB:
		movie, err = r.resolveIMDB(identifier)
	case models.KindQuery:
		movie, err = r.resolveQuery(ctx, identifier)
	default:
		err = fmt.Errorf("%w: unknown identifier kind %q", ErrInvalidIdentifier, kind)
	}
	if err != nil {
		r.logger.Debug().Err(err).Str("kind", string(kind)).Str("identifier", identifier).Msg("Resolution failed")
		return models.MovieDescriptor{}, &ResolveError{Kind: kind, Identifier: identifier, Err: err}
	}

	r.logger.Debug().
		Str("kind", string(kind)).
		Str("identifier", identifier).
		Str("canonical_id", movie.CanonicalID).
		Str("imdb_id", movie.IMDBID).
		Msg("Movie resolved")
	return movie, nil
}

func (r *Resolver) resolveTMDB(ctx context.Context, identifier string) (models.MovieDescriptor, error) {
	id, err := strconv.Atoi(identifier)
	if err != nil || id <= 0 {
		return models.MovieDescriptor{}, fmt.Errorf("%w: TMDB id must be a positive integer", ErrInvalidIdentifier)
	}
	return r.details(ctx, id)
}

func (r *Resolver) resolveQuery(ctx context.Context, query string) (models.MovieDescriptor, error) {
	if query == "" {
		return models.MovieDescriptor{}, fmt.Errorf("%w: empty search query", ErrInvalidIdentifier)
	}

	hits, err := r.client.SearchMovies(ctx, query)
	if err != nil {
		return models.MovieDescriptor{}, mapMetadataError(err)
	}
	if len(hits) == 0 {
		return models.MovieDescriptor{}, fmt.Errorf("%w: no results for %q", ErrNotFound, query)
	}

	id, err := strconv.Atoi(hits[0].ID)
	if err != nil {
		return models.MovieDescriptor{}, fmt.Errorf("%w: malformed search hit id %q", ErrMetadataUnavailable, hits[0].ID)
	}
	return r.details(ctx, id)
}

// The IMDb path is degraded: no provider call, so only the ids are known.
func (r *Resolver) resolveIMDB(identifier string) (models.MovieDescriptor, error) {
	imdbID, err := metadata.NormalizeIMDBID(identifier)
	if err != nil {
		return models.MovieDescriptor{}, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	return models.MovieDescriptor{CanonicalID: imdbID, IMDBID: imdbID}, nil
}

func (r *Resolver) details(ctx context.Context, id int) (models.MovieDescriptor, error) {
	result, err := r.client.GetMovie(ctx, id)
	if err != nil {
		return models.MovieDescriptor{}, mapMetadataError(err)
	}
	return models.MovieDescriptor{
		CanonicalID:   result.ID,
		IMDBID:        result.IMDBID,
		Title:         result.Title,
		OriginalTitle: result.OriginalTitle,
		ReleaseYear:   result.Year,
		Overview:      result.Overview,
		PosterURL:     result.PosterURL,
	}, nil
}

func mapMetadataError(err error) error {
	if errors.Is(err, metadata.ErrMovieNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
}
