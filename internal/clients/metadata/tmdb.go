package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const tmdbImageBaseURL = "https://image.tmdb.org/t/p/w500"

type TMDBClient struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewTMDBClient(apiKey, baseURL, language string, timeout time.Duration, logger zerolog.Logger) *TMDBClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TMDBClient{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

type tmdbMovie struct {
	ID            int     `json:"id"`
	IMDBID        string  `json:"imdb_id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	ReleaseDate   string  `json:"release_date"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path"`
	VoteAverage   float64 `json:"vote_average"`
}

type tmdbErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// GetMovie fetches movie details, including the IMDb id.
func (t *TMDBClient) GetMovie(ctx context.Context, id int) (*MovieResult, error) {
	if t.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	var movie tmdbMovie
	if err := t.doRequest(ctx, fmt.Sprintf("/movie/%d", id), url.Values{}, &movie); err != nil {
		return nil, err
	}

	result := toMovieResult(movie)
	t.logger.Debug().Int("id", id).Str("title", result.Title).Msg("Got movie details")
	return &result, nil
}

// SearchMovies returns TMDB search hits in provider order.
func (t *TMDBClient) SearchMovies(ctx context.Context, query string) ([]MovieResult, error) {
	if t.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")

	var searchResp struct {
		Results []tmdbMovie `json:"results"`
	}
	if err := t.doRequest(ctx, "/search/movie", params, &searchResp); err != nil {
		return nil, err
	}

	results := make([]MovieResult, 0, len(searchResp.Results))
	for _, m := range searchResp.Results {
		results = append(results, toMovieResult(m))
	}
	t.logger.Debug().Str("query", query).Int("results", len(results)).Msg("Movie search completed")
	return results, nil
}

// Ping checks that the API answers with the configured key.
func (t *TMDBClient) Ping(ctx context.Context) error {
	if t.apiKey == "" {
		return ErrAPIKeyMissing
	}
	var cfg struct {
		Images struct {
			BaseURL string `json:"base_url"`
		} `json:"images"`
	}
	return t.doRequest(ctx, "/configuration", url.Values{}, &cfg)
}

func (t *TMDBClient) doRequest(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("api_key", t.apiKey)
	if t.language != "" {
		params.Set("language", t.language)
	}
	reqURL := fmt.Sprintf("%s%s?%s", t.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The request URL carries the API key
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		t.logger.Warn().Err(err).Str("path", path).Msg("TMDB request failed")
		return fmt.Errorf("%w: %v", ErrAPIError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp tmdbErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.StatusMessage != "" {
			t.logger.Warn().Int("status", resp.StatusCode).Str("message", errResp.StatusMessage).Msg("TMDB API error")
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrMovieNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrAPIError, err)
	}
	return nil
}

func toMovieResult(m tmdbMovie) MovieResult {
	year := 0
	if m.ReleaseDate != "" {
		if releaseTime, err := time.Parse("2006-01-02", m.ReleaseDate); err == nil {
			year = releaseTime.Year()
		}
	}

	posterURL := ""
	if m.PosterPath != "" {
		posterURL = tmdbImageBaseURL + m.PosterPath
	}

	return MovieResult{
		ID:            strconv.Itoa(m.ID),
		IMDBID:        m.IMDBID,
		Title:         m.Title,
		OriginalTitle: m.OriginalTitle,
		Year:          year,
		Overview:      m.Overview,
		PosterURL:     posterURL,
		Rating:        m.VoteAverage,
	}
}
