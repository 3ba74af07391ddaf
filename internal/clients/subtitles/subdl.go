package subtitles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"subgate/internal/models"
)

// SubdlClient searches the subdl.com JSON API by title, or by IMDb id when
// the movie has no title.
type SubdlClient struct {
	apiKey          string
	baseURL         string
	downloadBaseURL string
	httpClient      *http.Client
	logger          zerolog.Logger
}

func NewSubdlClient(apiKey, baseURL, downloadBaseURL string, timeout time.Duration, logger zerolog.Logger) *SubdlClient {
	return &SubdlClient{
		apiKey:          apiKey,
		baseURL:         strings.TrimRight(baseURL, "/"),
		downloadBaseURL: strings.TrimRight(downloadBaseURL, "/"),
		httpClient:      &http.Client{Timeout: timeout},
		logger:          logger.With().Str("component", "subdl").Logger(),
	}
}

func (c *SubdlClient) Name() string {
	return "subdl"
}

type subdlResponse struct {
	Status    bool   `json:"status"`
	Error     string `json:"error"`
	Subtitles []struct {
		SubID       int    `json:"sd_id"`
		ReleaseName string `json:"release_name"`
		Name        string `json:"name"`
		Lang        string `json:"lang"`
		Language    string `json:"language"`
		Author      string `json:"author"`
		URL         string `json:"url"`
	} `json:"subtitles"`
}

func (c *SubdlClient) Search(ctx context.Context, movie models.MovieDescriptor, language string) ([]models.SubtitleRecord, models.Status) {
	if c.apiKey == "" {
		c.logger.Debug().Msg("No API key configured")
		return nil, models.StatusUnavailable
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("type", "movie")
	title := movie.Title
	switch {
	case title != "":
		params.Set("film_name", title)
		if movie.ReleaseYear > 0 {
			params.Set("year", strconv.Itoa(movie.ReleaseYear))
		}
	case movie.IMDBID != "":
		params.Set("imdb_id", movie.IMDBID)
	default:
		return nil, models.StatusEmpty
	}
	if !models.IsAllLanguages(language) {
		params.Set("languages", strings.ToUpper(models.NormalizeLanguage(language)))
	}

	result, err := c.doRequest(ctx, params)
	if err != nil {
		c.logger.Warn().Err(err).Str("movie", movie.DisplayTitle()).Msg("Search failed")
		return nil, models.StatusUnavailable
	}

	wanted := normalizeTitle(title)
	records := make([]models.SubtitleRecord, 0, len(result.Subtitles))
	for _, s := range result.Subtitles {
		if s.URL == "" {
			continue
		}
		name := s.ReleaseName
		if name == "" {
			name = s.Name
		}
		if wanted != "" && !strings.Contains(normalizeTitle(name), wanted) {
			continue
		}
		lang := s.Lang
		if lang == "" {
			lang = s.Language
		}
		code := models.NormalizeLanguage(lang)
		records = append(records, models.SubtitleRecord{
			ID:           fmt.Sprintf("subdl-%d", s.SubID),
			DisplayName:  name,
			LanguageCode: code,
			LanguageName: models.LanguageName(code),
			SourceName:   c.Name(),
			DownloadRef:  c.downloadBaseURL + "/" + strings.TrimLeft(s.URL, "/"),
			Uploader:     s.Author,
			FileFormat:   formatFromName(s.URL),
			Verified:     true,
		})
	}

	c.logger.Debug().Str("movie", movie.DisplayTitle()).Int("results", len(records)).Msg("Search completed")
	return records, statusFor(records)
}

func (c *SubdlClient) doRequest(ctx context.Context, params url.Values) (*subdlResponse, error) {
	reqURL := fmt.Sprintf("%s/subtitles?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var result subdlResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode subdl response: %w", err)
	}
	if !result.Status && result.Error != "" {
		// subdl answers "not found" as status=false with an error message
		c.logger.Debug().Str("error", result.Error).Msg("Upstream reported no results")
	}
	return &result, nil
}

// HealthCheck runs a cheap imdb_id lookup.
func (c *SubdlClient) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: no API key", ErrProviderUnavailable)
	}
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("imdb_id", "tt0137523")
	_, err := c.doRequest(ctx, params)
	return err
}

// normalizeTitle lower-cases s and keeps only letters and digits, so that
// "Fight.Club.1999.1080p" contains "fightclub".
func normalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func formatFromName(name string) string {
	switch ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), "."); ext {
	case "srt", "vtt", "ass", "ssa", "sub", "zip":
		return ext
	}
	return "srt"
}
