package subtitles

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"

	"subgate/internal/models"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// OpenSubtitlesOrgClient scrapes the opensubtitles.org HTML listing by IMDb id.
type OpenSubtitlesOrgClient struct {
	baseURL    string
	extractor  Extractor
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewOpenSubtitlesOrgClient(baseURL string, extractor Extractor, timeout time.Duration, logger zerolog.Logger) *OpenSubtitlesOrgClient {
	if extractor == nil {
		extractor = SelectorExtractor{}
	}
	return &OpenSubtitlesOrgClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		extractor:  extractor,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "opensubtitles_org").Logger(),
	}
}

func (c *OpenSubtitlesOrgClient) Name() string {
	return "opensubtitles_org"
}

// DownloadURL is the direct download location of a listing id.
func (c *OpenSubtitlesOrgClient) DownloadURL(id string) string {
	return fmt.Sprintf("%s/en/subtitleserve/sub/%s", c.baseURL, id)
}

func (c *OpenSubtitlesOrgClient) Search(ctx context.Context, movie models.MovieDescriptor, language string) ([]models.SubtitleRecord, models.Status) {
	imdbDigits := movie.IMDBDigits()
	if imdbDigits == "" {
		return nil, models.StatusEmpty
	}

	langSegment := "all"
	if !models.IsAllLanguages(language) {
		if code := models.ISO3Language(language); code != "" {
			langSegment = code
		}
	}
	searchURL := fmt.Sprintf("%s/en/search/sublanguageid-%s/idmovie-%s", c.baseURL, langSegment, imdbDigits)

	rows, err := c.fetchListing(ctx, searchURL)
	if err != nil {
		c.logger.Warn().Err(err).Str("imdb_id", movie.IMDBID).Msg("Listing fetch failed")
		return nil, models.StatusUnavailable
	}

	records := make([]models.SubtitleRecord, 0, len(rows))
	for _, row := range rows {
		code := models.NormalizeLanguage(row.Language)
		records = append(records, models.SubtitleRecord{
			ID:            "osorg-" + row.ID,
			DisplayName:   row.Name,
			LanguageCode:  code,
			LanguageName:  models.LanguageName(code),
			SourceName:    c.Name(),
			DownloadRef:   c.DownloadURL(row.ID),
			Rating:        models.ClampRating(row.Rating / 2),
			DownloadCount: row.Downloads,
			Uploader:      row.Uploader,
			FileFormat:    "srt",
			Verified:      true,
		})
	}

	c.logger.Debug().Str("imdb_id", movie.IMDBID).Int("results", len(records)).Msg("Listing parsed")
	return records, statusFor(records)
}

func (c *OpenSubtitlesOrgClient) fetchListing(ctx context.Context, searchURL string) ([]ScrapedRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode listing charset: %w", err)
	}
	return c.extractor.Extract(body)
}

// HealthCheck verifies that the site front page answers.
func (c *OpenSubtitlesOrgClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/en", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	return nil
}
