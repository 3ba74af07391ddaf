package subtitles

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"subgate/internal/models"
)

// SinhalaClient covers Sinhala subtitles, which have no queryable upstream.
// It advertises one record per known translation team, each rendered locally.
type SinhalaClient struct {
	teams  []string
	logger zerolog.Logger
}

func NewSinhalaClient(teams []string, logger zerolog.Logger) *SinhalaClient {
	return &SinhalaClient{
		teams:  teams,
		logger: logger.With().Str("component", "sinhala").Logger(),
	}
}

func (c *SinhalaClient) Name() string {
	return "sinhala"
}

func (c *SinhalaClient) Search(_ context.Context, movie models.MovieDescriptor, language string) ([]models.SubtitleRecord, models.Status) {
	if !models.IsAllLanguages(language) && models.NormalizeLanguage(language) != "si" {
		return nil, models.StatusEmpty
	}

	title := movie.DisplayTitle()
	if movie.ReleaseYear > 0 {
		title = fmt.Sprintf("%s (%d)", title, movie.ReleaseYear)
	}

	records := make([]models.SubtitleRecord, 0, len(c.teams))
	for i, team := range c.teams {
		name := fmt.Sprintf("%s Sinhala Subtitles - %s", title, team)
		records = append(records, models.SubtitleRecord{
			ID:           fmt.Sprintf("sinhala-%s-%s", slug(team), movie.CanonicalID),
			DisplayName:  name,
			LanguageCode: "si",
			LanguageName: "Sinhala",
			SourceName:   c.Name(),
			DownloadRef: BuildGenerateRef(GenerateRef{
				Kind:     KindSinhala,
				Movie:    title,
				Language: "si",
				Name:     name,
				Team:     team,
				Format:   "srt",
			}),
			// Teams keep their configured order when counts tie.
			Rating:     4.0 - float64(i)*0.1,
			Uploader:   team,
			FileFormat: "srt",
		})
	}

	c.logger.Debug().Str("movie", title).Int("results", len(records)).Msg("Team records built")
	return records, statusFor(records)
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(normalizeSpaces(s))), "-")
}

func normalizeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '_' || r == '/' {
			return ' '
		}
		return r
	}, s)
}
