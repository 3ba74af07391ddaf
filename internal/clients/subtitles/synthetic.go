package subtitles

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subgate/internal/models"
)

var (
	syntheticQualities = []string{"BluRay.1080p", "WEB-DL.720p", "WEBRip.2160p", "HDRip", "DVDRip"}
	syntheticFormats   = []string{"srt", "srt", "vtt"}
	syntheticUploaders = []string{"SubtitleBot", "CinemaSubs", "MovieFan", "AutoSync", "OpenSubsTeam"}

	syntheticNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("subgate/synthetic"))
)

// SyntheticClient manufactures placeholder records when no real provider has
// anything. Output depends only on the movie, the language and the count.
type SyntheticClient struct {
	logger zerolog.Logger
}

func NewSyntheticClient(logger zerolog.Logger) *SyntheticClient {
	return &SyntheticClient{logger: logger.With().Str("component", "synthetic").Logger()}
}

func (c *SyntheticClient) Name() string {
	return "synthetic"
}

// Generate returns count unverified records whose refs only render locally.
func (c *SyntheticClient) Generate(movie models.MovieDescriptor, language string, count int) []models.SubtitleRecord {
	if count <= 0 {
		count = 1
	}
	code := "en"
	if !models.IsAllLanguages(language) {
		code = models.NormalizeLanguage(language)
	}

	seed := fnv.New64a()
	_, _ = fmt.Fprintf(seed, "%s|%s", movie.CanonicalID, code)
	rng := rand.New(rand.NewSource(int64(seed.Sum64())))

	title := movie.DisplayTitle()
	records := make([]models.SubtitleRecord, 0, count)
	for i := 0; i < count; i++ {
		quality := syntheticQualities[rng.Intn(len(syntheticQualities))]
		format := syntheticFormats[rng.Intn(len(syntheticFormats))]
		uploader := syntheticUploaders[rng.Intn(len(syntheticUploaders))]
		rating := math.Round((2.5+rng.Float64()*2.5)*10) / 10
		downloads := 100 + rng.Intn(5000)

		name := fmt.Sprintf("%s.%s.%s", title, quality, code)
		id := uuid.NewSHA1(syntheticNamespace, []byte(fmt.Sprintf("%s|%s|%d", movie.CanonicalID, code, i)))

		records = append(records, models.SubtitleRecord{
			ID:           "synthetic-" + id.String(),
			DisplayName:  name,
			LanguageCode: code,
			LanguageName: models.LanguageName(code),
			SourceName:   c.Name(),
			DownloadRef: BuildGenerateRef(GenerateRef{
				Kind:     KindPlaceholder,
				Movie:    title,
				Language: code,
				Name:     name,
				Team:     uploader,
				Format:   format,
			}),
			Rating:        rating,
			DownloadCount: downloads,
			Uploader:      uploader,
			FileFormat:    format,
			Verified:      false,
		})
	}

	c.logger.Debug().Str("movie", title).Str("language", code).Int("count", count).Msg("Synthetic records generated")
	return records
}
