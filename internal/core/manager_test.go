package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgate/internal/config"
	"subgate/internal/models"
	"subgate/internal/utils"
)

// fakeUpstreams serves TMDB under /3 and an opensubtitles.org listing under /en.
func fakeUpstreams(t *testing.T) *httptest.Server {
	t.Helper()

	var listing strings.Builder
	listing.WriteString(`<html><body><table id="search_results">`)
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&listing, `<tr id="name%d"><td><strong><a href="/en/subtitles/%d/fight-club">Fight.Club.1999.Release%d</a></strong></td>`+
			`<td><span class="flag gb" title="English"></span></td>`+
			`<td><a href="/en/subtitleserve/sub/%d">%dx</a></td><td><span class="rating">8.0</span></td></tr>`,
			1000+i, 1000+i, i, 1000+i, i*100)
	}
	listing.WriteString(`</table></body></html>`)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/3/movie/550":
			_, _ = w.Write([]byte(`{"id": 550, "imdb_id": "tt0137523", "title": "Fight Club", "release_date": "1999-10-15"}`))
		case strings.HasPrefix(r.URL.Path, "/3/movie/"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status_code": 34, "status_message": "The resource you requested could not be found."}`))
		case r.URL.Path == "/3/search/movie":
			_, _ = w.Write([]byte(`{"results": []}`))
		case strings.HasPrefix(r.URL.Path, "/en/search/") && strings.HasSuffix(r.URL.Path, "/idmovie-0137523"):
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(listing.String()))
		case strings.HasPrefix(r.URL.Path, "/en/subtitleserve/sub/"):
			w.Header().Set("Content-Disposition", `attachment; filename="fight-club.srt"`)
			_, _ = w.Write([]byte(sampleSRT))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestManager(t *testing.T, upstream string) *Manager {
	t.Helper()
	cfg := config.Default()
	cfg.Metadata.TMDB.APIKey = "test-key"
	cfg.Metadata.TMDB.BaseURL = upstream + "/3"
	cfg.Subtitles.Providers = []string{config.ProviderOpenSubtitlesOrg, config.ProviderSubdl, config.ProviderSinhala}
	cfg.Subtitles.OpenSubtitlesOrg.BaseURL = upstream
	cfg.Subtitles.Subdl.BaseURL = upstream + "/subdl"
	cfg.Scheduler.ProbeInterval = "off"
	require.NoError(t, cfg.Validate())

	m, err := NewManager(cfg, &utils.Logger{Logger: zerolog.Nop()})
	require.NoError(t, err)
	return m
}

func TestManager_ResolveTMDB550(t *testing.T) {
	server := fakeUpstreams(t)
	defer server.Close()
	m := newTestManager(t, server.URL)

	res, err := m.ResolveByMovie(context.Background(), models.KindTMDB, "550", "all", 5)
	require.NoError(t, err)

	assert.Equal(t, "tt0137523", res.Movie.IMDBID)
	assert.False(t, res.Synthetic)
	require.Len(t, res.Subtitles, 5)
	for i := 1; i < len(res.Subtitles); i++ {
		assert.GreaterOrEqual(t, res.Subtitles[i-1].DownloadCount, res.Subtitles[i].DownloadCount)
	}
	assert.Equal(t, "osorg-1008", res.Subtitles[0].ID)
	assert.Equal(t, 11, res.Total)

	require.Len(t, res.Attempts, 3)
	assert.Equal(t, models.StatusOK, res.Attempts[0].Status)
	assert.Equal(t, models.StatusUnavailable, res.Attempts[1].Status)
	assert.Equal(t, models.StatusOK, res.Attempts[2].Status)
}

func TestManager_QueryNotFoundHasNoSynthetic(t *testing.T) {
	server := fakeUpstreams(t)
	defer server.Close()
	m := newTestManager(t, server.URL)

	res, err := m.ResolveByMovie(context.Background(), models.KindQuery, "zzz-nonexistent-movie-zzz", "all", 5)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_UnknownTMDB(t *testing.T) {
	server := fakeUpstreams(t)
	defer server.Close()
	m := newTestManager(t, server.URL)

	_, err := m.ResolveByMovie(context.Background(), models.KindTMDB, "424242", "all", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_StreamCallbacks(t *testing.T) {
	server := fakeUpstreams(t)
	defer server.Close()
	m := newTestManager(t, server.URL)

	var movie models.MovieDescriptor
	var attempts []Attempt
	res, err := m.ResolveByMovieStream(context.Background(), models.KindIMDB, "tt0137523", "", 3,
		func(md models.MovieDescriptor) { movie = md },
		func(a Attempt) { attempts = append(attempts, a) })

	require.NoError(t, err)
	assert.Equal(t, "tt0137523", movie.CanonicalID)
	assert.Len(t, attempts, 3)
	assert.Equal(t, models.AllLanguages, res.Language)
	assert.Len(t, res.Subtitles, 3)
}

func TestManager_FetchListedRecord(t *testing.T) {
	server := fakeUpstreams(t)
	defer server.Close()
	m := newTestManager(t, server.URL)

	res, err := m.ResolveByMovie(context.Background(), models.KindTMDB, "550", "en", 1)
	require.NoError(t, err)
	require.Len(t, res.Subtitles, 1)

	a := m.FetchArtifact(context.Background(), res.Subtitles[0].DownloadRef)
	assert.Equal(t, sampleSRT, string(a.Bytes))
	assert.Equal(t, "fight-club.srt", a.SuggestedFilename)

	assert.Equal(t, server.URL+"/en/subtitleserve/sub/1234", m.LegacyDownloadRef("1234"))
}

func TestManager_FetchOnlyConfiguredUpstreams(t *testing.T) {
	server := fakeUpstreams(t)
	defer server.Close()
	m := newTestManager(t, server.URL)

	a := m.FetchArtifact(context.Background(), "http://169.254.169.254/latest/meta-data/")
	assert.Equal(t, "subtitle-unavailable.txt", a.SuggestedFilename)

	a = m.FetchArtifact(context.Background(), server.URL+"/en/subtitleserve/sub/1001")
	assert.Equal(t, sampleSRT, string(a.Bytes))
}

func TestManager_SchedulerDisabled(t *testing.T) {
	server := fakeUpstreams(t)
	defer server.Close()
	m := newTestManager(t, server.URL)

	require.NoError(t, m.StartScheduler())
	m.Stop()
	assert.Equal(t, []string{"opensubtitles_org", "subdl", "sinhala"}, m.ProviderNames())
}
