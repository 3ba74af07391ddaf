package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgate/internal/clients/subtitles"
	"subgate/internal/models"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:03,000\nThe first rule of Fight Club is\n\n"

// newTestFetcher allows 127.0.0.1, where httptest servers listen.
func newTestFetcher(rules ...MirrorRule) *Fetcher {
	return NewFetcher(FetcherOptions{
		Timeout:      2 * time.Second,
		MaxBytes:     1024,
		UserAgent:    "subgate-test/1.0",
		AllowedHosts: []string{"127.0.0.1"},
	}, rules, zerolog.Nop())
}

func assertPlaceholder(t *testing.T, a models.Artifact) {
	t.Helper()
	assert.Equal(t, "text/plain; charset=utf-8", a.MimeType)
	assert.Equal(t, "subtitle-unavailable.txt", a.SuggestedFilename)
	assert.Contains(t, string(a.Bytes), "unavailable")
}

func TestFetcher_RemoteSuccess(t *testing.T) {
	var gotUA, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="Fight.Club.1999.srt"`)
		_, _ = w.Write([]byte(sampleSRT))
	}))
	defer server.Close()

	a := newTestFetcher().Fetch(context.Background(), server.URL+"/en/subtitleserve/sub/13241133")

	assert.Equal(t, "application/x-subrip", a.MimeType)
	assert.Equal(t, "Fight.Club.1999.srt", a.SuggestedFilename)
	assert.Equal(t, sampleSRT, string(a.Bytes))
	assert.Equal(t, len(sampleSRT), a.Size())
	assert.Equal(t, "subgate-test/1.0", gotUA)
	assert.Equal(t, server.URL+"/", gotReferer)
}

func TestFetcher_FilenameFallbacks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".vtt") {
			w.Header().Set("Content-Type", "text/vtt")
		}
		_, _ = w.Write([]byte(sampleSRT))
	}))
	defer server.Close()

	f := newTestFetcher()

	a := f.Fetch(context.Background(), server.URL+"/files/movie.vtt")
	assert.Equal(t, "movie.vtt", a.SuggestedFilename)
	assert.Equal(t, "text/vtt", a.MimeType)

	a = f.Fetch(context.Background(), server.URL+"/en/subtitleserve/sub/42")
	assert.Equal(t, "subtitle-42.srt", a.SuggestedFilename)
}

func TestFetcher_AlternatesInOrder(t *testing.T) {
	var paths []string
	var referers []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		referers = append(referers, r.Header.Get("Referer"))
		if r.URL.Path == "/mirror-b/77" {
			_, _ = w.Write([]byte(sampleSRT))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	rule := MirrorRule{
		Host:       "127.0.0.1",
		Referer:    "{origin}/en/subtitles/{id}",
		Alternates: []string{"{origin}/mirror-a/{id}", "{origin}/mirror-b/{id}", "{origin}/mirror-c/{id}"},
	}
	a := newTestFetcher(rule).Fetch(context.Background(), server.URL+"/en/subtitleserve/sub/77")

	assert.Equal(t, sampleSRT, string(a.Bytes))
	assert.Equal(t, []string{"/en/subtitleserve/sub/77", "/mirror-a/77", "/mirror-b/77"}, paths)
	for _, ref := range referers {
		assert.Equal(t, server.URL+"/en/subtitles/77", ref)
	}
}

func TestFetcher_DetailPageDiscovery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/en/subtitles/13241133":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><body><a href="/en/subtitleserve/sub/13241133/real" download>Download</a></body></html>`))
		case "/en/subtitleserve/sub/13241133/real":
			_, _ = w.Write([]byte(sampleSRT))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	rule := MirrorRule{Host: "127.0.0.1", DetailPage: "{origin}/en/subtitles/{id}"}
	a := newTestFetcher(rule).Fetch(context.Background(), server.URL+"/en/subtitleserve/sub/13241133")

	assert.Equal(t, sampleSRT, string(a.Bytes))
	assert.Equal(t, "subtitle-13241133.srt", a.SuggestedFilename)
}

func TestFetcher_PlaceholderOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"html instead of file", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>captcha</html>"))
		}},
		{"too large", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
		}},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			assertPlaceholder(t, newTestFetcher().Fetch(context.Background(), server.URL+"/sub/1"))
		})
	}
}

func TestFetcher_UnsupportedRefs(t *testing.T) {
	f := newTestFetcher()
	for _, ref := range []string{"", "ftp://example.com/a.srt", "not a url", "generate:unknown?x=1"} {
		a := f.Fetch(context.Background(), ref)
		assertPlaceholder(t, a)
		assert.Equal(t, len(a.Bytes), a.Size())
	}
}

func TestFetcher_RejectsUnconfiguredHosts(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("INTERNAL-SECRET aws_access_key=AKIA"))
	}))
	defer server.Close()

	f := NewFetcher(FetcherOptions{
		Timeout:      2 * time.Second,
		AllowedHosts: []string{"www.opensubtitles.org"},
	}, DefaultMirrorRules(), zerolog.Nop())

	a := f.Fetch(context.Background(), server.URL+"/latest/meta-data/creds.txt")
	assertPlaceholder(t, a)
	assert.NotContains(t, string(a.Bytes), "INTERNAL-SECRET")

	a = f.Fetch(context.Background(), strings.Replace(server.URL, "127.0.0.1", "localhost", 1)+"/sub/1")
	assertPlaceholder(t, a)
	assert.Zero(t, hits)
}

func TestFetcher_RedirectToUnconfiguredHost(t *testing.T) {
	var internalHits int
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		internalHits++
		_, _ = w.Write([]byte(sampleSRT))
	}))
	defer internal.Close()

	// The allowed upstream is reached through 127.0.0.1, the internal one through localhost.
	internalURL := strings.Replace(internal.URL, "127.0.0.1", "localhost", 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internalURL+"/secret", http.StatusFound)
	}))
	defer upstream.Close()

	a := newTestFetcher().Fetch(context.Background(), upstream.URL+"/sub/1")

	assertPlaceholder(t, a)
	assert.Zero(t, internalHits)
}

func TestFetcher_UnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL + "/sub/1"
	server.Close()

	assertPlaceholder(t, newTestFetcher(DefaultMirrorRules()...).Fetch(context.Background(), target))
}

func TestFetcher_SyntheticRoundTrip(t *testing.T) {
	synthetic := subtitles.NewSyntheticClient(zerolog.Nop())
	f := newTestFetcher()

	for _, r := range synthetic.Generate(testMovie, "all", 3) {
		a := f.Fetch(context.Background(), r.DownloadRef)

		assert.Contains(t, string(a.Bytes), r.DisplayName)
		assert.Contains(t, string(a.Bytes), r.Uploader)
		assert.True(t, strings.HasSuffix(a.SuggestedFilename, "."+r.FileFormat), a.SuggestedFilename)
		if r.FileFormat == "vtt" {
			assert.Equal(t, "text/vtt", a.MimeType)
		} else {
			assert.Equal(t, "application/x-subrip", a.MimeType)
		}
	}
}

func TestFetcher_SinhalaRoundTrip(t *testing.T) {
	records, _ := subtitles.NewSinhalaClient([]string{"Baiscope"}, zerolog.Nop()).
		Search(context.Background(), testMovie, "si")
	require.Len(t, records, 1)

	a := newTestFetcher().Fetch(context.Background(), records[0].DownloadRef)

	assert.Contains(t, string(a.Bytes), "Baiscope")
	assert.Contains(t, string(a.Bytes), "Fight Club (1999)")
	assert.Equal(t, "Fight Club (1999) Sinhala Subtitles - Baiscope.srt", a.SuggestedFilename)
}

func TestToVTT(t *testing.T) {
	a := ToVTT(models.Artifact{MimeType: "application/x-subrip", SuggestedFilename: "movie.srt", Bytes: []byte(sampleSRT)})
	assert.Equal(t, "text/vtt", a.MimeType)
	assert.Equal(t, "movie.vtt", a.SuggestedFilename)
	assert.True(t, strings.HasPrefix(string(a.Bytes), "WEBVTT"))
	assert.Contains(t, string(a.Bytes), "00:00:01.000 --> 00:00:03.000")

	zip := models.Artifact{MimeType: "application/zip", SuggestedFilename: "a.zip", Bytes: []byte("PK\x03\x04")}
	assert.Equal(t, zip, ToVTT(zip))
}
