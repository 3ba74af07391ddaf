package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(server *httptest.Server) *TMDBClient {
	return NewTMDBClient("test-api-key", server.URL, "en-US", 5*time.Second, zerolog.Nop())
}

func TestTMDBClient_GetMovie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550", r.URL.Path)
		assert.Equal(t, "test-api-key", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 550,
			"imdb_id": "tt0137523",
			"title": "Fight Club",
			"original_title": "Fight Club",
			"release_date": "1999-10-15",
			"overview": "A ticking-time-bomb insomniac...",
			"poster_path": "/pB8BM7pdSp6B6Ih7QZ4DrQ3PmJK.jpg",
			"vote_average": 8.4
		}`))
	}))
	defer server.Close()

	movie, err := newTestClient(server).GetMovie(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, "550", movie.ID)
	assert.Equal(t, "tt0137523", movie.IMDBID)
	assert.Equal(t, "Fight Club", movie.Title)
	assert.Equal(t, 1999, movie.Year)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/pB8BM7pdSp6B6Ih7QZ4DrQ3PmJK.jpg", movie.PosterURL)
}

func TestTMDBClient_GetMovie_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrMovieNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrAPIError},
		{"server error", http.StatusInternalServerError, ErrAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status_code": 34, "status_message": "nope"}`))
			}))
			defer server.Close()

			_, err := newTestClient(server).GetMovie(context.Background(), 1)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTMDBClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	_, err := client.GetMovie(context.Background(), 550)
	assert.ErrorIs(t, err, ErrAPIError)
}

func TestTMDBClient_MissingKey(t *testing.T) {
	client := NewTMDBClient("", "http://127.0.0.1:1", "", time.Second, zerolog.Nop())
	_, err := client.SearchMovies(context.Background(), "Fight Club")
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestTMDBClient_SearchMovies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "inception", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"results": [
			{"id": 27205, "title": "Inception", "release_date": "2010-07-15"},
			{"id": 64956, "title": "Inception: The Cobol Job", "release_date": ""}
		]}`))
	}))
	defer server.Close()

	results, err := newTestClient(server).SearchMovies(context.Background(), "inception")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "27205", results[0].ID)
	assert.Equal(t, 2010, results[0].Year)
	assert.Equal(t, 0, results[1].Year)
}

func TestNormalizeIMDBID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"tt0137523", "tt0137523", false},
		{"0137523", "tt0137523", false},
		{" TT0137523 ", "tt0137523", false},
		{"tt", "", true},
		{"tt01x7523", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeIMDBID(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidIMDBID, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
