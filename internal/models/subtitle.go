package models

import (
	"math"
	"strings"
)

type IdentifierKind string

const (
	KindTMDB  IdentifierKind = "tmdb"
	KindIMDB  IdentifierKind = "imdb"
	KindQuery IdentifierKind = "query"
)

// ParseIdentifierKind accepts the kind names used in gateway paths.
func ParseIdentifierKind(s string) (IdentifierKind, bool) {
	switch IdentifierKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindTMDB:
		return KindTMDB, true
	case KindIMDB:
		return KindIMDB, true
	case KindQuery, "search":
		return KindQuery, true
	}
	return "", false
}

// MovieDescriptor is the canonical movie every adapter searches for.
// It is built once per request and passed by value.
type MovieDescriptor struct {
	CanonicalID   string `json:"canonical_id"`
	IMDBID        string `json:"imdb_id,omitempty"`
	Title         string `json:"title,omitempty"`
	OriginalTitle string `json:"original_title,omitempty"`
	ReleaseYear   int    `json:"release_year,omitempty"`
	Overview      string `json:"overview,omitempty"`
	PosterURL     string `json:"poster_url,omitempty"`
}

// DisplayTitle is the best human-readable name available for the movie.
func (m MovieDescriptor) DisplayTitle() string {
	switch {
	case m.Title != "":
		return m.Title
	case m.OriginalTitle != "":
		return m.OriginalTitle
	case m.IMDBID != "":
		return m.IMDBID
	}
	return m.CanonicalID
}

// IMDBDigits returns the IMDb id without its "tt" prefix.
func (m MovieDescriptor) IMDBDigits() string {
	return strings.TrimPrefix(m.IMDBID, "tt")
}

type Status string

const (
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusUnavailable Status = "unavailable"
)

// SubtitleRecord is one downloadable subtitle file. DownloadRef is either an
// absolute http(s) URL or a "generate:<kind>?..." token for local generation.
type SubtitleRecord struct {
	ID            string  `json:"id"`
	DisplayName   string  `json:"name"`
	LanguageCode  string  `json:"language_code"`
	LanguageName  string  `json:"language"`
	SourceName    string  `json:"source"`
	DownloadRef   string  `json:"download_ref"`
	Rating        float64 `json:"rating"`
	DownloadCount int     `json:"download_count"`
	Uploader      string  `json:"uploader,omitempty"`
	FileFormat    string  `json:"format"`
	Verified      bool    `json:"verified"`
}

// Artifact is the file payload served for a download request.
type Artifact struct {
	MimeType          string
	SuggestedFilename string
	Bytes             []byte
}

func (a Artifact) Size() int {
	return len(a.Bytes)
}

// ClampRating keeps ratings inside the 0-5 scale records use. Non-finite
// values become 0.
func ClampRating(r float64) float64 {
	switch {
	case math.IsNaN(r), math.IsInf(r, 0), r < 0:
		return 0
	case r > 5:
		return 5
	}
	return r
}
