package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"en":      "en",
		"EN":      "en",
		"eng":     "en",
		"English": "en",
		"ger":     "de",
		"spa":     "es",
		"sin":     "si",
		"Sinhala": "si",
		"":        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLanguage(in), "input %q", in)
	}
}

func TestISO3Language(t *testing.T) {
	assert.Equal(t, "eng", ISO3Language("en"))
	assert.Equal(t, "sin", ISO3Language("si"))
	assert.Equal(t, "", ISO3Language("not-a-language"))
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "English", LanguageName("eng"))
	assert.Equal(t, "Sinhala", LanguageName("si"))
	assert.Equal(t, "Unknown", LanguageName(""))
}

func TestMatchesLanguage(t *testing.T) {
	assert.True(t, MatchesLanguage("en", "all"))
	assert.True(t, MatchesLanguage("en", ""))
	assert.True(t, MatchesLanguage("English", "eng"))
	assert.False(t, MatchesLanguage("fr", "en"))
}

func TestParseIdentifierKind(t *testing.T) {
	k, ok := ParseIdentifierKind("TMDB")
	assert.True(t, ok)
	assert.Equal(t, KindTMDB, k)

	k, ok = ParseIdentifierKind("search")
	assert.True(t, ok)
	assert.Equal(t, KindQuery, k)

	_, ok = ParseIdentifierKind("tvdb")
	assert.False(t, ok)
}

func TestMovieDescriptor_DisplayTitle(t *testing.T) {
	assert.Equal(t, "Fight Club", MovieDescriptor{CanonicalID: "550", Title: "Fight Club"}.DisplayTitle())
	assert.Equal(t, "tt0137523", MovieDescriptor{CanonicalID: "tt0137523", IMDBID: "tt0137523"}.DisplayTitle())
	assert.Equal(t, "0137523", MovieDescriptor{IMDBID: "tt0137523"}.IMDBDigits())
}

func TestClampRating(t *testing.T) {
	assert.Equal(t, 0.0, ClampRating(-1))
	assert.Equal(t, 5.0, ClampRating(9.5))
	assert.Equal(t, 3.2, ClampRating(3.2))
	assert.Equal(t, 0.0, ClampRating(math.NaN()))
	assert.Equal(t, 0.0, ClampRating(math.Inf(1)))
	assert.Equal(t, 0.0, ClampRating(math.Inf(-1)))
}
