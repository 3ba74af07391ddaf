package models

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AllLanguages is the filter sentinel that disables language filtering.
const AllLanguages = "all"

// Upstreams label languages by English name more often than by code.
var languageWords = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"arabic":     "ar",
	"sinhala":    "si",
	"sinhalese":  "si",
	"hindi":      "hi",
	"dutch":      "nl",
}

// Bibliographic ISO 639-2 codes used by opensubtitles.org.
var bibliographic = map[string]string{
	"ger": "de",
	"fre": "fr",
	"chi": "zh",
	"dut": "nl",
	"pob": "pt",
}

// IsAllLanguages reports whether filter means "no language filtering".
func IsAllLanguages(filter string) bool {
	f := strings.ToLower(strings.TrimSpace(filter))
	return f == "" || f == AllLanguages
}

// NormalizeLanguage maps a code or English name onto its ISO 639-1 code.
// Unknown input is returned lower-cased so that equal unknowns still compare equal.
func NormalizeLanguage(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return ""
	}
	if code, ok := languageWords[v]; ok {
		return code
	}
	if code, ok := bibliographic[v]; ok {
		return code
	}
	if base, err := language.ParseBase(v); err == nil {
		return base.String()
	}
	return v
}

// ISO3Language returns the three-letter code for a language, or "" if unknown.
func ISO3Language(s string) string {
	code := NormalizeLanguage(s)
	base, err := language.ParseBase(code)
	if err != nil {
		return ""
	}
	return base.ISO3()
}

// LanguageName returns the English display name for a code.
func LanguageName(s string) string {
	code := NormalizeLanguage(s)
	if code == "" {
		return "Unknown"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return s
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return s
}

// MatchesLanguage reports whether a record language satisfies filter.
func MatchesLanguage(recordLang, filter string) bool {
	if IsAllLanguages(filter) {
		return true
	}
	return NormalizeLanguage(recordLang) == NormalizeLanguage(filter)
}
