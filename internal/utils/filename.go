package utils

import (
	"path"
	"regexp"
	"strings"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFilename removes characters that are invalid in file paths or in a
// quoted Content-Disposition filename.
func SanitizeFilename(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "")
	sanitized = strings.Join(strings.Fields(sanitized), " ")
	// Trailing spaces or periods are rejected by some filesystems
	sanitized = strings.TrimRight(sanitized, " .")
	return sanitized
}

// SubtitleFilename builds a download filename from a display name and a format
// extension, falling back to fallback when the name sanitizes to nothing.
func SubtitleFilename(displayName, format, fallback string) string {
	base := SanitizeFilename(displayName)
	if base == "" {
		base = SanitizeFilename(fallback)
	}
	if base == "" {
		base = "subtitle"
	}
	ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	if ext == "" {
		ext = "srt"
	}
	if strings.EqualFold(path.Ext(base), "."+ext) {
		return base
	}
	return base + "." + ext
}
