package core

import (
	"sort"

	"subgate/internal/models"
)

// filterByLanguage keeps records matching filter; "all" keeps everything.
func filterByLanguage(records []models.SubtitleRecord, filter string) []models.SubtitleRecord {
	if models.IsAllLanguages(filter) {
		return records
	}
	filtered := make([]models.SubtitleRecord, 0, len(records))
	for _, r := range records {
		if models.MatchesLanguage(r.LanguageCode, filter) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// dedupe drops records whose ID or DownloadRef was already seen. Input is in
// provider priority order, so the higher-priority occurrence survives.
func dedupe(records []models.SubtitleRecord) []models.SubtitleRecord {
	seenIDs := make(map[string]bool, len(records))
	seenRefs := make(map[string]bool, len(records))
	unique := make([]models.SubtitleRecord, 0, len(records))
	for _, r := range records {
		if seenIDs[r.ID] || seenRefs[r.DownloadRef] {
			continue
		}
		seenIDs[r.ID] = true
		seenRefs[r.DownloadRef] = true
		unique = append(unique, r)
	}
	return unique
}

// rank orders by download count desc, rating desc, then id asc.
func rank(records []models.SubtitleRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.DownloadCount != b.DownloadCount {
			return a.DownloadCount > b.DownloadCount
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	})
}

// effectiveLimit applies the default and the hard ceiling.
func effectiveLimit(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
