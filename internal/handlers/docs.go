package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"

	"subgate/internal/models"
)

var docLanguages = []string{"en", "es", "fr", "de", "it", "pt", "nl", "pl", "ru", "ar", "tr", "si", "ta", "hi", "ja", "ko", "zh"}

type endpointDoc struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params,omitempty"`
}

type languageDoc struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type docsResponse struct {
	Success   bool          `json:"success"`
	Name      string        `json:"name"`
	Providers []string      `json:"providers"`
	Endpoints []endpointDoc `json:"endpoints"`
	Languages []languageDoc `json:"languages"`
	Examples  []string      `json:"examples"`
}

var listParams = map[string]string{
	"lang":  "language filter, ISO 639 code or name, default all",
	"limit": "maximum number of subtitles returned",
}

func (h *APIHandler) Docs(w http.ResponseWriter, r *http.Request) {
	languages := make([]languageDoc, 0, len(docLanguages))
	for _, code := range docLanguages {
		languages = append(languages, languageDoc{Code: code, Name: models.LanguageName(code)})
	}

	respondJSON(w, http.StatusOK, docsResponse{
		Success:   true,
		Name:      "subgate",
		Providers: h.gateway.ProviderNames(),
		Endpoints: []endpointDoc{
			{Method: "GET", Path: "/api/subtitles/tmdb/{tmdb_id}", Description: "Subtitles for a TMDB movie id", Params: listParams},
			{Method: "GET", Path: "/api/subtitles/imdb/{imdb_id}", Description: "Subtitles for an IMDb id (tt-prefixed or digits)", Params: listParams},
			{Method: "GET", Path: "/api/search/{query}", Description: "Subtitles for the best title match", Params: listParams},
			{Method: "GET", Path: "/api/download", Description: "Download a subtitle file", Params: map[string]string{
				"ref":    "download_ref from a listing",
				"format": "vtt to convert SRT payloads to WebVTT",
			}},
			{Method: "GET", Path: "/api/download/{id}", Description: "Download an opensubtitles.org subtitle by numeric id"},
			{Method: "GET", Path: "/api/stream/{kind}/{id}", Description: "WebSocket feed of provider progress for one resolution", Params: listParams},
			{Method: "GET", Path: "/health", Description: "Liveness and host statistics"},
			{Method: "GET", Path: "/metrics", Description: "Prometheus metrics"},
		},
		Languages: languages,
		Examples: []string{
			"/api/subtitles/tmdb/550?lang=en&limit=5",
			"/api/subtitles/imdb/tt0137523",
			"/api/search/fight%20club?lang=si",
		},
	})
}

// readHostStats returns nil when the host counters cannot be read.
func readHostStats(ctx context.Context) *hostStats {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil
	}
	stats := &hostStats{MemUsedPercent: vm.UsedPercent}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		stats.Load1 = avg.Load1
	}
	return stats
}
