package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"subgate/internal/core"
	"subgate/internal/models"
	"subgate/internal/utils"
)

const notFoundSuggestion = "Use /api/subtitles/tmdb/{tmdb_id} or /api/subtitles/imdb/{imdb_id}"

// Gateway is the core surface the HTTP layer depends on. *core.Manager implements it.
type Gateway interface {
	ResolveByMovieStream(ctx context.Context, kind models.IdentifierKind, identifier, language string, limit int,
		onMovie func(models.MovieDescriptor), observe core.Observer) (*core.Resolution, error)
	FetchArtifact(ctx context.Context, ref string) models.Artifact
	LegacyDownloadRef(id string) string
	ProviderNames() []string
	Uptime() time.Duration
}

type APIHandler struct {
	gateway Gateway
	logger  zerolog.Logger
}

func NewAPIHandler(gateway Gateway, logger *utils.Logger) *APIHandler {
	return &APIHandler{gateway: gateway, logger: logger.Component("api")}
}

const encodeFailureBody = `{"success":false,"error":"Internal error","message":"Failed to encode response"}`

// A helper function to respond with JSON. The payload is encoded before the
// status is written so an unencodable payload becomes a 500.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(encodeFailureBody))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

type errorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// A helper function to respond with a JSON error
func respondError(w http.ResponseWriter, code int, errText, message string) {
	respondJSON(w, code, errorResponse{Error: errText, Message: message})
}

type subtitleResponse struct {
	models.SubtitleRecord
	APIDownloadEndpoint string `json:"api_download_endpoint"`
}

type resolutionResponse struct {
	Success         bool                   `json:"success"`
	Movie           models.MovieDescriptor `json:"movie"`
	IMDBID          string                 `json:"imdb_id,omitempty"`
	Query           string                 `json:"query,omitempty"`
	Language        string                 `json:"language"`
	TotalResults    int                    `json:"total_results"`
	ReturnedResults int                    `json:"returned_results"`
	Synthetic       bool                   `json:"synthetic"`
	Providers       []core.Attempt         `json:"providers"`
	Subtitles       []subtitleResponse     `json:"subtitles"`
}

func downloadEndpoint(ref string) string {
	return "/api/download?ref=" + url.QueryEscape(ref)
}

func newResolutionResponse(res *core.Resolution) resolutionResponse {
	out := resolutionResponse{
		Success:         true,
		Movie:           res.Movie,
		IMDBID:          res.Movie.IMDBID,
		Language:        res.Language,
		TotalResults:    res.Total,
		ReturnedResults: len(res.Subtitles),
		Synthetic:       res.Synthetic,
		Providers:       res.Attempts,
		Subtitles:       make([]subtitleResponse, 0, len(res.Subtitles)),
	}
	if res.Kind == models.KindQuery {
		out.Query = res.Identifier
	}
	for _, s := range res.Subtitles {
		out.Subtitles = append(out.Subtitles, subtitleResponse{SubtitleRecord: s, APIDownloadEndpoint: downloadEndpoint(s.DownloadRef)})
	}
	return out
}

// resolveErrorResponse maps resolver failures onto status codes and envelopes.
// Upstream error text is not exposed.
func resolveErrorResponse(err error) (int, errorResponse) {
	var resolveErr *core.ResolveError
	identifier := ""
	if errors.As(err, &resolveErr) {
		identifier = resolveErr.Identifier
	}

	switch {
	case errors.Is(err, core.ErrInvalidIdentifier):
		return http.StatusBadRequest, errorResponse{
			Error:   "Invalid identifier",
			Message: fmt.Sprintf("%q is not a valid movie identifier", identifier),
		}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, errorResponse{
			Error:      "Movie not found",
			Message:    fmt.Sprintf("No movie found for %q", identifier),
			Suggestion: notFoundSuggestion,
		}
	case errors.Is(err, core.ErrMetadataUnavailable):
		return http.StatusFailedDependency, errorResponse{
			Error:   "Metadata provider unavailable",
			Message: "The movie metadata provider could not be reached, please try again later",
		}
	}
	return http.StatusInternalServerError, errorResponse{Error: "Internal error", Message: "Unexpected error while resolving the movie"}
}

// parseListParams reads ?lang= and ?limit=; a limit <= 0 selects the default.
func parseListParams(r *http.Request) (string, int, error) {
	q := r.URL.Query()
	lang := strings.TrimSpace(q.Get("lang"))
	if lang == "" {
		lang = models.AllLanguages
	}
	limit := 0
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", 0, fmt.Errorf("limit must be an integer, got %q", v)
		}
		limit = n
	}
	return lang, limit, nil
}

func (h *APIHandler) resolve(w http.ResponseWriter, r *http.Request, kind models.IdentifierKind, identifier string) {
	lang, limit, err := parseListParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	res, err := h.gateway.ResolveByMovieStream(r.Context(), kind, identifier, lang, limit, nil, nil)
	if err != nil {
		status, body := resolveErrorResponse(err)
		h.logger.Debug().Err(err).Int("status", status).Msg("Resolution rejected")
		respondJSON(w, status, body)
		return
	}
	respondJSON(w, http.StatusOK, newResolutionResponse(res))
}

// GetSubtitles handles /api/subtitles/{kind}/{id}.
func (h *APIHandler) GetSubtitles(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := models.ParseIdentifierKind(vars["kind"])
	if !ok || kind == models.KindQuery {
		respondError(w, http.StatusBadRequest, "Invalid request", "Identifier kind must be tmdb or imdb")
		return
	}
	h.resolve(w, r, kind, vars["id"])
}

// Search handles /api/search/{query} and /api/search?query=.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := mux.Vars(r)["query"]
	if query == "" {
		query = r.URL.Query().Get("query")
	}
	if query == "" {
		query = r.URL.Query().Get("q")
	}
	if strings.TrimSpace(query) == "" {
		respondError(w, http.StatusBadRequest, "Invalid request", "Query parameter 'query' is required")
		return
	}
	h.resolve(w, r, models.KindQuery, query)
}

// Download serves the artifact behind ?ref=. ?format=vtt converts SRT payloads.
func (h *APIHandler) Download(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.URL.Query().Get("ref"))
	if ref == "" {
		respondError(w, http.StatusBadRequest, "Invalid request", "Query parameter 'ref' is required")
		return
	}
	h.serveArtifact(w, r, ref)
}

// LegacyDownload serves an opensubtitles.org subtitle by its numeric id.
func (h *APIHandler) LegacyDownload(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, h.gateway.LegacyDownloadRef(mux.Vars(r)["id"]))
}

func (h *APIHandler) serveArtifact(w http.ResponseWriter, r *http.Request, ref string) {
	artifact := h.gateway.FetchArtifact(r.Context(), ref)
	if strings.EqualFold(r.URL.Query().Get("format"), "vtt") {
		artifact = core.ToVTT(artifact)
	}
	writeArtifact(w, artifact)
}

func writeArtifact(w http.ResponseWriter, a models.Artifact) {
	filename := utils.SanitizeFilename(a.SuggestedFilename)
	if filename == "" {
		filename = "subtitle.txt"
	}
	h := w.Header()
	h.Set("Content-Type", a.MimeType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.Set("Content-Length", strconv.Itoa(a.Size()))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Bytes)
}

type hostStats struct {
	MemUsedPercent float64 `json:"mem_used_percent"`
	Load1          float64 `json:"load1"`
}

type healthResponse struct {
	Success   bool       `json:"success"`
	Status    string     `json:"status"`
	Providers []string   `json:"providers"`
	Uptime    string     `json:"uptime"`
	Host      *hostStats `json:"host,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Success:   true,
		Status:    "OK",
		Providers: h.gateway.ProviderNames(),
		Uptime:    h.gateway.Uptime().Round(time.Second).String(),
		Host:      readHostStats(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func (h *APIHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusNotFound, errorResponse{
		Error:      "Endpoint not found",
		Message:    fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path),
		Suggestion: notFoundSuggestion,
	})
}

func (h *APIHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "Only GET and OPTIONS are supported")
}
