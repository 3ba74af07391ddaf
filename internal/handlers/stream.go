package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"subgate/internal/core"
	"subgate/internal/models"
	"subgate/internal/utils"
)

const (
	streamWriteWait      = 10 * time.Second
	streamMaxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamEvent is one frame on the stream. Type is movie, provider, result or error.
type streamEvent struct {
	Type     string                  `json:"type"`
	Movie    *models.MovieDescriptor `json:"movie,omitempty"`
	Provider *core.Attempt           `json:"provider,omitempty"`
	Result   *resolutionResponse     `json:"result,omitempty"`
	Error    *errorResponse          `json:"error,omitempty"`
	Status   int                     `json:"status,omitempty"`
}

// StreamHandler pushes resolution progress over a WebSocket.
type StreamHandler struct {
	gateway Gateway
	logger  zerolog.Logger
}

func NewStreamHandler(gateway Gateway, logger *utils.Logger) *StreamHandler {
	return &StreamHandler{gateway: gateway, logger: logger.Component("stream")}
}

type streamWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
	err  error
}

func (s *streamWriter) send(ev streamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	s.err = s.conn.WriteJSON(ev)
}

// readPump discards client frames and cancels the resolution once the
// connection fails or closes.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(streamMaxMessageSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Stream handles /api/stream/{kind}/{id}. kind "search" resolves a title query.
// The connection closes after the result or error frame.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := models.ParseIdentifierKind(vars["kind"])
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid request", "Identifier kind must be tmdb, imdb or search")
		return
	}
	lang, limit, err := parseListParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// The request context is not cancelled once the connection is hijacked;
	// a failed read is the only sign that the client went away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readPump(conn, cancel)

	out := &streamWriter{conn: conn}
	res, err := h.gateway.ResolveByMovieStream(ctx, kind, vars["id"], lang, limit,
		func(movie models.MovieDescriptor) {
			out.send(streamEvent{Type: "movie", Movie: &movie})
		},
		func(a core.Attempt) {
			out.send(streamEvent{Type: "provider", Provider: &a})
		})
	if err != nil {
		status, body := resolveErrorResponse(err)
		out.send(streamEvent{Type: "error", Error: &body, Status: status})
	} else {
		body := newResolutionResponse(res)
		out.send(streamEvent{Type: "result", Result: &body})
	}

	if out.err != nil {
		h.logger.Debug().Err(out.err).Msg("Stream client went away")
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(streamWriteWait))
}
