package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"subgate/internal/config"
	"subgate/internal/metrics"
	"subgate/internal/utils"
)

type Server struct {
	config        *config.Config
	gateway       Gateway
	logger        *utils.Logger
	httpServer    *http.Server
	apiHandler    *APIHandler
	streamHandler *StreamHandler
}

func NewServer(cfg *config.Config, gateway Gateway, logger *utils.Logger) *Server {
	return &Server{
		config:        cfg,
		gateway:       gateway,
		logger:        logger,
		apiHandler:    NewAPIHandler(gateway, logger),
		streamHandler: NewStreamHandler(gateway, logger),
	}
}

// Router builds the complete route table.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, s.loggingMiddleware, corsMiddleware, metrics.Middleware)

	router.HandleFunc("/", s.apiHandler.Docs).Methods(http.MethodGet)
	router.HandleFunc("/health", s.apiHandler.Health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("", s.apiHandler.Docs).Methods(http.MethodGet)
	api.HandleFunc("/", s.apiHandler.Docs).Methods(http.MethodGet)
	api.HandleFunc("/subtitles/{kind:tmdb|imdb}/{id}", s.apiHandler.GetSubtitles).Methods(http.MethodGet)
	api.HandleFunc("/search", s.apiHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/search/{query}", s.apiHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/download", s.apiHandler.Download).Methods(http.MethodGet)
	api.HandleFunc("/download/{id:[0-9]+}", s.apiHandler.LegacyDownload).Methods(http.MethodGet)
	api.HandleFunc("/stream/{kind}/{id}", s.streamHandler.Stream).Methods(http.MethodGet)

	// Unmatched requests skip router middleware, so CORS and preflight are applied here
	router.NotFoundHandler = corsMiddleware(preflightOr(s.apiHandler.NotFound))
	router.MethodNotAllowedHandler = corsMiddleware(preflightOr(s.apiHandler.MethodNotAllowed))
	return router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.App.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Streams and slow upstream fan-outs need more than the read budget
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info().Int("port", s.config.App.Port).Msg("Starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
