package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subgate/internal/config"
	"subgate/internal/core"
	"subgate/internal/handlers"
	"subgate/internal/utils"
)

func main() {
	configPath := flag.String("config", "config.yml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	// Initialize logger, optionally mirrored to a rotating file
	logger := utils.NewLogger(utils.LogOptions{
		Debug:  cfg.App.Debug,
		Format: cfg.App.LogFormat,
		Dir:    cfg.App.LogDir,
	})
	defer logger.Close()

	if cfg.Metadata.TMDB.APIKey == "" {
		logger.Warn().Msg("TMDB API key is not set, tmdb and search lookups will fail")
	}

	// Create manager
	manager, err := core.NewManager(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize manager")
	}

	// Start web server
	server := handlers.NewServer(cfg, manager, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	if err := manager.StartScheduler(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	logger.Info().Int("port", cfg.App.Port).Msg("Subgate started successfully")

	// Wait for interrupt
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	manager.Stop()
	if err := server.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}
