// Package main is the entry point for the portfolio advisor service.
//
// The service runs a synchronous recommendation pipeline: market data fetch,
// universe statistics, mean-variance optimization, marginal utility analysis,
// feature assembly, external scoring, and ranking. It exposes the pipeline
// over HTTP and maintains a SQLite cache of provider responses.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quantfolio/advisor/internal/clientdata"
	"github.com/quantfolio/advisor/internal/clients/marketdata"
	"github.com/quantfolio/advisor/internal/clients/scorer"
	"github.com/quantfolio/advisor/internal/config"
	"github.com/quantfolio/advisor/internal/database"
	"github.com/quantfolio/advisor/internal/modules/recommend"
	"github.com/quantfolio/advisor/internal/server"
	"github.com/quantfolio/advisor/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting advisor")

	// Provider cache database. Cache profile: ephemeral data, speed over
	// durability.
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "clientdata",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open client data database")
	}
	defer cacheDB.Close()

	if err := cacheDB.ApplySchema(clientdata.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply client data schema")
	}

	cacheRepo := clientdata.NewRepository(cacheDB.Conn())

	// External collaborators
	marketDataClient := marketdata.NewClient(cfg.MarketDataURL, cfg.MarketDataAPIKey, cacheRepo, log)
	scorerClient := scorer.NewClient(cfg.ScorerServiceURL, log)

	// Recommendation pipeline
	recommendService := recommend.NewService(
		marketDataClient,
		scorerClient,
		cfg.RiskFreeRate,
		cfg.Watchlist,
		log,
	)

	// Nightly cleanup of expired cache rows
	cleanupJob := clientdata.NewCleanupJob(cacheRepo, log)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 3 * * *", func() {
		if err := cleanupJob.Run(); err != nil {
			log.Error().Err(err).Str("job", cleanupJob.Name()).Msg("Cache cleanup failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache cleanup job")
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(server.Config{
		Log:         log,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		DataDir:     cfg.DataDir,
		CacheDB:     cacheDB,
		Recommender: recommendService,
		ScorerProbe: scorerClient,
	})

	// Start server in goroutine so shutdown signals can be handled below
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
