package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/gbFinch/FreeTradingJournal/internal/api"
	"github.com/gbFinch/FreeTradingJournal/internal/config"
	"github.com/gbFinch/FreeTradingJournal/internal/journal"
	"github.com/gbFinch/FreeTradingJournal/internal/storage"
)

func main() {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	log.Info().Msg("Starting trading journal")

	cfg := config.Load()

	store := storage.NewMemoryStore()
	service := journal.NewTradeService(store, journal.Defaults{
		Currency:   cfg.Journal.DefaultCurrency,
		AssetClass: cfg.Journal.DefaultAssetClass,
	})

	handler := api.NewHandler(service, log)
	router := api.SetupRoutes(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
