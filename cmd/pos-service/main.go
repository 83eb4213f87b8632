package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/simplepos/pos-service/internal/catalog"
	"github.com/simplepos/pos-service/internal/config"
	"github.com/simplepos/pos-service/internal/db"
	handler "github.com/simplepos/pos-service/internal/handler/http"
	"github.com/simplepos/pos-service/internal/order"
	"github.com/simplepos/pos-service/internal/payment"
	"github.com/simplepos/pos-service/internal/storage"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "pos-service").Logger()

	log.Info().Msg("POS service starting...")

	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	database, err := db.New(ctx, cfg.Postgres)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	bucket, err := storage.NewBucket(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}

	gateway := payment.NewClient(cfg.Payment.APIKey, cfg.Payment.APIURL)

	catalogRepo := catalog.NewRepository(database.Pool)
	catalogSvc := catalog.NewService(catalogRepo, bucket)

	orderRepo := order.NewRepository(database.Pool)
	orderSvc := order.NewService(orderRepo, catalogRepo, gateway)

	router := handler.NewRouter(catalogSvc, orderSvc, cfg.Payment.WebhookToken)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
