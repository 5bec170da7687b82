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

	"github.com/mackyshop/shop-backend/internal/account"
	"github.com/mackyshop/shop-backend/internal/audit"
	"github.com/mackyshop/shop-backend/internal/catalog"
	"github.com/mackyshop/shop-backend/internal/config"
	"github.com/mackyshop/shop-backend/internal/db"
	handler "github.com/mackyshop/shop-backend/internal/handler/http"
	"github.com/mackyshop/shop-backend/internal/inventory"
	"github.com/mackyshop/shop-backend/internal/notification"
	"github.com/mackyshop/shop-backend/internal/order"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "shop-backend").Logger()

	log.Info().Msg("Shop backend starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	var notifier notification.Sender
	if cfg.SMTP.Enabled {
		notifier = notification.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Password)
	} else {
		log.Warn().Msg("SMTP not configured, customer notices will be dropped")
		notifier = notification.NewNoopSender()
	}

	repo := order.NewRepository(dbConn.Pool)
	ledger := inventory.NewLedger(dbConn.Pool, cfg.App.AllowNegativeStock)
	recorder := audit.NewRecorder(dbConn.Pool)
	directory := account.NewDirectory(dbConn.Pool)
	products := catalog.NewCatalog(dbConn.Pool)
	svc := order.NewService(repo, ledger, recorder, directory, products, notifier)

	router := handler.NewRouter(svc, ledger, recorder)

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
