package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/config"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/queue"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/router"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/service"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/worker"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/ws"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database pool")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	queries := database.New(pool)

	// Redis is cache-only; the menu still serves from the database without it.
	var rdb *redis.Client
	if opts, err := redis.ParseURL(cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("invalid redis url, menu cache disabled")
	} else {
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, menu cache disabled")
			rdb = nil
		}
	}

	broker, err := queue.Connect(cfg.AmqpURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to message broker")
	}

	hub := ws.NewHub()
	go hub.Run()

	notifier := service.NewNotifyService(queries, broker)
	paymentService := service.NewPaymentService(
		pool,
		queries,
		func(db database.DBTX) service.PaymentStore {
			return database.New(db)
		},
		service.HMACVerifier{Secret: cfg.GatewayWebhookSecret},
		notifier,
		cfg.PaymentTimeout,
	)

	if err := worker.NewNotificationWorker(broker, hub, queries).Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start notification worker")
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	sweeper := worker.NewPaymentSweeper(paymentService, cfg.PaymentTimeout)
	go sweeper.Start(sweepCtx)

	r := router.New(cfg, queries, pool, rdb, notifier, paymentService, hub)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stopSweeper()
		if err := broker.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close message broker")
		}

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
	if err := <-shutdown; err != nil {
		log.Fatal().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
