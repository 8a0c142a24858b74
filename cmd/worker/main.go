package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ivyhms/clinic-api/internal/config"
	"github.com/ivyhms/clinic-api/internal/repository/postgres"
	"github.com/ivyhms/clinic-api/pkg/messaging/redis"
	"github.com/ivyhms/clinic-api/pkg/metrics"
	"github.com/ivyhms/clinic-api/pkg/worker"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)
	m := metrics.NewMetrics("clinic", "worker")

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     100,
		PollInterval:  5 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}, m)

	ctx, cancel := context.WithCancel(context.Background())
	go processor.Start(ctx)
	log.Info().Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker...")
	cancel()
	log.Info().Msg("worker exited properly")
}
