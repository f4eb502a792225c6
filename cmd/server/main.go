package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trogers1052/adx-service/internal/analysis"
	"github.com/trogers1052/adx-service/internal/api"
	"github.com/trogers1052/adx-service/internal/config"
	"github.com/trogers1052/adx-service/internal/database"
	"github.com/trogers1052/adx-service/internal/kafka"
	"github.com/trogers1052/adx-service/internal/session"
	"github.com/trogers1052/adx-service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting ADX service",
		logger.String("addr", cfg.Server.Addr()),
		logger.Int("period", cfg.ADX.Period),
		logger.Bool("database", cfg.Database.Enabled),
		logger.Bool("redis", cfg.Redis.Enabled),
		logger.Bool("kafka", cfg.Kafka.Enabled),
	)

	// Result cache
	var store session.Store
	if cfg.Redis.Enabled {
		redisStore, err := session.NewRedisStore(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize Redis store", logger.ErrorField(err))
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		store = session.NewMemoryStore(cfg.Redis.ResultTTL())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence
	var repo analysis.Repository
	var apiRepo api.AnalysisRepository
	if cfg.Database.Enabled {
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			logger.Fatal("Failed to connect to database", logger.ErrorField(err))
		}
		defer db.Close()

		if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
			if err := db.Migrate(dir); err != nil {
				logger.Fatal("Failed to run migrations", logger.ErrorField(err))
			}
		}
		repo = db
		apiRepo = db

		if retention := cfg.Database.Retention(); retention > 0 {
			go runRetention(ctx, db, retention, time.Hour)
		}
	}

	// Events
	var publisher analysis.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ResultsTopic)
		defer producer.Close()
		publisher = producer
	}

	svc := analysis.NewService(cfg.ADX.Period, store, repo, publisher)

	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.SeriesTopic, cfg.Kafka.GroupID, svc)
		go func() {
			defer close(consumerDone)
			if err := consumer.Start(ctx); err != nil {
				logger.Error("Kafka consumer stopped", logger.ErrorField(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	handler := api.NewHandler(svc, apiRepo, cfg.Server.MaxUploadBytes, cfg.Redis.ResultTTL())
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewServerHandler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", logger.ErrorField(err))
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down ADX service")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", logger.ErrorField(err))
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Timed out waiting for Kafka consumer")
	}

	logger.Info("ADX service stopped")
}

// runRetention deletes analyses older than retention every interval until ctx is done
func runRetention(ctx context.Context, db *database.DB, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		deleted, err := db.DeleteAnalysesOlderThan(ctx, time.Now().Add(-retention))
		if err != nil && ctx.Err() == nil {
			logger.Error("Retention sweep failed", logger.ErrorField(err))
		} else if deleted > 0 {
			logger.Info("Retention sweep removed analyses", logger.Int64("deleted", deleted))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
