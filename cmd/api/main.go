package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"products-api/internal/config"
	"products-api/internal/database"
	"products-api/internal/domain"
	"products-api/internal/logger"
	"products-api/internal/repository"
	"products-api/internal/server"

	"go.uber.org/zap"
)

// shutdownTimeout bounds how long in-flight requests may take to drain
const shutdownTimeout = 30 * time.Second

// prepareStore connects to MongoDB and applies the product validator and indexes
func prepareStore(cfg *config.Config, log *zap.Logger) (*database.Service, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout+cfg.Mongo.OperationTimeout)
	defer cancel()

	db, err := database.New(ctx, cfg.Mongo, log)
	if err != nil {
		return nil, err
	}
	log.Info("Database health check", zap.Any("health", db.Health(ctx)))

	err = database.EnsureCollection(ctx, db.DB(), cfg.Mongo.Collection,
		domain.ProductSchema, repository.ProductIndexes(), log)
	if err != nil {
		if closeErr := db.Close(context.Background()); closeErr != nil {
			log.Error("Failed to close database connection", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to prepare %s collection: %w", cfg.Mongo.Collection, err)
	}

	return db, nil
}

func gracefulShutdown(apiServer *server.Server, log *zap.Logger, done chan<- struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("Shutdown signal received, draining requests", zap.Duration("timeout", shutdownTimeout))
	stop() // a second Ctrl+C kills the process

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := apiServer.Close(); err != nil {
		log.Error("Error closing server resources", zap.Error(err))
	}

	close(done)
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting products API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("database", cfg.Mongo.Database),
	)

	// Without a reachable store the service refuses to start
	db, err := prepareStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize MongoDB", zap.Error(err))
	}

	srv := server.NewServer(cfg, log, db)

	done := make(chan struct{})
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
