package database

import (
	"context"
	"fmt"
	"time"

	"products-api/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Service owns the MongoDB client for the lifetime of the process
type Service struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    config.MongoConfig
	logger *zap.Logger
}

// New connects to MongoDB and verifies the connection with a ping
func New(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*Service, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout)
	if cfg.OperationTimeout > 0 {
		opts.SetTimeout(cfg.OperationTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info("Connected to MongoDB",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
	)

	return &Service{
		client: client,
		db:     client.Database(cfg.Database),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// DB returns the configured database handle
func (s *Service) DB() *mongo.Database {
	return s.db
}

// Products returns the collection holding product documents
func (s *Service) Products() *mongo.Collection {
	return s.db.Collection(s.cfg.Collection)
}

// Health pings the server and reports its status
func (s *Service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stats := map[string]string{
		"database": s.cfg.Database,
	}

	start := time.Now()
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	stats["status"] = "up"
	stats["latency"] = time.Since(start).String()
	stats["open_sessions"] = fmt.Sprintf("%d", s.client.NumberSessionsInProgress())
	return stats
}

// Close disconnects the client
func (s *Service) Close(ctx context.Context) error {
	s.logger.Info("Disconnecting from MongoDB")
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}
