package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"products-api/internal/config"
	"products-api/internal/database"
	custommiddleware "products-api/internal/middleware"
	"products-api/internal/repository"
	"products-api/internal/service"
	"products-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthChecker reports the status of a backing store
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *database.Service) *Server {
	var redisClient *redis.Client
	if cfg.RateLimit.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.Info("Rate limiting enabled",
			zap.String("redis_addr", cfg.Redis.Addr()),
			zap.Int("requests", cfg.RateLimit.Requests),
			zap.Duration("window", cfg.RateLimit.Window),
		)
	}

	productRepo := repository.NewProductRepository(db.Products())
	router := NewRouter(cfg, logger, productRepo, db, redisClient, prometheus.NewRegistry())

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}
}

// NewRouter wires middleware, operational endpoints and product routes.
// redisClient may be nil, in which case no rate limiting is applied.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	productRepo repository.ProductRepository,
	health HealthChecker,
	redisClient *redis.Client,
	reg *prometheus.Registry,
) chi.Router {
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.IsDevelopment()))

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	router.Use(custommiddleware.NewMetrics(reg).Middleware)

	// Operational endpoints are not rate limited
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := health.Health(r.Context())
		code := http.StatusOK
		if status["status"] != "up" {
			code = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, code, status)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	productService := service.NewProductService(productRepo)
	productHandler := transport.NewProductHandler(productService, logger)

	router.Group(func(r chi.Router) {
		if redisClient != nil {
			r.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "ratelimit:products",
			}, logger))
		}
		productHandler.RegisterRoutes(r)
	})

	return router
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(ctx); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
