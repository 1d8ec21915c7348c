package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bullwork-fleet/apiserver/config"
	"github.com/bullwork-fleet/apiserver/internal/db"
	"github.com/bullwork-fleet/apiserver/internal/handlers"
	"github.com/bullwork-fleet/apiserver/internal/mq"
	"github.com/bullwork-fleet/apiserver/internal/services"
	"github.com/bullwork-fleet/apiserver/internal/storage"
	"github.com/bullwork-fleet/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server wraps the HTTP server, router, and the external clients it
// owns. Everything is constructed here and released in Shutdown; there
// is no process-global state.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	redis      *redis.Client
	broker     *mq.MQ
	logger     *zap.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := openRedis(ctx, cfg, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	documentStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		_ = dbConn.Close()
		closeRedis(redisClient, logger)
		return nil, err
	}

	broker, err := openBroker(ctx, cfg, logger)
	if err != nil {
		_ = dbConn.Close()
		closeRedis(redisClient, logger)
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	vehicleRepo := store.NewVehicleRepository(dbConn)
	documentRepo := store.NewDocumentRepository(dbConn)

	userService := services.NewUserService(userRepo)

	var publisher services.EventPublisher
	if broker != nil {
		publisher = broker
	}
	vehicleService := services.NewVehicleService(vehicleRepo, publisher, logger)

	var snapshotCache services.SnapshotCache
	if redisClient != nil {
		snapshotCache = services.NewRedisSnapshotCache(redisClient)
	}
	telemetryService := services.NewTelemetryService(snapshotCache, logger)

	var documentService *services.DocumentService
	if documentStorage != nil {
		documentService = services.NewDocumentService(documentRepo, documentStorage)
	}

	authMiddleware := handlers.RequireAuth(cfg.Auth.JWTSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, cfg.Auth.JWTSecret)
	})
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/api/vehicles", func(r chi.Router) {
		handlers.VehicleRouter(r, vehicleService, userService, documentService, authMiddleware)
	})
	router.Route("/api/telemetry", func(r chi.Router) {
		handlers.TelemetryRouter(r, telemetryService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		redis:      redisClient,
		broker:     broker,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown releases the server's clients and closes the listener.
func (s *Server) Shutdown() error {
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			s.logger.Warn("close broker", zap.Error(err))
		}
	}
	closeRedis(s.redis, s.logger)
	if s.db != nil {
		_ = s.db.Close()
	}
	_ = s.logger.Sync()
	return s.httpServer.Close()
}

// openRedis constructs the telemetry snapshot cache client when
// REDIS_ADDR is configured; otherwise caching is disabled.
func openRedis(ctx context.Context, cfg config.Config, logger *zap.Logger) (*redis.Client, error) {
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("telemetry cache enabled", zap.String("addr", cfg.Redis.Addr))
	return client, nil
}

func closeRedis(client *redis.Client, logger *zap.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.Warn("close redis", zap.Error(err))
	}
}

// openStorage constructs the vehicle document backend named by
// STORAGE_BACKEND; documents are disabled when it is empty.
func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (*storage.Storage, error) {
	var backend storage.ObjectStorage

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	documentStorage := storage.NewStorage(backend)
	if err := documentStorage.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("document storage enabled",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("bucket", documentStorage.Bucket()),
	)
	return documentStorage, nil
}

// openBroker constructs the fleet event broker named by MQ_BACKEND;
// events are disabled when it is empty.
func openBroker(ctx context.Context, cfg config.Config, logger *zap.Logger) (*mq.MQ, error) {
	var backend mq.Backend

	switch strings.ToLower(strings.TrimSpace(cfg.MQ.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.MQ.RabbitMQ)
		if err != nil {
			return nil, err
		}
		backend = client
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.MQ.PubSub)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}

	logger.Info("fleet event broker enabled", zap.String("backend", cfg.MQ.Backend))
	return mq.New(backend), nil
}
