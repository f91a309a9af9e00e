// Package control wires components together and manages their lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/fetcher/internal/api"
	"github.com/vietddude/fetcher/internal/core/config"
	redisclient "github.com/vietddude/fetcher/internal/infra/redis"
	"github.com/vietddude/fetcher/internal/infra/storage/postgres"
	"github.com/vietddude/fetcher/internal/infra/ytdlp"
	"github.com/vietddude/fetcher/internal/jobs"
	"github.com/vietddude/fetcher/internal/resolve"
)

// Server is the API-server application: resolver + orchestrator surface
// behind the HTTP front.
type Server struct {
	cfg         *config.AppConfig
	redisClient *redisclient.Client
	db          *postgres.DB
	httpServer  *api.Server
	log         *slog.Logger
}

// NewServer initializes all API-side dependencies.
func NewServer(ctx context.Context, cfg *config.AppConfig) (*Server, error) {
	redisClient, err := redisclient.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	runner := ytdlp.NewRunner(cfg.Extractor.Binary)
	if err := runner.CheckBinary(); err != nil {
		slog.Warn("extraction backend missing at startup", "error", err)
	}

	resolver := resolve.NewResolver(
		runner,
		redisclient.NewCache(redisClient),
		cfg.Extractor.BaseOptions(),
		resolve.DefaultStrategies(),
		resolve.Config{TTL: cfg.Cache.TTL, LiveTTL: cfg.Cache.LiveTTL},
	)

	jobStore := redisclient.NewJobStore(redisClient, cfg.Downloads.Retention)
	jobService := jobs.NewService(jobStore)

	var db *postgres.DB
	var history api.History
	if cfg.Database.URL != "" {
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		history = postgres.NewHistoryRepo(db)
	}

	httpServer := api.NewServer(
		api.Config{Port: cfg.Server.Port, DownloadDir: cfg.Downloads.Dir},
		resolver, jobService, history, redisClient,
	)

	return &Server{
		cfg:         cfg,
		redisClient: redisClient,
		db:          db,
		httpServer:  httpServer,
		log:         slog.Default().With("component", "control"),
	}, nil
}

// Start begins serving HTTP in the background.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.httpServer.Start(); err != nil {
			s.log.Error("HTTP server stopped", "error", err)
		}
	}()
	return nil
}

// Stop shuts everything down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Stop(ctx); err != nil {
		s.log.Warn("HTTP shutdown error", "error", err)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("DB close error", "error", err)
		}
	}
	if err := s.redisClient.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
