// Package api exposes the HTTP surface: metadata endpoints, job submission
// and polling, artifact streaming, and operational probes.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/storage/postgres"
)

// MetadataResolver is the resolution contract the API consumes.
type MetadataResolver interface {
	Resolve(ctx context.Context, url string) (*domain.Metadata, error)
	Related(ctx context.Context, videoID string) []domain.RelatedVideo
}

// JobService is the orchestrator contract the API consumes.
type JobService interface {
	Submit(ctx context.Context, req domain.DownloadRequest) (string, error)
	Poll(ctx context.Context, jobID string) (*domain.JobStatus, error)
}

// History is the optional download archive contract.
type History interface {
	Recent(ctx context.Context, limit int) ([]postgres.DownloadRecord, error)
}

// Pinger reports broker reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds HTTP server settings.
type Config struct {
	Port        int
	DownloadDir string
}

// Server is the HTTP front of the service.
type Server struct {
	cfg      Config
	echo     *echo.Echo
	resolver MetadataResolver
	jobs     JobService
	history  History // nil when the archive is disabled
	pinger   Pinger
	log      *slog.Logger
}

// NewServer wires up routes and middleware. history may be nil.
func NewServer(cfg Config, resolver MetadataResolver, jobs JobService, history History, pinger Pinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		cfg:      cfg,
		echo:     e,
		resolver: resolver,
		jobs:     jobs,
		history:  history,
		pinger:   pinger,
		log:      slog.Default().With("component", "api"),
	}

	e.POST("/formats", s.handleFormats)
	e.POST("/m3u8", s.handleM3U8)
	e.POST("/downloads", s.handleSubmit)
	e.GET("/downloads/:id", s.handlePoll)
	e.GET("/downloads/:id/file", s.handleServeFile)
	e.GET("/api/:video_id", s.handleVideoInfo)
	e.GET("/history", s.handleHistory)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Start begins serving. It blocks until the listener closes.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("HTTP server listening", "addr", addr)
	return s.echo.Start(addr)
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for handler tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	redisOK := false
	if s.pinger != nil && s.pinger.Ping(c.Request().Context()) == nil {
		redisOK = true
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "redis": redisOK})
}
