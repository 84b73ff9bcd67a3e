package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bilisub/internal/logging"
	"bilisub/internal/metadata"
	"bilisub/internal/pipeline"
	"bilisub/internal/subtitles"
)

// DefaultBind is used when ServerConfig.Bind is empty.
const DefaultBind = "127.0.0.1:7488"

// Planner is the part of the pipeline the API needs.
type Planner interface {
	Plan(ctx context.Context, opts pipeline.Options) (pipeline.Plan, error)
	ConvertTrack(ctx context.Context, track metadata.SubtitleTrack) (subtitles.Document, error)
}

// ServerConfig describes the HTTP API server.
type ServerConfig struct {
	Bind      string
	Planner   Planner
	Logger    *slog.Logger
	StartTime time.Time
	Version   string
}

// Server serves the subtitle API over HTTP.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds a Server; call Start to begin listening.
func NewServer(cfg ServerConfig) *Server {
	cfg.Logger = logging.NewComponentLogger(cfg.Logger, "server")
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	bind := strings.TrimSpace(cfg.Bind)
	if bind == "" {
		bind = DefaultBind
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              bind,
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", logging.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
