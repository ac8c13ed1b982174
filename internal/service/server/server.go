package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/easy-file-system/internal/domain"
	"github.com/vertextoedge/easy-file-system/internal/port"
)

// Config contains HTTP server configuration
type Config struct {
	BindAddr     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:    "127.0.0.1:8089",
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// Fetcher performs a single fetch
type Fetcher interface {
	Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error)
}

// Storage answers questions about local paths
type Storage interface {
	Permissions(path string) port.Permission
	GetDiskUsage() (*port.DiskUsage, error)
}

// Server exposes the bridge surface over HTTP
type Server struct {
	config  *Config
	logger  *zap.Logger
	server  *http.Server
	handler *BridgeHandler
	journal port.JournalRepository
}

// New creates a new HTTP server. journal may be nil.
func New(
	cfg *Config,
	dirs domain.Directories,
	fetcher Fetcher,
	storage Storage,
	journal port.JournalRepository,
	logger *zap.Logger,
) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		journal: journal,
		handler: NewBridgeHandler(dirs, fetcher, storage, journal, logger),
	}

	s.server = &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the routed handler wrapped in request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /constants", s.handler.HandleConstants)
	mux.HandleFunc("POST /download", s.handler.HandleDownload)
	mux.HandleFunc("GET /permissions", s.handler.HandlePermissions)
	mux.HandleFunc("GET /storage", s.handler.HandleStorage)
	mux.HandleFunc("GET /history", s.handler.HandleHistory)
	mux.HandleFunc("GET /history/{id}", s.handler.HandleHistoryEntry)

	return LoggingMiddleware(s.logger)(mux)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.journal != nil {
		if err := s.journal.Ping(); err != nil {
			s.logger.Error("health check failed", zap.Error(err))
			http.Error(w, "Journal database unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
