package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nijaru/vidscribe/config"
	"github.com/nijaru/vidscribe/middleware"
	"github.com/nijaru/vidscribe/models"
	"github.com/sirupsen/logrus"
)

type TranscriptionService interface {
	Transcribe(ctx context.Context, rawURL string) (*models.TranscriptionResult, error)
	Model() string
}

type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]models.Record, error)
}

type Server struct {
	service   TranscriptionService
	journal   JournalReader
	config    *config.Config
	logger    *logrus.Logger
	server    *http.Server
	startTime time.Time
}

type ServerOption func(*Server)

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithJournal exposes recent request history at /api/v1/transcriptions.
func WithJournal(j JournalReader) ServerOption {
	return func(s *Server) {
		s.journal = j
	}
}

func NewServer(cfg *config.Config, svc TranscriptionService, opts ...ServerOption) *Server {
	s := &Server{
		service:   svc,
		config:    cfg,
		logger:    logrus.StandardLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.WithField("port", s.config.ServerPort).Info("Starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// Handler returns the routed mux wrapped in the configured middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// method and content type are checked by the handler so that rejections
	// use the JSON failure payload
	mux.HandleFunc("/transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.journal != nil {
		mux.HandleFunc("GET /api/v1/transcriptions", s.handleListTranscriptions)
	}

	return s.middleware(mux)
}

func (s *Server) middleware(handler http.Handler) http.Handler {
	mw := s.config.Middleware
	var middlewares []func(http.Handler) http.Handler

	if mw.EnableRequestID {
		middlewares = append(middlewares, middleware.RequestID())
	}
	if mw.EnableLogger {
		middlewares = append(middlewares, middleware.Logging(s.logger))
	}
	if mw.EnableRecover {
		middlewares = append(middlewares, middleware.Recovery(s.logger))
	}
	if mw.EnableCORS {
		middlewares = append(middlewares, middleware.CORS(s.config.CORS))
	}
	if mw.EnableRateLimit && s.config.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerMinute, s.config.RateLimit.BurstSize)
		middlewares = append(middlewares, rl.Middleware)
	}

	return middleware.Chain(handler, middlewares...)
}
