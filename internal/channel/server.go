package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"mailbridge/internal/trace"
)

const requestIDHeader = "X-Request-ID"

// ServerConfig configures the HTTP server hosting the webhook.
type ServerConfig struct {
	Host            string
	Port            int
	HealthPath      string
	Version         string
	Webhook         *Webhook
	Metrics         http.Handler // nil disables the metrics endpoint
	MetricsPath     string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Server is the bridge's HTTP front door.
type Server struct {
	addr            string
	handler         http.Handler
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/health"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+cfg.HealthPath, HealthHandler(cfg.Version))
	if cfg.Webhook != nil {
		mux.Handle("POST "+cfg.Webhook.Path(), cfg.Webhook)
	}
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		mux.Handle("GET "+cfg.MetricsPath, cfg.Metrics)
	}

	return &Server{
		addr:            net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		handler:         withRequestID(mux, cfg.Logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
	}
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Addr() string { return s.addr }

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("http server starting", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

// withRequestID tags each request with an ID, honouring one supplied by a
// proxy, and echoes it back in the response.
func withRequestID(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = trace.NewID()
		}
		rw.Header().Set(requestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(rw, r.WithContext(trace.WithRequestID(r.Context(), id)))
		logger.Debug("http request", "request_id", id, "method", r.Method, "path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
