package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/multiprice-oracle/internal/logger"
)

const meterName = "api"

// ServerConfig holds listener settings.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Mounter adds routes to a router.
type Mounter interface {
	Routes(r chi.Router)
}

type serverMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// Server is the HTTP listener for the query API, health and metrics.
type Server struct {
	cfg     ServerConfig
	router  chi.Router
	log     logger.LoggerInterface
	metrics *serverMetrics

	srv      *http.Server
	listener net.Listener
	done     chan error
}

// NewServer builds the router. metricsHandler may be nil.
func NewServer(cfg ServerConfig, log logger.LoggerInterface, metricsHandler http.Handler, mounts ...Mounter) (*Server, error) {
	s := &Server{cfg: cfg, log: log}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	for _, m := range mounts {
		m.Routes(r)
	}
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	s.router = r
	return s, nil
}

func (s *Server) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serverMetrics{}

	s.metrics.requests, err = meter.Int64Counter(
		"api_requests_total",
		metric.WithDescription("HTTP requests served"),
	)
	if err != nil {
		return err
	}

	s.metrics.latency, err = meter.Float64Histogram(
		"api_request_latency_ms",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"),
	)
	return err
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		attrs := metric.WithAttributes(
			attribute.String("route", route),
			attribute.Int("status", ww.Status()),
		)
		s.metrics.requests.Add(r.Context(), 1, attrs)
		s.metrics.latency.Record(r.Context(), float64(time.Since(start).Milliseconds()), attrs)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", s.cfg.Address, err)
	}
	s.listener = ln

	var handler http.Handler = s.router
	if s.cfg.WriteTimeout > 0 {
		handler = writeDeadline(handler, s.cfg.WriteTimeout)
	}
	s.srv = &http.Server{
		Handler:           otelhttp.NewHandler(handler, "api"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		// Streams are long-lived; WriteTimeout applies per request.
		WriteTimeout: 0,
	}
	s.done = make(chan error, 1)

	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()

	s.log.Info(ctx, "api server listening", "address", ln.Addr().String())
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Address
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.done
}

// writeDeadline bounds plain requests; websocket upgrades are left alone.
func writeDeadline(next http.Handler, d time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "" {
			_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(d))
		}
		next.ServeHTTP(w, r)
	})
}
