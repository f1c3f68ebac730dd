// Package health serves liveness, readiness and per-dependency checks.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"

	defaultCheckTimeout = 5 * time.Second
)

// Status is the body of GET /health.
type Status struct {
	Status    string           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Version   string           `json:"version,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// Check is one dependency's result.
type Check struct {
	Healthy   bool   `json:"healthy"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

// CheckFunc probes one dependency. It must honour ctx.
type CheckFunc func(ctx context.Context) (bool, string)

// Service runs registered checks. Checks run concurrently, each bounded by
// the service timeout; a check that overruns is reported unhealthy.
type Service struct {
	version string
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func NewService(version string) *Service {
	return &Service{
		version: version,
		timeout: defaultCheckTimeout,
		checks:  make(map[string]CheckFunc),
	}
}

// RegisterCheck adds or replaces the check called name.
func (s *Service) RegisterCheck(name string, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Routes mounts /health, /ready and /live.
func (s *Service) Routes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("alive"))
	})
}

// Evaluate runs every check and folds the results into one Status.
func (s *Service) Evaluate(ctx context.Context) Status {
	s.mu.RLock()
	checks := make(map[string]CheckFunc, len(s.checks))
	for name, fn := range s.checks {
		checks[name] = fn
	}
	s.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]Check, len(checks))
		g       errgroup.Group
	)
	for name, fn := range checks {
		g.Go(func() error {
			c := s.run(ctx, fn)
			mu.Lock()
			results[name] = c
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Status{
		Status:    StatusOK,
		Checks:    results,
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, c := range results {
		if !c.Healthy {
			status.Status = StatusDegraded
			break
		}
	}
	return status
}

func (s *Service) run(ctx context.Context, fn CheckFunc) Check {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	healthy, msg := fn(ctx)
	c := Check{Healthy: healthy, Message: msg, LatencyMs: time.Since(start).Milliseconds()}
	if healthy && ctx.Err() != nil {
		c.Healthy, c.Message = false, "timed out"
	}
	return c
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.Evaluate(r.Context())

	code := http.StatusOK
	if status.Status != StatusOK {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.Evaluate(r.Context()).Status != StatusOK {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}
