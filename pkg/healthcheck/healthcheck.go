// Package healthcheck reports whether the frontend's dependencies answer.
package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status of a dependency or of the whole service
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the outcome for one registered dependency
type Check struct {
	Name       string  `json:"name"`
	Status     Status  `json:"status"`
	Message    string  `json:"message,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// Response is the body served on the health endpoint
type Response struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version"`
	CheckedAt time.Time `json:"checked_at"`
	Checks    []Check   `json:"checks"`
}

// CheckFunc returns nil while the dependency is usable
type CheckFunc func(ctx context.Context) error

// Pinger is anything that can round-trip to a dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck runs the registered checks on demand
type HealthCheck struct {
	version string
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func New(version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		version: version,
		timeout: 10 * time.Second,
		logger:  logger,
		checks:  make(map[string]CheckFunc),
	}
}

// Register adds or replaces the check under name
func (h *HealthCheck) Register(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = fn
}

// Check runs every check concurrently. One failure makes the service
// unhealthy. Checks are listed by name.
func (h *HealthCheck) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	results := make([]Check, 0, len(h.checks))
	var (
		wg  sync.WaitGroup
		out sync.Mutex
	)
	for name, fn := range h.checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			check := run(ctx, name, fn)
			out.Lock()
			results = append(results, check)
			out.Unlock()
		}(name, fn)
	}
	h.mu.RUnlock()
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	response := Response{
		Status:    StatusHealthy,
		Version:   h.version,
		CheckedAt: time.Now(),
		Checks:    results,
	}
	for _, check := range results {
		if check.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
			h.logger.Warn("Dependency unhealthy", zap.String("check", check.Name), zap.String("error", check.Message))
		}
	}
	return response
}

func run(ctx context.Context, name string, fn CheckFunc) Check {
	start := time.Now()
	err := fn(ctx)
	check := Check{
		Name:       name,
		Status:     StatusHealthy,
		DurationMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// Handler serves the full report, 503 when anything is down
func (h *HealthCheck) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := h.Check(r.Context())

		status := http.StatusOK
		if response.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		h.writeJSON(w, status, response)
	}
}

// LivenessHandler answers without touching any dependency
func (h *HealthCheck) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func (h *HealthCheck) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping checks a connection such as the redis staging backend
func Ping(p Pinger) CheckFunc {
	return p.Ping
}

// HTTPGet checks that url answers. Anything below 500 counts, the path may
// well require a session.
func HTTPGet(url string, timeout time.Duration) CheckFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	}
}
