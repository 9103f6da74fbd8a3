// SPDX-License-Identifier: MIT

// Package health serves liveness and readiness. Readiness follows the
// platform service connection.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/tvinput/internal/log"
)

// Status is the state of one component or of the whole process.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// worse orders statuses for aggregation.
func (s Status) worse(o Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[o] > rank[s] {
		return o
	}
	return s
}

// CheckResult is the outcome of one Checker.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report is the body of /healthz and /readyz.
type Report struct {
	Status    Status                 `json:"status"`
	Ready     *bool                  `json:"ready,omitempty"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    int64                  `json:"uptimeSeconds,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one component probe. Check must honour ctx.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// DefaultCheckTimeout bounds a single Checker.
const DefaultCheckTimeout = 2 * time.Second

// Manager runs the registered checkers.
type Manager struct {
	version      string
	started      time.Time
	checkTimeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

// NewManager returns a Manager reporting version.
func NewManager(version string) *Manager {
	return &Manager{version: version, started: time.Now(), checkTimeout: DefaultCheckTimeout}
}

// RegisterChecker adds c to every subsequent report.
func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	m.checkers = append(m.checkers, c)
	m.mu.Unlock()
}

// run executes all checkers concurrently and folds their statuses.
func (m *Manager) run(ctx context.Context) (map[string]CheckResult, Status) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, m.checkTimeout)
			defer cancel()
			results[i] = c.Check(cctx)
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusHealthy
	out := make(map[string]CheckResult, len(checkers))
	for i, c := range checkers {
		out[c.Name()] = results[i]
		overall = overall.worse(results[i].Status)
	}
	return out, overall
}

// Health is the liveness report. The process is alive whenever it can
// answer; verbose adds component checks without affecting the HTTP code.
func (m *Manager) Health(ctx context.Context, verbose bool) Report {
	r := Report{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
		Uptime:    int64(time.Since(m.started).Seconds()),
	}
	if verbose {
		r.Checks, r.Status = m.run(ctx)
	}
	return r
}

// Ready is the readiness report. Degraded components keep the process
// ready; an unhealthy one does not.
func (m *Manager) Ready(ctx context.Context) Report {
	r := Report{Timestamp: time.Now()}
	r.Checks, r.Status = m.run(ctx)
	ready := r.Status != StatusUnhealthy
	r.Ready = &ready
	return r
}

// ServeHealth answers /healthz, always with 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	m.write(w, r, http.StatusOK, m.Health(r.Context(), r.URL.Query().Get("verbose") == "true"))
}

// ServeReady answers /readyz with 200 or 503.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	rep := m.Ready(r.Context())
	code := http.StatusOK
	if !*rep.Ready {
		code = http.StatusServiceUnavailable
	}
	m.write(w, r, code, rep)
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, code int, rep Report) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "health.encode_failed").
			Msg("failed to write health report")
	}
}
