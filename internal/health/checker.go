// Package health runs liveness checks against the components the client
// depends on: the reporting backend and the session store.
package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the outcome of a check
type State string

const (
	StateHealthy   State = "healthy"
	StateUnhealthy State = "unhealthy"
)

// Check probes a single component
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// Component is the result of one check
type Component struct {
	Name     string        `json:"name"`
	Status   State         `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`

	err error
}

// Err returns the check's error, if any
func (c Component) Err() error { return c.err }

// Status is the combined result of a run
type Status struct {
	Overall    State       `json:"overall"`
	CheckedAt  time.Time   `json:"checked_at"`
	Components []Component `json:"components"`
}

// Err returns the first failing component's error in name order
func (s *Status) Err() error {
	for _, c := range s.Components {
		if c.err != nil {
			return c.err
		}
	}
	return nil
}

// Checker runs registered checks in parallel
type Checker struct {
	timeout time.Duration
	logger  *logrus.Logger

	mu     sync.RWMutex
	checks map[string]Check
}

// NewChecker creates a checker; each check gets at most timeout.
func NewChecker(timeout time.Duration, logger *logrus.Logger) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{
		timeout: timeout,
		logger:  logger,
		checks:  make(map[string]Check),
	}
}

// Register adds check, replacing any check with the same name
func (h *Checker) Register(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[check.Name()] = check
}

// Run executes every check and waits for all of them
func (h *Checker) Run(ctx context.Context) *Status {
	h.mu.RLock()
	checks := make([]Check, 0, len(h.checks))
	for _, check := range h.checks {
		checks = append(checks, check)
	}
	h.mu.RUnlock()

	results := make([]Component, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, c Check) {
			defer wg.Done()
			results[i] = h.runOne(ctx, c)
		}(i, check)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	status := &Status{Overall: StateHealthy, CheckedAt: time.Now().UTC(), Components: results}
	var unhealthy []string
	for _, c := range results {
		if c.Status == StateUnhealthy {
			status.Overall = StateUnhealthy
			unhealthy = append(unhealthy, c.Name)
		}
	}

	if len(unhealthy) > 0 {
		h.logger.WithField("unhealthy_components", unhealthy).Warn("Health check completed with issues")
	} else {
		h.logger.Debug("Health check completed successfully")
	}
	return status
}

func (h *Checker) runOne(ctx context.Context, c Check) Component {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(ctx)
	result := Component{Name: c.Name(), Status: StateHealthy, Duration: time.Since(start)}
	if err != nil {
		result.Status = StateUnhealthy
		result.Error = err.Error()
		result.err = err
	}
	return result
}

// FuncCheck adapts a function to Check
type FuncCheck struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFuncCheck creates a named check from fn
func NewFuncCheck(name string, fn func(ctx context.Context) error) *FuncCheck {
	return &FuncCheck{name: name, fn: fn}
}

func (f *FuncCheck) Name() string { return f.name }

func (f *FuncCheck) Check(ctx context.Context) error {
	if f.fn == nil {
		return errors.New("no check configured")
	}
	return f.fn(ctx)
}

// Backend is the part of the request client used for liveness
type Backend interface {
	Health(ctx context.Context) error
}

// Pinger is implemented by the session stores
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewBackendCheck probes GET /healthcheck
func NewBackendCheck(backend Backend) Check {
	return NewFuncCheck("backend", backend.Health)
}

// NewSessionCheck probes the session store
func NewSessionCheck(store Pinger) Check {
	return NewFuncCheck("session", store.Ping)
}
