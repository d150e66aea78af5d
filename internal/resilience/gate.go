// Package resilience provides admission control for work that must not run
// concurrently within one scope.
package resilience

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrInFlight is returned when a gate already admitted its maximum number of callers
var ErrInFlight = errors.New("operation already in flight")

// GateConfig defines the configuration for a gate
type GateConfig struct {
	// MaxInFlight is the number of callers admitted at once
	MaxInFlight int64
}

// DefaultGateConfig returns a single-flight configuration
func DefaultGateConfig() GateConfig {
	return GateConfig{MaxInFlight: 1}
}

// GateMetrics contains metrics for a gate
type GateMetrics struct {
	// Admitted is the total number of callers that entered the gate
	Admitted uint64
	// Rejected is the total number of callers turned away
	Rejected uint64
	// Active is the current number of callers inside the gate
	Active int64
}

// Gate rejects callers instead of queueing them once MaxInFlight callers are
// inside. With the default configuration it enforces single flight.
type Gate struct {
	name      string
	config    GateConfig
	semaphore *semaphore.Weighted
	metrics   GateMetrics
	mu        sync.Mutex
	logger    *zap.Logger
}

// NewGate creates a new gate. A nil logger disables logging.
func NewGate(name string, config GateConfig, logger *zap.Logger) *Gate {
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gate{
		name:      name,
		config:    config,
		semaphore: semaphore.NewWeighted(config.MaxInFlight),
		logger:    logger,
	}
}

// Enter tries to admit the caller without blocking. Callers that were
// admitted must call Leave.
func (g *Gate) Enter() bool {
	admitted := g.semaphore.TryAcquire(1)

	g.mu.Lock()
	defer g.mu.Unlock()

	if !admitted {
		g.metrics.Rejected++
		g.logger.Debug("Gate rejected caller",
			zap.String("gate", g.name),
			zap.Int64("active", g.metrics.Active))
		return false
	}

	g.metrics.Admitted++
	g.metrics.Active++
	g.logger.Debug("Gate admitted caller",
		zap.String("gate", g.name),
		zap.Int64("active", g.metrics.Active))
	return true
}

// Leave releases a slot taken by Enter
func (g *Gate) Leave() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.semaphore.Release(1)
	if g.metrics.Active > 0 {
		g.metrics.Active--
	}
}

// Execute runs f if the gate admits the caller, otherwise returns ErrInFlight
func (g *Gate) Execute(ctx context.Context, f func(ctx context.Context) error) error {
	if !g.Enter() {
		return ErrInFlight
	}
	defer g.Leave()

	return f(ctx)
}

// GetMetrics returns the current metrics
func (g *Gate) GetMetrics() GateMetrics {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.metrics
}
