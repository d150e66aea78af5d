package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/client"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "grasshopper_ui_sessions_active",
	Help: "Page sessions currently held in memory",
})

// ClientFactory creates a fresh API client for a new session
type ClientFactory func() client.API

// Manager owns the page sessions of the server
type Manager struct {
	sessions    map[string]*Context
	mutex       sync.RWMutex
	factory     ClientFactory
	idleTimeout time.Duration
	logger      *logrus.Logger
	gateLogger  *zap.Logger
}

// NewManager creates a new session manager
func NewManager(factory ClientFactory, idleTimeout time.Duration, logger *logrus.Logger, gateLogger *zap.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	if idleTimeout <= 0 {
		idleTimeout = 2 * time.Hour
	}

	return &Manager{
		sessions:    make(map[string]*Context),
		factory:     factory,
		idleTimeout: idleTimeout,
		logger:      logger,
		gateLogger:  gateLogger,
	}
}

// Get returns the session with the given id, creating a new one under a
// fresh id when it is unknown. The second return value reports whether a new
// session was created.
func (m *Manager) Get(id string) (*Context, bool) {
	if id != "" {
		m.mutex.RLock()
		sess, ok := m.sessions[id]
		m.mutex.RUnlock()
		if ok {
			sess.Touch(time.Now())
			return sess, false
		}
	}

	sess := NewContext(uuid.New().String(), m.factory(), m.gateLogger)

	m.mutex.Lock()
	m.sessions[sess.ID] = sess
	activeSessions.Set(float64(len(m.sessions)))
	m.mutex.Unlock()

	m.logger.WithField("session", sess.ID).Debug("Created page session")
	return sess, true
}

// Remove drops a session
func (m *Manager) Remove(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.sessions, id)
	activeSessions.Set(float64(len(m.sessions)))
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.sessions)
}

// InFlight returns the number of tenant walks and tripos fetches currently
// running across every session
func (m *Manager) InFlight() int64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var active int64
	for _, sess := range m.sessions {
		active += sess.TenantGate.GetMetrics().Active
		active += sess.TriposGate.GetMetrics().Active
	}
	return active
}

// Sweep removes sessions idle since before now minus the idle timeout and
// returns how many were removed
func (m *Manager) Sweep(now time.Time) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if now.Sub(sess.LastUsed()) > m.idleTimeout {
			delete(m.sessions, id)
			removed++
		}
	}
	activeSessions.Set(float64(len(m.sessions)))

	if removed > 0 {
		m.logger.WithField("removed", removed).Info("Swept idle page sessions")
	}
	return removed
}

// StartSweeping periodically removes idle sessions until ctx is done
func (m *Manager) StartSweeping(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.Sweep(now)
			}
		}
	}()
}
