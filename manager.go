package voicerelay

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Default lifecycle parameters for the session registry.
const (
	// DefaultSessionTimeout is how long a session may sit idle before the
	// expiry sweep reclaims it.
	DefaultSessionTimeout = 30 * time.Minute

	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = 5 * time.Minute
)

// SessionManager owns the collection of sessions keyed by session id.
// It creates, looks up, destroys, and periodically sweeps expired sessions.
// The registry is safe for concurrent insert, lookup, and removal; individual
// sessions guard their own fields.
type SessionManager struct {
	timeout time.Duration
	logger  *Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewSessionManager creates a registry and starts its background expiry
// sweep. A zero timeout or interval selects the default (30 minutes idle,
// swept every 5 minutes). Call Close to stop the sweep and release every
// held connection.
func NewSessionManager(timeout, sweepInterval time.Duration, logger *Logger) *SessionManager {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = NewLoggerFromEnv()
	}
	m := &SessionManager{
		timeout:  timeout,
		logger:   logger,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.sweepLoop(sweepInterval)
	m.logger.Info("session_manager_started", map[string]any{"timeout": timeout.String()})
	return m
}

// CreateSession generates a globally unique identifier, registers a new empty
// session, and returns the identifier.
func (m *SessionManager) CreateSession() string {
	id := uuid.NewString()
	s := newSession(id)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session_created", map[string]any{"session_id": id})
	return id
}

// GetSession returns the session for id and refreshes its activity
// timestamp. An unknown id yields ErrSessionNotFound; this is a normal
// negative result, not a fault.
func (m *SessionManager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// RemoveSession detaches the session from the registry, closing any open
// upstream connection first. Close failures are logged, never propagated.
// Returns false if the id was already absent, so removal is idempotent.
func (m *SessionManager) RemoveSession(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	s.mu.Lock()
	s.teardownLocked("session ended")
	s.mu.Unlock()

	m.logger.Info("session_removed", map[string]any{"session_id": id})
	return true
}

// CleanupExpiredSessions removes every session idle longer than the
// registry's timeout, using the same close-then-remove path as
// RemoveSession. It is invoked by the background ticker and may also be
// triggered on demand. Returns the number of sessions reclaimed.
//
// The scan works on a point-in-time snapshot of the keys, so sessions
// created mid-sweep are unaffected.
func (m *SessionManager) CleanupExpiredSessions() int {
	m.mu.RLock()
	snapshot := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	removed := 0
	for _, s := range snapshot {
		if !s.expired(m.timeout) {
			continue
		}
		m.logger.Info("session_expired", map[string]any{"session_id": s.ID})
		if m.RemoveSession(s.ID) {
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("expired_sessions_cleaned", map[string]any{"count": removed})
	}
	return removed
}

// GetActiveSessionCount returns the number of registered sessions.
func (m *SessionManager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetActiveSessions returns a point-in-time snapshot of the registry keys.
// No ordering is guaranteed.
func (m *SessionManager) GetActiveSessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Close stops the background sweep, closes every held upstream connection,
// and clears the registry. It is safe to call multiple times and runs on all
// shutdown paths, not just the happy one.
func (m *SessionManager) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		<-m.done

		m.mu.Lock()
		sessions := m.sessions
		m.sessions = make(map[string]*Session)
		m.mu.Unlock()

		for _, s := range sessions {
			s.mu.Lock()
			s.teardownLocked("service shutting down")
			s.mu.Unlock()
		}
		m.logger.Info("session_manager_closed", map[string]any{"released": len(sessions)})
	})
}

func (m *SessionManager) sweepLoop(interval time.Duration) {
	defer close(m.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-t.C:
			m.CleanupExpiredSessions()
		}
	}
}
