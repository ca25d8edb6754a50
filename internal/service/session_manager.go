package service

import (
	"time"

	"keyword-pivot/pkg/logger"
	"keyword-pivot/pkg/pivot"
	"keyword-pivot/pkg/storage"
)

// SessionManager keeps sessions in an LRU cache with idle expiry.
type SessionManager struct {
	engine *pivot.Engine
	cache  *storage.MemoryCache[*Session]
	log    *logger.Logger
}

func NewSessionManager(engine *pivot.Engine, maxSessions int, ttl time.Duration) *SessionManager {
	m := &SessionManager{
		engine: engine,
		cache:  storage.NewMemoryCache[*Session](maxSessions, ttl),
		log:    logger.GetLogger().WithField("component", "session_manager"),
	}
	m.cache.OnEvict(func(id string, _ *Session) {
		m.log.WithField("session_id", id).Debug("Session evicted")
	})
	return m
}

// Get returns the session for id, creating it at the default state.
func (m *SessionManager) Get(id string) *Session {
	if s, ok := m.cache.Get(id); ok {
		return s
	}
	s := NewSession(id, m.engine)
	m.cache.Set(id, s)
	return s
}

func (m *SessionManager) Lookup(id string) (*Session, bool) {
	return m.cache.Get(id)
}

func (m *SessionManager) Drop(id string) bool {
	return m.cache.Delete(id)
}

func (m *SessionManager) Count() int {
	return m.cache.Len()
}

func (m *SessionManager) Close() error {
	return m.cache.Close()
}

var _ SessionService = (*SessionManager)(nil)
