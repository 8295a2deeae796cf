package memory

import (
	"sort"
	"sync"

	"github.com/PabloGalante/psykologen/internal/domain"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.SessionState
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionID]*domain.SessionState),
	}
}

func (s *SessionStore) CreateSession(session *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID()]; exists {
		return domain.ErrSessionExists
	}

	s.sessions[session.ID()] = session
	return nil
}

func (s *SessionStore) GetSession(id domain.SessionID) (*domain.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	return sess, nil
}

// ListSessions returns the IDs of all live sessions, sorted.
func (s *SessionStore) ListSessions() []domain.SessionID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]domain.SessionID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *SessionStore) DeleteSession(id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}
