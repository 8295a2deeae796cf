package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// TranscriptStore is an in-memory domain.TranscriptStore.
// It is NOT persistent and is only suitable for development / tests.
type TranscriptStore struct {
	mu          sync.RWMutex
	transcripts map[string]*domain.Transcript
	order       []string
}

func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{transcripts: make(map[string]*domain.Transcript)}
}

// SaveTranscript stores t under "memory://<session>/<file name>". Saving
// the same location twice replaces the earlier transcript.
func (s *TranscriptStore) SaveTranscript(_ context.Context, t *domain.Transcript) (string, error) {
	if t == nil {
		return "", nil
	}

	loc := "memory://" + string(t.SessionID) + "/" + t.FileName()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transcripts[loc]; !ok {
		s.order = append(s.order, loc)
	}
	s.transcripts[loc] = t
	return loc, nil
}

// ListTranscripts returns the transcripts saved for id in save order.
func (s *TranscriptStore) ListTranscripts(_ context.Context, id domain.SessionID) ([]domain.TranscriptInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TranscriptInfo
	for _, loc := range s.order {
		t := s.transcripts[loc]
		if t.SessionID != id {
			continue
		}
		out = append(out, domain.TranscriptInfo{
			Location:  loc,
			SessionID: t.SessionID,
			TurnCount: t.TurnCount,
			CreatedAt: t.CreatedAt,
		})
	}
	return out, nil
}

// Get returns the transcript saved at loc.
func (s *TranscriptStore) Get(loc string) (*domain.Transcript, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transcripts[loc]
	return t, ok
}

// Locations lists saved transcripts in save order.
func (s *TranscriptStore) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
