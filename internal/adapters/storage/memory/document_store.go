package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// DocumentStore keeps derived documents in a map. Each value is replaced as
// a whole, so readers never observe a partial write.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[domain.DocumentRef]string
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[domain.DocumentRef]string)}
}

func (s *DocumentStore) Exists(_ context.Context, ref domain.DocumentRef) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[ref]
	return ok, nil
}

func (s *DocumentStore) Read(_ context.Context, ref domain.DocumentRef) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[ref]
	if !ok {
		return "", domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentStore) Write(_ context.Context, ref domain.DocumentRef, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[ref] = content
	return nil
}

func (s *DocumentStore) Delete(_ context.Context, ref domain.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, ref)
	return nil
}
