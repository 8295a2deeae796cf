package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// Store keeps derived documents and transcripts under
// sessions/{session}/documents/{name} and sessions/{session}/transcripts/{file}.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (PSYKOLOGEN_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.client.Collection("sessions").Doc(string(id))
}

func (s *Store) documentDoc(ref domain.DocumentRef) *firestore.DocumentRef {
	return s.sessionDoc(ref.SessionID).Collection("documents").Doc(string(ref.Name))
}

func (s *Store) transcriptsCol(id domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(id).Collection("transcripts")
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type documentDoc struct {
	Content   string    `firestore:"content"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type transcriptDoc struct {
	TurnCount int             `firestore:"turn_count"`
	Messages  []transcriptMsg `firestore:"messages"`
	FinalText string          `firestore:"final_text"`
	CreatedAt time.Time       `firestore:"created_at"`
}

type transcriptMsg struct {
	ID        string    `firestore:"id"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"created_at"`
	OffsetMS  int64     `firestore:"offset_ms"`
}

// ─────────────────────────────────────────
// DocumentStore implementation
// ─────────────────────────────────────────

func (s *Store) Exists(ctx context.Context, ref domain.DocumentRef) (bool, error) {
	snap, err := s.documentDoc(ref).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("firestore Exists: %w", err)
	}
	return snap.Exists(), nil
}

func (s *Store) Read(ctx context.Context, ref domain.DocumentRef) (string, error) {
	snap, err := s.documentDoc(ref).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return "", domain.ErrDocumentNotFound
		}
		return "", fmt.Errorf("firestore Read: %w", err)
	}

	var doc documentDoc
	if err := snap.DataTo(&doc); err != nil {
		return "", fmt.Errorf("firestore Read decode: %w", err)
	}
	return doc.Content, nil
}

// Write replaces the whole document in a single Set, which Firestore applies
// atomically.
func (s *Store) Write(ctx context.Context, ref domain.DocumentRef, content string) error {
	_, err := s.documentDoc(ref).Set(ctx, documentDoc{
		Content:   content,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("firestore Write: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ref domain.DocumentRef) error {
	if _, err := s.documentDoc(ref).Delete(ctx); err != nil && !isNotFound(err) {
		return fmt.Errorf("firestore Delete: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// TranscriptStore implementation
// ─────────────────────────────────────────

func (s *Store) SaveTranscript(ctx context.Context, t *domain.Transcript) (string, error) {
	msgs := make([]transcriptMsg, 0, len(t.Messages))
	for _, m := range t.Messages {
		msgs = append(msgs, transcriptMsg{
			ID:        string(m.ID),
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
			OffsetMS:  m.SessionOffset.Milliseconds(),
		})
	}

	ref := s.transcriptsCol(t.SessionID).Doc(t.FileName())
	_, err := ref.Set(ctx, transcriptDoc{
		TurnCount: t.TurnCount,
		Messages:  msgs,
		FinalText: t.FinalText,
		CreatedAt: t.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("firestore SaveTranscript: %w", err)
	}
	return ref.Path, nil
}

// ListTranscripts returns the transcripts of a session, oldest first.
func (s *Store) ListTranscripts(ctx context.Context, id domain.SessionID) ([]domain.TranscriptInfo, error) {
	iter := s.transcriptsCol(id).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []domain.TranscriptInfo
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListTranscripts: %w", err)
		}

		var doc transcriptDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode transcriptDoc: %w", err)
		}

		out = append(out, domain.TranscriptInfo{
			Location:  snap.Ref.Path,
			SessionID: id,
			TurnCount: doc.TurnCount,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}
