package journal

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/PabloGalante/psykologen/internal/domain"
	"github.com/PabloGalante/psykologen/internal/observability"
)

// Service writes the session-end artifact of a finished interview.
type Service struct {
	store domain.TranscriptStore
	now   func() time.Time
}

// NewService creates a journal service from a TranscriptStore
func NewService(store domain.TranscriptStore) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// SaveTranscript stores the history of a completed session together with
// its final text and returns where it was written.
func (s *Service) SaveTranscript(ctx context.Context, snap domain.Snapshot) (string, error) {
	if s.store == nil {
		return "", errors.New("journal: no transcript store configured")
	}
	if !snap.Completed {
		return "", &domain.ValidationError{Field: "session", Reason: "has not reached its end marker"}
	}

	msgs := make([]domain.Message, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		if m.Role != domain.RoleSystem {
			msgs = append(msgs, m)
		}
	}

	loc, err := s.store.SaveTranscript(ctx, &domain.Transcript{
		SessionID: snap.ID,
		TurnCount: snap.TurnCount,
		Messages:  msgs,
		FinalText: snap.FinalText,
		CreatedAt: s.now(),
	})
	if err != nil {
		return "", err
	}

	observability.LoggerFromContext(ctx).Info("transcript saved",
		zap.String("location", loc), zap.Int("turns", snap.TurnCount))
	return loc, nil
}

// ListTranscripts returns what has been saved for a session, oldest first.
func (s *Service) ListTranscripts(ctx context.Context, id domain.SessionID) ([]domain.TranscriptInfo, error) {
	if s.store == nil {
		return nil, errors.New("journal: no transcript store configured")
	}
	infos, err := s.store.ListTranscripts(ctx, id)
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []domain.TranscriptInfo{}
	}
	return infos, nil
}
