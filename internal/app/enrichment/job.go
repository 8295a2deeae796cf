package enrichment

import (
	"context"
	"time"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// Snapshot is the immutable input of one enrichment run. It is taken when
// the turn commits, so jobs never read live session state.
type Snapshot struct {
	SessionID domain.SessionID
	StartedAt time.Time
	UserText  string
	ReplyText string
	History   []domain.Message
}

// Job is one kind of background work run after every turn.
type Job interface {
	Name() string
	Run(ctx context.Context, snap Snapshot) (domain.Usage, error)
}

// NewSnapshot copies history so the caller may keep using its slice.
func NewSnapshot(id domain.SessionID, startedAt time.Time, userText, replyText string, history []domain.Message) Snapshot {
	h := make([]domain.Message, len(history))
	copy(h, history)
	return Snapshot{
		SessionID: id,
		StartedAt: startedAt,
		UserText:  userText,
		ReplyText: replyText,
		History:   h,
	}
}
