package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/psykologen/internal/domain"
)

func newState(start time.Time) *domain.SessionState {
	return domain.NewSessionState("s1", start, domain.Message{ID: "sys", Content: "persona"})
}

func TestSessionStateKeepsSystemMessageFirst(t *testing.T) {
	s := newState(time.Now())

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Equal(t, time.Duration(0), msgs[0].SessionOffset)
}

func TestSessionStateOffsetsNeverDecrease(t *testing.T) {
	start := time.Now()
	s := newState(start)

	s.Append(domain.Message{ID: "a", Role: domain.RoleAssistant, SessionOffset: 5 * time.Second})
	s.CommitTurn(
		domain.Message{ID: "u", Role: domain.RoleUser, SessionOffset: 2 * time.Second},
		domain.Message{ID: "b", Role: domain.RoleAssistant, SessionOffset: 9 * time.Second},
		[]string{"one"},
	)

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	for i := 1; i < len(msgs); i++ {
		assert.GreaterOrEqual(t, msgs[i].SessionOffset, msgs[i-1].SessionOffset)
	}
	assert.Equal(t, 5*time.Second, msgs[2].SessionOffset)
}

func TestSessionStateSnapshotIsACopy(t *testing.T) {
	s := newState(time.Now())
	s.CommitTurn(
		domain.Message{ID: "u", Role: domain.RoleUser, Content: "hej"},
		domain.Message{ID: "a", Role: domain.RoleAssistant, Content: "hej hej"},
		[]string{"first"},
	)

	snap := s.Snapshot()
	snap.Messages[1].Content = "changed"
	snap.Reflections[0] = "changed"

	assert.Equal(t, "hej", s.Messages()[1].Content)
	assert.Equal(t, []string{"first"}, s.Reflections())
	assert.Equal(t, 1, snap.TurnCount)
}

func TestSessionStateOffsetBeforeStart(t *testing.T) {
	start := time.Now()
	s := newState(start)

	assert.Equal(t, time.Duration(0), s.Offset(start.Add(-time.Minute)))
	assert.Equal(t, 90*time.Second, s.Offset(start.Add(90*time.Second)))
}

func TestUsageAdd(t *testing.T) {
	u := domain.Usage{InputTokens: 3, OutputTokens: 4}.Add(domain.Usage{InputTokens: 10, OutputTokens: 1})
	assert.Equal(t, 13, u.InputTokens)
	assert.Equal(t, 5, u.OutputTokens)
	assert.Equal(t, 18, u.Total())
}
