package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/psykologen/internal/adapters/storage/memory"
	"github.com/PabloGalante/psykologen/internal/domain"
)

func TestSaveTranscript(t *testing.T) {
	store := memory.NewTranscriptStore()
	svc := NewService(store)

	loc, err := svc.SaveTranscript(context.Background(), domain.Snapshot{
		ID:        "s1",
		TurnCount: 2,
		Completed: true,
		FinalText: "Slutord.",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "persona"},
			{Role: domain.RoleAssistant, Content: "Hej"},
			{Role: domain.RoleUser, Content: "Hallå"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "memory://s1/intervju_text_2_utbyten.txt", loc)

	tr, ok := store.Get(loc)
	require.True(t, ok)
	require.Len(t, tr.Messages, 2)

	text := tr.Render()
	assert.NotContains(t, text, "persona")
	assert.Contains(t, text, "Agent: Hej")
	assert.Contains(t, text, "Användare: Hallå")
	assert.Contains(t, text, "SLUTGILTIG TEXT:")
	assert.Contains(t, text, "Slutord.")
}

func TestSaveTranscriptRequiresCompletedSession(t *testing.T) {
	svc := NewService(memory.NewTranscriptStore())
	_, err := svc.SaveTranscript(context.Background(), domain.Snapshot{ID: "s1"})
	assert.True(t, domain.IsValidation(err))
}

func TestListTranscripts(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewTranscriptStore())

	infos, err := svc.ListTranscripts(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, infos)
	assert.Empty(t, infos)

	loc, err := svc.SaveTranscript(ctx, domain.Snapshot{ID: "s1", TurnCount: 3, Completed: true})
	require.NoError(t, err)

	infos, err = svc.ListTranscripts(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, loc, infos[0].Location)
	assert.Equal(t, 3, infos[0].TurnCount)
	assert.False(t, infos[0].CreatedAt.IsZero())
}
