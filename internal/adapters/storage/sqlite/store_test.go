package sqlite

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/psykologen/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ref := domain.DocumentRef{SessionID: "s1", Name: domain.DocumentProfile}

	_, err := s.Read(ctx, ref)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)

	require.NoError(t, s.Write(ctx, ref, "v1"))
	require.NoError(t, s.Write(ctx, ref, "v2"))

	got, err := s.Read(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	ok, err := s.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, domain.DocumentRef{SessionID: "s1", Name: domain.DocumentPlan})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, ref))
	require.NoError(t, s.Delete(ctx, ref))
	_, err = s.Read(ctx, ref)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestInterleavedWriters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ref := domain.DocumentRef{SessionID: "s1", Name: domain.DocumentPlan}

	a := strings.Repeat("a", 8192)
	b := strings.Repeat("b", 8192)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); assert.NoError(t, s.Write(ctx, ref, a)) }()
		go func() { defer wg.Done(); assert.NoError(t, s.Write(ctx, ref, b)) }()
	}
	wg.Wait()

	got, err := s.Read(ctx, ref)
	require.NoError(t, err)
	assert.True(t, got == a || got == b)
}

func TestSaveTranscript(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	loc, err := s.SaveTranscript(ctx, &domain.Transcript{SessionID: "s1", TurnCount: 1, FinalText: "Slut.", CreatedAt: first})
	require.NoError(t, err)
	assert.Equal(t, "sqlite://s1/intervju_text_1_utbyten.txt", loc)

	second, err := s.SaveTranscript(ctx, &domain.Transcript{SessionID: "s1", TurnCount: 5, CreatedAt: first.Add(time.Minute)})
	require.NoError(t, err)
	_, err = s.SaveTranscript(ctx, &domain.Transcript{SessionID: "s2", TurnCount: 2, CreatedAt: first})
	require.NoError(t, err)

	infos, err := s.ListTranscripts(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, loc, infos[0].Location)
	assert.Equal(t, 1, infos[0].TurnCount)
	assert.True(t, first.Equal(infos[0].CreatedAt))
	assert.Equal(t, second, infos[1].Location)
	assert.Equal(t, 5, infos[1].TurnCount)

	infos, err = s.ListTranscripts(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, infos)
}
