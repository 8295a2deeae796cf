package memory

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

func TestDocumentStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	ref := domain.DocumentRef{SessionID: "s1", Name: domain.DocumentProfile}

	_, err := s.Read(ctx, ref)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)

	require.NoError(t, s.Write(ctx, ref, "v1"))
	ok, err := s.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	other := domain.DocumentRef{SessionID: "s2", Name: domain.DocumentProfile}
	ok, _ = s.Exists(ctx, other)
	assert.False(t, ok, "documents are scoped per session")

	require.NoError(t, s.Delete(ctx, ref))
	require.NoError(t, s.Delete(ctx, ref))
	_, err = s.Read(ctx, ref)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentStoreInterleavedWriters(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	ref := domain.DocumentRef{SessionID: "s1", Name: domain.DocumentPlan}

	a := strings.Repeat("a", 4096)
	b := strings.Repeat("b", 4096)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _ = s.Write(ctx, ref, a) }()
		go func() { defer wg.Done(); _ = s.Write(ctx, ref, b) }()
	}
	wg.Wait()

	got, err := s.Read(ctx, ref)
	require.NoError(t, err)
	assert.True(t, got == a || got == b)
}

func TestSessionStore(t *testing.T) {
	s := NewSessionStore()
	sess := domain.NewSessionState("b", timeZero, domain.Message{Content: "persona"})

	require.NoError(t, s.CreateSession(sess))
	require.ErrorIs(t, s.CreateSession(sess), domain.ErrSessionExists)
	require.NoError(t, s.CreateSession(domain.NewSessionState("a", timeZero, domain.Message{})))

	got, err := s.GetSession("b")
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, []domain.SessionID{"a", "b"}, s.ListSessions())

	require.NoError(t, s.DeleteSession("b"))
	_, err = s.GetSession("b")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.ErrorIs(t, s.DeleteSession("b"), domain.ErrSessionNotFound)
}

func TestTranscriptStore(t *testing.T) {
	s := NewTranscriptStore()
	loc, err := s.SaveTranscript(context.Background(), &domain.Transcript{SessionID: "s1", TurnCount: 3})
	require.NoError(t, err)
	assert.Equal(t, "memory://s1/intervju_text_3_utbyten.txt", loc)

	tr, ok := s.Get(loc)
	require.True(t, ok)
	assert.Equal(t, 3, tr.TurnCount)
	assert.Equal(t, []string{loc}, s.Locations())

	_, err = s.SaveTranscript(context.Background(), &domain.Transcript{SessionID: "s2", TurnCount: 1})
	require.NoError(t, err)

	infos, err := s.ListTranscripts(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, loc, infos[0].Location)
	assert.Equal(t, 3, infos[0].TurnCount)

	infos, err = s.ListTranscripts(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestSessionStoreConcurrentCreateSameID(t *testing.T) {
	s := NewSessionStore()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.CreateSession(domain.NewSessionState("same", timeZero, domain.Message{}))
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSessionExists)
	}
	assert.Equal(t, 1, created)
}

var timeZero time.Time
