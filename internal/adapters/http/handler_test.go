package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/PabloGalante/psykologen/internal/adapters/http"
	"github.com/PabloGalante/psykologen/internal/adapters/llm"
	"github.com/PabloGalante/psykologen/internal/adapters/storage/memory"
	"github.com/PabloGalante/psykologen/internal/app/conversation"
	journalapp "github.com/PabloGalante/psykologen/internal/app/journal"
	"github.com/PabloGalante/psykologen/internal/domain"
)

func newTestServer(t *testing.T, client *llm.MockLLM) http.Handler {
	t.Helper()

	convSvc := conversation.NewService(client, memory.NewSessionStore(), memory.NewDocumentStore(), conversation.Options{
		EndMarker: "KLAR FÖR SKRIVNING",
		Workers:   1,
	})
	t.Cleanup(func() { _ = convSvc.Shutdown(context.Background()) })
	journalSvc := journalapp.NewService(memory.NewTranscriptStore())

	return httpadapter.NewServer(convSvc, journalSvc)
}

func do(t *testing.T, srv http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())

	w, body := do(t, srv, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	assert.Equal(t, "OK", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateSessionAndSendMessage(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())

	w, body := do(t, srv, http.MethodPost, "/sessions", `{"session_id":"s1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "s1", body["session_id"])
	assert.NotEmpty(t, body["message"])

	w, body = do(t, srv, http.MethodPost, "/sessions/s1/messages", `{"text":"Jag mår inte bra"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["message"])
	assert.Len(t, body["reflections"], 2)
	_, complete := body["sessionComplete"]
	assert.False(t, complete)

	w, body = do(t, srv, http.MethodGet, "/sessions/s1/conversation", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["conversation"], 3)

	w, body = do(t, srv, http.MethodGet, "/sessions/s1/conversation?include_system=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["conversation"], 4)

	w, body = do(t, srv, http.MethodGet, "/sessions/s1/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := body["statistics"].(map[string]any)
	assert.EqualValues(t, 1, stats["turn_count"])
	assert.EqualValues(t, 45, stats["total_tokens"])
}

func TestCreateSessionWithoutBody(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())

	w, body := do(t, srv, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, body["session_id"])
}

func TestSendBlankMessage(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())
	do(t, srv, http.MethodPost, "/sessions", `{"session_id":"s1"}`)

	w, body := do(t, srv, http.MethodPost, "/sessions/s1/messages", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())

	for _, path := range []string{"/sessions/nope/profile", "/sessions/nope/plan", "/sessions/nope/statistics", "/sessions/nope"} {
		w, body := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, false, body["success"], path)
	}
}

func TestDocumentSentinels(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())
	do(t, srv, http.MethodPost, "/sessions", `{"session_id":"s1"}`)

	_, body := do(t, srv, http.MethodGet, "/sessions/s1/profile", "")
	assert.Equal(t, conversation.NoProfileYet, body["profile"])

	_, body = do(t, srv, http.MethodGet, "/sessions/s1/plan", "")
	assert.Equal(t, conversation.NoPlanYet, body["plan"])
}

func TestUpstreamFailureIs502(t *testing.T) {
	client := llm.NewMockLLM().WithResponder(func([]domain.ChatMessage) (string, error) {
		return "", &domain.UpstreamError{Status: 429, Body: "rate limited"}
	})
	srv := newTestServer(t, client)

	w, body := do(t, srv, http.MethodPost, "/sessions", `{}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, body["error"], "rate limited")
}

func TestSessionCompleteAndTranscript(t *testing.T) {
	client := llm.NewMockLLM().WithResponder(func(msgs []domain.ChatMessage) (string, error) {
		last := msgs[len(msgs)-1].Content
		if bytes.Contains([]byte(last), []byte("Svara nu högt")) {
			return "Tack. KLAR FÖR SKRIVNING Sammanfattning.", nil
		}
		return "- tanke", nil
	})
	srv := newTestServer(t, client)
	do(t, srv, http.MethodPost, "/sessions", `{"session_id":"s1"}`)

	w, body := do(t, srv, http.MethodPost, "/sessions/s1/transcript", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "not completed yet")

	_, body = do(t, srv, http.MethodPost, "/sessions/s1/messages", `{"text":"Hej då"}`)
	assert.Equal(t, true, body["sessionComplete"])
	assert.Equal(t, "Sammanfattning.", body["finalText"])

	w, body = do(t, srv, http.MethodPost, "/sessions/s1/transcript", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "memory://s1/intervju_text_1_utbyten.txt", body["location"])

	w, _ = do(t, srv, http.MethodDelete, "/sessions/s1", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w, body = do(t, srv, http.MethodGet, "/sessions/s1/transcripts", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	transcripts := body["transcripts"].([]any)
	require.Len(t, transcripts, 1)
	first := transcripts[0].(map[string]any)
	assert.Equal(t, "memory://s1/intervju_text_1_utbyten.txt", first["location"])
	assert.EqualValues(t, 1, first["turn_count"])
}

func TestListAndEndSessions(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())
	do(t, srv, http.MethodPost, "/sessions", `{"session_id":"a"}`)
	do(t, srv, http.MethodPost, "/sessions", `{"session_id":"b"}`)

	w, body := do(t, srv, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"a", "b"}, body["sessions"])

	w, _ = do(t, srv, http.MethodDelete, "/sessions/a", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	_, body = do(t, srv, http.MethodGet, "/sessions", "")
	assert.Equal(t, []any{"b"}, body["sessions"])

	w, _ = do(t, srv, http.MethodGet, "/sessions/a", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, srv, http.MethodDelete, "/sessions/a", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = do(t, srv, http.MethodGet, "/sessions/a/transcripts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, body["transcripts"])
}

func TestCreateSessionDuplicateID(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())

	w, _ := do(t, srv, http.MethodPost, "/sessions", `{"session_id":"s1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := do(t, srv, http.MethodPost, "/sessions", `{"session_id":"s1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "already in use")
}
