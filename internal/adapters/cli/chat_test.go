package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/psykologen/internal/adapters/llm"
	"github.com/PabloGalante/psykologen/internal/adapters/storage/memory"
	"github.com/PabloGalante/psykologen/internal/app/conversation"
	"github.com/PabloGalante/psykologen/internal/app/journal"
	"github.com/PabloGalante/psykologen/internal/domain"
)

func newChat(t *testing.T, client *llm.MockLLM, input string) (*Chat, *bytes.Buffer, *memory.TranscriptStore) {
	t.Helper()
	color.NoColor = true

	svc := conversation.NewService(client, memory.NewSessionStore(), memory.NewDocumentStore(), conversation.Options{
		EndMarker: "KLAR FÖR SKRIVNING",
		Workers:   1,
	})
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	transcripts := memory.NewTranscriptStore()
	out := &bytes.Buffer{}
	return NewChat(svc, journal.NewService(transcripts), strings.NewReader(input), out), out, transcripts
}

func TestChatQuitWord(t *testing.T) {
	chat, out, transcripts := newChat(t, llm.NewMockLLM(), "Jag mår inte bra\n\nAVSLUTA\nnever read\n")

	res, err := chat.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Empty(t, transcripts.Locations())

	text := out.String()
	assert.Contains(t, text, "Erik: [MOCK]")
	assert.Contains(t, text, "Antal utbyten: 1")
	assert.Contains(t, text, "Max kapacitet: 128,000")
}

func TestChatEndMarkerWritesTranscript(t *testing.T) {
	client := llm.NewMockLLM().WithResponder(func(msgs []domain.ChatMessage) (string, error) {
		if strings.Contains(msgs[len(msgs)-1].Content, "Svara nu högt") {
			return "Tack för idag. KLAR FÖR SKRIVNING Texten.", nil
		}
		return "Inga nya tankar.", nil
	})
	chat, out, transcripts := newChat(t, client, "hej\nmer\n")

	res, err := chat.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "memory://"+string(res.SessionID)+"/intervju_text_1_utbyten.txt", res.TranscriptLocation)
	assert.Equal(t, []string{res.TranscriptLocation}, transcripts.Locations())
	assert.Contains(t, out.String(), "INTERVJUN SLUTFÖRD")
	assert.Contains(t, out.String(), "Antal utbyten: 1")
}

func TestChatAcceptsLongLines(t *testing.T) {
	client := llm.NewMockLLM()
	long := strings.Repeat("jag har så mycket att säga ", 4000) // > 64 KiB
	chat, out, _ := newChat(t, client, long+"\nquit\n")

	res, err := chat.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Antal utbyten: 1")

	calls := client.Calls()
	require.NotEmpty(t, calls)
	var sent bool
	for _, call := range calls {
		if strings.Contains(call[len(call)-1].Content, strings.TrimSpace(long)) {
			sent = true
			break
		}
	}
	assert.True(t, sent, "the whole line reaches the model")
	assert.False(t, res.Completed)
}

func TestThousands(t *testing.T) {
	assert.Equal(t, "0", thousands(0))
	assert.Equal(t, "999", thousands(999))
	assert.Equal(t, "128,000", thousands(128000))
	assert.Equal(t, "1,234,567", thousands(1234567))
	assert.Equal(t, "-1,500", thousands(-1500))
}
