package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// MockResponder produces the reply for one request. Returning an error makes
// Complete fail with it.
type MockResponder func(messages []domain.ChatMessage) (string, error)

// MockLLM is a deterministic CompletionClient for local runs and tests.
// Every call reports a fixed usage so token sums are predictable.
type MockLLM struct {
	mu        sync.Mutex
	responder MockResponder
	usage     domain.Usage
	calls     [][]domain.ChatMessage
}

func NewMockLLM() *MockLLM {
	return &MockLLM{
		responder: defaultMockResponse,
		usage:     domain.Usage{InputTokens: 10, OutputTokens: 5},
	}
}

// WithResponder replaces the reply function.
func (m *MockLLM) WithResponder(r MockResponder) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = r
	return m
}

// WithUsage sets the usage reported for every call.
func (m *MockLLM) WithUsage(u domain.Usage) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = u
	return m
}

func (m *MockLLM) Complete(ctx context.Context, messages []domain.ChatMessage) (*domain.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	cp := make([]domain.ChatMessage, len(messages))
	copy(cp, messages)
	m.calls = append(m.calls, cp)
	responder, usage := m.responder, m.usage
	m.mu.Unlock()

	text, err := responder(cp)
	if err != nil {
		return nil, err
	}
	return &domain.Completion{Text: text, Usage: usage}, nil
}

// Calls returns every request received so far.
func (m *MockLLM) Calls() [][]domain.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]domain.ChatMessage, len(m.calls))
	copy(out, m.calls)
	return out
}

func defaultMockResponse(messages []domain.ChatMessage) (string, error) {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			last = messages[i].Content
			break
		}
	}

	switch {
	case strings.Contains(last, "inre reflektion"):
		return "- Patienten verkar nedstämd\n- Vill bli lyssnad på", nil
	case strings.Contains(last, "PATIENT-PROFIL"):
		return "# PATIENT-PROFIL\n\n## Grundläggande Information\n[mock]", nil
	case strings.Contains(last, "# SESSIONSPLAN"):
		return "# SESSIONSPLAN\n\n## Identifierade Problem\n[mock]", nil
	case last == "":
		return "[MOCK] Hej, jag heter Erik.", nil
	default:
		return fmt.Sprintf("[MOCK] Jag hör dig. Berätta mer om det. (%d meddelanden)", len(messages)), nil
	}
}
