package llm

import (
	"strings"

	"google.golang.org/genai"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// genaiPrompt represents the system instruction + the conversation contents for Gemini.
type genaiPrompt struct {
	System   *genai.Content
	Contents []*genai.Content
}

// buildGenAIPrompt splits role-tagged messages into Gemini's shape. Gemini has
// no system role inside the conversation, so every system message is folded
// into the system instruction.
func buildGenAIPrompt(messages []domain.ChatMessage) genaiPrompt {
	var (
		systemParts []string
		contents    []*genai.Content
	)

	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			systemParts = append(systemParts, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	var p genaiPrompt
	if len(systemParts) > 0 {
		// According to official examples, the role here is usually RoleUser, not "system"
		p.System = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}
	p.Contents = contents
	return p
}

// openAIMessages converts to the chat-completions wire format.
func openAIMessages(messages []domain.ChatMessage) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
