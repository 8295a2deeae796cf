package llm

import (
	"testing"

	"google.golang.org/genai"

	"github.com/PabloGalante/psykologen/internal/domain"
)

func TestBuildGenAIPromptFoldsSystemMessages(t *testing.T) {
	p := buildGenAIPrompt([]domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "persona"},
		{Role: domain.RoleAssistant, Content: "hej"},
		{Role: domain.RoleUser, Content: "hallå"},
	})

	if p.System == nil || len(p.System.Parts) != 1 || p.System.Parts[0].Text != "persona" {
		t.Fatalf("unexpected system instruction: %+v", p.System)
	}
	if len(p.Contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(p.Contents))
	}
	if p.Contents[0].Role != string(genai.RoleModel) {
		t.Errorf("expected assistant mapped to model, got %q", p.Contents[0].Role)
	}
	if p.Contents[1].Role != string(genai.RoleUser) {
		t.Errorf("expected user role, got %q", p.Contents[1].Role)
	}
}

func TestBuildGenAIPromptWithoutSystem(t *testing.T) {
	p := buildGenAIPrompt([]domain.ChatMessage{{Role: domain.RoleUser, Content: "hej"}})
	if p.System != nil {
		t.Fatalf("expected no system instruction")
	}
}
