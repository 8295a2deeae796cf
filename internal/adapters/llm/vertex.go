package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/psykologen/internal/domain"
)

type VertexClient struct {
	client    *genai.Client
	modelName string
}

// NewVertexClient creates a CompletionClient based on Vertex AI (Gemini).
func NewVertexClient(ctx context.Context, projectID, location, modelName string) (*VertexClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("vertex: project and location must be set")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// Complete implements domain.CompletionClient using Vertex AI.
func (v *VertexClient) Complete(ctx context.Context, messages []domain.ChatMessage) (*domain.Completion, error) {
	prompt := buildGenAIPrompt(messages)
	if len(prompt.Contents) == 0 {
		return nil, fmt.Errorf("vertex: no user or assistant content to send")
	}

	temp := float32(0.7)
	topP := float32(0.9)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: prompt.System,
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   int32(8192),
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, prompt.Contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &domain.UpstreamError{Status: apiErr.Code, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("vertex generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return nil, fmt.Errorf("vertex returned empty text")
	}

	out := &domain.Completion{Text: text}
	if res.UsageMetadata != nil {
		out.Usage = domain.Usage{
			InputTokens:  int(res.UsageMetadata.PromptTokenCount),
			OutputTokens: int(res.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}
