package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/PabloGalante/psykologen/internal/config"
	"github.com/PabloGalante/psykologen/internal/domain"
	"github.com/PabloGalante/psykologen/internal/observability"
)

// New creates the CompletionClient selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (domain.CompletionClient, error) {
	log := observability.LoggerFromContext(ctx)

	switch cfg.Provider {
	case config.ProviderMock:
		log.Info("using mock completion client")
		return NewMockLLM(), nil
	case config.ProviderOpenAI:
		log.Info("using openai-compatible completion client",
			zap.String("base_url", cfg.BaseURL), zap.String("model", cfg.Model))
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case config.ProviderVertex:
		log.Info("using vertex completion client",
			zap.String("project", cfg.GCPProjectID), zap.String("model", cfg.Model))
		return NewVertexClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
