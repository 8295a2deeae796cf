package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/psykologen/internal/domain"
	"github.com/PabloGalante/psykologen/internal/observability"
	"go.uber.org/zap"
)

// noNewReflections prefixes model output that carries nothing new.
const noNewReflections = "Inga"

// ReflectorAgent derives the persona's new internal reflections from the user's latest input.
type ReflectorAgent struct {
	llm domain.CompletionClient
}

func NewReflectorAgent(llm domain.CompletionClient) *ReflectorAgent {
	return &ReflectorAgent{llm: llm}
}

func (a *ReflectorAgent) Name() string {
	return "reflector"
}

type ReflectInput struct {
	History     []domain.Message // turn history before the new user message
	UserText    string
	Reflections []string
}

type ReflectOutput struct {
	Raw         string
	Reflections []string // parsed new reflections only
	Usage       domain.Usage
}

func (a *ReflectorAgent) Run(ctx context.Context, in ReflectInput) (ReflectOutput, error) {
	log := observability.LoggerFromContext(ctx).With(zap.String("agent", a.Name()))

	prompt := fmt.Sprintf(`Baserat på vad användaren precis sa: "%s"

Dina nuvarande inre reflektion:
%s

Uppdatera dina inre psykologiska reflektion. Lägg till nya observationer, hypoteser eller insikter. Skriv bara de NYA tankarna du får, inte alla gamla.

Skriv bara dina nya inre tankar, en per rad med bindestreck.`,
		in.UserText,
		orDefault(bulletList(in.Reflections), noReflectionsYet),
	)

	res, err := a.llm.Complete(ctx, withInstruction(in.History, prompt))
	if err != nil {
		log.Error("reflector agent error", zap.Error(err))
		return ReflectOutput{}, err
	}

	raw := strings.TrimSpace(res.Text)
	parsed := ParseReflections(raw)
	log.Debug("reflector agent success", zap.Int("new_reflections", len(parsed)))

	return ReflectOutput{
		Raw:         raw,
		Reflections: parsed,
		Usage:       res.Usage,
	}, nil
}

// ParseReflections splits model output into reflection lines. Lines starting
// with "- " keep the remainder; other non-empty lines not starting with "-"
// are kept verbatim; everything else is dropped. Output starting with "Inga"
// means there is nothing new.
func ParseReflections(output string) []string {
	output = strings.TrimSpace(output)
	if output == "" || strings.HasPrefix(output, noNewReflections) {
		return nil
	}

	var out []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- "):
			out = append(out, line[2:])
		case line != "" && !strings.HasPrefix(line, "-"):
			out = append(out, line)
		}
	}
	return out
}
