package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/psykologen/internal/domain"
	"github.com/PabloGalante/psykologen/internal/observability"
	"go.uber.org/zap"
)

// ResponderAgent produces the persona's spoken reply, steered by the
// reflection log and the current session plan.
type ResponderAgent struct {
	llm       domain.CompletionClient
	endMarker string
}

func NewResponderAgent(llm domain.CompletionClient, endMarker string) *ResponderAgent {
	return &ResponderAgent{llm: llm, endMarker: endMarker}
}

func (a *ResponderAgent) Name() string {
	return "responder"
}

type ReplyInput struct {
	History     []domain.Message // turn history before the new user message
	UserText    string
	Reflections []string
	Plan        string
	Clock       Clock
}

func (a *ResponderAgent) Run(ctx context.Context, in ReplyInput) (*domain.Completion, error) {
	res, err := a.llm.Complete(ctx, withInstruction(in.History, a.prompt(in)))
	if err != nil {
		observability.LoggerFromContext(ctx).Error("responder agent error",
			zap.String("agent", a.Name()), zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (a *ResponderAgent) prompt(in ReplyInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Du har tillgång till:\n\nDINA INRE REFLEKTION:\n%s\n\n", bulletList(in.Reflections))
	fmt.Fprintf(&b, "SESSIONSPLAN (följ denna strategiskt):\n%s\n\n", orDefault(in.Plan, noPlanYet))
	fmt.Fprintf(&b, "SESSIONSTID:\n- Pågått: %s minuter\n", minutes(in.Clock.elapsedMinutes()))
	if in.Clock.Budget > 0 {
		fmt.Fprintf(&b, "- Kvar: %s minuter (Max %s min total)\n",
			minutes(in.Clock.remainingMinutes()), minutes(in.Clock.budgetMinutes()))
	}
	fmt.Fprintf(&b, "\nAnvändarens senaste meddelande: \"%s\"\n\nSom professionell terapeut ska du:\n", in.UserText)

	if in.Clock.Budget > 0 {
		b.WriteString("- Hålla koll på tiden och anpassa samtalet därefter\n")
		b.WriteString("- Om mindre än 2 minuter kvar: börja avsluta sessionen professionellt\n")
		fmt.Fprintf(&b, "- Om tiden är ute: avsluta med \"%s\" och skriv en kort sammanfattning\n", a.endMarker)
	} else {
		b.WriteString("- Fortsätta samtalet i din egen takt\n")
		b.WriteString("- Anpassa samtalet efter patientens behov\n")
		fmt.Fprintf(&b, "- Avsluta endast när det känns naturligt, skriv då \"%s\" följt av en kort sammanfattning\n", a.endMarker)
	}

	b.WriteString("\nSvara nu högt som Erik psykologen. Håll svaret kort (1-2 meningar).")
	return b.String()
}

// SplitEndMarker reports whether reply contains marker and returns the text
// after its first occurrence.
func SplitEndMarker(reply, marker string) (string, bool) {
	if marker == "" {
		return "", false
	}
	_, after, found := strings.Cut(reply, marker)
	if !found {
		return "", false
	}
	return strings.TrimSpace(after), true
}
