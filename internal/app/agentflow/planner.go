package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// PlannerAgent regenerates the adaptive session plan from the previous plan,
// the latest exchange and the timing of the conversation so far.
type PlannerAgent struct {
	llm domain.CompletionClient
}

func NewPlannerAgent(llm domain.CompletionClient) *PlannerAgent {
	return &PlannerAgent{llm: llm}
}

func (a *PlannerAgent) Name() string {
	return "planner"
}

type PlanInput struct {
	Current   string
	UserText  string
	ReplyText string
	History   []domain.Message
	Clock     Clock
}

func (a *PlannerAgent) Run(ctx context.Context, in PlanInput) (*domain.Completion, error) {
	return a.llm.Complete(ctx, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: a.prompt(in)},
	})
}

func (a *PlannerAgent) prompt(in PlanInput) string {
	var status strings.Builder
	fmt.Fprintf(&status, "- Tid förfluten: %s minuter", minutes(in.Clock.elapsedMinutes()))
	if in.Clock.Budget > 0 {
		fmt.Fprintf(&status, " (Max %s min session)\n- Kvarvarande tid: %s minuter",
			minutes(in.Clock.budgetMinutes()), minutes(in.Clock.remainingMinutes()))
	}

	return fmt.Sprintf(`Du är en expert psykolog som skapar adaptiva terapeutiska sessionsplaner.

BEFINTLIG SESSIONSPLAN:
%s

SENASTE SAMTALSUTBYTE:
Patient: %s
Erik: %s

%s
SESSIONSSTATUS:
%s

BEDÖM PROGRESSIONEN: Analysera tidsstämplarna ovan och bedöm:
- Hur snabbt går samtalet framåt?
- Ger patienten djupa svar eller korta/ytliga?
- Är patienten engagerad eller motsträvig?
- Behöver vi ändra takt eller fokus?

INSTRUKTIONER FÖR PLANREVISION:
- Prioritera de VIKTIGASTE punkterna först
- Om progression är långsam: korta ner planen, fokusera på 1-2 huvudpunkter
- Om tid börjar ta slut: anpassa "Nästa Steg" för snabb avslutning

Format i markdown:

# SESSIONSPLAN

## Identifierade Problem
## Fokusområden (Justerat för tid)
## Terapeutisk Approach
## Nästa Steg (Tidsjusterat)
## Sessionsmål (Reviderat)
## Anteckningar för Erik

VIKTIGT: Skriv om hela planen baserat på progression och tid kvar!`,
		orDefault(in.Current, noPlanDoc),
		in.UserText,
		in.ReplyText,
		TimingAnalysis(in.History),
		status.String(),
	)
}
