package agentflow

import (
	"context"
	"fmt"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// ProfilerAgent regenerates the patient profile from the previous profile and
// the latest exchange.
type ProfilerAgent struct {
	llm domain.CompletionClient
}

func NewProfilerAgent(llm domain.CompletionClient) *ProfilerAgent {
	return &ProfilerAgent{llm: llm}
}

func (a *ProfilerAgent) Name() string {
	return "profiler"
}

type ProfileInput struct {
	Current   string
	UserText  string
	ReplyText string
}

func (a *ProfilerAgent) Run(ctx context.Context, in ProfileInput) (*domain.Completion, error) {
	prompt := fmt.Sprintf(`Du är en profil-analytiker som samlar fakta om PATIENTEN från ett psykologsamtal.

BEFINTLIG PATIENT-PROFIL:
%s

NYTT SAMTALSUTDRAG:
Patient: %s
Psykolog Erik: %s

Uppdatera profilen för PATIENTEN med NYA FAKTA som framkommer: personliga detaljer, intressen, problem och utmaningar, mål och drömmar, personlighet och beteende.

VIKTIGT: Samla endast information om PATIENTEN, inte om psykologen Erik.

Skriv hela den uppdaterade patient-profilen i markdown-format:

# PATIENT-PROFIL

## Grundläggande Information
## Problem & Utmaningar
## Personlighet & Beteende
## Mål & Drömmar
## Övriga Noteringar`,
		orDefault(in.Current, noProfileDoc),
		in.UserText,
		in.ReplyText,
	)

	return a.llm.Complete(ctx, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: prompt},
	})
}
