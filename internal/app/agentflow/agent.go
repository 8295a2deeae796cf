package agentflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// Clock reports the session time figures rendered into prompts.
type Clock struct {
	Elapsed time.Duration
	Budget  time.Duration // zero disables the remaining-time lines
}

func (c Clock) elapsedMinutes() float64 { return c.Elapsed.Minutes() }

func (c Clock) remainingMinutes() float64 { return (c.Budget - c.Elapsed).Minutes() }

func (c Clock) budgetMinutes() float64 { return c.Budget.Minutes() }

// bulletList renders items as "- item" lines.
func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- "+it)
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// withInstruction returns history followed by one extra user message. The
// history slice is never modified.
func withInstruction(history []domain.Message, instruction string) []domain.ChatMessage {
	out := domain.ChatMessages(history)
	return append(out, domain.ChatMessage{Role: domain.RoleUser, Content: instruction})
}

func minutes(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
