package agentflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/psykologen/internal/domain"
)

const previewRunes = 50

// TimingAnalysis renders the turn history (system message excluded) as a
// numbered list with the elapsed minutes at which each message was written.
func TimingAnalysis(messages []domain.Message) string {
	var b strings.Builder
	b.WriteString("SAMTALSHISTORIK MED TIDSSTÄMPLAR:\n")

	i := 0
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			continue
		}
		i++
		fmt.Fprintf(&b, "%d. [%smin] %s: %s\n", i, minutes(m.SessionOffset.Minutes()), speaker(m.Role), preview(m.Content))
	}
	return b.String()
}

func speaker(r domain.Role) string {
	if r == domain.RoleUser {
		return "Patient"
	}
	return "Erik"
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "..."
}

// Elapsed returns the session time at now, never negative.
func Elapsed(start, now time.Time) time.Duration {
	if d := now.Sub(start); d > 0 {
		return d
	}
	return 0
}
