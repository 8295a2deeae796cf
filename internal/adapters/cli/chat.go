// Package cli runs a session as an interactive text loop.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/PabloGalante/psykologen/internal/app/conversation"
	"github.com/PabloGalante/psykologen/internal/app/journal"
	"github.com/PabloGalante/psykologen/internal/domain"
	"github.com/PabloGalante/psykologen/internal/observability"
)

var quitWords = map[string]bool{"quit": true, "exit": true, "avsluta": true}

// maxLineSize bounds a single line of user input, e.g. a pasted letter.
const maxLineSize = 1 << 20

// Chat drives one session from in to out.
type Chat struct {
	svc     *conversation.Service
	journal *journal.Service
	in      io.Reader
	out     io.Writer
}

func NewChat(svc *conversation.Service, journalSvc *journal.Service, in io.Reader, out io.Writer) *Chat {
	return &Chat{svc: svc, journal: journalSvc, in: in, out: out}
}

// Result summarizes how a chat ended.
type Result struct {
	SessionID          domain.SessionID
	Completed          bool
	TranscriptLocation string
}

// Run starts a session and reads user lines until a quit word, end of
// input, or the end marker. Statistics are printed on the way out.
func (c *Chat) Run(ctx context.Context) (*Result, error) {
	log := observability.LoggerFromContext(ctx)

	start, err := c.svc.StartSession(ctx, conversation.StartSessionInput{})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	res := &Result{SessionID: start.Session.ID}

	fmt.Fprintln(c.out, color.CyanString("Psykologen Erik"))
	fmt.Fprintln(c.out, "Skriv 'quit', 'exit' eller 'avsluta' för att avsluta.")
	fmt.Fprintln(c.out, strings.Repeat("=", 50))
	c.printErik(start.Opening.Content)

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for {
		fmt.Fprint(c.out, color.GreenString("\nDu: "))
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if quitWords[strings.ToLower(text)] {
			break
		}
		if text == "" {
			continue
		}

		turn, err := c.svc.SubmitUserTurn(ctx, conversation.SubmitTurnInput{SessionID: res.SessionID, Text: text})
		if err != nil {
			log.Warn("turn failed", zap.Error(err))
			fmt.Fprintln(c.out, color.RedString("Fel: %v", err))
			continue
		}
		c.printErik(turn.AssistantMessage.Content)

		if turn.SessionComplete {
			res.Completed = true
			fmt.Fprintln(c.out, "\n"+strings.Repeat("=", 50))
			fmt.Fprintln(c.out, color.YellowString("INTERVJUN SLUTFÖRD - TEXT GENERERAD!"))
			fmt.Fprintln(c.out, strings.Repeat("=", 50))

			if loc, err := c.saveTranscript(ctx, res.SessionID); err != nil {
				fmt.Fprintln(c.out, color.RedString("Kunde inte spara intervjun: %v", err))
			} else {
				res.TranscriptLocation = loc
				fmt.Fprintf(c.out, "Intervju och text sparad i: %s\n", loc)
			}
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read input: %w", err)
	}

	stats, err := c.svc.GetStatistics(ctx, res.SessionID)
	if err != nil {
		return res, err
	}
	c.printStatistics(stats)
	return res, nil
}

func (c *Chat) saveTranscript(ctx context.Context, id domain.SessionID) (string, error) {
	if c.journal == nil {
		return "", fmt.Errorf("no transcript store configured")
	}
	snap, err := c.svc.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	return c.journal.SaveTranscript(ctx, *snap)
}

func (c *Chat) printErik(text string) {
	fmt.Fprintf(c.out, "\n%s %s\n", color.CyanString("Erik:"), text)
}

func (c *Chat) printStatistics(s *conversation.Statistics) {
	fmt.Fprintln(c.out, "\nINTERVJU-STATISTIK:")
	fmt.Fprintf(c.out, "   Antal utbyten: %d\n", s.TurnCount)
	fmt.Fprintf(c.out, "   Total input tokens: %s\n", thousands(s.InputTokens))
	fmt.Fprintf(c.out, "   Total output tokens: %s\n", thousands(s.OutputTokens))
	fmt.Fprintf(c.out, "   Total tokens: %s\n", thousands(s.TotalTokens))
	fmt.Fprintf(c.out, "   Max kapacitet: %s\n", thousands(s.ContextWindow))
	fmt.Fprintf(c.out, "   Kvarvarande: %s tokens\n", thousands(s.RemainingTokens))
	fmt.Fprintf(c.out, "   Användning: %.1f%%\n", s.UsagePercent)
	fmt.Fprintf(c.out, "   Bakgrundsanalys tokens: %s\n", thousands(s.EnrichmentInputTokens+s.EnrichmentOutputTokens))
}

// thousands formats n with comma separators.
func thousands(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
