package domain

import (
	"fmt"
	"strings"
)

// Transcript is the artifact written when an interactive session reaches its
// end marker: the message history plus the extracted final text.
type Transcript struct {
	SessionID SessionID
	TurnCount int
	Messages  []Message // system message excluded
	FinalText string
	CreatedAt Timestamp
}

// TranscriptInfo describes a saved transcript without its content.
type TranscriptInfo struct {
	Location  string    `json:"location"`
	SessionID SessionID `json:"session_id"`
	TurnCount int       `json:"turn_count"`
	CreatedAt Timestamp `json:"created_at"`
}

// TranscriptFileFormat names transcript files after the exchange count.
const TranscriptFileFormat = "intervju_text_%d_utbyten.txt"

// FileName is named after the number of exchanges in the session.
func (t *Transcript) FileName() string {
	return fmt.Sprintf(TranscriptFileFormat, t.TurnCount)
}

// Render returns the plain-text form of the transcript.
func (t *Transcript) Render() string {
	rule := strings.Repeat("=", 50)

	var b strings.Builder
	b.WriteString("INTERVJU OCH SLUTTEXT\n")
	b.WriteString(rule + "\n\n")
	b.WriteString("INTERVJU-HISTORIK:\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")
	for _, m := range t.Messages {
		if m.Role == RoleSystem {
			continue
		}
		speaker := "Användare"
		if m.Role == RoleAssistant {
			speaker = "Agent"
		}
		fmt.Fprintf(&b, "\n%s: %s\n", speaker, m.Content)
	}
	fmt.Fprintf(&b, "\n\n%s\nSLUTGILTIG TEXT:\n%s\n", rule, rule)
	b.WriteString(t.FinalText)
	return b.String()
}
