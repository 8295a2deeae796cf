package domain

import (
	"sync"
	"time"
)

// Message is one entry of the turn history. Messages are never modified after
// they have been appended to a SessionState.
type Message struct {
	ID            MessageID     `json:"id"`
	Role          Role          `json:"role"`
	Content       string        `json:"content"`
	CreatedAt     Timestamp     `json:"created_at"`
	SessionOffset time.Duration `json:"session_offset"`
}

// Usage holds the token counters reported by a completion call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// SessionState is the mutable state of one conversation. The message list and
// the reflection log are only written by the synchronous turn path; everything
// else gets copies.
type SessionState struct {
	mu sync.RWMutex

	// turnMu serializes turns of this session.
	turnMu sync.Mutex

	id          SessionID
	startedAt   Timestamp
	messages    []Message
	reflections []string
	turnCount   int
	usage       Usage
	enrichment  Usage
	completed   bool
	finalText   string
}

// NewSessionState creates a session whose history starts with the persona message.
func NewSessionState(id SessionID, startedAt Timestamp, persona Message) *SessionState {
	persona.Role = RoleSystem
	persona.SessionOffset = 0
	return &SessionState{
		id:        id,
		startedAt: startedAt,
		messages:  []Message{persona},
	}
}

func (s *SessionState) ID() SessionID { return s.id }

func (s *SessionState) StartedAt() Timestamp { return s.startedAt }

// LockTurn blocks until no other turn of this session is running.
func (s *SessionState) LockTurn() func() {
	s.turnMu.Lock()
	return s.turnMu.Unlock
}

// Offset returns the elapsed session time at t.
func (s *SessionState) Offset(t Timestamp) time.Duration {
	d := t.Sub(s.startedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Append adds messages to the history in order. Offsets are clamped so that
// they never decrease along the sequence.
func (s *SessionState) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msgs...)
}

func (s *SessionState) appendLocked(msgs ...Message) {
	for _, m := range msgs {
		if last := s.messages[len(s.messages)-1]; m.SessionOffset < last.SessionOffset {
			m.SessionOffset = last.SessionOffset
		}
		s.messages = append(s.messages, m)
	}
}

// CommitTurn records a completed turn in one step: the user message, the new
// reflections and the assistant reply.
func (s *SessionState) CommitTurn(user, assistant Message, reflections []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLocked(user, assistant)
	s.reflections = append(s.reflections, reflections...)
	s.turnCount++
}

// MarkCompleted remembers that the session reached its end marker.
func (s *SessionState) MarkCompleted(finalText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
	s.finalText = finalText
}

func (s *SessionState) AddUsage(u Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = s.usage.Add(u)
}

func (s *SessionState) AddEnrichmentUsage(u Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrichment = s.enrichment.Add(u)
}

// Messages returns a copy of the history.
func (s *SessionState) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Reflections returns a copy of the reflection log.
func (s *SessionState) Reflections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.reflections))
	copy(out, s.reflections)
	return out
}

// Snapshot is a point-in-time copy of a SessionState.
type Snapshot struct {
	ID              SessionID `json:"id"`
	StartedAt       Timestamp `json:"started_at"`
	Messages        []Message `json:"messages"`
	Reflections     []string  `json:"reflections"`
	TurnCount       int       `json:"turn_count"`
	Usage           Usage     `json:"usage"`
	EnrichmentUsage Usage     `json:"enrichment_usage"`
	Completed       bool      `json:"completed"`
	FinalText       string    `json:"final_text,omitempty"`
}

func (s *SessionState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	refl := make([]string, len(s.reflections))
	copy(refl, s.reflections)

	return Snapshot{
		ID:              s.id,
		StartedAt:       s.startedAt,
		Messages:        msgs,
		Reflections:     refl,
		TurnCount:       s.turnCount,
		Usage:           s.usage,
		EnrichmentUsage: s.enrichment,
		Completed:       s.completed,
		FinalText:       s.finalText,
	}
}
