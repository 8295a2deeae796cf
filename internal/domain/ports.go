package domain

import "context"

// ChatMessage is the role-tagged unit sent to a completion service.
type ChatMessage struct {
	Role    Role
	Content string
}

// Completion is the generated text plus the usage the service reported.
type Completion struct {
	Text  string
	Usage Usage
}

// CompletionClient defines how the core application talks to a text completion service.
// Implementations block until the service answers.
type CompletionClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (*Completion, error)
}

// DocumentStore holds the derived documents. Write must replace a document
// atomically: readers see either the old or the new content, never a mix.
type DocumentStore interface {
	Exists(ctx context.Context, ref DocumentRef) (bool, error)
	// Read returns ErrDocumentNotFound when the document is absent.
	Read(ctx context.Context, ref DocumentRef) (string, error)
	Write(ctx context.Context, ref DocumentRef, content string) error
	// Delete is idempotent.
	Delete(ctx context.Context, ref DocumentRef) error
}

// TranscriptStore persists the session-end artifact and returns where it went.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, t *Transcript) (string, error)
	// ListTranscripts returns what has been saved for a session, oldest first.
	ListTranscripts(ctx context.Context, id SessionID) ([]TranscriptInfo, error)
}

// SessionStore keeps the live sessions of this process, keyed by ID.
type SessionStore interface {
	// CreateSession returns ErrSessionExists when the ID is taken. The check
	// and the insert are one atomic step.
	CreateSession(session *SessionState) error
	GetSession(id SessionID) (*SessionState, error)
	ListSessions() []SessionID
	DeleteSession(id SessionID) error
}

// ChatMessages converts history entries to the shape a CompletionClient expects.
func ChatMessages(msgs []Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
