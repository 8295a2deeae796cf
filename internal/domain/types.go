package domain

import "time"

type SessionID string
type MessageID string

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DocumentName identifies one of the derived documents kept per session.
type DocumentName string

const (
	DocumentProfile DocumentName = "profile" // patient profile
	DocumentPlan    DocumentName = "plan"    // adaptive session plan
)

// DocumentRef addresses a derived document of a single session.
type DocumentRef struct {
	SessionID SessionID
	Name      DocumentName
}

func (r DocumentRef) String() string {
	return string(r.SessionID) + "/" + string(r.Name)
}

type Timestamp = time.Time
