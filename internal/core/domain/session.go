package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionState string

const (
	SessionEmpty              SessionState = "empty"
	SessionIndexed            SessionState = "indexed"
	SessionIndexedWithHistory SessionState = "indexed_with_history"
)

type SessionSnapshot struct {
	ID        string       `json:"id"`
	State     SessionState `json:"state"`
	URL       string       `json:"url,omitempty"`
	Title     string       `json:"title,omitempty"`
	Passages  int          `json:"passages"`
	Messages  []Message    `json:"messages"`
	CreatedAt time.Time    `json:"created_at"`
}

type SessionEventType string

const (
	EventPageIndexed    SessionEventType = "page_indexed"
	EventSessionCleared SessionEventType = "session_cleared"
)

// SessionEvent is published after a session changes state.
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	SessionID  string           `json:"session_id"`
	URL        string           `json:"url,omitempty"`
	Title      string           `json:"title,omitempty"`
	Passages   int              `json:"passages,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
