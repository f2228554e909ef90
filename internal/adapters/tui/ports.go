package tui

import (
	"context"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
	"github.com/kirillkom/webpage-chat/internal/core/ports"
)

// ChatPort is the TUI-facing subset of one chat session.
type ChatPort interface {
	SubmitURL(ctx context.Context, url string) (*domain.IndexResult, error)
	Ask(ctx context.Context, question string) (*domain.Answer, error)
	Clear(ctx context.Context) (*domain.SessionSnapshot, error)
}

// SessionChat binds a session service to a single session id.
type SessionChat struct {
	sessions  ports.SessionService
	sessionID string
}

func BindSession(sessions ports.SessionService, sessionID string) *SessionChat {
	return &SessionChat{sessions: sessions, sessionID: sessionID}
}

func (c *SessionChat) SubmitURL(ctx context.Context, url string) (*domain.IndexResult, error) {
	return c.sessions.SubmitURL(ctx, c.sessionID, url)
}

func (c *SessionChat) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	return c.sessions.Ask(ctx, c.sessionID, question)
}

func (c *SessionChat) Clear(ctx context.Context) (*domain.SessionSnapshot, error) {
	return c.sessions.Clear(ctx, c.sessionID)
}
