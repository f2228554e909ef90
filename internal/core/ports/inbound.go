package ports

import (
	"context"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

// SessionService is the inbound contract shared by the HTTP, terminal and MCP surfaces.
type SessionService interface {
	Create(ctx context.Context) (*domain.SessionSnapshot, error)
	Snapshot(ctx context.Context, sessionID string) (*domain.SessionSnapshot, error)
	SubmitURL(ctx context.Context, sessionID, url string) (*domain.IndexResult, error)
	Ask(ctx context.Context, sessionID, question string) (*domain.Answer, error)
	Clear(ctx context.Context, sessionID string) (*domain.SessionSnapshot, error)
	End(ctx context.Context, sessionID string) error
}
