package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

// SessionManager owns the live sessions of one process and implements
// ports.SessionService. Sessions are independent of each other.
type SessionManager struct {
	controller *Controller

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager(controller *Controller) *SessionManager {
	return &SessionManager{
		controller: controller,
		sessions:   make(map[string]*Session),
	}
}

func (m *SessionManager) Create(_ context.Context) (*domain.SessionSnapshot, error) {
	session := NewSession(uuid.NewString())

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	slog.Info("session_created", "session_id", session.ID)
	return m.controller.Snapshot(session), nil
}

func (m *SessionManager) Snapshot(_ context.Context, sessionID string) (*domain.SessionSnapshot, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	return m.controller.Snapshot(session), nil
}

func (m *SessionManager) SubmitURL(ctx context.Context, sessionID, url string) (*domain.IndexResult, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	return m.controller.SubmitURL(ctx, session, url)
}

func (m *SessionManager) Ask(ctx context.Context, sessionID, question string) (*domain.Answer, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	return m.controller.Ask(ctx, session, question)
}

func (m *SessionManager) Clear(ctx context.Context, sessionID string) (*domain.SessionSnapshot, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	return m.controller.Clear(ctx, session), nil
}

// End clears the session and forgets it.
func (m *SessionManager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	session, ok := m.sessions[strings.TrimSpace(sessionID)]
	if ok {
		delete(m.sessions, session.ID)
	}
	m.mu.Unlock()

	if !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "end session", fmt.Errorf("id=%s", sessionID))
	}
	m.controller.Clear(ctx, session)
	slog.Info("session_ended", "session_id", session.ID)
	return nil
}

// Shutdown ends every session, releasing their indexes.
func (m *SessionManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		m.controller.Clear(ctx, session)
	}
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionManager) get(sessionID string) (*Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get session", errors.New("session id is required"))
	}

	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id=%s", sessionID))
	}
	return session, nil
}
