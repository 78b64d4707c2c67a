package auth

import (
	"context"
	"fmt"
	"time"

	"autonomeal/models"
	"autonomeal/utils"

	"go.uber.org/zap"
)

type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	Touch(ctx context.Context, id string) error
}

// SessionManager issues, loads and ends cookie sessions.
type SessionManager struct {
	store    SessionStore
	lifetime time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionManager(store SessionStore, lifetime time.Duration, logger *zap.Logger) *SessionManager {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &SessionManager{store: store, lifetime: lifetime, logger: logger, now: time.Now}
}

func (m *SessionManager) Lifetime() time.Duration {
	return m.lifetime
}

// Start creates and stores a new anonymous session.
func (m *SessionManager) Start(ctx context.Context, userAgent, ip string) (*models.Session, error) {
	return m.issue(ctx, "", false, userAgent, ip)
}

// Resume loads the session behind a cookie token and records the activity.
// Missing or expired sessions yield utils.ErrNotFound.
func (m *SessionManager) Resume(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, utils.ErrNotFound
	}
	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.store.Touch(ctx, id); err != nil {
		m.logger.Warn("failed to touch session", zap.Error(err))
	}
	return session, nil
}

// Rotate replaces old with a fresh permanent session owned by username.
func (m *SessionManager) Rotate(ctx context.Context, old *models.Session, username string) (*models.Session, error) {
	var userAgent, ip string
	if old != nil {
		userAgent, ip = old.UserAgent, old.IPAddress
	}

	next, err := m.issue(ctx, username, true, userAgent, ip)
	if err != nil {
		return nil, err
	}
	if old != nil && old.ID != "" {
		if err := m.store.Delete(ctx, old.ID); err != nil {
			m.logger.Warn("failed to delete rotated session", zap.Error(err))
		}
	}
	return next, nil
}

// End deletes the session. Unknown sessions are ignored.
func (m *SessionManager) End(ctx context.Context, session *models.Session) error {
	if session == nil || session.ID == "" {
		return nil
	}
	return m.store.Delete(ctx, session.ID)
}

func (m *SessionManager) issue(ctx context.Context, username string, permanent bool, userAgent, ip string) (*models.Session, error) {
	token, err := utils.GenerateToken(utils.SessionTokenBytes)
	if err != nil {
		return nil, err
	}
	now := m.now()
	session := &models.Session{
		ID:           token,
		Username:     username,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.lifetime),
		LastActivity: now,
		UserAgent:    userAgent,
		IPAddress:    ip,
		Permanent:    permanent,
	}
	if err := m.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}
