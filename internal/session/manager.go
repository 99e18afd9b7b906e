package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const keyPrefix = "session:"

// Manager is the auth gate. Login is mock authentication faithful to the
// storefront it serves: any non-empty username succeeds, no credential is
// verified. What the manager does guarantee is that a token presented later
// names a session that was actually issued and has not been logged out.
type Manager struct {
	kv     repository.KVStore
	tokens *TokenManager
	logger *slog.Logger
	ttl    time.Duration
}

// NewManager creates a session manager over the given persistent store.
func NewManager(kv repository.KVStore, tokens *TokenManager, logger *slog.Logger, ttl time.Duration) *Manager {
	return &Manager{kv: kv, tokens: tokens, logger: logger, ttl: ttl}
}

// Login creates a session for the username and returns it with a signed
// token for the browser cookie.
func (m *Manager) Login(ctx context.Context, username string) (*domain.Session, string, error) {
	if username == "" {
		return nil, "", apperrors.InvalidInput("username is required")
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:        uuid.New().String(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, "", fmt.Errorf("marshal session: %w", err)
	}
	if err := m.kv.Set(ctx, keyPrefix+sess.ID, data); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}

	token, err := m.tokens.Sign(sess.ID)
	if err != nil {
		return nil, "", err
	}

	m.logger.InfoContext(ctx, "user logged in",
		slog.String("session_id", sess.ID),
		slog.String("username", username),
	)

	return sess, token, nil
}

// Authenticate resolves a token to its live session. An invalid token, an
// unknown session, or an expired one all yield ErrUnauthorized.
func (m *Manager) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	sid, err := m.tokens.Verify(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired session token")
	}

	data, err := m.kv.Get(ctx, keyPrefix+sid)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("session not found")
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	if sess.IsExpired() {
		_ = m.kv.Delete(ctx, keyPrefix+sid)
		return nil, apperrors.Unauthorized("session expired")
	}

	return &sess, nil
}

// Logout removes the session named by the token. An invalid token is a
// no-op; logging out twice is fine.
func (m *Manager) Logout(ctx context.Context, token string) error {
	sid, err := m.tokens.Verify(token)
	if err != nil {
		return nil
	}

	if err := m.kv.Delete(ctx, keyPrefix+sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	m.logger.InfoContext(ctx, "user logged out", slog.String("session_id", sid))
	return nil
}
