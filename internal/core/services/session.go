// internal/core/services/session.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
)

// SessionManager owns the signed-in session: it restores it on start, creates
// it on login or registration and tears it down on logout. It is the token
// source of the catalog client.
type SessionManager struct {
	auth   ports.AuthClient
	store  ports.SessionStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current *domain.Session
}

// Statically assert that the manager can authorize catalog requests.
var _ ports.TokenSource = (*SessionManager)(nil)

// NewSessionManager creates a manager with no session.
func NewSessionManager(auth ports.AuthClient, store ports.SessionStore, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		auth:   auth,
		store:  store,
		logger: logger.With(slog.String("service", "session")),
		now:    time.Now,
	}
}

// Init restores a persisted session. An expired session is cleared and
// treated as absent.
func (m *SessionManager) Init(ctx context.Context) error {
	session, err := m.store.Load(ctx)
	if errors.Is(err, domain.ErrNoSession) {
		m.logger.DebugContext(ctx, "no persisted session")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if !session.Valid(m.now()) {
		m.logger.InfoContext(ctx, "persisted session expired",
			slog.Time("expires_at", session.ExpiresAt))
		if err := m.store.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear expired session: %w", err)
		}
		return nil
	}

	m.set(&session)
	m.logger.InfoContext(ctx, "session restored", slog.String("role", string(session.Role)))
	return nil
}

// Login exchanges credentials for a session and persists it.
func (m *SessionManager) Login(ctx context.Context, email, password string) (domain.Session, error) {
	if err := checkCredentials(email, password); err != nil {
		return domain.Session{}, err
	}
	result, err := m.auth.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("login failed: %w", err)
	}
	return m.establish(ctx, email, result)
}

// Register creates an account and signs in with it.
func (m *SessionManager) Register(ctx context.Context, email, password string, role domain.Role) (domain.Session, error) {
	if err := checkCredentials(email, password); err != nil {
		return domain.Session{}, err
	}
	result, err := m.auth.Register(ctx, strings.TrimSpace(email), password, role)
	if err != nil {
		return domain.Session{}, fmt.Errorf("registration failed: %w", err)
	}
	return m.establish(ctx, email, result)
}

// Logout forgets the session locally and in the store.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.set(nil)
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	m.logger.InfoContext(ctx, "session cleared")
	return nil
}

// Current returns the session if one is signed in and not expired.
func (m *SessionManager) Current() (domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || !m.current.Valid(m.now()) {
		return domain.Session{}, false
	}
	return *m.current, true
}

// Token returns the bearer token, or "" when signed out.
func (m *SessionManager) Token() string {
	session, ok := m.Current()
	if !ok {
		return ""
	}
	return session.Token
}

// Role returns the signed-in role, or "" when signed out.
func (m *SessionManager) Role() domain.Role {
	session, ok := m.Current()
	if !ok {
		return ""
	}
	return session.Role
}

func (m *SessionManager) establish(ctx context.Context, email string, result domain.AuthResult) (domain.Session, error) {
	if result.Token == "" {
		return domain.Session{}, fmt.Errorf("auth service returned no token")
	}

	session := domain.Session{
		Token: result.Token,
		Role:  result.Role,
		Email: strings.TrimSpace(email),
	}

	claims, err := readClaims(result.Token)
	if err != nil {
		// Opaque tokens are accepted; the server stays the verifier.
		m.logger.DebugContext(ctx, "token claims unreadable", slog.String("error", err.Error()))
	} else {
		session.ExpiresAt = claims.expiresAt
		if session.Email == "" {
			session.Email = claims.subject
		}
		if session.Role == "" {
			session.Role = claims.role
		}
	}
	if session.Role == "" {
		session.Role = domain.RoleCustomer
	}

	if err := m.store.Save(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("failed to persist session: %w", err)
	}
	m.set(&session)

	m.logger.InfoContext(ctx, "signed in", slog.String("role", string(session.Role)))
	return session, nil
}

func (m *SessionManager) set(session *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = session
}

func checkCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.NewValidationError("credentials", "Email and password are required")
	}
	return nil
}

type tokenClaims struct {
	subject   string
	role      domain.Role
	expiresAt time.Time
}

// readClaims decodes the token payload without verifying the signature.
func readClaims(token string) (tokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return tokenClaims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	var out tokenClaims
	if sub, err := claims.GetSubject(); err == nil {
		out.subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.expiresAt = exp.Time
	}
	if raw, ok := claims["role"].(string); ok {
		if role, err := domain.ParseRole(raw); err == nil {
			out.role = role
		}
	}
	return out, nil
}
