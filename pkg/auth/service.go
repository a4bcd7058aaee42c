package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/observability"
	"github.com/crewdesk/crewdesk/pkg/tenants"
	"github.com/crewdesk/crewdesk/pkg/users"
)

// ServiceConfig tunes login throttling and session lifetime.
type ServiceConfig struct {
	MaxLoginAttempts int64
	AttemptWindow    time.Duration
	SessionTTL       time.Duration
}

// Service implements authentication: login, token verification,
// refresh, and session management.
type Service struct {
	users    *users.Store
	sessions *SessionStore
	tenants  *tenants.Store
	tokens   *TokenIssuer
	attempts AttemptCounter
	audit    audit.Logger
	log      *observability.Logger
	cfg      ServiceConfig
}

// NewService wires an authentication service.
func NewService(
	userStore *users.Store,
	sessionStore *SessionStore,
	tenantStore *tenants.Store,
	tokens *TokenIssuer,
	attempts AttemptCounter,
	auditLog audit.Logger,
	log *observability.Logger,
	cfg ServiceConfig,
) *Service {
	return &Service{
		users:    userStore,
		sessions: sessionStore,
		tenants:  tenantStore,
		tokens:   tokens,
		attempts: attempts,
		audit:    auditLog,
		log:      log,
		cfg:      cfg,
	}
}

func attemptKey(tenantID int64, identifier string) string {
	return fmt.Sprintf("login:%d:%s", tenantID, identifier)
}

// Authenticate checks credentials and opens a session. Unknown
// identifiers and wrong passwords produce the same error, and a dummy
// bcrypt comparison runs for unknown ones so response timing matches.
// The attempt counter is consulted before the credentials, so a
// hammered identifier gets RateLimited even with the right password.
func (s *Service) Authenticate(ctx context.Context, tenantID int64, identifier, password, fingerprint string) (*TokenPair, *authz.Principal, error) {
	key := attemptKey(tenantID, identifier)
	count, err := s.attempts.Increment(ctx, key, s.cfg.AttemptWindow)
	if err != nil {
		// Counter backend trouble must not lock everyone out.
		s.log.WithError(err).Warn("attempt counter unavailable")
	} else if count > s.cfg.MaxLoginAttempts {
		audit.AuthFailure(ctx, s.audit, tenantID, identifier, string(authz.KindRateLimited))
		return nil, nil, authz.ErrRateLimited
	}

	user, err := s.users.GetByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		if errors.Is(err, authz.ErrNotFound) {
			compareDummy(password)
			audit.AuthFailure(ctx, s.audit, tenantID, identifier, string(authz.KindInvalidCredentials))
			return nil, nil, authz.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		audit.AuthFailure(ctx, s.audit, tenantID, identifier, string(authz.KindInvalidCredentials))
		return nil, nil, authz.ErrInvalidCredentials
	}

	if !user.Active() {
		audit.AuthFailure(ctx, s.audit, tenantID, identifier, string(authz.KindAccountDisabled))
		return nil, nil, authz.ErrAccountDisabled
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	if !tenant.Accessible() {
		audit.AuthFailure(ctx, s.audit, tenantID, identifier, string(authz.KindAccountDisabled))
		return nil, nil, authz.ErrAccountDisabled
	}

	if err := s.attempts.Reset(ctx, key); err != nil {
		s.log.WithError(err).Warn("failed to reset attempt counter")
	}

	session, err := s.sessions.Create(ctx, user.ID, user.TenantID, fingerprint, s.cfg.SessionTTL)
	if err != nil {
		return nil, nil, err
	}

	principal := user.Principal(session.ID)
	pair, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.TenantID, user.ID, now); err != nil {
		s.log.WithError(err).Warn("failed to record last login")
	}

	s.audit.Log(ctx, &audit.Event{
		PrincipalID: &user.ID,
		TenantID:    &user.TenantID,
		Type:        audit.EventTypeAuthLogin,
		Action:      "login",
		CreatedAt:   now,
	})
	return pair, principal, nil
}

// Verify validates an access token and returns a fresh principal. The
// role, department and team are re-read from the user row so token
// claims never outlive a role change, and the session must still be
// active.
func (s *Service) Verify(ctx context.Context, token string) (*authz.Principal, error) {
	claims, err := s.tokens.Parse(token, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, authz.ErrNotFound) {
			return nil, authz.ErrInvalidToken
		}
		return nil, err
	}
	if !session.IsActive || time.Now().After(session.ExpiresAt) {
		return nil, authz.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.TenantID, claims.UserID)
	if err != nil {
		if errors.Is(err, authz.ErrNotFound) {
			return nil, authz.ErrInvalidToken
		}
		return nil, err
	}
	if !user.Active() {
		return nil, authz.ErrAccountDisabled
	}

	if err := s.sessions.Touch(ctx, session.ID, time.Now().UTC()); err != nil {
		s.log.WithError(err).Warn("failed to touch session")
	}
	return user.Principal(session.ID), nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, authz.ErrNotFound) {
			return "", authz.ErrInvalidToken
		}
		return "", err
	}
	if !session.IsActive || time.Now().After(session.ExpiresAt) {
		return "", authz.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.TenantID, claims.UserID)
	if err != nil {
		if errors.Is(err, authz.ErrNotFound) {
			return "", authz.ErrInvalidToken
		}
		return "", err
	}
	if !user.Active() {
		return "", authz.ErrAccountDisabled
	}

	return s.tokens.IssueAccess(user.Principal(session.ID))
}

// Invalidate deactivates a session. Idempotent.
func (s *Service) Invalidate(ctx context.Context, sessionID string) error {
	return s.sessions.Deactivate(ctx, sessionID)
}

// ListSessions returns the caller's own sessions.
func (s *Service) ListSessions(ctx context.Context, p *authz.Principal) ([]*Session, error) {
	return s.sessions.ListByUser(ctx, p.TenantID, p.UserID)
}

// RevokeSession deactivates one of the caller's own sessions. A
// session belonging to someone else looks like a missing one.
func (s *Service) RevokeSession(ctx context.Context, p *authz.Principal, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != p.UserID || session.TenantID != p.TenantID {
		return authz.ErrNotFound
	}
	return s.sessions.Deactivate(ctx, sessionID)
}

// ChangePassword sets a new password after checking the old one, then
// revokes every session of the user. The caller logs in again with the
// new credentials.
func (s *Service) ChangePassword(ctx context.Context, p *authz.Principal, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, p.TenantID, p.UserID)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, oldPassword) {
		return authz.ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, p.TenantID, p.UserID, hash); err != nil {
		return err
	}
	if err := s.sessions.DeactivateAllForUser(ctx, p.TenantID, p.UserID); err != nil {
		return err
	}

	s.audit.Log(ctx, &audit.Event{
		PrincipalID: &p.UserID,
		TenantID:    &p.TenantID,
		Type:        audit.EventTypeAuthPasswordChange,
		Action:      "change_password",
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}
