package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voltguard/voltguard-backend/internal/audit"
	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/models"
	"github.com/voltguard/voltguard-backend/internal/pkg/metrics"
	"github.com/voltguard/voltguard-backend/internal/repository"
)

// RequestMeta carries caller metadata for audit records.
type RequestMeta struct {
	SourceAddress string
	UserAgent     string
}

// SessionService is the session authority: credential verification, the
// second-factor challenge, session issuance, and the authorization check
// every device operation passes through.
type SessionService struct {
	repo     *repository.SQLiteRepository
	audit    *audit.Recorder
	verifier auth.SecondFactorVerifier
	log      *slog.Logger

	sessionTTL      time.Duration
	pendingTTL      time.Duration
	maxFailedLogins int
	lockoutDuration time.Duration

	locks stripedLocks
}

// SessionConfig bundles the session authority tunables.
type SessionConfig struct {
	SessionTTL      time.Duration
	PendingTTL      time.Duration
	MaxFailedLogins int
	LockoutDuration time.Duration
}

// NewSessionService creates the session authority.
func NewSessionService(repo *repository.SQLiteRepository, rec *audit.Recorder, verifier auth.SecondFactorVerifier, log *slog.Logger, cfg SessionConfig) *SessionService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 5 * time.Minute
	}
	if cfg.MaxFailedLogins <= 0 {
		cfg.MaxFailedLogins = 10
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	return &SessionService{
		repo:            repo,
		audit:           rec,
		verifier:        verifier,
		log:             log,
		sessionTTL:      cfg.SessionTTL,
		pendingTTL:      cfg.PendingTTL,
		maxFailedLogins: cfg.MaxFailedLogins,
		lockoutDuration: cfg.LockoutDuration,
	}
}

// SessionTTL returns the active session lifetime (used to bound token expiry).
func (s *SessionService) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *SessionService) auditLogin(ctx context.Context, u *models.User, email, outcome, details string, meta RequestMeta) {
	e := &models.AuditLogEntry{
		UserEmail:     email,
		Action:        models.ActionLogin,
		Resource:      "session",
		Details:       details,
		SourceAddress: meta.SourceAddress,
		Outcome:       outcome,
	}
	if u != nil {
		e.UserID = u.ID
	}
	if err := s.audit.Append(ctx, e); err != nil && s.log != nil {
		s.log.Error("failed to append login audit entry", "error", err)
	}
}

// EnrollSecondFactor generates and stores a fresh TOTP secret for the
// caller, returning the secret and the otpauth:// URL for authenticator
// apps. Re-enrolling replaces the previous secret.
func (s *SessionService) EnrollSecondFactor(ctx context.Context, p auth.Principal) (secret, url string, err error) {
	secret, url, err = auth.GenerateTOTPSecret("VoltGuard", p.Email)
	if err != nil {
		return "", "", err
	}
	if err := s.repo.SetTOTPSecret(ctx, p.UserID, secret); err != nil {
		return "", "", fmt.Errorf("store totp secret: %w", err)
	}
	e := &models.AuditLogEntry{
		UserID:    p.UserID,
		UserEmail: p.Email,
		Action:    models.ActionConfigChange,
		Resource:  "user:" + p.UserID,
		Details:   "enrolled second factor",
		Outcome:   models.OutcomeSuccess,
	}
	if err := s.audit.Append(ctx, e); err != nil && s.log != nil {
		s.log.Error("failed to append enrollment audit entry", "error", err)
	}
	return secret, url, nil
}

// BeginLogin verifies primary credentials and creates a session. Users with a
// second factor enrolled get a PendingSecondFactor session; everyone else goes
// straight to Active. Failures are indistinguishable to the caller (always
// ErrInvalidCredentials) but fully recorded in the audit log.
func (s *SessionService) BeginLogin(ctx context.Context, email, password string, meta RequestMeta) (*models.Session, *models.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		s.auditLogin(ctx, nil, email, models.OutcomeFailure, "unknown_user", meta)
		metrics.AuthLoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, nil, ErrInvalidCredentials
	}
	if u.IsLocked() {
		s.auditLogin(ctx, u, email, models.OutcomeFailure, "account_locked", meta)
		metrics.AuthLoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, nil, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if err := s.repo.IncrementFailedLogin(ctx, u.ID); err == nil &&
			u.FailedLoginCount+1 >= s.maxFailedLogins {
			_ = s.repo.LockUser(ctx, u.ID, time.Now().Add(s.lockoutDuration))
			s.auditLogin(ctx, u, email, models.OutcomeFailure, "account_locked", meta)
		} else {
			s.auditLogin(ctx, u, email, models.OutcomeFailure, "bad_password", meta)
		}
		metrics.AuthLoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, nil, ErrInvalidCredentials
	}
	if err := s.repo.ResetFailedLogin(ctx, u.ID); err != nil {
		return nil, nil, fmt.Errorf("reset failed logins: %w", err)
	}

	now := time.Now().UTC()
	sess := &models.Session{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		IssuedAt:  now,
		IPAddress: meta.SourceAddress,
		UserAgent: meta.UserAgent,
	}
	if u.TwoFactorEnabled() {
		sess.State = models.SessionPendingSecondFactor
		sess.ExpiresAt = now.Add(s.pendingTTL)
	} else {
		sess.State = models.SessionActive
		sess.ExpiresAt = now.Add(s.sessionTTL)
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	if sess.State == models.SessionPendingSecondFactor {
		s.auditLogin(ctx, u, email, models.OutcomeSuccess, "pending_second_factor", meta)
		metrics.AuthLoginAttemptsTotal.WithLabelValues("second_factor_pending").Inc()
	} else {
		s.auditLogin(ctx, u, email, models.OutcomeSuccess, "completed", meta)
		metrics.AuthLoginAttemptsTotal.WithLabelValues("success").Inc()
	}
	return sess, u, nil
}

// CompleteSecondFactor verifies the second-factor code and activates the
// session. The step can be retried independently without re-submitting the
// password, as long as the pending session has not expired.
func (s *SessionService) CompleteSecondFactor(ctx context.Context, sessionID, code string, meta RequestMeta) (*models.Session, *models.User, error) {
	mu := s.locks.forKey(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil || sess.State != models.SessionPendingSecondFactor {
		return nil, nil, ErrInvalidSession
	}
	if sess.IsExpired() {
		_ = s.repo.UpdateSessionState(ctx, sessionID, models.SessionExpired)
		return nil, nil, ErrInvalidSession
	}

	u, err := s.repo.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, nil, ErrInvalidSession
	}

	if !auth.ValidCodeFormat(code) {
		s.auditLogin(ctx, u, u.Email, models.OutcomeFailure, "malformed_second_factor_code", meta)
		return nil, nil, ErrInvalidCode
	}
	ok, err := s.verifier.Verify(ctx, u.ID, code)
	if err != nil {
		return nil, nil, fmt.Errorf("verify second factor: %w", err)
	}
	if !ok {
		s.auditLogin(ctx, u, u.Email, models.OutcomeFailure, "invalid_second_factor_code", meta)
		return nil, nil, ErrInvalidCode
	}

	expiresAt := time.Now().UTC().Add(s.sessionTTL)
	if err := s.repo.ActivateSession(ctx, sessionID, expiresAt); err != nil {
		return nil, nil, fmt.Errorf("activate session: %w", err)
	}
	sess.State = models.SessionActive
	sess.ExpiresAt = expiresAt

	s.auditLogin(ctx, u, u.Email, models.OutcomeSuccess, "completed", meta)
	metrics.AuthLoginAttemptsTotal.WithLabelValues("success").Inc()
	return sess, u, nil
}

// Authorize resolves a session id to a principal. It is the single choke
// point for every device operation. Expiry is evaluated lazily here: an
// Active session past its deadline transitions to Expired on discovery, and
// keeps failing identically on every later call.
func (s *SessionService) Authorize(ctx context.Context, sessionID string) (*auth.Principal, error) {
	if sessionID == "" {
		return nil, ErrUnauthenticated
	}
	mu := s.locks.forKey(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil || sess.State != models.SessionActive {
		return nil, ErrUnauthenticated
	}
	if sess.IsExpired() {
		if err := s.repo.UpdateSessionState(ctx, sessionID, models.SessionExpired); err != nil {
			return nil, fmt.Errorf("expire session: %w", err)
		}
		return nil, ErrUnauthenticated
	}

	u, err := s.repo.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, ErrUnauthenticated
	}
	return &auth.Principal{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		SessionID: sess.ID,
	}, nil
}

// Logout revokes the session. Revoking an unknown or already-terminal
// session is a no-op, not an error, so the call is safe to retry.
func (s *SessionService) Logout(ctx context.Context, sessionID string, meta RequestMeta) error {
	if sessionID == "" {
		return nil
	}
	mu := s.locks.forKey(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil || sess.IsTerminal() {
		return nil
	}
	if err := s.repo.UpdateSessionState(ctx, sessionID, models.SessionRevoked); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	u, _ := s.repo.GetUserByID(ctx, sess.UserID)
	email := ""
	if u != nil {
		email = u.Email
	}
	e := &models.AuditLogEntry{
		UserID:        sess.UserID,
		UserEmail:     email,
		Action:        models.ActionLogout,
		Resource:      "session",
		SourceAddress: meta.SourceAddress,
		Outcome:       models.OutcomeSuccess,
	}
	if err := s.audit.Append(ctx, e); err != nil && s.log != nil {
		s.log.Error("failed to append logout audit entry", "error", err)
	}
	return nil
}
