package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltguard/voltguard-backend/internal/audit"
	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/models"
	"github.com/voltguard/voltguard-backend/internal/repository"
)

func newSessionService(t *testing.T, repo *repository.SQLiteRepository, verifier auth.SecondFactorVerifier, cfg SessionConfig) *SessionService {
	t.Helper()
	rec := audit.NewRecorder(repo, testLogger())
	return NewSessionService(repo, rec, verifier, testLogger(), cfg)
}

func TestBeginLoginWithoutSecondFactor(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newSessionService(t, repo, stubVerifier{accept: true}, SessionConfig{})
	u := seedUser(t, repo, "ops@example.com", "hunter22", auth.RoleUser, "")

	sess, got, err := svc.BeginLogin(context.Background(), "ops@example.com", "hunter22", RequestMeta{SourceAddress: "10.0.0.9"})
	require.NoError(t, err)
	require.Equal(t, models.SessionActive, sess.State)
	require.Equal(t, u.ID, got.ID)

	p, err := svc.Authorize(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, auth.RoleUser, p.Role)
	require.Equal(t, sess.ID, p.SessionID)

	require.Equal(t, 1, countAudit(t, repo, models.ActionLogin))
}

func TestBeginLoginFailuresAreUniform(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newSessionService(t, repo, stubVerifier{accept: true}, SessionConfig{})
	seedUser(t, repo, "ops@example.com", "hunter22", auth.RoleUser, "")

	_, _, err := svc.BeginLogin(context.Background(), "nobody@example.com", "whatever", RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.BeginLogin(context.Background(), "ops@example.com", "wrong", RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// both failures are visible to security review
	require.Equal(t, 2, countAudit(t, repo, models.ActionLogin))
}

func TestTwoFactorLoginFlow(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newSessionService(t, repo, stubVerifier{accept: true}, SessionConfig{})
	seedUser(t, repo, "a@x.com", "secret1", auth.RoleUser, "JBSWY3DPEHPK3PXP")

	sess, _, err := svc.BeginLogin(context.Background(), "a@x.com", "secret1", RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, models.SessionPendingSecondFactor, sess.State)

	// a pending session authorizes nothing
	_, err = svc.Authorize(context.Background(), sess.ID)
	require.ErrorIs(t, err, ErrUnauthenticated)

	active, u, err := svc.CompleteSecondFactor(context.Background(), sess.ID, "123456", RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, models.SessionActive, active.State)
	require.Equal(t, "a@x.com", u.Email)

	p, err := svc.Authorize(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, auth.RoleUser, p.Role)
}

func TestCompleteSecondFactorRejectsBadCodes(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newSessionService(t, repo, stubVerifier{accept: false}, SessionConfig{})
	seedUser(t, repo, "a@x.com", "secret1", auth.RoleUser, "JBSWY3DPEHPK3PXP")

	sess, _, err := svc.BeginLogin(context.Background(), "a@x.com", "secret1", RequestMeta{})
	require.NoError(t, err)

	// malformed codes never reach the verifier
	_, _, err = svc.CompleteSecondFactor(context.Background(), sess.ID, "12ab56", RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidCode)

	_, _, err = svc.CompleteSecondFactor(context.Background(), sess.ID, "000000", RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidCode)

	// the session stays pending so the step can be retried
	got, err := repo.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionPendingSecondFactor, got.State)
}

func TestCompleteSecondFactorWrongState(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newSessionService(t, repo, stubVerifier{accept: true}, SessionConfig{})
	seedUser(t, repo, "ops@example.com", "hunter22", auth.RoleUser, "")

	sess, _, err := svc.BeginLogin(context.Background(), "ops@example.com", "hunter22", RequestMeta{})
	require.NoError(t, err)

	// already-active sessions cannot re-run the challenge
	_, _, err = svc.CompleteSecondFactor(context.Background(), sess.ID, "123456", RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidSession)

	_, _, err = svc.CompleteSecondFactor(context.Background(), "no-such-session", "123456", RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestCompleteSecondFactorExpiredPending(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newSessionService(t, repo, stubVerifier{accept: true}, SessionConfig{})
	u := seedUser(t, repo, "a@x.com", "secret1", auth.RoleUser, "JBSWY3DPEHPK3PXP")

	sess := &models.Session{
		ID:        "pending-expired",
		UserID:    u.ID,
		State:     models.SessionPendingSecondFactor,
		IssuedAt:  time.Now().UTC().Add(-10 * time.Minute),
		ExpiresAt: time.Now().UTC().Add(-5 * time.Minute),
	}
	require.NoError(t, repo.CreateSession(context.Background(), sess))

	_, _, err := svc.CompleteSecondFactor(context.Background(), sess.ID, "123456", RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidSession)

	got, err := repo.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionExpired, got.State)
}

func TestAuthorizeExpiredSessionIsIdempotent(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newSessionService(t, repo, stubVerifier{accept: true}, SessionConfig{})
	u := seedUser(t, repo, "ops@example.com", "hunter22", auth.RoleUser, "")

	sess := &models.Session{
		ID:        "stale",
		UserID:    u.ID,
		State:     models.SessionActive,
		IssuedAt:  time.Now().UTC().Add(-2 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, repo.CreateSession(context.Background(), sess))

	for i := 0; i < 3; i++ {
		_, err := svc.Authorize(context.Background(), sess.ID)
		require.ErrorIs(t, err, ErrUnauthenticated)
	}
	got, err := repo.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionExpired, got.State)
}

func TestAuthorizeRejectsEmptyAndUnknown(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newSessionService(t, repo, stubVerifier{accept: true}, SessionConfig{})

	_, err := svc.Authorize(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Authorize(context.Background(), "no-such-session")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogoutRevokesAndIsIdempotent(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newSessionService(t, repo, stubVerifier{accept: true}, SessionConfig{})
	seedUser(t, repo, "ops@example.com", "hunter22", auth.RoleUser, "")

	sess, _, err := svc.BeginLogin(context.Background(), "ops@example.com", "hunter22", RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), sess.ID, RequestMeta{}))
	_, err = svc.Authorize(context.Background(), sess.ID)
	require.ErrorIs(t, err, ErrUnauthenticated)

	// repeated and unknown logouts are no-ops
	require.NoError(t, svc.Logout(context.Background(), sess.ID, RequestMeta{}))
	require.NoError(t, svc.Logout(context.Background(), "no-such-session", RequestMeta{}))

	require.Equal(t, 1, countAudit(t, repo, models.ActionLogout))
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newSessionService(t, repo, stubVerifier{accept: true}, SessionConfig{
		MaxFailedLogins: 3,
		LockoutDuration: time.Hour,
	})
	seedUser(t, repo, "ops@example.com", "hunter22", auth.RoleUser, "")

	for i := 0; i < 3; i++ {
		_, _, err := svc.BeginLogin(context.Background(), "ops@example.com", "wrong", RequestMeta{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// the lockout does not reveal itself: correct password fails the same way
	_, _, err := svc.BeginLogin(context.Background(), "ops@example.com", "hunter22", RequestMeta{})
	require.True(t, errors.Is(err, ErrInvalidCredentials))
}
