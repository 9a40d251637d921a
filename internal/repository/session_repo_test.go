package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/voltguard/voltguard-backend/internal/models"
)

func createTestUser(t *testing.T, repo *SQLiteRepository, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "h", Role: "user"}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func TestSessionLifecyclePersistence(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	u := createTestUser(t, repo, "a@x.com")

	now := time.Now().UTC().Truncate(time.Second)
	s := &models.Session{
		ID:        "sess-1",
		UserID:    u.ID,
		State:     models.SessionPendingSecondFactor,
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
		IPAddress: "10.0.0.1",
	}
	require.NoError(t, repo.CreateSession(ctx, s))

	got, err := repo.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, models.SessionPendingSecondFactor, got.State)
	require.Equal(t, u.ID, got.UserID)

	deadline := now.Add(time.Hour)
	require.NoError(t, repo.ActivateSession(ctx, "sess-1", deadline))
	got, err = repo.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, models.SessionActive, got.State)
	require.WithinDuration(t, deadline, got.ExpiresAt, time.Second)

	require.NoError(t, repo.UpdateSessionState(ctx, "sess-1", models.SessionRevoked))
	got, err = repo.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, models.SessionRevoked, got.State)
	require.True(t, got.IsTerminal())
}

func TestGetSession_Unknown(t *testing.T) {
	repo := setupTestRepo(t)
	got, err := repo.GetSession(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, got)
}
