package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/voltguard/voltguard-backend/internal/models"
	"github.com/voltguard/voltguard-backend/internal/repository"
	"github.com/voltguard/voltguard-backend/migrations"
)

func setupRecorder(t *testing.T) *Recorder {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	migrationSQL, err := migrations.FS.ReadFile("001_initial_schema.sql")
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(string(migrationSQL)))

	return NewRecorder(repo, nil)
}

func TestAppendRejectsUnknownAction(t *testing.T) {
	rec := setupRecorder(t)
	err := rec.Append(context.Background(), &models.AuditLogEntry{Action: "DROP_TABLES"})
	require.ErrorIs(t, err, ErrUnknownAction)

	err = rec.Append(context.Background(), &models.AuditLogEntry{Action: "login"})
	require.ErrorIs(t, err, ErrUnknownAction, "taxonomy is case-sensitive")
}

func TestAppendIgnoresCallerTimestampAndID(t *testing.T) {
	rec := setupRecorder(t)

	forged := &models.AuditLogEntry{
		ID:        9999,
		Timestamp: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
		Action:    models.ActionLogin,
		UserEmail: "a@x.com",
	}
	require.NoError(t, rec.Append(context.Background(), forged))

	require.NotEqual(t, int64(9999), forged.ID, "server assigns the id")
	require.WithinDuration(t, time.Now(), forged.Timestamp, time.Minute, "server assigns the timestamp")
	require.Equal(t, models.OutcomeSuccess, forged.Outcome, "outcome defaults to success")
}

func TestAppendAndQueryOrdering(t *testing.T) {
	rec := setupRecorder(t)
	ctx := context.Background()

	for _, action := range []string{models.ActionLogin, models.ActionViewDevice, models.ActionLogout} {
		require.NoError(t, rec.Append(ctx, &models.AuditLogEntry{Action: action, UserEmail: "a@x.com"}))
	}

	entries, err := rec.Query(ctx, repository.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, models.ActionLogin, entries[0].Action)
	require.Equal(t, models.ActionLogout, entries[2].Action)
	for i := 1; i < len(entries); i++ {
		require.Greater(t, entries[i].ID, entries[i-1].ID)
	}
}
