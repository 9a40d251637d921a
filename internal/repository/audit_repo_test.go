package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/voltguard/voltguard-backend/internal/models"
)

func TestAuditAppendAssignsMonotonicIDs(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	var lastID int64
	for i := 0; i < 5; i++ {
		e := &models.AuditLogEntry{
			Timestamp: time.Now().UTC(),
			UserEmail: "a@x.com",
			Action:    models.ActionLogin,
			Outcome:   models.OutcomeSuccess,
		}
		require.NoError(t, repo.AppendAuditLog(ctx, e))
		require.Greater(t, e.ID, lastID, "ids must be strictly increasing")
		lastID = e.ID
	}
}

func TestAuditQueryAscendingAndFiltered(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	entries := []*models.AuditLogEntry{
		{Timestamp: base.Add(2 * time.Second), UserID: "u1", Action: models.ActionLogout, Outcome: models.OutcomeSuccess},
		{Timestamp: base, UserID: "u1", Action: models.ActionLogin, Outcome: models.OutcomeSuccess},
		{Timestamp: base.Add(time.Second), UserID: "u2", Action: models.ActionDeviceControl, Resource: "smartplug_001", Outcome: models.OutcomeFailure},
	}
	for _, e := range entries {
		require.NoError(t, repo.AppendAuditLog(ctx, e))
	}

	all, err := repo.QueryAuditLogs(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		require.False(t, all[i].Timestamp.Before(all[i-1].Timestamp), "results must be timestamp-ascending")
	}

	byUser, err := repo.QueryAuditLogs(ctx, AuditFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	byAction, err := repo.QueryAuditLogs(ctx, AuditFilter{Action: models.ActionDeviceControl})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	require.Equal(t, "smartplug_001", byAction[0].Resource)
	require.Equal(t, models.OutcomeFailure, byAction[0].Outcome)

	windowed, err := repo.QueryAuditLogs(ctx, AuditFilter{Since: base.Add(time.Second), Until: base.Add(time.Second)})
	require.NoError(t, err)
	require.Len(t, windowed, 1)

	limited, err := repo.QueryAuditLogs(ctx, AuditFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
}
