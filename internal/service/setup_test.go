package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/models"
	"github.com/voltguard/voltguard-backend/internal/repository"
	"github.com/voltguard/voltguard-backend/migrations"
)

func setupTestRepo(t *testing.T) *repository.SQLiteRepository {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	migrationSQL, err := migrations.FS.ReadFile("001_initial_schema.sql")
	if err != nil {
		t.Fatalf("Failed to read embedded migration: %v", err)
	}
	if err := repo.RunMigrations(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return repo
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubVerifier accepts or rejects every well-formed code.
type stubVerifier struct {
	accept bool
}

func (v stubVerifier) Verify(ctx context.Context, userID, code string) (bool, error) {
	return v.accept, nil
}

// recordingDispatcher captures relay commands and optionally fails them.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (d *recordingDispatcher) DispatchRelay(ctx context.Context, deviceID string, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, deviceID)
	return d.err
}

// recordingBroadcaster captures events fanned out to dashboard clients.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) Broadcast(eventType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
}

func seedUser(t *testing.T, repo *repository.SQLiteRepository, email, password, role, totpSecret string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		TOTPSecret:   totpSecret,
	}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func seedDevice(t *testing.T, repo *repository.SQLiteRepository, id, connectivity string) *models.Device {
	t.Helper()
	d := &models.Device{
		ID:           id,
		DisplayName:  "Plug " + id,
		Connectivity: connectivity,
		IsEncrypted:  true,
		IsAttested:   true,
	}
	if err := repo.CreateDevice(context.Background(), d); err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}
	return d
}

func countAudit(t *testing.T, repo *repository.SQLiteRepository, action string) int {
	t.Helper()
	n, err := repo.CountAuditLogsByAction(context.Background(), action)
	if err != nil {
		t.Fatalf("Failed to count audit entries: %v", err)
	}
	return n
}

func goodStatus() repository.DeviceStatus {
	return repository.DeviceStatus{
		Connectivity:    models.ConnectivityOnline,
		FirmwareVersion: "1.4.2",
		IsEncrypted:     true,
		IsAttested:      true,
	}
}

func futureTime(d time.Duration) *time.Time {
	t := time.Now().UTC().Add(d)
	return &t
}
