package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/voltguard/voltguard-backend/internal/api/middleware"
	"github.com/voltguard/voltguard-backend/internal/audit"
	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/models"
	"github.com/voltguard/voltguard-backend/internal/repository"
	"github.com/voltguard/voltguard-backend/internal/service"
	"github.com/voltguard/voltguard-backend/migrations"
)

const testJWTSecret = "test-secret"

// acceptAnyCodeVerifier emulates a second-factor backend that accepts every
// well-formed code.
type acceptAnyCodeVerifier struct{}

func (acceptAnyCodeVerifier) Verify(ctx context.Context, userID, code string) (bool, error) {
	return true, nil
}

type testServer struct {
	router *mux.Router
	repo   *repository.SQLiteRepository
}

func newTestServer(t *testing.T) *testServer {
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

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(repo, log)
	sessions := service.NewSessionService(repo, recorder, acceptAnyCodeVerifier{}, log, service.SessionConfig{})
	devices := service.NewDeviceService(repo, recorder, service.LoopbackDispatcher{}, nil, log, service.DeviceConfig{})

	h := NewHandler(sessions, devices, recorder, testJWTSecret)
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Auth(testJWTSecret, sessions))
	SetupRoutes(router, h)

	hz := NewHealthzHandler(repo)
	router.HandleFunc("/healthz/live", hz.Live).Methods(http.MethodGet)
	router.HandleFunc("/healthz/ready", hz.Ready).Methods(http.MethodGet)

	return &testServer{router: router, repo: repo}
}

func (s *testServer) seedUser(t *testing.T, email, password, role, totpSecret string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	u := &models.User{Email: email, PasswordHash: hash, Role: role, TOTPSecret: totpSecret}
	if err := s.repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v))
}

// login drives the full login flow and returns a usable access token.
func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp loginResponse
	decodeBody(t, rr, &resp)
	if !resp.TwoFactorRequired {
		require.NotEmpty(t, resp.Token)
		return resp.Token
	}

	rr = s.do(t, http.MethodPost, "/api/v1/auth/2fa", "", twoFactorRequest{SessionID: resp.SessionID, Code: "123456"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeBody(t, rr, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}
