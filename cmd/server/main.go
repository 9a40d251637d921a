package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/voltguard/voltguard-backend/internal/api/middleware"
	"github.com/voltguard/voltguard-backend/internal/api/rest"
	"github.com/voltguard/voltguard-backend/internal/api/websocket"
	"github.com/voltguard/voltguard-backend/internal/audit"
	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/config"
	"github.com/voltguard/voltguard-backend/internal/models"
	"github.com/voltguard/voltguard-backend/internal/pkg/logger"
	"github.com/voltguard/voltguard-backend/internal/repository"
	"github.com/voltguard/voltguard-backend/internal/service"
	"github.com/voltguard/voltguard-backend/migrations"
)

func main() {
	log := logger.StdLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.AuthJWTSecret == "" {
		log.Error("VOLTGUARD_AUTH_JWT_SECRET is required")
		os.Exit(1)
	}

	repo, err := repository.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	migrationSQL, err := migrations.FS.ReadFile("001_initial_schema.sql")
	if err != nil {
		log.Error("failed to read embedded migration", "error", err)
		os.Exit(1)
	}
	if err := repo.RunMigrations(string(migrationSQL)); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrapAdmin(ctx, repo, cfg, log); err != nil {
		log.Error("failed to bootstrap admin user", "error", err)
		os.Exit(1)
	}

	recorder := audit.NewRecorder(repo, log)
	verifier := auth.NewTOTPVerifier(repo)
	sessions := service.NewSessionService(repo, recorder, verifier, log, service.SessionConfig{
		SessionTTL:      time.Duration(cfg.SessionTTLMin) * time.Minute,
		PendingTTL:      time.Duration(cfg.PendingTTLMin) * time.Minute,
		MaxFailedLogins: cfg.MaxFailedLogins,
		LockoutDuration: time.Duration(cfg.LockoutMin) * time.Minute,
	})

	hub := websocket.NewHub(ctx, log)
	go hub.Run()
	defer hub.Stop()

	// TODO: replace the loopback dispatcher with the MQTT fleet transport
	// once the plug firmware ships command topics.
	devices := service.NewDeviceService(repo, recorder, service.LoopbackDispatcher{}, hub, log, service.DeviceConfig{
		AnomalySigma:      cfg.AnomalySigma,
		AnomalyCooldown:   time.Duration(cfg.AnomalyCooldownMin) * time.Minute,
		AnomalyMinSamples: cfg.AnomalyMinSamples,
		TelemetryWindow:   cfg.TelemetryWindow,
	})

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders)
	router.Use(middleware.Metrics)
	router.Use(middleware.StructuredLog)
	router.Use(middleware.RateLimit)
	router.Use(middleware.MaxBodySize(middleware.DefaultStandardMaxBodyBytes, middleware.DefaultIngestMaxBodyBytes))
	router.Use(middleware.Auth(cfg.AuthJWTSecret, sessions))

	h := rest.NewHandler(sessions, devices, recorder, cfg.AuthJWTSecret)
	rest.SetupRoutes(router, h)

	hz := rest.NewHealthzHandler(repo)
	router.HandleFunc("/healthz/live", hz.Live).Methods(http.MethodGet)
	router.HandleFunc("/healthz/ready", hz.Ready).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	wsHandler := websocket.NewHandler(ctx, hub, sessions, cfg.AuthJWTSecret)
	router.HandleFunc("/ws/events", wsHandler.ServeWS)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  time.Duration(cfg.RequestTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("voltguard backend listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("voltguard backend stopped")
}

// bootstrapAdmin creates the first admin account on an empty database so the
// dashboard is reachable after initial deployment. It never touches an
// existing user set.
func bootstrapAdmin(ctx context.Context, repo *repository.SQLiteRepository, cfg *config.Config, log *slog.Logger) error {
	n, err := repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if cfg.BootstrapAdminPassword == "" {
		log.Warn("no users exist and VOLTGUARD_BOOTSTRAP_ADMIN_PASSWORD is unset, nobody can log in")
		return nil
	}
	hash, err := auth.HashPassword(cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	u := &models.User{
		Email:        cfg.BootstrapAdminEmail,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		return err
	}
	log.Info("bootstrap admin created", "email", u.Email)
	return nil
}
