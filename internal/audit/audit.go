// Package audit implements the append-only audit recorder. Every
// security-relevant action (logins including failures, device commands,
// configuration changes) flows through Append. Entries are never mutated or
// deleted once written.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voltguard/voltguard-backend/internal/models"
	"github.com/voltguard/voltguard-backend/internal/repository"
)

// ErrUnknownAction is returned when the entry's action is outside the fixed
// taxonomy.
var ErrUnknownAction = fmt.Errorf("unknown audit action")

var validActions = map[string]bool{
	models.ActionLogin:         true,
	models.ActionLogout:        true,
	models.ActionDeviceControl: true,
	models.ActionViewDevice:    true,
	models.ActionConfigChange:  true,
}

// Recorder validates and persists audit entries, and mirrors each one to the
// structured log for operators tailing the service.
type Recorder struct {
	repo *repository.SQLiteRepository
	log  *slog.Logger
}

// NewRecorder creates an audit recorder.
func NewRecorder(repo *repository.SQLiteRepository, log *slog.Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

// Append validates the action, stamps the entry server-side, and persists it.
// Caller-supplied timestamps and ids are ignored to prevent log forgery.
func (r *Recorder) Append(ctx context.Context, e *models.AuditLogEntry) error {
	if !validActions[e.Action] {
		return fmt.Errorf("%w: %q", ErrUnknownAction, e.Action)
	}
	if e.Outcome == "" {
		e.Outcome = models.OutcomeSuccess
	}
	e.ID = 0
	e.Timestamp = time.Now().UTC()

	if err := r.repo.AppendAuditLog(ctx, e); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	if r.log != nil {
		r.log.Info("audit",
			"action", e.Action,
			"outcome", e.Outcome,
			"user", e.UserEmail,
			"resource", e.Resource,
			"details", e.Details,
			"source", e.SourceAddress,
		)
	}
	return nil
}

// Query returns entries matching the filter in timestamp-ascending order.
func (r *Recorder) Query(ctx context.Context, f repository.AuditFilter) ([]*models.AuditLogEntry, error) {
	return r.repo.QueryAuditLogs(ctx, f)
}
