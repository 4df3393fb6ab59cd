package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID    int64
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]any
	At         time.Time
}

// AuditLogger writes append-only records into audit_logs. Failures are the
// caller's to log; the primary operation never aborts on an audit error.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.EntityType == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity_type/entity_id")
	}
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, details, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.EntityType, log.EntityID, detailsJSON, log.At)
	return err
}
