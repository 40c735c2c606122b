// Package audit records user-facing actions in the append-only user_logs
// trail. Writes are best-effort: a failed audit write is logged locally and
// never aborts the action that triggered it.
package audit

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"kartoteka.org/internal/obs"
	"kartoteka.org/internal/person"
)

type ctxKey string

const updateIDKey ctxKey = "audit_update_id"

// WithUpdateID attaches the inbound-message correlation id to the context.
func WithUpdateID(ctx context.Context, updateID string) context.Context {
	updateID = strings.TrimSpace(updateID)
	if updateID == "" {
		return ctx
	}
	return context.WithValue(ctx, updateIDKey, updateID)
}

// UpdateIDFromContext extracts the correlation id if present.
func UpdateIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(updateIDKey).(string); ok {
		return v
	}
	return ""
}

// Recorder persists audit entries and mirrors them to the structured log.
type Recorder struct {
	store person.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store person.Store, log *zap.Logger) *Recorder {
	if log == nil {
		log = obs.Logger()
	}
	return &Recorder{store: store, log: log, now: time.Now}
}

// Record appends one entry. Store failures are swallowed after being counted
// and logged.
func (r *Recorder) Record(ctx context.Context, userID int64, username, action, details string) {
	entry := person.LogEntry{
		Timestamp: r.now().UTC(),
		UserID:    userID,
		Username:  username,
		Action:    action,
		Details:   details,
	}
	fields := []zap.Field{
		zap.String("type", "audit"),
		zap.Int64("user_id", userID),
		zap.String("action", action),
		zap.String("details", details),
	}
	if username != "" {
		fields = append(fields, zap.String("username", username))
	}
	if uid := UpdateIDFromContext(ctx); uid != "" {
		fields = append(fields, zap.String("update_id", uid))
	}
	if err := r.store.AppendLog(ctx, entry); err != nil {
		obs.StoreError()
		r.log.Warn("audit append failed", append(fields, zap.Error(err))...)
		return
	}
	r.log.Info("audit", fields...)
}
