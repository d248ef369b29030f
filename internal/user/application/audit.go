package application

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/oplog"
)

// RequestMeta carries the per-request fields recorded in the audit
// trail.
type RequestMeta struct {
	TraceID string
	IP      string
}

// publishAudit sends an operation-log message without blocking the
// request. Publish failures are logged and swallowed; the audit trail
// is best-effort.
func publishAudit(audit AuditPublisher, userID int64, action, detail string, meta RequestMeta) {
	msg := oplog.Message{
		UserID:    userID,
		TraceID:   meta.TraceID,
		Action:    action,
		IP:        meta.IP,
		Detail:    detail,
		GmtCreate: oplog.Now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := audit.Publish(ctx, msg); err != nil {
			log.Warn().
				Err(err).
				Str("action", action).
				Int64("user_id", userID).
				Msg("Failed to publish operation log")
		}
	}()
}
