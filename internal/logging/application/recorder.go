// Package application implements the logging-service use cases.
package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/logging/domain"
	"github.com/digitlabs/pm-sys/internal/oplog"
)

// Recorder consumes operation-log messages and persists them.
type Recorder struct {
	logs domain.Repository
}

// NewRecorder creates the Recorder.
func NewRecorder(logs domain.Repository) *Recorder {
	return &Recorder{logs: logs}
}

// HandleMessage processes one raw broker message. Malformed messages
// are logged and dropped (a redelivery would fail the same way); only
// persistence failures are returned so the delivery is requeued.
func (r *Recorder) HandleMessage(ctx context.Context, body []byte) error {
	var msg oplog.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error().Err(err).Msg("Dropping undecodable operation log message")
		return nil
	}
	if err := msg.Validate(); err != nil {
		log.Error().Err(err).Msg("Dropping invalid operation log message")
		return nil
	}

	entry := &domain.OperationLog{
		UserID:    msg.UserID,
		TraceID:   msg.TraceID,
		Action:    msg.Action,
		IP:        msg.IP,
		Detail:    msg.Detail,
		GmtCreate: msg.GmtCreate.Time,
	}
	if err := r.logs.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to persist operation log: %w", err)
	}

	log.Debug().
		Int64("user_id", entry.UserID).
		Str("action", entry.Action).
		Msg("Operation log recorded")
	return nil
}
