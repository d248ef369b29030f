// Package postgres implements the operation-log repository.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/logging/domain"
	"github.com/digitlabs/pm-sys/internal/platform/postgres"
)

// LogRepository persists operation logs in PostgreSQL.
type LogRepository struct {
	db *postgres.DB
}

// NewLogRepository creates a repository.
func NewLogRepository(db *postgres.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Insert appends one log record.
func (r *LogRepository) Insert(ctx context.Context, entry *domain.OperationLog) error {
	query := `
		INSERT INTO operation_logs (user_id, trace_id, action, ip, detail, gmt_create)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING log_id`

	err := r.db.QueryRowContext(ctx, query,
		entry.UserID, entry.TraceID, entry.Action, entry.IP, entry.Detail, entry.GmtCreate).
		Scan(&entry.LogID)
	if err != nil {
		return fmt.Errorf("failed to insert operation log: %w", err)
	}
	return nil
}

// List returns one page of records, newest first, plus the total match
// count.
func (r *LogRepository) List(ctx context.Context, params domain.ListParams) ([]*domain.OperationLog, int64, error) {
	conditions := []string{}
	args := []any{}
	argPos := 1

	if params.UserID > 0 {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, params.UserID)
		argPos++
	}
	if params.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argPos))
		args = append(args, params.Action)
		argPos++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("gmt_create >= $%d", argPos))
		args = append(args, *params.From)
		argPos++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("gmt_create <= $%d", argPos))
		args = append(args, *params.To)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM operation_logs" + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count operation logs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT log_id, user_id, trace_id, action, ip, detail, gmt_create
		FROM operation_logs%s
		ORDER BY gmt_create DESC, log_id DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, params.PageSize, params.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list operation logs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close rows")
		}
	}()

	entries := []*domain.OperationLog{}
	for rows.Next() {
		var e domain.OperationLog
		if err := rows.Scan(&e.LogID, &e.UserID, &e.TraceID, &e.Action, &e.IP, &e.Detail, &e.GmtCreate); err != nil {
			return nil, 0, fmt.Errorf("failed to scan operation log: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate operation logs: %w", err)
	}

	return entries, total, nil
}
