// Package domain holds the operation-log record and its repository
// contract.
package domain

import (
	"context"
	"time"
)

// OperationLog is one persisted audit record.
type OperationLog struct {
	LogID     int64
	UserID    int64
	TraceID   string
	Action    string
	IP        string
	Detail    string
	GmtCreate time.Time
}

// ListParams filters the log listing. Filters are conjunctive.
type ListParams struct {
	Page     int
	PageSize int

	UserID int64
	Action string

	From *time.Time
	To   *time.Time
}

// Offset returns the row offset for the requested page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Repository persists operation logs.
type Repository interface {
	Insert(ctx context.Context, entry *OperationLog) error
	List(ctx context.Context, params ListParams) ([]*OperationLog, int64, error)
}
