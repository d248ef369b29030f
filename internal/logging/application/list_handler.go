package application

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/digitlabs/pm-sys/internal/logging/domain"
	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/platform/roles"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100

	timeLayout = "2006-01-02 15:04:05"
)

// PermissionClient resolves a caller's role.
type PermissionClient interface {
	GetUserRole(ctx context.Context, userID int64) (string, error)
}

// RawLogQuery carries the log listing parameters as received.
type RawLogQuery struct {
	Page   string
	Size   string
	UserID string
	Action string
	From   string
	To     string
}

// LogEntry is one row of the listing response.
type LogEntry struct {
	LogID     int64  `json:"logId"`
	UserID    int64  `json:"userId"`
	TraceID   string `json:"traceId"`
	Action    string `json:"action"`
	IP        string `json:"ip"`
	Detail    string `json:"detail"`
	GmtCreate string `json:"gmtCreate"`
}

// ListLogsResult is the listing response payload.
type ListLogsResult struct {
	Logs          []LogEntry `json:"logs"`
	CurrentPage   int        `json:"currentPage"`
	PageSize      int        `json:"pageSize"`
	TotalElements int64      `json:"totalElements"`
	TotalPages    int        `json:"totalPages"`
}

// ListLogsHandler serves the audit-trail listing to administrators.
type ListLogsHandler struct {
	logs  domain.Repository
	perms PermissionClient
}

// NewListLogsHandler creates the handler.
func NewListLogsHandler(logs domain.Repository, perms PermissionClient) *ListLogsHandler {
	return &ListLogsHandler{logs: logs, perms: perms}
}

// Handle validates the query and returns one page of log records. Only
// administrative callers may read the audit trail; a permission
// lookup failure denies access.
func (h *ListLogsHandler) Handle(ctx context.Context, callerID int64, raw RawLogQuery) (*ListLogsResult, error) {
	role, err := h.perms.GetUserRole(ctx, callerID)
	if err != nil {
		return nil, apperr.Dependency("permission service unavailable", err)
	}
	if !roles.IsAdministrative(role) {
		return nil, apperr.PermissionDenied("administrative role required")
	}

	params, err := parseLogQuery(raw)
	if err != nil {
		return nil, err
	}

	entries, total, err := h.logs.List(ctx, params)
	if err != nil {
		return nil, apperr.Internal("failed to list operation logs", err)
	}

	result := &ListLogsResult{
		Logs:          make([]LogEntry, 0, len(entries)),
		CurrentPage:   params.Page,
		PageSize:      params.PageSize,
		TotalElements: total,
		TotalPages:    int((total + int64(params.PageSize) - 1) / int64(params.PageSize)),
	}
	for _, e := range entries {
		result.Logs = append(result.Logs, LogEntry{
			LogID:     e.LogID,
			UserID:    e.UserID,
			TraceID:   e.TraceID,
			Action:    e.Action,
			IP:        e.IP,
			Detail:    e.Detail,
			GmtCreate: e.GmtCreate.Format(timeLayout),
		})
	}
	return result, nil
}

func parseLogQuery(raw RawLogQuery) (domain.ListParams, error) {
	params := domain.ListParams{
		Page:     defaultPage,
		PageSize: defaultPageSize,
		Action:   strings.TrimSpace(raw.Action),
	}

	if raw.Page != "" {
		page, err := strconv.Atoi(raw.Page)
		if err != nil || page < 1 {
			return domain.ListParams{}, apperr.Validationf("invalid page parameter: %q", raw.Page)
		}
		params.Page = page
	}
	if raw.Size != "" {
		size, err := strconv.Atoi(raw.Size)
		if err != nil || size < 1 || size > maxPageSize {
			return domain.ListParams{}, apperr.Validationf("size must be between 1 and %d", maxPageSize)
		}
		params.PageSize = size
	}
	if raw.UserID != "" {
		userID, err := strconv.ParseInt(raw.UserID, 10, 64)
		if err != nil || userID < 1 {
			return domain.ListParams{}, apperr.Validationf("invalid userId parameter: %q", raw.UserID)
		}
		params.UserID = userID
	}

	var err error
	if params.From, err = parseTime(raw.From, "from"); err != nil {
		return domain.ListParams{}, err
	}
	if params.To, err = parseTime(raw.To, "to"); err != nil {
		return domain.ListParams{}, err
	}
	if params.From != nil && params.To != nil && params.From.After(*params.To) {
		return domain.ListParams{}, apperr.Validation("from must not be after to")
	}

	return params, nil
}

func parseTime(s, name string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return nil, apperr.Validationf("invalid %s: expected format yyyy-MM-dd HH:mm:ss", name)
	}
	return &t, nil
}
