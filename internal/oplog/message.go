// Package oplog defines the operation-log message exchanged between
// the user/permission services and the logging service.
package oplog

import (
	"fmt"
	"strings"
	"time"
)

// Operation actions recorded in the audit trail.
const (
	ActionRegister       = "REGISTER"
	ActionLogin          = "LOGIN"
	ActionUpdateUserInfo = "UPDATE_USER_INFO"
	ActionChangePassword = "CHANGE_PASSWORD"
	ActionResetPassword  = "RESET_PASSWORD"
	ActionUpgradeRole    = "UPGRADE_ROLE"
	ActionDowngradeRole  = "DOWNGRADE_ROLE"
)

// TimeLayout is the wire format for GmtCreate.
const TimeLayout = "2006-01-02 15:04:05"

// Time marshals as "2006-01-02 15:04:05" in JSON.
type Time struct {
	time.Time
}

// Now returns the current instant truncated to second precision.
func Now() Time {
	return Time{time.Now().Truncate(time.Second)}
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(TimeLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(TimeLayout, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// Message is the audit record published for every recorded operation.
type Message struct {
	UserID    int64  `json:"user_id"`
	TraceID   string `json:"trace_id"`
	Action    string `json:"action"`
	IP        string `json:"ip"`
	Detail    string `json:"detail"`
	GmtCreate Time   `json:"gmt_create"`
}

// Validate checks the fields the logging service requires before a
// message is persisted.
func (m *Message) Validate() error {
	if m.UserID <= 0 {
		return fmt.Errorf("user_id must be positive, got %d", m.UserID)
	}
	if m.Action == "" {
		return fmt.Errorf("action is required")
	}
	if len(m.Action) > 50 {
		return fmt.Errorf("action exceeds 50 characters")
	}
	if len(m.TraceID) > 50 {
		return fmt.Errorf("trace_id exceeds 50 characters")
	}
	if len(m.IP) > 45 {
		return fmt.Errorf("ip exceeds 45 characters")
	}
	return nil
}
