package domain

import "time"

// SortField is a caller-facing sortable attribute. The set is closed;
// anything else is rejected before a query is built.
type SortField string

const (
	SortUserID      SortField = "userId"
	SortUsername    SortField = "username"
	SortEmail       SortField = "email"
	SortPhone       SortField = "phone"
	SortGmtCreate   SortField = "gmtCreate"
	SortGmtModified SortField = "gmtModified"
)

var sortColumns = map[SortField]string{
	SortUserID:      "user_id",
	SortUsername:    "username",
	SortEmail:       "email",
	SortPhone:       "phone",
	SortGmtCreate:   "gmt_create",
	SortGmtModified: "gmt_modified",
}

// Column returns the backing column name, or "" for an unknown field.
func (f SortField) Column() string {
	return sortColumns[f]
}

// SortClause is one ordering term of a listing query.
type SortClause struct {
	Field SortField
	Desc  bool
}

// ListParams is the fully-validated input to Repository.List. Filters
// are conjunctive; zero values mean "not filtered".
type ListParams struct {
	Page     int
	PageSize int

	UsernameContains string
	EmailContains    string
	PhoneContains    string

	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	ModifiedFrom *time.Time
	ModifiedTo   *time.Time

	Sort        []SortClause
	ExcludedIDs []int64
}

// Offset returns the row offset for the requested page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
