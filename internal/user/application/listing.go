package application

import (
	"strconv"
	"strings"
	"time"

	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100

	timeLayout = "2006-01-02 15:04:05"
)

// RawListQuery carries the listing parameters exactly as received on
// the wire, before any validation.
type RawListQuery struct {
	Page string
	Size string

	Username string
	Email    string
	Phone    string

	GmtCreateStart   string
	GmtCreateEnd     string
	GmtModifiedStart string
	GmtModifiedEnd   string

	Sort string
}

// parseListQuery validates a raw query into repository parameters.
// Exclusions are resolved separately from the caller's role.
func parseListQuery(raw RawListQuery) (domain.ListParams, error) {
	params := domain.ListParams{
		UsernameContains: strings.TrimSpace(raw.Username),
		EmailContains:    strings.TrimSpace(raw.Email),
		PhoneContains:    strings.TrimSpace(raw.Phone),
	}

	page, err := parsePositiveInt(raw.Page, "page", defaultPage)
	if err != nil {
		return domain.ListParams{}, err
	}
	params.Page = page

	size, err := parsePositiveInt(raw.Size, "size", defaultPageSize)
	if err != nil {
		return domain.ListParams{}, err
	}
	if size > maxPageSize {
		return domain.ListParams{}, apperr.Validationf("size must be between 1 and %d", maxPageSize)
	}
	params.PageSize = size

	if params.CreatedFrom, err = parseTime(raw.GmtCreateStart, "gmtCreateStart"); err != nil {
		return domain.ListParams{}, err
	}
	if params.CreatedTo, err = parseTime(raw.GmtCreateEnd, "gmtCreateEnd"); err != nil {
		return domain.ListParams{}, err
	}
	if params.ModifiedFrom, err = parseTime(raw.GmtModifiedStart, "gmtModifiedStart"); err != nil {
		return domain.ListParams{}, err
	}
	if params.ModifiedTo, err = parseTime(raw.GmtModifiedEnd, "gmtModifiedEnd"); err != nil {
		return domain.ListParams{}, err
	}

	if err := checkRange(params.CreatedFrom, params.CreatedTo, "gmtCreateStart", "gmtCreateEnd"); err != nil {
		return domain.ListParams{}, err
	}
	if err := checkRange(params.ModifiedFrom, params.ModifiedTo, "gmtModifiedStart", "gmtModifiedEnd"); err != nil {
		return domain.ListParams{}, err
	}

	if params.Sort, err = parseSortSpec(raw.Sort); err != nil {
		return domain.ListParams{}, err
	}

	return params, nil
}

func parsePositiveInt(s, name string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Validationf("invalid %s parameter: %q", name, s)
	}
	if n < 1 {
		return 0, apperr.Validationf("%s must be at least 1", name)
	}
	return n, nil
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

func checkRange(from, to *time.Time, fromName, toName string) error {
	if from != nil && to != nil && from.After(*to) {
		return apperr.Validationf("%s must not be after %s", fromName, toName)
	}
	return nil
}

// parseSortSpec parses "field,direction;field,direction" into ordered
// sort clauses. An empty spec yields the default gmtCreate descending.
// A userId tie-break is appended so pages are stable under equal keys.
func parseSortSpec(spec string) ([]domain.SortClause, error) {
	clauses := []domain.SortClause{}

	spec = strings.TrimSpace(spec)
	if spec == "" {
		clauses = append(clauses, domain.SortClause{Field: domain.SortGmtCreate, Desc: true})
	} else {
		for _, part := range strings.Split(spec, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			fieldAndDir := strings.Split(part, ",")
			if len(fieldAndDir) != 2 {
				return nil, apperr.Validationf("invalid sort clause %q: expected field,direction", part)
			}

			field := domain.SortField(strings.TrimSpace(fieldAndDir[0]))
			if field.Column() == "" {
				return nil, apperr.Validationf("unsupported sort field %q", string(field))
			}

			var desc bool
			switch strings.ToLower(strings.TrimSpace(fieldAndDir[1])) {
			case "asc":
				desc = false
			case "desc":
				desc = true
			default:
				return nil, apperr.Validationf("invalid sort direction %q: expected asc or desc", fieldAndDir[1])
			}

			clauses = append(clauses, domain.SortClause{Field: field, Desc: desc})
		}
		if len(clauses) == 0 {
			return nil, apperr.Validationf("invalid sort specification %q", spec)
		}
	}

	hasUserID := false
	for _, c := range clauses {
		if c.Field == domain.SortUserID {
			hasUserID = true
			break
		}
	}
	if !hasUserID {
		clauses = append(clauses, domain.SortClause{Field: domain.SortUserID, Desc: false})
	}

	return clauses, nil
}

// PageMeta describes the page of a listing response.
type PageMeta struct {
	CurrentPage   int   `json:"currentPage"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	IsFirst       bool  `json:"isFirst"`
	IsLast        bool  `json:"isLast"`
	HasPrevious   bool  `json:"hasPrevious"`
	HasNext       bool  `json:"hasNext"`
}

// NewPageMeta derives page metadata. An empty result set is both first
// and last.
func NewPageMeta(page, size int, total int64) PageMeta {
	totalPages := int((total + int64(size) - 1) / int64(size))
	return PageMeta{
		CurrentPage:   page,
		PageSize:      size,
		TotalElements: total,
		TotalPages:    totalPages,
		IsFirst:       page == 1,
		IsLast:        page >= totalPages || total == 0,
		HasPrevious:   page > 1,
		HasNext:       page < totalPages,
	}
}
