package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

func TestParseListQueryDefaults(t *testing.T) {
	params, err := parseListQuery(RawListQuery{})
	require.NoError(t, err)

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 10, params.PageSize)
	require.Len(t, params.Sort, 2)
	assert.Equal(t, domain.SortGmtCreate, params.Sort[0].Field)
	assert.True(t, params.Sort[0].Desc)
	assert.Equal(t, domain.SortUserID, params.Sort[1].Field)
	assert.False(t, params.Sort[1].Desc)
}

func TestParseListQueryPagination(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		size    string
		wantErr string
	}{
		{"page zero rejected", "0", "10", "page must be at least 1"},
		{"negative page rejected", "-3", "10", "page must be at least 1"},
		{"non-numeric page rejected", "abc", "10", "invalid page parameter"},
		{"size zero rejected", "1", "0", "size must be at least 1"},
		{"size over limit rejected", "1", "101", "size must be between 1 and 100"},
		{"size at limit accepted", "1", "100", ""},
		{"large page accepted", "9999", "10", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := parseListQuery(RawListQuery{Page: tt.page, Size: tt.size})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperr.IsKind(err, apperr.KindValidation))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.GreaterOrEqual(t, params.Page, 1)
		})
	}
}

func TestParseListQueryDates(t *testing.T) {
	t.Run("valid window", func(t *testing.T) {
		params, err := parseListQuery(RawListQuery{
			GmtCreateStart: "2024-01-01 00:00:00",
			GmtCreateEnd:   "2024-12-31 23:59:59",
		})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *params.CreatedFrom)
		assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), *params.CreatedTo)
	})

	t.Run("impossible month names the field", func(t *testing.T) {
		_, err := parseListQuery(RawListQuery{GmtCreateStart: "2024-13-01 00:00:00"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gmtCreateStart")
		assert.Contains(t, err.Error(), "yyyy-MM-dd HH:mm:ss")
	})

	t.Run("ISO 8601 rejected", func(t *testing.T) {
		_, err := parseListQuery(RawListQuery{GmtModifiedEnd: "2024-05-01T10:00:00Z"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gmtModifiedEnd")
	})

	t.Run("date without time rejected", func(t *testing.T) {
		_, err := parseListQuery(RawListQuery{GmtModifiedStart: "2024-05-01"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gmtModifiedStart")
	})

	t.Run("inverted window rejected", func(t *testing.T) {
		_, err := parseListQuery(RawListQuery{
			GmtCreateStart: "2024-06-01 00:00:00",
			GmtCreateEnd:   "2024-01-01 00:00:00",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gmtCreateStart must not be after gmtCreateEnd")
	})
}

func TestParseSortSpec(t *testing.T) {
	t.Run("multi-clause spec preserved in order", func(t *testing.T) {
		clauses, err := parseSortSpec("gmtCreate,desc;username,asc")
		require.NoError(t, err)
		require.Len(t, clauses, 3)
		assert.Equal(t, domain.SortGmtCreate, clauses[0].Field)
		assert.True(t, clauses[0].Desc)
		assert.Equal(t, domain.SortUsername, clauses[1].Field)
		assert.False(t, clauses[1].Desc)
		assert.Equal(t, domain.SortUserID, clauses[2].Field)
	})

	t.Run("explicit userId suppresses tie-break", func(t *testing.T) {
		clauses, err := parseSortSpec("userId,desc")
		require.NoError(t, err)
		require.Len(t, clauses, 1)
		assert.Equal(t, domain.SortUserID, clauses[0].Field)
		assert.True(t, clauses[0].Desc)
	})

	t.Run("direction is case insensitive", func(t *testing.T) {
		clauses, err := parseSortSpec("email,DESC")
		require.NoError(t, err)
		assert.True(t, clauses[0].Desc)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		_, err := parseSortSpec("passwordHash,asc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "passwordHash")
	})

	t.Run("bad direction rejected", func(t *testing.T) {
		_, err := parseSortSpec("username,up")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "asc or desc")
	})

	t.Run("missing direction rejected", func(t *testing.T) {
		_, err := parseSortSpec("username")
		require.Error(t, err)
	})

	t.Run("only separators rejected", func(t *testing.T) {
		_, err := parseSortSpec(";;")
		require.Error(t, err)
	})
}

func TestNewPageMeta(t *testing.T) {
	t.Run("middle page", func(t *testing.T) {
		meta := NewPageMeta(2, 10, 35)
		assert.Equal(t, 4, meta.TotalPages)
		assert.False(t, meta.IsFirst)
		assert.False(t, meta.IsLast)
		assert.True(t, meta.HasPrevious)
		assert.True(t, meta.HasNext)
	})

	t.Run("last partial page", func(t *testing.T) {
		meta := NewPageMeta(4, 10, 35)
		assert.True(t, meta.IsLast)
		assert.False(t, meta.HasNext)
		assert.True(t, meta.HasPrevious)
	})

	t.Run("exact multiple", func(t *testing.T) {
		meta := NewPageMeta(3, 10, 30)
		assert.Equal(t, 3, meta.TotalPages)
		assert.True(t, meta.IsLast)
	})

	t.Run("empty result is both first and last", func(t *testing.T) {
		meta := NewPageMeta(1, 10, 0)
		assert.Equal(t, 0, meta.TotalPages)
		assert.True(t, meta.IsFirst)
		assert.True(t, meta.IsLast)
		assert.False(t, meta.HasPrevious)
		assert.False(t, meta.HasNext)
	})

	t.Run("page past the end is last", func(t *testing.T) {
		meta := NewPageMeta(9, 10, 35)
		assert.True(t, meta.IsLast)
		assert.False(t, meta.HasNext)
	})
}
