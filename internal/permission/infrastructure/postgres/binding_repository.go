package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/permission/domain"
	"github.com/digitlabs/pm-sys/internal/platform/postgres"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// BindingRepository persists user-role assignments.
type BindingRepository struct {
	db *postgres.DB
}

// NewBindingRepository creates a repository.
func NewBindingRepository(db *postgres.DB) *BindingRepository {
	return &BindingRepository{db: db}
}

// Bind inserts the user's role binding.
func (r *BindingRepository) Bind(ctx context.Context, userID, roleID int64) error {
	query := `
		INSERT INTO user_roles (user_id, role_id, gmt_create, gmt_modified)
		VALUES ($1, $2, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query, userID, roleID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyBound
		}
		return fmt.Errorf("failed to insert binding: %w", err)
	}
	return nil
}

// Rebind replaces the user's role binding. The row is locked for the
// duration so two concurrent transitions cannot interleave.
func (r *BindingRepository) Rebind(ctx context.Context, userID, roleID int64) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx,
			`SELECT role_id FROM user_roles WHERE user_id = $1 FOR UPDATE`, userID,
		).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrBindingNotFound
			}
			return fmt.Errorf("failed to lock binding: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE user_roles SET role_id = $2, gmt_modified = NOW() WHERE user_id = $1`,
			userID, roleID)
		if err != nil {
			return fmt.Errorf("failed to update binding: %w", err)
		}
		return nil
	})
}

// GetRole returns the role bound to the user.
func (r *BindingRepository) GetRole(ctx context.Context, userID int64) (*domain.Role, error) {
	query := `
		SELECT r.role_id, r.code, r.name
		FROM user_roles ur
		JOIN roles r ON r.role_id = ur.role_id
		WHERE ur.user_id = $1`

	var role domain.Role
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&role.RoleID, &role.Code, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBindingNotFound
		}
		return nil, fmt.Errorf("failed to query binding: %w", err)
	}
	return &role, nil
}

// ListUserIDsByRoleCodes returns the IDs of all users holding any of
// the given roles.
func (r *BindingRepository) ListUserIDsByRoleCodes(ctx context.Context, codes []string) ([]int64, error) {
	if len(codes) == 0 {
		return []int64{}, nil
	}

	placeholders := make([]string, len(codes))
	args := make([]any, len(codes))
	for i, code := range codes {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = code
	}

	query := fmt.Sprintf(`
		SELECT ur.user_id
		FROM user_roles ur
		JOIN roles r ON r.role_id = ur.role_id
		WHERE r.code IN (%s)
		ORDER BY ur.user_id`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list role holders: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close rows")
		}
	}()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate role holders: %w", err)
	}
	return ids, nil
}

// CountByRoleCode counts the holders of one role.
func (r *BindingRepository) CountByRoleCode(ctx context.Context, code string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM user_roles ur
		JOIN roles r ON r.role_id = ur.role_id
		WHERE r.code = $1`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count role holders: %w", err)
	}
	return count, nil
}
