// Package postgres implements the permission-service repositories.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/permission/domain"
	"github.com/digitlabs/pm-sys/internal/platform/postgres"
)

// RoleRepository reads the seeded roles table.
type RoleRepository struct {
	db *postgres.DB
}

// NewRoleRepository creates a repository.
func NewRoleRepository(db *postgres.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// GetByCode loads a role by its code.
func (r *RoleRepository) GetByCode(ctx context.Context, code string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRowContext(ctx,
		"SELECT role_id, code, name FROM roles WHERE code = $1", code).
		Scan(&role.RoleID, &role.Code, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to query role: %w", err)
	}
	return &role, nil
}

// List returns all roles ordered by ID.
func (r *RoleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT role_id, code, name FROM roles ORDER BY role_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close rows")
		}
	}()

	list := []*domain.Role{}
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.RoleID, &role.Code, &role.Name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		list = append(list, &role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}
	return list, nil
}
