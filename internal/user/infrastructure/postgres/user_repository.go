// Package postgres implements the user repository.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/platform/postgres"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

// UserRepository persists users in PostgreSQL.
type UserRepository struct {
	db *postgres.DB
}

// NewUserRepository creates a repository.
func NewUserRepository(db *postgres.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	UserID       int64
	Username     string
	Email        string
	Phone        sql.NullString
	PasswordHash string
	GmtCreate    time.Time
	GmtModified  time.Time
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		UserID:       r.UserID,
		Username:     r.Username,
		Email:        r.Email,
		Phone:        r.Phone.String,
		PasswordHash: r.PasswordHash,
		GmtCreate:    r.GmtCreate,
		GmtModified:  r.GmtModified,
	}
}

const userColumns = "user_id, username, email, phone, password_hash, gmt_create, gmt_modified"

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// likeEscaper neutralizes LIKE metacharacters in filter values so they
// match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Create inserts a new user. A duplicate username or email surfaces as
// ErrDuplicate so racing registrations past the existence checks still
// conflict cleanly.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (user_id, username, email, phone, password_hash, gmt_create, gmt_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		u.UserID, u.Username, u.Email, nullString(u.Phone), u.PasswordHash, u.GmtCreate, u.GmtModified)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID loads a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE user_id = $1", userColumns)
	return r.getOne(ctx, query, id)
}

// GetByUsername loads a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userColumns)
	return r.getOne(ctx, query, username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var row userRow
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&row.UserID, &row.Username, &row.Email, &row.Phone,
		&row.PasswordHash, &row.GmtCreate, &row.GmtModified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return row.toDomain(), nil
}

// ExistsByUsername reports whether the username is taken.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)", username)
}

// ExistsByEmail reports whether the email is taken.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

// UpdateProfile stores the mutable contact fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, phone = $3, gmt_modified = NOW()
		WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, u.UserID, u.Email, nullString(u.Phone))
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(result)
}

// UpdatePassword stores a new password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, gmt_modified = NOW()
		WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRow(result)
}

// Delete removes a user row. Used to compensate a failed registration.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE user_id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRow(result)
}

// List returns one page of users plus the total match count. Filters,
// exclusions and ordering are all applied in SQL so the page and the
// count always agree.
func (r *UserRepository) List(ctx context.Context, params domain.ListParams) ([]*domain.User, int64, error) {
	conditions := []string{}
	args := []any{}
	argPos := 1

	addPattern := func(column, value string) {
		if value != "" {
			conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", column, argPos))
			args = append(args, "%"+likeEscaper.Replace(value)+"%")
			argPos++
		}
	}
	addPattern("username", params.UsernameContains)
	addPattern("email", params.EmailContains)
	addPattern("phone", params.PhoneContains)

	addBound := func(column, op string, value *time.Time) {
		if value != nil {
			conditions = append(conditions, fmt.Sprintf("%s %s $%d", column, op, argPos))
			args = append(args, *value)
			argPos++
		}
	}
	addBound("gmt_create", ">=", params.CreatedFrom)
	addBound("gmt_create", "<=", params.CreatedTo)
	addBound("gmt_modified", ">=", params.ModifiedFrom)
	addBound("gmt_modified", "<=", params.ModifiedTo)

	if len(params.ExcludedIDs) > 0 {
		placeholders := make([]string, len(params.ExcludedIDs))
		for i, id := range params.ExcludedIDs {
			placeholders[i] = fmt.Sprintf("$%d", argPos)
			args = append(args, id)
			argPos++
		}
		conditions = append(conditions, fmt.Sprintf("user_id NOT IN (%s)", strings.Join(placeholders, ", ")))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM users" + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	orderClauses := make([]string, 0, len(params.Sort))
	for _, clause := range params.Sort {
		column := clause.Field.Column()
		if column == "" {
			return nil, 0, fmt.Errorf("unknown sort field %q", string(clause.Field))
		}
		direction := "ASC"
		if clause.Desc {
			direction = "DESC"
		}
		orderClauses = append(orderClauses, column+" "+direction)
	}
	if len(orderClauses) == 0 {
		orderClauses = append(orderClauses, "gmt_create DESC", "user_id ASC")
	}

	query := fmt.Sprintf(
		"SELECT %s FROM users%s ORDER BY %s LIMIT $%d OFFSET $%d",
		userColumns, whereClause, strings.Join(orderClauses, ", "), argPos, argPos+1)
	args = append(args, params.PageSize, params.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close rows")
		}
	}()

	users := []*domain.User{}
	for rows.Next() {
		var row userRow
		if err := rows.Scan(
			&row.UserID, &row.Username, &row.Email, &row.Phone,
			&row.PasswordHash, &row.GmtCreate, &row.GmtModified); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, total, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
