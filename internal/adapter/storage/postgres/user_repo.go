package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, password_hash, role, refresh_token, deleted, created_at, updated_at`

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, username, password_hash, role, refresh_token, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Username, u.PasswordHash, u.Role,
		u.RefreshToken, u.Deleted, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", translateErr(err))
	}
	return nil
}

// GetByID fetches a live user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND NOT deleted`
	return r.getOne(ctx, "get user by id", query, id)
}

// GetByUsername fetches a live user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND NOT deleted`
	return r.getOne(ctx, "get user by username", query, username)
}

// GetByRefreshToken fetches the live user currently holding token.
func (r *UserRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE refresh_token = $1 AND NOT deleted`
	return r.getOne(ctx, "get user by refresh token", query, token)
}

func (r *UserRepo) getOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, translateErr(err))
	}
	return u, nil
}

// Update persists username, password hash and refresh token.
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET username = $1, password_hash = $2, refresh_token = $3, updated_at = $4
		WHERE id = $5 AND NOT deleted`

	tag, err := r.pool.Exec(ctx, query, u.Username, u.PasswordHash, u.RefreshToken, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", translateErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", u.ID)
	}
	return nil
}

// SetRefreshToken replaces the stored refresh token; nil clears it.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	query := `UPDATE users SET refresh_token = $1, updated_at = NOW() WHERE id = $2 AND NOT deleted`

	tag, err := r.pool.Exec(ctx, query, token, id)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", translateErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// SoftDelete marks the user deleted and revokes its refresh token.
func (r *UserRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET deleted = TRUE, refresh_token = NULL, updated_at = NOW() WHERE id = $1 AND NOT deleted`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", translateErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// List fetches live users with filtering and pagination, oldest first.
func (r *UserRepo) List(ctx context.Context, params ports.UserListParams) ([]domain.User, int64, error) {
	conditions := []string{"NOT deleted"}
	var args []any
	argIdx := 1

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}
	if params.UsernameContains != "" {
		conditions = append(conditions, fmt.Sprintf("username ILIKE '%%' || $%d || '%%'", argIdx))
		args = append(args, escapeLike(params.UsernameContains))
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", translateErr(err))
	}

	page := params.Page.Normalize()
	dataQuery := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		userColumns, where, argIdx, argIdx+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", translateErr(err))
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, total, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role,
		&u.RefreshToken, &u.Deleted, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
