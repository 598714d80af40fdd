package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffhub/staffhub/internal/platform/db"
	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.email, u.name, u.role, u.password_hash, u.is_active, u.created_at, u.updated_at,
	COALESCE(ARRAY(SELECT ua.account_id FROM user_accounts ua WHERE ua.user_id = u.id ORDER BY ua.account_id), '{}')`

// ListUsers returns all users ordered by email.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.email`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		return scanUser(row)
	})
}

// FindByID fetches a user by id.
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

// FindByEmail fetches a user by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users u WHERE lower(u.email) = lower($1)`, email)
}

func (r *Repository) findOne(ctx context.Context, query string, arg string) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts the user and its account assignments.
func (r *Repository) Create(ctx context.Context, user User) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `INSERT INTO users (id, email, name, role, password_hash, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
			user.ID, user.Email, user.Name, string(user.Role), user.PasswordHash, user.IsActive,
			pgtype.Timestamptz{Time: now, Valid: true}); err != nil {
			return err
		}
		return replaceAccounts(ctx, tx, user.ID, user.AccountIDs)
	})
	return mapWriteError(err)
}

// SetRole changes the role of a user.
func (r *Repository) SetRole(ctx context.Context, id string, role shared.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetAccounts replaces the account assignments of a user.
func (r *Repository) SetAccounts(ctx context.Context, id string, accountIDs []string) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		return replaceAccounts(ctx, tx, id, accountIDs)
	})
	return mapWriteError(err)
}

func replaceAccounts(ctx context.Context, tx pgx.Tx, userID string, accountIDs []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_accounts WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, account := range accountIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO user_accounts (user_id, account_id) VALUES ($1, $2)`, userID, account); err != nil {
			return err
		}
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		role      string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.IsActive, &createdAt, &updatedAt, &u.AccountIDs); err != nil {
		return User{}, err
	}
	u.Role = shared.Role(role)
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time
	return u, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
