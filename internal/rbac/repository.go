package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffhub/staffhub/internal/platform/db"
	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/shared"
)

// ErrDuplicate indicates a unique constraint violation while writing roles.
var ErrDuplicate = httpx.ErrDuplicate

// Repository stores role definitions in PostgreSQL. It doubles as a
// MatrixSource.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Load reads every role with its permissions and parents.
func (r *Repository) Load(ctx context.Context) ([]RoleDefinition, error) {
	return loadDefinitions(ctx, r.pool)
}

func loadDefinitions(ctx context.Context, q querier) ([]RoleDefinition, error) {
	rows, err := q.Query(ctx, `SELECT role, display_name FROM rbac_roles ORDER BY role`)
	if err != nil {
		return nil, err
	}
	defs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RoleDefinition, error) {
		var (
			def  RoleDefinition
			role string
		)
		err := row.Scan(&role, &def.DisplayName)
		def.Role = shared.Role(role)
		return def, err
	})
	if err != nil {
		return nil, err
	}
	index := make(map[shared.Role]int, len(defs))
	for i, def := range defs {
		index[def.Role] = i
	}

	permRows, err := q.Query(ctx, `SELECT role, permission FROM rbac_role_permissions ORDER BY role, permission`)
	if err != nil {
		return nil, err
	}
	defer permRows.Close()
	for permRows.Next() {
		var role, perm string
		if err := permRows.Scan(&role, &perm); err != nil {
			return nil, err
		}
		if i, ok := index[shared.Role(role)]; ok {
			defs[i].Permissions = append(defs[i].Permissions, perm)
		}
	}
	if err := permRows.Err(); err != nil {
		return nil, err
	}

	inheritRows, err := q.Query(ctx, `SELECT role, parent FROM rbac_role_inherits ORDER BY role, parent`)
	if err != nil {
		return nil, err
	}
	defer inheritRows.Close()
	for inheritRows.Next() {
		var role, parent string
		if err := inheritRows.Scan(&role, &parent); err != nil {
			return nil, err
		}
		if i, ok := index[shared.Role(role)]; ok {
			defs[i].Inherits = append(defs[i].Inherits, shared.Role(parent))
		}
	}
	return defs, inheritRows.Err()
}

// UpdateRole applies change to the stored definition of role. The role tables
// are locked for the transaction and the whole matrix is rebuilt from the
// locked rows, so concurrent edits cannot combine into an invalid matrix.
func (r *Repository) UpdateRole(ctx context.Context, role shared.Role, change func(*RoleDefinition)) (RoleDefinition, error) {
	var updated RoleDefinition
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockRoles(ctx, tx); err != nil {
			return err
		}
		defs, err := loadDefinitions(ctx, tx)
		if err != nil {
			return err
		}
		_, def, err := ApplyRoleChange(defs, role, change)
		if err != nil {
			return err
		}
		if err := upsertRole(ctx, tx, def); err != nil {
			return err
		}
		if err := writeGrants(ctx, tx, def); err != nil {
			return err
		}
		updated = def
		return nil
	})
	if err != nil {
		return RoleDefinition{}, mapWriteError(err)
	}
	return updated, nil
}

// ReplaceAll writes a complete matrix in one transaction. Roles are upserted
// before any inheritance edge so parents always exist.
func (r *Repository) ReplaceAll(ctx context.Context, defs []RoleDefinition) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockRoles(ctx, tx); err != nil {
			return err
		}
		for _, def := range defs {
			if err := upsertRole(ctx, tx, def); err != nil {
				return err
			}
		}
		for _, def := range defs {
			if err := writeGrants(ctx, tx, def); err != nil {
				return err
			}
		}
		return nil
	})
	return mapWriteError(err)
}

// lockRoles blocks other role writers until the transaction ends. It must run
// before the first query so the RepeatableRead snapshot sees their commits.
func lockRoles(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `LOCK TABLE rbac_roles, rbac_role_permissions, rbac_role_inherits IN SHARE ROW EXCLUSIVE MODE`)
	return err
}

func upsertRole(ctx context.Context, tx pgx.Tx, def RoleDefinition) error {
	_, err := tx.Exec(ctx, `INSERT INTO rbac_roles (role, display_name) VALUES ($1, $2)
		ON CONFLICT (role) DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = NOW()`,
		string(def.Role), def.DisplayName)
	return err
}

func writeGrants(ctx context.Context, tx pgx.Tx, def RoleDefinition) error {
	if _, err := tx.Exec(ctx, `DELETE FROM rbac_role_permissions WHERE role = $1`, string(def.Role)); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, perm := range def.Permissions {
		batch.Queue(`INSERT INTO rbac_role_permissions (role, permission) VALUES ($1, $2)`, string(def.Role), perm)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rbac_role_inherits WHERE role = $1`, string(def.Role)); err != nil {
		return err
	}
	for _, parent := range def.Inherits {
		batch.Queue(`INSERT INTO rbac_role_inherits (role, parent) VALUES ($1, $2)`, string(def.Role), string(parent))
	}
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
