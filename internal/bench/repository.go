package bench

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffhub/staffhub/internal/platform/db"
	"github.com/staffhub/staffhub/internal/shared"
)

// Repository provides PostgreSQL backed persistence for bench data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const resourceColumns = `id, name, skill, employee_id, account_id, status, created_at, updated_at`

// ListResources returns every bench resource, newest first.
func (r *Repository) ListResources(ctx context.Context) ([]Resource, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+resourceColumns+` FROM bench_resources ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Resource, error) {
		return scanResource(row)
	})
}

// GetResource fetches one resource.
func (r *Repository) GetResource(ctx context.Context, id string) (Resource, error) {
	res, err := scanResource(r.pool.QueryRow(ctx, `SELECT `+resourceColumns+` FROM bench_resources WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Resource{}, shared.ErrNotFound
	}
	return res, err
}

// SaveResource inserts or updates a resource.
func (r *Repository) SaveResource(ctx context.Context, res Resource) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO bench_resources (`+resourceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, skill = EXCLUDED.skill,
			employee_id = EXCLUDED.employee_id, account_id = EXCLUDED.account_id,
			status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		res.ID, res.Name, res.Skill, res.EmployeeID, optionalText(res.AccountID), string(res.Status),
		timestamptz(res.CreatedAt), timestamptz(res.UpdatedAt))
	return err
}

// DeleteResource removes a resource and its hotlist entries.
func (r *Repository) DeleteResource(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM hotlist_resources WHERE resource_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM bench_resources WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

const hotlistColumns = `h.id, h.name, h.created_by, h.account_id, h.created_at, h.updated_at,
	COALESCE(ARRAY(SELECT hr.resource_id FROM hotlist_resources hr WHERE hr.hotlist_id = h.id ORDER BY hr.position), '{}')`

// ListHotlists returns every hotlist, newest first.
func (r *Repository) ListHotlists(ctx context.Context) ([]Hotlist, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+hotlistColumns+` FROM hotlists h ORDER BY h.created_at DESC, h.id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Hotlist, error) {
		return scanHotlist(row)
	})
}

// GetHotlist fetches one hotlist.
func (r *Repository) GetHotlist(ctx context.Context, id string) (Hotlist, error) {
	h, err := scanHotlist(r.pool.QueryRow(ctx, `SELECT `+hotlistColumns+` FROM hotlists h WHERE h.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Hotlist{}, shared.ErrNotFound
	}
	return h, err
}

// SaveHotlist inserts or updates a hotlist with its ordered entries.
func (r *Repository) SaveHotlist(ctx context.Context, h Hotlist) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO hotlists (id, name, created_by, account_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, account_id = EXCLUDED.account_id,
				updated_at = EXCLUDED.updated_at`,
			h.ID, h.Name, h.CreatedBy, optionalText(h.AccountID), timestamptz(h.CreatedAt), timestamptz(h.UpdatedAt)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM hotlist_resources WHERE hotlist_id = $1`, h.ID); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, resourceID := range h.ResourceIDs {
			batch.Queue(`INSERT INTO hotlist_resources (hotlist_id, resource_id, position) VALUES ($1, $2, $3)`, h.ID, resourceID, i)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// DeleteHotlist removes a hotlist.
func (r *Repository) DeleteHotlist(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM hotlists WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanResource(row pgx.Row) (Resource, error) {
	var (
		res       Resource
		account   pgtype.Text
		status    string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&res.ID, &res.Name, &res.Skill, &res.EmployeeID, &account, &status, &createdAt, &updatedAt); err != nil {
		return Resource{}, err
	}
	res.AccountID = account.String
	res.Status = Status(status)
	res.CreatedAt = createdAt.Time
	res.UpdatedAt = updatedAt.Time
	return res, nil
}

func scanHotlist(row pgx.Row) (Hotlist, error) {
	var (
		h         Hotlist
		account   pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&h.ID, &h.Name, &h.CreatedBy, &account, &createdAt, &updatedAt, &h.ResourceIDs); err != nil {
		return Hotlist{}, err
	}
	h.AccountID = account.String
	h.CreatedAt = createdAt.Time
	h.UpdatedAt = updatedAt.Time
	return h, nil
}

func optionalText(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t.UTC(), Valid: !t.IsZero()}
}
