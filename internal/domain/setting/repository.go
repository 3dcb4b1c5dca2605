package setting

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

type Repository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	List(ctx context.Context) ([]Setting, error)
	Upsert(ctx context.Context, key, value string) (*Setting, error)
	SoftDelete(ctx context.Context, key string) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, key string) (*Setting, error) {
	var s Setting
	err := r.db.GetContext(ctx, &s, `SELECT key, value, deleted, updated_at FROM settings WHERE key = $1 AND NOT deleted`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get setting", err)
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context) ([]Setting, error) {
	var out []Setting
	err := r.db.SelectContext(ctx, &out, `SELECT key, value, deleted, updated_at FROM settings WHERE NOT deleted ORDER BY key`)
	if err != nil {
		return nil, apperr.Persistence("list settings", err)
	}
	return out, nil
}

func (r *repository) Upsert(ctx context.Context, key, value string) (*Setting, error) {
	var s Setting
	err := r.db.GetContext(ctx, &s, `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, deleted = FALSE, updated_at = now()
		RETURNING key, value, deleted, updated_at
	`, key, value)
	if err != nil {
		return nil, apperr.Persistence("upsert setting", err)
	}
	return &s, nil
}

func (r *repository) SoftDelete(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE settings SET deleted = TRUE, updated_at = now() WHERE key = $1 AND NOT deleted`, key)
	if err != nil {
		return false, apperr.Persistence("delete setting", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
