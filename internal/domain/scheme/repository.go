package scheme

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

type Repository interface {
	Create(ctx context.Context, s *Scheme) error
	GetByID(ctx context.Context, id uuid.UUID) (*Scheme, error)
	List(ctx context.Context) ([]Scheme, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Scheme) error {
	err := r.db.GetContext(ctx, s, `
		INSERT INTO schemes (name, duration_months, gold_grams)
		VALUES ($1, $2, $3)
		RETURNING id, name, duration_months, gold_grams, created_at
	`, s.Name, s.DurationMonths, s.GoldGrams)
	return apperr.Persistence("create scheme", err)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Scheme, error) {
	var s Scheme
	err := r.db.GetContext(ctx, &s, `SELECT id, name, duration_months, gold_grams, created_at FROM schemes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get scheme", err)
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context) ([]Scheme, error) {
	var out []Scheme
	if err := r.db.SelectContext(ctx, &out, `SELECT id, name, duration_months, gold_grams, created_at FROM schemes ORDER BY name`); err != nil {
		return nil, apperr.Persistence("list schemes", err)
	}
	return out, nil
}
