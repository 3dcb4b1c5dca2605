package goldprice

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

const queryTimeout = 10 * time.Second

type Repository interface {
	FindActiveForUpdate(ctx context.Context, q sqlx.ExtContext, date time.Time) (*GoldPrice, error)
	MarkDeleted(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error
	Insert(ctx context.Context, q sqlx.ExtContext, p *GoldPrice) error
	GetByDate(ctx context.Context, q sqlx.ExtContext, date time.Time) (*GoldPrice, error)
	Latest(ctx context.Context) (*GoldPrice, error)
	List(ctx context.Context, from, to time.Time) ([]GoldPrice, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) conn(q sqlx.ExtContext) sqlx.ExtContext {
	if q != nil {
		return q
	}
	return r.db
}

const columns = `id, price_date, price_per_gram, interpolated, deleted, created_at`

func (r *repository) one(ctx context.Context, q sqlx.ExtContext, op, query string, args ...interface{}) (*GoldPrice, error) {
	var p GoldPrice
	err := sqlx.GetContext(ctx, r.conn(q), &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return &p, nil
}

func (r *repository) FindActiveForUpdate(ctx context.Context, q sqlx.ExtContext, date time.Time) (*GoldPrice, error) {
	return r.one(ctx, q, "lock gold price",
		`SELECT `+columns+` FROM gold_prices WHERE price_date = $1 AND NOT deleted FOR UPDATE`, date)
}

func (r *repository) MarkDeleted(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error {
	if _, err := r.conn(q).ExecContext(ctx, `UPDATE gold_prices SET deleted = TRUE WHERE id = $1`, id); err != nil {
		return apperr.Persistence("delete gold price", err)
	}
	return nil
}

func (r *repository) Insert(ctx context.Context, q sqlx.ExtContext, p *GoldPrice) error {
	err := sqlx.GetContext(ctx, r.conn(q), p, `
		INSERT INTO gold_prices (price_date, price_per_gram, interpolated)
		VALUES ($1, $2, $3)
		RETURNING `+columns,
		p.PriceDate, p.PricePerGram, p.Interpolated,
	)
	if err != nil {
		return apperr.Persistence("insert gold price", err)
	}
	return nil
}

func (r *repository) GetByDate(ctx context.Context, q sqlx.ExtContext, date time.Time) (*GoldPrice, error) {
	return r.one(ctx, q, "get gold price",
		`SELECT `+columns+` FROM gold_prices WHERE price_date = $1 AND NOT deleted`, date)
}

func (r *repository) Latest(ctx context.Context) (*GoldPrice, error) {
	return r.one(ctx, nil, "latest gold price",
		`SELECT `+columns+` FROM gold_prices WHERE NOT deleted ORDER BY price_date DESC LIMIT 1`)
}

func (r *repository) List(ctx context.Context, from, to time.Time) ([]GoldPrice, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var out []GoldPrice
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+columns+` FROM gold_prices
		WHERE price_date BETWEEN $1 AND $2 AND NOT deleted
		ORDER BY price_date
	`, from, to)
	if err != nil {
		return nil, apperr.Persistence("list gold prices", err)
	}
	return out, nil
}
