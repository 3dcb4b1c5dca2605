package admin

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

type Repository interface {
	Create(ctx context.Context, a *AdminUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*AdminUser, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const adminColumns = `id, email, name, password_hash, is_active, created_at, updated_at`

func (r *repository) Create(ctx context.Context, a *AdminUser) error {
	err := r.db.GetContext(ctx, a, `
		INSERT INTO admin_users (email, name, password_hash, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+adminColumns,
		a.Email, a.Name, a.PasswordHash, a.IsActive,
	)
	return apperr.Persistence("create admin", err)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*AdminUser, error) {
	var a AdminUser
	err := r.db.GetContext(ctx, &a, `SELECT `+adminColumns+` FROM admin_users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get admin", err)
	}
	return &a, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*AdminUser, error) {
	var a AdminUser
	err := r.db.GetContext(ctx, &a, `SELECT `+adminColumns+` FROM admin_users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get admin by email", err)
	}
	return &a, nil
}
