package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

// Repository defines user data access
type Repository interface {
	Create(ctx context.Context, q sqlx.ExtContext, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, q sqlx.ExtContext, email string) (*User, error)
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

const userColumns = `id, email, name, phone, password_hash, is_active, created_at, updated_at`

func (r *repository) Create(ctx context.Context, q sqlx.ExtContext, u *User) error {
	err := sqlx.GetContext(ctx, r.conn(q), u, `
		INSERT INTO users (email, name, phone, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		u.Email, u.Name, u.Phone, u.PasswordHash, u.IsActive,
	)
	if err != nil {
		return apperr.Persistence("create user", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get user", err)
	}
	return &u, nil
}

func (r *repository) GetByEmail(ctx context.Context, q sqlx.ExtContext, email string) (*User, error) {
	var u User
	err := sqlx.GetContext(ctx, r.conn(q), &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get user by email", err)
	}
	return &u, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
