package redemption

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
	Create(ctx context.Context, q sqlx.ExtContext, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	GetForUpdate(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*Request, error)
	HasPending(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID, t Type) (bool, error)
	HasAny(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID, t Type) (bool, error)
	PendingBonus(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID) (Reserved, error)
	Decide(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status Status, adminID uuid.UUID, remarks string, at time.Time) error
	ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]Request, error)
	List(ctx context.Context, status Status, t Type, limit, offset int) ([]Request, int, error)
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

const columns = `id, enrollment_id, type, points, status, approved_by, approved_at, remarks, deleted, created_at, updated_at`

func (r *repository) Create(ctx context.Context, q sqlx.ExtContext, req *Request) error {
	err := sqlx.GetContext(ctx, r.conn(q), req, `
		INSERT INTO redemption_requests (enrollment_id, type, points, status, remarks)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+columns,
		req.EnrollmentID, string(req.Type), req.Points, string(StatusPending), req.Remarks,
	)
	if err != nil {
		return apperr.Persistence("create redemption request", err)
	}
	return nil
}

func (r *repository) get(ctx context.Context, q sqlx.ExtContext, query string, id uuid.UUID) (*Request, error) {
	var req Request
	err := sqlx.GetContext(ctx, r.conn(q), &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get redemption request", err)
	}
	return &req, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return r.get(ctx, nil, `SELECT `+columns+` FROM redemption_requests WHERE id = $1 AND NOT deleted`, id)
}

func (r *repository) GetForUpdate(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*Request, error) {
	return r.get(ctx, q, `SELECT `+columns+` FROM redemption_requests WHERE id = $1 AND NOT deleted FOR UPDATE`, id)
}

func (r *repository) HasPending(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID, t Type) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.conn(q), &exists, `
		SELECT EXISTS (
			SELECT 1 FROM redemption_requests
			WHERE enrollment_id = $1 AND type = $2 AND status = 'PENDING' AND NOT deleted
		)
	`, enrollmentID, string(t))
	if err != nil {
		return false, apperr.Persistence("check pending redemption", err)
	}
	return exists, nil
}

func (r *repository) HasAny(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID, t Type) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.conn(q), &exists, `
		SELECT EXISTS (
			SELECT 1 FROM redemption_requests
			WHERE enrollment_id = $1 AND type = $2 AND NOT deleted
		)
	`, enrollmentID, string(t))
	if err != nil {
		return false, apperr.Persistence("check redemption", err)
	}
	return exists, nil
}

// PendingBonus totals the undecided BONUS requests of an enrollment.
func (r *repository) PendingBonus(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID) (Reserved, error) {
	var res Reserved
	err := sqlx.GetContext(ctx, r.conn(q), &res, `
		SELECT COUNT(*) AS requests, COALESCE(SUM(points), 0) AS points
		FROM redemption_requests
		WHERE enrollment_id = $1 AND type = 'BONUS' AND status = 'PENDING' AND NOT deleted
	`, enrollmentID)
	if err != nil {
		return Reserved{}, apperr.Persistence("sum pending redemptions", err)
	}
	return res, nil
}

func (r *repository) Decide(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status Status, adminID uuid.UUID, remarks string, at time.Time) error {
	_, err := r.conn(q).ExecContext(ctx, `
		UPDATE redemption_requests
		SET status = $2, approved_by = $3, approved_at = $4, remarks = $5, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`, id, string(status), adminID, at, remarks)
	if err != nil {
		return apperr.Persistence("decide redemption request", err)
	}
	return nil
}

func (r *repository) ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]Request, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var out []Request
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+columns+` FROM redemption_requests
		WHERE enrollment_id = $1 AND NOT deleted
		ORDER BY created_at DESC
	`, enrollmentID)
	if err != nil {
		return nil, apperr.Persistence("list redemption requests", err)
	}
	return out, nil
}

func (r *repository) List(ctx context.Context, status Status, t Type, limit, offset int) ([]Request, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const where = ` WHERE NOT deleted AND ($1 = '' OR status = $1) AND ($2 = '' OR type = $2)`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM redemption_requests`+where, string(status), string(t)); err != nil {
		return nil, 0, apperr.Persistence("count redemption requests", err)
	}

	var out []Request
	err := r.db.SelectContext(ctx, &out, `SELECT `+columns+` FROM redemption_requests`+where+`
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, string(status), string(t), limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list redemption requests", err)
	}
	return out, total, nil
}
