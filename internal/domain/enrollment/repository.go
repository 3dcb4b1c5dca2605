package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

const queryTimeout = 10 * time.Second

// Repository methods taking q run on the caller's transaction, or on the pool when q is nil.
type Repository interface {
	Create(ctx context.Context, q sqlx.ExtContext, e *Enrollment) error
	GetByID(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*Enrollment, error)
	GetForUpdate(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*Enrollment, error)
	GetDetail(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*Detail, error)
	ExistsActive(ctx context.Context, q sqlx.ExtContext, userID, schemeID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Detail, error)
	List(ctx context.Context, status Status, limit, offset int) ([]Detail, int, error)
	ListActiveWithGrams(ctx context.Context, q sqlx.ExtContext) ([]Detail, error)
	ListMatured(ctx context.Context, q sqlx.ExtContext, today time.Time) ([]Detail, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	ListActiveWithPoints(ctx context.Context) ([]uuid.UUID, error)
	AdjustPoints(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, delta int64) error
	DeductAvailable(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, points int64) (bool, error)
	SetAvailable(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, points int64) error
	SetStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status Status) error
	Accrue(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, points int64, grams decimal.Decimal) error
	MarkCertificate(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, key string) error
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

const columns = `id, user_id, scheme_id, start_date, end_date, total_points, available_points, status,
	accrued_gold, certificate_delivered, certificate_key, created_at, updated_at`

const detailSelect = `
	SELECT e.id, e.user_id, e.scheme_id, e.start_date, e.end_date, e.total_points, e.available_points,
	       e.status, e.accrued_gold, e.certificate_delivered, e.certificate_key, e.created_at, e.updated_at,
	       s.name AS scheme_name, s.duration_months, s.gold_grams,
	       u.email AS user_email, u.name AS user_name
	FROM enrollments e
	JOIN schemes s ON s.id = e.scheme_id
	JOIN users u ON u.id = e.user_id`

func (r *repository) Create(ctx context.Context, q sqlx.ExtContext, e *Enrollment) error {
	err := sqlx.GetContext(ctx, r.conn(q), e, `
		INSERT INTO enrollments (user_id, scheme_id, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+columns,
		e.UserID, e.SchemeID, e.StartDate, e.EndDate, string(StatusActive),
	)
	if err != nil {
		return apperr.Persistence("create enrollment", err)
	}
	return nil
}

func (r *repository) get(ctx context.Context, q sqlx.ExtContext, query string, id uuid.UUID) (*Enrollment, error) {
	var e Enrollment
	err := sqlx.GetContext(ctx, r.conn(q), &e, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get enrollment", err)
	}
	return &e, nil
}

func (r *repository) GetByID(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*Enrollment, error) {
	return r.get(ctx, q, `SELECT `+columns+` FROM enrollments WHERE id = $1`, id)
}

func (r *repository) GetForUpdate(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*Enrollment, error) {
	return r.get(ctx, q, `SELECT `+columns+` FROM enrollments WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) GetDetail(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*Detail, error) {
	var d Detail
	err := sqlx.GetContext(ctx, r.conn(q), &d, detailSelect+` WHERE e.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get enrollment detail", err)
	}
	return &d, nil
}

func (r *repository) ExistsActive(ctx context.Context, q sqlx.ExtContext, userID, schemeID uuid.UUID) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.conn(q), &exists, `
		SELECT EXISTS (
			SELECT 1 FROM enrollments WHERE user_id = $1 AND scheme_id = $2 AND status = 'ACTIVE'
		)
	`, userID, schemeID)
	if err != nil {
		return false, apperr.Persistence("check active enrollment", err)
	}
	return exists, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Detail, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var out []Detail
	if err := r.db.SelectContext(ctx, &out, detailSelect+` WHERE e.user_id = $1 ORDER BY e.start_date DESC`, userID); err != nil {
		return nil, apperr.Persistence("list user enrollments", err)
	}
	return out, nil
}

func (r *repository) List(ctx context.Context, status Status, limit, offset int) ([]Detail, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM enrollments WHERE ($1 = '' OR status = $1)`, string(status)); err != nil {
		return nil, 0, apperr.Persistence("count enrollments", err)
	}

	var out []Detail
	err := r.db.SelectContext(ctx, &out, detailSelect+`
		WHERE ($1 = '' OR e.status = $1)
		ORDER BY e.created_at DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list enrollments", err)
	}
	return out, total, nil
}

func (r *repository) ListActiveWithGrams(ctx context.Context, q sqlx.ExtContext) ([]Detail, error) {
	var out []Detail
	if err := sqlx.SelectContext(ctx, r.conn(q), &out, detailSelect+` WHERE e.status = 'ACTIVE' ORDER BY e.id`); err != nil {
		return nil, apperr.Persistence("list active enrollments", err)
	}
	return out, nil
}

func (r *repository) ListMatured(ctx context.Context, q sqlx.ExtContext, today time.Time) ([]Detail, error) {
	var out []Detail
	err := sqlx.SelectContext(ctx, r.conn(q), &out, detailSelect+`
		WHERE e.status = 'ACTIVE' AND e.end_date <= $1
		ORDER BY e.end_date, e.id
	`, today)
	if err != nil {
		return nil, apperr.Persistence("list matured enrollments", err)
	}
	return out, nil
}

func (r *repository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM enrollments WHERE status = 'ACTIVE' ORDER BY id`); err != nil {
		return nil, apperr.Persistence("list active enrollment ids", err)
	}
	return ids, nil
}

func (r *repository) ListActiveWithPoints(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM enrollments WHERE status = 'ACTIVE' AND available_points > 0 ORDER BY id`)
	if err != nil {
		return nil, apperr.Persistence("list enrollments with points", err)
	}
	return ids, nil
}

// AdjustPoints moves both balances by delta, never below zero.
func (r *repository) AdjustPoints(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, delta int64) error {
	_, err := r.conn(q).ExecContext(ctx, `
		UPDATE enrollments
		SET available_points = GREATEST(available_points + $2, 0),
		    total_points = GREATEST(total_points + $2, 0),
		    updated_at = now()
		WHERE id = $1
	`, id, delta)
	if err != nil {
		return apperr.Persistence("adjust points", err)
	}
	return nil
}

// DeductAvailable reports false when the balance cannot cover points.
func (r *repository) DeductAvailable(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, points int64) (bool, error) {
	res, err := r.conn(q).ExecContext(ctx, `
		UPDATE enrollments
		SET available_points = available_points - $2, updated_at = now()
		WHERE id = $1 AND available_points >= $2
	`, id, points)
	if err != nil {
		return false, apperr.Persistence("deduct points", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Persistence("deduct points", err)
	}
	return n == 1, nil
}

func (r *repository) SetAvailable(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, points int64) error {
	_, err := r.conn(q).ExecContext(ctx, `
		UPDATE enrollments SET available_points = $2, updated_at = now() WHERE id = $1
	`, id, points)
	if err != nil {
		return apperr.Persistence("set available points", err)
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status Status) error {
	_, err := r.conn(q).ExecContext(ctx, `
		UPDATE enrollments SET status = $2, updated_at = now() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return apperr.Persistence("set enrollment status", err)
	}
	return nil
}

// Accrue adds grams to accrued_gold and takes the converted points off the
// available balance.
func (r *repository) Accrue(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, points int64, grams decimal.Decimal) error {
	_, err := r.conn(q).ExecContext(ctx, `
		UPDATE enrollments
		SET accrued_gold = COALESCE(accrued_gold, 0) + $3,
		    available_points = GREATEST(available_points - $2, 0),
		    updated_at = now()
		WHERE id = $1
	`, id, points, grams)
	if err != nil {
		return apperr.Persistence("accrue gold", err)
	}
	return nil
}

func (r *repository) MarkCertificate(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, key string) error {
	_, err := r.conn(q).ExecContext(ctx, `
		UPDATE enrollments
		SET certificate_delivered = TRUE, certificate_key = $2, updated_at = now()
		WHERE id = $1
	`, id, key)
	if err != nil {
		return apperr.Persistence("mark certificate", err)
	}
	return nil
}
