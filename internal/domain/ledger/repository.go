package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

const queryTimeout = 10 * time.Second

type Repository interface {
	Insert(ctx context.Context, q sqlx.ExtContext, in TransactionInput) (*Transaction, error)
	SoftDeletePointsByPrice(ctx context.Context, q sqlx.ExtContext, priceID uuid.UUID) ([]Reversal, error)
	SoftDeleteByRedemption(ctx context.Context, q sqlx.ExtContext, requestID uuid.UUID) (int64, error)
	SumPoints(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID) (int64, error)
	ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID, limit, offset int) ([]Transaction, int, error)
	ListAllByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]ExportRow, error)
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

const txColumns = `id, enrollment_id, type, amount, gold_grams, points, price_ref_id, redemption_request_id, description, deleted, created_at`

func (r *repository) Insert(ctx context.Context, q sqlx.ExtContext, in TransactionInput) (*Transaction, error) {
	var t Transaction
	err := sqlx.GetContext(ctx, r.conn(q), &t, `
		INSERT INTO transactions (enrollment_id, type, amount, gold_grams, points, price_ref_id, redemption_request_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+txColumns,
		in.EnrollmentID, string(in.Type), in.Amount, in.GoldGrams, in.Points, in.PriceRefID, in.RedemptionRequestID, in.Description,
	)
	if err != nil {
		return nil, apperr.Persistence("insert transaction", err)
	}
	return &t, nil
}

func (r *repository) SoftDeletePointsByPrice(ctx context.Context, q sqlx.ExtContext, priceID uuid.UUID) ([]Reversal, error) {
	var out []Reversal
	err := sqlx.SelectContext(ctx, r.conn(q), &out, `
		UPDATE transactions SET deleted = TRUE
		WHERE price_ref_id = $1 AND type = 'points' AND NOT deleted
		RETURNING enrollment_id, points
	`, priceID)
	if err != nil {
		return nil, apperr.Persistence("reverse price bonus", err)
	}
	return out, nil
}

func (r *repository) SoftDeleteByRedemption(ctx context.Context, q sqlx.ExtContext, requestID uuid.UUID) (int64, error) {
	res, err := r.conn(q).ExecContext(ctx, `
		UPDATE transactions SET deleted = TRUE
		WHERE redemption_request_id = $1 AND NOT deleted
	`, requestID)
	if err != nil {
		return 0, apperr.Persistence("delete redemption transactions", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *repository) SumPoints(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID) (int64, error) {
	var sum int64
	err := sqlx.GetContext(ctx, r.conn(q), &sum, `
		SELECT COALESCE(SUM(points), 0) FROM transactions
		WHERE enrollment_id = $1 AND NOT deleted
	`, enrollmentID)
	if err != nil {
		return 0, apperr.Persistence("sum points", err)
	}
	return sum, nil
}

func (r *repository) ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID, limit, offset int) ([]Transaction, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM transactions WHERE enrollment_id = $1 AND NOT deleted`, enrollmentID); err != nil {
		return nil, 0, apperr.Persistence("count transactions", err)
	}

	var out []Transaction
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+txColumns+` FROM transactions
		WHERE enrollment_id = $1 AND NOT deleted
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, enrollmentID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list transactions", err)
	}
	return out, total, nil
}

func (r *repository) ListAllByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var out []Transaction
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+txColumns+` FROM transactions
		WHERE enrollment_id = $1 AND NOT deleted
		ORDER BY created_at
	`, enrollmentID)
	if err != nil {
		return nil, apperr.Persistence("list transactions", err)
	}
	return out, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]ExportRow, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var out []ExportRow
	err := r.db.SelectContext(ctx, &out, `
		SELECT t.id, t.enrollment_id, t.type, t.amount, t.gold_grams, t.points, t.price_ref_id,
		       t.redemption_request_id, t.description, t.deleted, t.created_at, s.name AS scheme_name
		FROM transactions t
		JOIN enrollments e ON e.id = t.enrollment_id
		JOIN schemes s ON s.id = e.scheme_id
		WHERE e.user_id = $1 AND NOT t.deleted
		ORDER BY s.name, e.start_date, t.created_at
	`, userID)
	if err != nil {
		return nil, apperr.Persistence("list user transactions", err)
	}
	return out, nil
}
