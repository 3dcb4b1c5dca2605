package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	"github.com/goldsave/goldsave-api/internal/pkg/logger"
)

type RecalcEnrollments interface {
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	GetForUpdate(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*enrollment.Enrollment, error)
	SetAvailable(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, points int64) error
}

type PointsSummer interface {
	SumPoints(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID) (int64, error)
}

// RecalculateJob rebuilds available_points from the ledger. total_points is
// never touched.
type RecalculateJob struct {
	tx          database.Transactor
	enrollments RecalcEnrollments
	ledger      PointsSummer
	concurrency int
}

func NewRecalculateJob(tx database.Transactor, enrollments RecalcEnrollments, ledger PointsSummer, concurrency int) *RecalculateJob {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RecalculateJob{tx: tx, enrollments: enrollments, ledger: ledger, concurrency: concurrency}
}

func (j *RecalculateJob) Name() string { return NameRecalculatePoints }

func (j *RecalculateJob) Run(ctx context.Context) (*Report, error) {
	report := newReport(j.Name())
	l := logger.FromContext(ctx)

	ids, err := j.enrollments.ListActiveIDs(ctx)
	if err != nil {
		return report, err
	}

	var g errgroup.Group
	g.SetLimit(j.concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			changed, err := j.reconcile(ctx, id)
			if err != nil {
				report.fail(id, err)
				l.Error().Err(err).Str("enrollment_id", id.String()).Msg("Points recalculation failed")
				return nil
			}
			report.succeed(func(r *Report) {
				if changed {
					r.Adjusted++
				}
			})
			return nil
		})
	}
	g.Wait()
	return report, nil
}

func (j *RecalculateJob) reconcile(ctx context.Context, id uuid.UUID) (bool, error) {
	changed := false
	err := j.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		e, err := j.enrollments.GetForUpdate(ctx, q, id)
		if err != nil || e == nil {
			return err
		}
		sum, err := j.ledger.SumPoints(ctx, q, id)
		if err != nil {
			return err
		}
		if sum < 0 {
			logger.FromContext(ctx).Warn().
				Str("enrollment_id", id.String()).
				Int64("ledger_sum", sum).
				Msg("Ledger points sum is negative, clamping balance to zero")
			sum = 0
		}
		if sum == e.AvailablePoints {
			return nil
		}
		changed = true
		return j.enrollments.SetAvailable(ctx, q, id, sum)
	})
	return changed, err
}
