package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/domain/redemption"
	"github.com/goldsave/goldsave-api/internal/domain/setting"
	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	"github.com/goldsave/goldsave-api/internal/pkg/dates"
	"github.com/goldsave/goldsave-api/internal/pkg/logger"
)

type AccrualEnrollments interface {
	ListActiveWithPoints(ctx context.Context) ([]uuid.UUID, error)
	GetForUpdate(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*enrollment.Enrollment, error)
	Accrue(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, points int64, grams decimal.Decimal) error
}

// PendingRedemptions reports points that undecided BONUS requests still claim.
type PendingRedemptions interface {
	PendingBonus(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID) (redemption.Reserved, error)
}

type LedgerPoster interface {
	Post(ctx context.Context, q sqlx.ExtContext, in ledger.TransactionInput) (*ledger.Transaction, error)
}

type AccrualSettings interface {
	Decimal(ctx context.Context, key string) (decimal.Decimal, error)
	IntOrDefault(ctx context.Context, key string, def int64) (int64, error)
}

// AccrualDay is the day of month accrual runs: the day after the redemption
// window, or the 1st when that would not exist in every month.
func AccrualDay(windowDay int64) int {
	day := int(windowDay) + 1
	if day > 28 || day < 1 {
		return 1
	}
	return day
}

// AccrualJob converts each ACTIVE enrollment's unredeemed points into gold.
// Points claimed by PENDING bonus requests, fee included, stay available so
// those requests can still be approved. Every enrollment is converted in its
// own transaction.
type AccrualJob struct {
	tx          database.Transactor
	enrollments AccrualEnrollments
	pending     PendingRedemptions
	ledger      LedgerPoster
	settings    AccrualSettings
	concurrency int
	loc         *time.Location
	now         func() time.Time
	onlyWhenDue bool
}

func NewAccrualJob(tx database.Transactor, enrollments AccrualEnrollments, pending PendingRedemptions, ledger LedgerPoster, settings AccrualSettings, concurrency int, loc *time.Location) *AccrualJob {
	if concurrency < 1 {
		concurrency = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AccrualJob{
		tx:          tx,
		enrollments: enrollments,
		pending:     pending,
		ledger:      ledger,
		settings:    settings,
		concurrency: concurrency,
		loc:         loc,
		now:         time.Now,
	}
}

// WhenDue returns a copy that only converts on AccrualDay. The scheduler fires
// it daily so a changed redemption window applies from the next day. Manual
// runs skip the check.
func (j *AccrualJob) WhenDue() *AccrualJob {
	c := *j
	c.onlyWhenDue = true
	return &c
}

func (j *AccrualJob) Name() string { return NameAccrual }

func (j *AccrualJob) Run(ctx context.Context) (*Report, error) {
	report := newReport(j.Name())
	l := logger.FromContext(ctx)

	if j.onlyWhenDue && !IsManual(ctx) {
		window, err := j.settings.IntOrDefault(ctx, setting.KeyRedemptionWindow, setting.DefaultRedemptionWindow)
		if err != nil {
			return report, err
		}
		if today := dates.On(j.now(), j.loc); today.Day() != AccrualDay(window) {
			report.Note = "not due today"
			return report, nil
		}
	}

	rate, err := j.settings.Decimal(ctx, setting.KeyPointsToGoldGrams)
	if err != nil {
		return report, err
	}
	if !rate.IsPositive() {
		return report, apperr.Configuration(setting.KeyPointsToGoldGrams)
	}

	// fee is only needed to size reservations; approval enforces its presence
	fee, err := j.settings.IntOrDefault(ctx, setting.KeyConvenienceFee, 0)
	if err != nil {
		return report, err
	}

	ids, err := j.enrollments.ListActiveWithPoints(ctx)
	if err != nil {
		return report, err
	}

	var g errgroup.Group
	g.SetLimit(j.concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			points, grams, err := j.convert(ctx, id, rate, fee)
			switch {
			case err != nil:
				report.fail(id, err)
				l.Error().Err(err).Str("enrollment_id", id.String()).Msg("Accrual failed")
			case points == 0:
				report.skip()
			default:
				report.succeed(func(r *Report) {
					r.PointsConverted += points
					r.GramsAccrued = r.GramsAccrued.Add(grams)
				})
			}
			return nil
		})
	}
	g.Wait()
	return report, nil
}

func (j *AccrualJob) convert(ctx context.Context, id uuid.UUID, rate decimal.Decimal, fee int64) (int64, decimal.Decimal, error) {
	var (
		points int64
		grams  decimal.Decimal
	)
	err := j.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		e, err := j.enrollments.GetForUpdate(ctx, q, id)
		if err != nil {
			return err
		}
		if e == nil || e.Status != enrollment.StatusActive || e.AvailablePoints <= 0 {
			return nil
		}

		reserved, err := j.pending.PendingBonus(ctx, q, id)
		if err != nil {
			return err
		}
		points = e.AvailablePoints - reserved.With(fee)
		if points <= 0 {
			points = 0
			return nil
		}
		grams = decimal.NewFromInt(points).Mul(rate)
		if _, err := j.ledger.Post(ctx, q, ledger.TransactionInput{
			EnrollmentID: id,
			Type:         ledger.TypeAccrual,
			Points:       -points,
			GoldGrams:    grams,
			Description:  "Monthly conversion of unredeemed points to gold",
		}); err != nil {
			return err
		}
		return j.enrollments.Accrue(ctx, q, id, points, grams)
	})
	if err != nil {
		return 0, decimal.Zero, err
	}
	return points, grams, nil
}
