package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/redemption"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	"github.com/goldsave/goldsave-api/internal/pkg/dates"
	"github.com/goldsave/goldsave-api/internal/pkg/logger"
)

type MaturedLister interface {
	ListMatured(ctx context.Context, q sqlx.ExtContext, today time.Time) ([]enrollment.Detail, error)
}

type MaturityRequests interface {
	HasAny(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID, t redemption.Type) (bool, error)
	Create(ctx context.Context, q sqlx.ExtContext, req *redemption.Request) error
}

type MaturityNotifier interface {
	SendMaturityReady(to, name, schemeName, totalGold string)
}

// MaturityJob opens a PENDING MATURITY request for every ACTIVE enrollment
// whose end date has passed. The batch shares one transaction; each item runs
// under a savepoint so a failing enrollment is rolled back alone.
type MaturityJob struct {
	tx          database.Transactor
	enrollments MaturedLister
	requests    MaturityRequests
	notifier    MaturityNotifier
	loc         *time.Location
	now         func() time.Time
}

func NewMaturityJob(tx database.Transactor, enrollments MaturedLister, requests MaturityRequests, notifier MaturityNotifier, loc *time.Location) *MaturityJob {
	if loc == nil {
		loc = time.UTC
	}
	return &MaturityJob{tx: tx, enrollments: enrollments, requests: requests, notifier: notifier, loc: loc, now: time.Now}
}

func (j *MaturityJob) Name() string { return NameMaturity }

func (j *MaturityJob) Run(ctx context.Context) (*Report, error) {
	report := newReport(j.Name())
	l := logger.FromContext(ctx)
	today := dates.On(j.now(), j.loc)

	var created []enrollment.Detail
	err := j.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		matured, err := j.enrollments.ListMatured(ctx, q, today)
		if err != nil {
			return err
		}

		for i := range matured {
			e := matured[i]
			skipped := false
			err := database.Savepoint(ctx, q, "maturity_item", func() error {
				exists, err := j.requests.HasAny(ctx, q, e.ID, redemption.TypeMaturity)
				if err != nil {
					return err
				}
				if exists {
					skipped = true
					return nil
				}
				return j.requests.Create(ctx, q, &redemption.Request{
					EnrollmentID: e.ID,
					Type:         redemption.TypeMaturity,
					Remarks:      maturityRemark(&e),
				})
			})
			switch {
			case err != nil:
				report.fail(e.ID, err)
				l.Error().Err(err).Str("enrollment_id", e.ID.String()).Msg("Maturity request failed")
			case skipped:
				report.skip()
			default:
				report.succeed(nil)
				created = append(created, e)
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	if j.notifier != nil {
		for i := range created {
			e := &created[i]
			j.notifier.SendMaturityReady(e.UserEmail, e.UserName, e.SchemeName, e.TotalGold().String())
		}
	}
	return report, nil
}

func maturityRemark(e *enrollment.Detail) string {
	return fmt.Sprintf("Scheme %s matured on %s. Total gold due: %s g (scheme %s g + accrued %s g)",
		e.SchemeName, dates.Format(e.EndDate), e.TotalGold().String(), e.GoldGrams.String(), e.Accrued().String())
}
