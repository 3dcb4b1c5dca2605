package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/domain/redemption"
	"github.com/goldsave/goldsave-api/internal/domain/setting"
	"github.com/goldsave/goldsave-api/internal/testutil/memstore"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.Add(10 * time.Hour)
}

func seed(store *memstore.Store, start string, grams string) enrollment.Enrollment {
	u := store.AddUser(uuid.NewString()+"@example.com", "Member")
	sc := store.AddScheme("Gold "+grams, 11, decimal.RequireFromString(grams))
	return store.AddEnrollment(u.ID, sc, at(start))
}

func TestMaturityJobIsIdempotent(t *testing.T) {
	store := memstore.New()
	mailer := &memstore.Mailer{}
	matured := seed(store, "2025-03-01", "10")
	running := seed(store, "2025-12-01", "5")

	job := NewMaturityJob(store, store.Enrollments(), store.Requests(), mailer, time.UTC)
	job.now = func() time.Time { return at("2026-03-02") }

	report, err := Execute(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, mailer.Count("maturity"))

	report, err = Execute(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, mailer.Count("maturity"), "no second notification")

	requests := store.AllRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, matured.ID, requests[0].EnrollmentID)
	assert.Equal(t, redemption.TypeMaturity, requests[0].Type)
	assert.Equal(t, redemption.StatusPending, requests[0].Status)
	assert.Contains(t, requests[0].Remarks, "10 g")
	assert.Equal(t, enrollment.StatusActive, store.Enrollment(running.ID).Status)
}

func TestMaturityJobIncludesEndDate(t *testing.T) {
	store := memstore.New()
	e := seed(store, "2025-03-01", "10")

	job := NewMaturityJob(store, store.Enrollments(), store.Requests(), nil, time.UTC)
	job.now = func() time.Time { return e.EndDate.Add(time.Hour) }

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
}

func TestRecalculateRepairsDriftAndIsIdempotent(t *testing.T) {
	store := memstore.New()
	drifted := seed(store, "2026-01-01", "10")
	clean := seed(store, "2026-01-01", "10")
	store.Credit(drifted.ID, 500, nil)
	store.Credit(clean.ID, 70, nil)
	store.SetBalance(drifted.ID, 999)

	job := NewRecalculateJob(store, store.Enrollments(), ledger.NewService(store.Ledger()), 4)

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Adjusted)
	assert.Equal(t, int64(500), store.Enrollment(drifted.ID).AvailablePoints)
	assert.Equal(t, int64(70), store.Enrollment(clean.ID).AvailablePoints)

	report, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Adjusted)
	assert.Equal(t, int64(500), store.Enrollment(drifted.ID).AvailablePoints)
}

func TestRecalculateClampsNegativeSum(t *testing.T) {
	store := memstore.New()
	e := seed(store, "2026-01-01", "10")
	store.Credit(e.ID, 50, nil)
	_, err := store.Ledger().Insert(context.Background(), nil, ledger.TransactionInput{
		EnrollmentID: e.ID, Type: ledger.TypeBonusWithdrawal, Points: -80,
		Amount: decimal.Zero, GoldGrams: decimal.Zero,
	})
	require.NoError(t, err)

	job := NewRecalculateJob(store, store.Enrollments(), store.Ledger(), 1)
	_, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, store.Enrollment(e.ID).AvailablePoints)
}

func accrualSettings() *memstore.Settings {
	return memstore.NewSettings(map[string]string{
		setting.KeyPointsToGoldGrams: "0.001",
		setting.KeyRedemptionWindow:  "5",
	})
}

func TestAccrualConvertsUnredeemedPoints(t *testing.T) {
	store := memstore.New()
	rich := seed(store, "2026-01-01", "10")
	empty := seed(store, "2026-01-01", "10")
	store.Credit(rich.ID, 250, nil)

	job := NewAccrualJob(store, store.Enrollments(), store.Requests(), ledger.NewService(store.Ledger()), accrualSettings(), 2, time.UTC)
	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, int64(250), report.PointsConverted)
	assert.True(t, report.GramsAccrued.Equal(decimal.RequireFromString("0.25")))

	got := store.Enrollment(rich.ID)
	assert.Zero(t, got.AvailablePoints)
	assert.Equal(t, int64(250), got.TotalPoints, "lifetime earnings are kept")
	assert.True(t, got.Accrued().Equal(decimal.RequireFromString("0.25")))
	untouched := store.Enrollment(empty.ID)
	assert.True(t, untouched.Accrued().IsZero())

	txs := store.Transactions(rich.ID)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.TypeAccrual, txs[1].Type)
	assert.Equal(t, int64(-250), txs[1].Points)

	recalc := NewRecalculateJob(store, store.Enrollments(), store.Ledger(), 1)
	report, err = recalc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Adjusted, "accrual keeps the ledger and the balance in step")
}

func TestAccrualRequiresPositiveRate(t *testing.T) {
	store := memstore.New()
	settings := accrualSettings()
	settings.Set(setting.KeyPointsToGoldGrams, "0")

	job := NewAccrualJob(store, store.Enrollments(), store.Requests(), ledger.NewService(store.Ledger()), settings, 1, time.UTC)
	_, err := job.Run(context.Background())
	require.Error(t, err)

	settings.Delete(setting.KeyPointsToGoldGrams)
	_, err = job.Run(context.Background())
	require.Error(t, err)
}

func TestAccrualWhenDueFollowsWindow(t *testing.T) {
	store := memstore.New()
	e := seed(store, "2026-01-01", "10")
	store.Credit(e.ID, 100, nil)

	job := NewAccrualJob(store, store.Enrollments(), store.Requests(), ledger.NewService(store.Ledger()), accrualSettings(), 1, time.UTC).WhenDue()

	job.now = func() time.Time { return at("2026-03-07") }
	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not due today", report.Note)
	assert.Equal(t, int64(100), store.Enrollment(e.ID).AvailablePoints)

	job.now = func() time.Time { return at("2026-03-06") }
	report, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Zero(t, store.Enrollment(e.ID).AvailablePoints)
}

func TestAccrualManualRunIgnoresDueDay(t *testing.T) {
	store := memstore.New()
	e := seed(store, "2026-01-01", "10")
	store.Credit(e.ID, 100, nil)

	job := NewAccrualJob(store, store.Enrollments(), store.Requests(), ledger.NewService(store.Ledger()), accrualSettings(), 1, time.UTC).WhenDue()
	job.now = func() time.Time { return at("2026-03-20") }

	report, err := job.Run(Manual(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
}

func TestAccrualDay(t *testing.T) {
	assert.Equal(t, 6, AccrualDay(5))
	assert.Equal(t, 2, AccrualDay(1))
	assert.Equal(t, 28, AccrualDay(27))
	assert.Equal(t, 1, AccrualDay(28))
	assert.Equal(t, 1, AccrualDay(31))
}

func TestAccrualKeepsPointsClaimedByPendingRedemption(t *testing.T) {
	store := memstore.New()
	e := seed(store, "2026-01-01", "10")
	store.Credit(e.ID, 300, nil)

	settings := memstore.NewSettings(map[string]string{
		setting.KeyPointsToGoldGrams:       "0.001",
		setting.KeyRedemptionWindow:        "5",
		setting.KeyMinimumRedemptionPoints: "100",
		setting.KeyConvenienceFee:          "10",
	})
	ledgerSvc := ledger.NewService(store.Ledger())
	redemptions := redemption.NewService(store, store.Requests(), store.Enrollments(), ledgerSvc, settings, store.Prices(), &memstore.Mailer{}, time.UTC)

	redemptions.SetClock(func() time.Time { return at("2026-03-03") })
	req, err := redemptions.CreateRequest(context.Background(), e.UserID, e.ID, 200)
	require.NoError(t, err)

	job := NewAccrualJob(store, store.Enrollments(), store.Requests(), ledgerSvc, settings, 1, time.UTC)
	job.now = func() time.Time { return at("2026-03-06") }
	report, err := job.WhenDue().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(90), report.PointsConverted, "200 points plus the 10 point fee stay reserved")

	got := store.Enrollment(e.ID)
	assert.Equal(t, int64(210), got.AvailablePoints)
	assert.True(t, got.Accrued().Equal(decimal.RequireFromString("0.09")))

	redemptions.SetClock(func() time.Time { return at("2026-03-07") })
	approved, err := redemptions.ApproveRedemption(context.Background(), req.ID, uuid.New(), "", redemption.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, redemption.StatusApproved, approved.Status)
	assert.Zero(t, store.Enrollment(e.ID).AvailablePoints)
}

func TestAccrualSkipsWhenEverythingIsReserved(t *testing.T) {
	store := memstore.New()
	e := seed(store, "2026-01-01", "10")
	store.Credit(e.ID, 150, nil)
	points := int64(150)
	require.NoError(t, store.Requests().Create(context.Background(), nil, &redemption.Request{
		EnrollmentID: e.ID, Type: redemption.TypeBonus, Points: &points, Status: redemption.StatusPending,
	}))

	job := NewAccrualJob(store, store.Enrollments(), store.Requests(), ledger.NewService(store.Ledger()), accrualSettings(), 1, time.UTC)
	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, int64(150), store.Enrollment(e.ID).AvailablePoints)
	assert.Len(t, store.Transactions(e.ID), 1, "no accrual row is posted")
}
