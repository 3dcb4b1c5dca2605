package redemption_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/goldprice"
	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/domain/redemption"
	"github.com/goldsave/goldsave-api/internal/domain/setting"
	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
	"github.com/goldsave/goldsave-api/internal/testutil/memstore"
)

type fixture struct {
	store  *memstore.Store
	mailer *memstore.Mailer
	svc    *redemption.Service
	member enrollment.Enrollment
	admin  uuid.UUID
}

func newFixture(t *testing.T, today string) *fixture {
	t.Helper()
	store := memstore.New()
	settings := memstore.NewSettings(map[string]string{
		setting.KeyRedemptionWindow:        "5",
		setting.KeyMinimumRedemptionPoints: "100",
		setting.KeyConvenienceFee:          "10",
	})
	mailer := &memstore.Mailer{}
	svc := redemption.NewService(store, store.Requests(), store.Enrollments(), ledger.NewService(store.Ledger()), settings, store.Prices(), mailer, time.UTC)
	now, err := time.Parse("2006-01-02", today)
	require.NoError(t, err)
	svc.SetClock(func() time.Time { return now.Add(9 * time.Hour) })

	u := store.AddUser("asha@example.com", "Asha")
	sc := store.AddScheme("Gold 10", 11, decimal.NewFromInt(10))
	e := store.AddEnrollment(u.ID, sc, now.AddDate(0, -3, 0))

	return &fixture{store: store, mailer: mailer, svc: svc, member: e, admin: uuid.New()}
}

func code(err error) string {
	if e, ok := apperr.As(err); ok {
		return e.Code
	}
	return ""
}

func TestEligibilityOutsideWindow(t *testing.T) {
	f := newFixture(t, "2026-03-10")
	ctx := context.Background()
	f.store.Credit(f.member.ID, 500, nil)

	el, err := f.svc.CheckEligibility(ctx, f.member.UserID, f.member.ID)
	require.NoError(t, err)
	assert.False(t, el.Eligible)
	assert.Equal(t, redemption.ReasonOutsideWindow, el.Reason)
	assert.Equal(t, int64(5), el.WindowDay)

	_, err = f.svc.CreateRequest(ctx, f.member.UserID, f.member.ID, 200)
	require.Error(t, err)
	assert.Equal(t, redemption.ReasonOutsideWindow, code(err))
	assert.Empty(t, f.store.AllRequests())
}

func TestEligibilityOnLastWindowDay(t *testing.T) {
	f := newFixture(t, "2026-03-05")
	f.store.Credit(f.member.ID, 500, nil)

	el, err := f.svc.CheckEligibility(context.Background(), f.member.UserID, f.member.ID)
	require.NoError(t, err)
	assert.True(t, el.Eligible)
	assert.Empty(t, el.Reason)
}

func TestEligibilityBelowMinimum(t *testing.T) {
	f := newFixture(t, "2026-03-02")
	f.store.Credit(f.member.ID, 60, nil)

	el, err := f.svc.CheckEligibility(context.Background(), f.member.UserID, f.member.ID)
	require.NoError(t, err)
	assert.False(t, el.Eligible)
	assert.Equal(t, redemption.ReasonBelowMinimum, el.Reason)
	assert.Equal(t, int64(40), el.PointsNeeded)
}

func TestEligibilityInactiveEnrollment(t *testing.T) {
	f := newFixture(t, "2026-03-02")
	f.store.Credit(f.member.ID, 500, nil)
	f.store.SetStatus(f.member.ID, enrollment.StatusWithdrawn)

	el, err := f.svc.CheckEligibility(context.Background(), f.member.UserID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, redemption.ReasonNotActive, el.Reason)
}

func TestEligibilityHidesOtherMembers(t *testing.T) {
	f := newFixture(t, "2026-03-02")
	_, err := f.svc.CheckEligibility(context.Background(), uuid.New(), f.member.ID)
	assert.True(t, errors.Is(err, enrollment.ErrEnrollmentNotFound))
}

func TestCreateRequestRejectsSecondPending(t *testing.T) {
	f := newFixture(t, "2026-03-03")
	ctx := context.Background()
	f.store.Credit(f.member.ID, 500, nil)

	req, err := f.svc.CreateRequest(ctx, f.member.UserID, f.member.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, redemption.StatusPending, req.Status)
	assert.Equal(t, int64(200), req.PointsValue())

	_, err = f.svc.CreateRequest(ctx, f.member.UserID, f.member.ID, 100)
	require.Error(t, err)
	assert.Equal(t, redemption.ReasonPendingExists, code(err))
	assert.Len(t, f.store.AllRequests(), 1)

	assert.Equal(t, int64(500), f.store.Enrollment(f.member.ID).AvailablePoints, "requests do not hold points")
}

func TestCreateRequestValidatesAmount(t *testing.T) {
	f := newFixture(t, "2026-03-03")
	ctx := context.Background()
	f.store.Credit(f.member.ID, 300, nil)

	_, err := f.svc.CreateRequest(ctx, f.member.UserID, f.member.ID, 50)
	assert.True(t, errors.Is(err, redemption.ErrBelowMinimum))

	_, err = f.svc.CreateRequest(ctx, f.member.UserID, f.member.ID, 301)
	assert.True(t, errors.Is(err, redemption.ErrInsufficientPoints))
}

func TestApproveBonusDebitsPointsAndFee(t *testing.T) {
	f := newFixture(t, "2026-03-03")
	ctx := context.Background()
	f.store.Credit(f.member.ID, 500, nil)

	req, err := f.svc.CreateRequest(ctx, f.member.UserID, f.member.ID, 200)
	require.NoError(t, err)

	decided, err := f.svc.ApproveRedemption(ctx, req.ID, f.admin, "  paid out  ", redemption.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, redemption.StatusApproved, decided.Status)
	assert.Equal(t, "paid out", decided.Remarks)
	require.NotNil(t, decided.ApprovedBy)
	assert.Equal(t, f.admin, *decided.ApprovedBy)

	got := f.store.Enrollment(f.member.ID)
	assert.Equal(t, int64(290), got.AvailablePoints)
	assert.Equal(t, int64(500), got.TotalPoints, "lifetime earnings are untouched")

	byType := map[ledger.TransactionType]int64{}
	for _, tx := range f.store.Transactions(f.member.ID) {
		byType[tx.Type] += tx.Points
		if tx.Type != ledger.TypePoints {
			require.NotNil(t, tx.RedemptionRequestID)
			assert.Equal(t, req.ID, *tx.RedemptionRequestID)
		}
	}
	assert.Equal(t, int64(-200), byType[ledger.TypeBonusWithdrawal])
	assert.Equal(t, int64(-10), byType[ledger.TypeConvenienceFee])
	assert.Equal(t, 1, f.mailer.Count("decision"))
}

func TestApproveFailsWhenBalanceShrank(t *testing.T) {
	f := newFixture(t, "2026-03-03")
	ctx := context.Background()
	f.store.Credit(f.member.ID, 500, nil)

	req, err := f.svc.CreateRequest(ctx, f.member.UserID, f.member.ID, 200)
	require.NoError(t, err)
	f.store.SetBalance(f.member.ID, 205)

	_, err = f.svc.ApproveRedemption(ctx, req.ID, f.admin, "", redemption.StatusApproved)
	assert.True(t, errors.Is(err, redemption.ErrInsufficientPoints))

	assert.Equal(t, int64(205), f.store.Enrollment(f.member.ID).AvailablePoints)
	assert.Len(t, f.store.Transactions(f.member.ID), 1, "only the original credit remains")
	stored, err := f.store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, redemption.StatusPending, stored.Status)
	assert.Zero(t, f.mailer.Count("decision"))
}

func TestRejectPostsNothing(t *testing.T) {
	f := newFixture(t, "2026-03-03")
	ctx := context.Background()
	f.store.Credit(f.member.ID, 500, nil)

	req, err := f.svc.CreateRequest(ctx, f.member.UserID, f.member.ID, 200)
	require.NoError(t, err)
	before := len(f.store.AllTransactions())

	decided, err := f.svc.ApproveRedemption(ctx, req.ID, f.admin, "not this month", redemption.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, redemption.StatusRejected, decided.Status)
	assert.Len(t, f.store.AllTransactions(), before)
	assert.Equal(t, int64(500), f.store.Enrollment(f.member.ID).AvailablePoints)

	_, err = f.svc.ApproveRedemption(ctx, req.ID, f.admin, "", redemption.StatusApproved)
	assert.True(t, errors.Is(err, redemption.ErrAlreadyDecided))

	_, err = f.svc.CreateRequest(ctx, f.member.UserID, f.member.ID, 200)
	assert.NoError(t, err, "a decided request no longer blocks new ones")
}

func TestApproveRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, "2026-03-03")
	_, err := f.svc.ApproveRedemption(context.Background(), uuid.New(), f.admin, "", redemption.StatusPending)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.ApproveRedemption(context.Background(), uuid.New(), f.admin, "", redemption.StatusApproved)
	assert.True(t, errors.Is(err, redemption.ErrRequestNotFound))
}

func maturityRequest(t *testing.T, f *fixture) *redemption.Request {
	t.Helper()
	req := &redemption.Request{EnrollmentID: f.member.ID, Type: redemption.TypeMaturity}
	require.NoError(t, f.store.Requests().Create(context.Background(), nil, req))
	return req
}

func TestApproveMaturityCompletesEnrollment(t *testing.T) {
	f := newFixture(t, "2026-12-02")
	ctx := context.Background()
	require.NoError(t, f.store.Enrollments().Accrue(ctx, nil, f.member.ID, 0, decimal.RequireFromString("0.5")))
	require.NoError(t, f.store.Prices().Insert(ctx, nil, &goldprice.GoldPrice{
		PriceDate: f.member.StartDate, PricePerGram: decimal.RequireFromString("6000.125"),
	}))
	req := maturityRequest(t, f)

	decided, err := f.svc.ApproveRedemption(ctx, req.ID, f.admin, "", redemption.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, redemption.StatusApproved, decided.Status)
	assert.Equal(t, enrollment.StatusCompleted, f.store.Enrollment(f.member.ID).Status)

	txs := f.store.Transactions(f.member.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TypeWithdrawal, txs[0].Type)
	assert.True(t, txs[0].GoldGrams.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("63001.31")), txs[0].Amount.String())
}

func TestApproveMaturityNeedsPrice(t *testing.T) {
	f := newFixture(t, "2026-12-02")
	req := maturityRequest(t, f)

	_, err := f.svc.ApproveRedemption(context.Background(), req.ID, f.admin, "", redemption.StatusApproved)
	assert.True(t, errors.Is(err, redemption.ErrNoGoldPrice))
	assert.Equal(t, enrollment.StatusActive, f.store.Enrollment(f.member.ID).Status)
	assert.Empty(t, f.store.Transactions(f.member.ID))
}

func TestApproveMaturityRefusesWithdrawnEnrollment(t *testing.T) {
	f := newFixture(t, "2026-12-02")
	ctx := context.Background()
	require.NoError(t, f.store.Prices().Insert(ctx, nil, &goldprice.GoldPrice{
		PriceDate: f.member.StartDate, PricePerGram: decimal.NewFromInt(6000),
	}))
	req := maturityRequest(t, f)
	f.store.SetStatus(f.member.ID, enrollment.StatusWithdrawn)

	_, err := f.svc.ApproveRedemption(ctx, req.ID, f.admin, "", redemption.StatusApproved)
	assert.True(t, errors.Is(err, enrollment.ErrNotActive))
	assert.Equal(t, enrollment.StatusWithdrawn, f.store.Enrollment(f.member.ID).Status)
	assert.Empty(t, f.store.Transactions(f.member.ID))

	rejected, err := f.svc.ApproveRedemption(ctx, req.ID, f.admin, "enrollment withdrawn", redemption.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, redemption.StatusRejected, rejected.Status)
}

func TestListForUserHidesOtherMembers(t *testing.T) {
	f := newFixture(t, "2026-03-03")
	ctx := context.Background()
	f.store.Credit(f.member.ID, 500, nil)
	_, err := f.svc.CreateRequest(ctx, f.member.UserID, f.member.ID, 200)
	require.NoError(t, err)

	mine, err := f.svc.ListForUser(ctx, f.member.UserID, f.member.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.svc.ListForUser(ctx, uuid.New(), f.member.ID)
	assert.True(t, errors.Is(err, enrollment.ErrEnrollmentNotFound))
}
