package goldprice_test

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
	"github.com/goldsave/goldsave-api/internal/domain/setting"
	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
	"github.com/goldsave/goldsave-api/internal/testutil/memstore"
)

type fixture struct {
	store    *memstore.Store
	settings *memstore.Settings
	svc      *goldprice.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	settings := memstore.NewSettings(map[string]string{
		setting.KeyDefaultBonusPoints: "5",
		setting.KeyBonusModValue:      "10",
	})
	svc := goldprice.NewService(store, store.Prices(), settings, store.Enrollments(), ledger.NewService(store.Ledger()), nil)
	return &fixture{store: store, settings: settings, svc: svc}
}

func (f *fixture) member(t *testing.T, grams string) enrollment.Enrollment {
	t.Helper()
	u := f.store.AddUser(uuid.NewString()+"@example.com", "Member")
	sc := f.store.AddScheme("Gold "+grams, 11, decimal.RequireFromString(grams))
	return f.store.AddEnrollment(u.ID, sc, date("2026-01-01"))
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func livePoints(store *memstore.Store, enrollmentID uuid.UUID) []ledger.Transaction {
	var out []ledger.Transaction
	for _, tx := range store.Transactions(enrollmentID) {
		if tx.Type == ledger.TypePoints {
			out = append(out, tx)
		}
	}
	return out
}

func TestSetPriceAwardsBonusAgainstPreviousDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.member(t, "10")

	first, err := f.svc.SetPrice(ctx, date("2026-03-09"), price("5000"))
	require.NoError(t, err)
	assert.Nil(t, first.Bonus, "no previous day, no bonus")

	res, err := f.svc.SetPrice(ctx, date("2026-03-10"), price("5025"))
	require.NoError(t, err)
	require.NotNil(t, res.Bonus)
	assert.Equal(t, int64(25), res.Bonus.PriceDifference)
	assert.Equal(t, int64(3), res.Bonus.BonusPerGram)
	assert.Equal(t, int64(30), res.Bonus.PointsAwarded)
	assert.Equal(t, 1, res.Bonus.TransactionsCreated)

	got := f.store.Enrollment(e.ID)
	assert.Equal(t, int64(30), got.AvailablePoints)
	assert.Equal(t, int64(30), got.TotalPoints)

	credits := livePoints(f.store, e.ID)
	require.Len(t, credits, 1)
	require.NotNil(t, credits[0].PriceRefID)
	assert.Equal(t, res.Price.ID, *credits[0].PriceRefID)
}

func TestSetPriceReplacementReversesAndRecomputes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.member(t, "10")

	_, err := f.svc.SetPrice(ctx, date("2026-03-09"), price("5000"))
	require.NoError(t, err)
	original, err := f.svc.SetPrice(ctx, date("2026-03-10"), price("5025"))
	require.NoError(t, err)

	replaced, err := f.svc.SetPrice(ctx, date("2026-03-10"), price("4990"))
	require.NoError(t, err)
	require.NotNil(t, replaced.ReplacedPriceID)
	assert.Equal(t, original.Price.ID, *replaced.ReplacedPriceID)
	assert.Equal(t, int64(30), replaced.PointsReversed)
	require.NotNil(t, replaced.Bonus)
	assert.Equal(t, int64(50), replaced.Bonus.PointsAwarded)

	got := f.store.Enrollment(e.ID)
	assert.Equal(t, int64(50), got.AvailablePoints)
	assert.Equal(t, int64(50), got.TotalPoints)

	credits := livePoints(f.store, e.ID)
	require.Len(t, credits, 1)
	assert.Equal(t, replaced.Price.ID, *credits[0].PriceRefID)

	live := 0
	for _, p := range f.store.AllPrices() {
		if p.PriceDate.Equal(date("2026-03-10")) && !p.Deleted {
			live++
		}
	}
	assert.Equal(t, 1, live, "one live price per date")
}

func TestRerunBonusDoesNotDoubleAward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.member(t, "10")

	_, err := f.svc.SetPrice(ctx, date("2026-03-09"), price("5000"))
	require.NoError(t, err)
	_, err = f.svc.SetPrice(ctx, date("2026-03-10"), price("5025"))
	require.NoError(t, err)

	res, err := f.svc.RerunBonus(ctx, date("2026-03-10"))
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.PointsReversed)
	assert.Equal(t, int64(30), res.PointsAwarded)

	got := f.store.Enrollment(e.ID)
	assert.Equal(t, int64(30), got.AvailablePoints)
	assert.Equal(t, int64(30), got.TotalPoints)
	assert.Len(t, livePoints(f.store, e.ID), 1)
}

func TestRerunBonusNeedsPreviousDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RerunBonus(ctx, date("2026-03-10"))
	assert.True(t, errors.Is(err, goldprice.ErrPriceNotFound))

	_, err = f.svc.SetPrice(ctx, date("2026-03-10"), price("5000"))
	require.NoError(t, err)
	_, err = f.svc.RerunBonus(ctx, date("2026-03-10"))
	assert.True(t, errors.Is(err, goldprice.ErrNoPreviousDay))
}

func TestBonusSkipsInactiveAndZeroGramEnrollments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.member(t, "10")
	withdrawn := f.member(t, "10")
	f.store.SetStatus(withdrawn.ID, enrollment.StatusWithdrawn)
	empty := f.member(t, "0")

	_, err := f.svc.SetPrice(ctx, date("2026-03-09"), price("5000"))
	require.NoError(t, err)
	res, err := f.svc.SetPrice(ctx, date("2026-03-10"), price("5025"))
	require.NoError(t, err)
	require.NotNil(t, res.Bonus)
	assert.Equal(t, int64(30), res.Bonus.PointsAwarded)
	assert.Equal(t, 1, res.Bonus.TransactionsCreated)

	assert.Equal(t, int64(30), f.store.Enrollment(active.ID).AvailablePoints)
	assert.Zero(t, f.store.Enrollment(withdrawn.ID).AvailablePoints)
	assert.Empty(t, livePoints(f.store, empty.ID))
}

func TestBonusIsolatesFailingEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := f.member(t, "10")
	bad := f.member(t, "10")
	f.store.FailPost[bad.ID] = errors.New("disk full")

	_, err := f.svc.SetPrice(ctx, date("2026-03-09"), price("5000"))
	require.NoError(t, err)
	res, err := f.svc.SetPrice(ctx, date("2026-03-10"), price("4990"))
	require.NoError(t, err)
	require.NotNil(t, res.Bonus)
	assert.Equal(t, 1, res.Bonus.Failed)
	assert.Equal(t, 1, res.Bonus.EnrollmentsProcessed)

	assert.Equal(t, int64(50), f.store.Enrollment(good.ID).AvailablePoints)
	assert.Zero(t, f.store.Enrollment(bad.ID).AvailablePoints)
}

func TestBonusConfigurationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.member(t, "10")

	_, err := f.svc.SetPrice(ctx, date("2026-03-09"), price("5000"))
	require.NoError(t, err)

	f.settings.Set(setting.KeyBonusModValue, "0")
	res, err := f.svc.SetPrice(ctx, date("2026-03-10"), price("5025"))
	require.NoError(t, err, "the price is kept when the bonus cannot run")
	assert.Nil(t, res.Bonus)
	assert.NotEmpty(t, res.BonusError)
	assert.Empty(t, livePoints(f.store, e.ID))

	f.settings.Delete(setting.KeyBonusModValue)
	_, err = f.svc.RerunBonus(ctx, date("2026-03-10"))
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))

	f.settings.Set(setting.KeyBonusModValue, "10")
	f.settings.Set(setting.KeyDefaultBonusPoints, "-1")
	_, err = f.svc.RerunBonus(ctx, date("2026-03-10"))
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
}

func TestSetPriceRejectsNonPositive(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SetPrice(context.Background(), date("2026-03-10"), decimal.Zero)
	assert.True(t, errors.Is(err, goldprice.ErrInvalidPrice))
}

func TestFillMissingStoresInterpolatedRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.member(t, "10")

	_, err := f.svc.SetPrice(ctx, date("2026-03-01"), price("5000"))
	require.NoError(t, err)
	_, err = f.svc.SetPrice(ctx, date("2026-03-04"), price("5030"))
	require.NoError(t, err)

	filled, err := f.svc.FillMissing(ctx, date("2026-03-01"), date("2026-03-04"))
	require.NoError(t, err)
	require.Len(t, filled, 2)

	all, err := f.svc.List(ctx, date("2026-03-01"), date("2026-03-04"))
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[1].Interpolated)
	assert.True(t, all[1].PricePerGram.Equal(price("5010")))
	assert.Empty(t, livePoints(f.store, e.ID), "interpolated prices never earn points")
}

func TestListValidatesRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.List(ctx, date("2026-03-10"), date("2026-03-01"))
	assert.True(t, errors.Is(err, goldprice.ErrInvalidRange))

	_, err = f.svc.List(ctx, date("2024-01-01"), date("2026-01-01"))
	assert.True(t, errors.Is(err, goldprice.ErrRangeTooLarge))
}

func TestLatest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Latest(ctx)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.SetPrice(ctx, date("2026-03-01"), price("5000"))
	require.NoError(t, err)
	_, err = f.svc.SetPrice(ctx, date("2026-03-02"), price("5100"))
	require.NoError(t, err)

	p, err := f.svc.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, p.PricePerGram.Equal(price("5100")))
}

func TestSetPriceKeepsNewPriceWhenReversalFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.member(t, "10")

	_, err := f.svc.SetPrice(ctx, date("2026-03-09"), price("5000"))
	require.NoError(t, err)
	original, err := f.svc.SetPrice(ctx, date("2026-03-10"), price("5025"))
	require.NoError(t, err)

	f.store.FailReversal = errors.New("connection reset")
	res, err := f.svc.SetPrice(ctx, date("2026-03-10"), price("4990"))
	require.Error(t, err)
	require.NotNil(t, res, "the committed swap is still reported")
	require.NotNil(t, res.ReplacedPriceID)
	assert.Equal(t, original.Price.ID, *res.ReplacedPriceID)
	assert.Nil(t, res.Bonus, "no bonus is computed after a failed reversal")

	live, err := f.svc.GetByDate(ctx, date("2026-03-10"))
	require.NoError(t, err)
	assert.Equal(t, res.Price.ID, live.ID)
	assert.True(t, live.PricePerGram.Equal(price("4990")))

	credits := livePoints(f.store, e.ID)
	require.Len(t, credits, 1, "stale credits stay live until the reversal succeeds")
	assert.Equal(t, original.Price.ID, *credits[0].PriceRefID)
	got := f.store.Enrollment(e.ID)
	assert.Equal(t, int64(30), got.AvailablePoints)
	assert.Equal(t, int64(30), got.TotalPoints)
}

func TestReplacementReversalNeverGoesBelowZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.member(t, "10")

	_, err := f.svc.SetPrice(ctx, date("2026-03-09"), price("5000"))
	require.NoError(t, err)
	_, err = f.svc.SetPrice(ctx, date("2026-03-10"), price("5025"))
	require.NoError(t, err)
	f.store.SetBalance(e.ID, 10)

	res, err := f.svc.SetPrice(ctx, date("2026-03-10"), price("4990"))
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.PointsReversed)
	require.NotNil(t, res.Bonus)
	assert.Equal(t, int64(50), res.Bonus.PointsAwarded)

	got := f.store.Enrollment(e.ID)
	assert.Equal(t, int64(50), got.AvailablePoints, "reversal floors at zero before the new award")
	assert.Equal(t, int64(50), got.TotalPoints)
}
