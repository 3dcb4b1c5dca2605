package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

func TestPostRejectsWrongSigns(t *testing.T) {
	svc := NewService(nil)
	enrollment := uuid.New()

	cases := []struct {
		name string
		in   TransactionInput
	}{
		{"negative credit", TransactionInput{EnrollmentID: enrollment, Type: TypePoints, Points: -5}},
		{"positive redemption", TransactionInput{EnrollmentID: enrollment, Type: TypeBonusWithdrawal, Points: 5}},
		{"positive fee", TransactionInput{EnrollmentID: enrollment, Type: TypeConvenienceFee, Points: 1}},
		{"deposit with points", TransactionInput{EnrollmentID: enrollment, Type: TypeDeposit, Points: 1}},
		{"negative deposit", TransactionInput{EnrollmentID: enrollment, Type: TypeDeposit, Amount: decimal.NewFromInt(-1)}},
		{"unknown type", TransactionInput{EnrollmentID: enrollment, Type: "gift"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Post(context.Background(), nil, tc.in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestSummarize(t *testing.T) {
	txs := []Transaction{
		{Type: TypeDeposit, Amount: decimal.NewFromInt(5000), GoldGrams: decimal.NewFromInt(1)},
		{Type: TypeDeposit, Amount: decimal.NewFromInt(5100), GoldGrams: decimal.NewFromInt(1)},
		{Type: TypePoints, Points: 300},
		{Type: TypePoints, Points: 50},
		{Type: TypeBonusWithdrawal, Points: -200},
		{Type: TypeConvenienceFee, Points: -10},
		{Type: TypeAccrual, Points: -140, GoldGrams: decimal.RequireFromString("0.14")},
		{Type: TypeWithdrawal, Amount: decimal.NewFromInt(5000), GoldGrams: decimal.NewFromInt(1)},
	}

	sum := Summarize(txs)

	assert.True(t, sum.DepositedAmount.Equal(decimal.NewFromInt(10100)))
	assert.True(t, sum.NetAmount.Equal(decimal.NewFromInt(5100)))
	assert.True(t, sum.NetGoldGrams.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(350), sum.PointsEarned)
	assert.Equal(t, int64(200), sum.PointsRedeemed)
	assert.Equal(t, int64(10), sum.FeesCharged)
	assert.Equal(t, int64(140), sum.PointsAccrued)
	assert.True(t, sum.AccruedGoldGrams.Equal(decimal.RequireFromString("0.14")))
	assert.Equal(t, int64(0), sum.NetPoints)
	assert.Equal(t, 8, sum.TransactionCount)
}

func TestWriteStatementGroupsBySchemeAndTotals(t *testing.T) {
	userID := uuid.New()
	gold, silver := uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := []ExportRow{
		{SchemeName: "Gold 11", Transaction: Transaction{EnrollmentID: gold, Type: TypeDeposit, Amount: decimal.NewFromInt(5000), GoldGrams: decimal.NewFromInt(1), CreatedAt: at}},
		{SchemeName: "Gold 11", Transaction: Transaction{EnrollmentID: gold, Type: TypePoints, Points: 30, CreatedAt: at}},
		{SchemeName: "Silver 6", Transaction: Transaction{EnrollmentID: silver, Type: TypePoints, Points: 20, CreatedAt: at}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStatement(&buf, userID, at, rows))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, "Transaction Statement", records[0][0])
	assert.Equal(t, userID.String(), records[1][1])
	assert.Equal(t, exportHeader, records[3])
	assert.Equal(t, "Gold 11", records[4][0])
	assert.Equal(t, "Silver 6", records[6][0])

	last := records[len(records)-1]
	assert.Equal(t, "Total", last[0])
	assert.Equal(t, "5000.00", last[1])
	assert.Equal(t, "50", last[7])

	perScheme := records[len(records)-3 : len(records)-1]
	assert.Equal(t, "Gold 11", perScheme[0][0])
	assert.Equal(t, "30", perScheme[0][7])
	assert.Equal(t, "Silver 6", perScheme[1][0])
}
