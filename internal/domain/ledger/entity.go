package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger movement
type TransactionType string

const (
	TypeDeposit         TransactionType = "deposit"
	TypeWithdrawal      TransactionType = "withdrawal"
	TypePoints          TransactionType = "points"
	TypeBonusWithdrawal TransactionType = "bonus_withdrawal"
	TypeConvenienceFee  TransactionType = "convenience_fee"
	TypeAccrual         TransactionType = "accrual"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypePoints, TypeBonusWithdrawal, TypeConvenienceFee, TypeAccrual:
		return true
	}
	return false
}

// Transaction is one immutable movement. Points carry their sign: credits are
// positive, redemptions, fees and accrual conversions are negative, so the sum
// over non-deleted rows is the enrollment's available balance.
type Transaction struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	EnrollmentID        uuid.UUID       `db:"enrollment_id" json:"enrollment_id"`
	Type                TransactionType `db:"type" json:"type"`
	Amount              decimal.Decimal `db:"amount" json:"amount"`
	GoldGrams           decimal.Decimal `db:"gold_grams" json:"gold_grams"`
	Points              int64           `db:"points" json:"points"`
	PriceRefID          *uuid.UUID      `db:"price_ref_id" json:"price_ref_id,omitempty"`
	RedemptionRequestID *uuid.UUID      `db:"redemption_request_id" json:"redemption_request_id,omitempty"`
	Description         string          `db:"description" json:"description"`
	Deleted             bool            `db:"deleted" json:"-"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

// TransactionInput is what callers post
type TransactionInput struct {
	EnrollmentID        uuid.UUID
	Type                TransactionType
	Amount              decimal.Decimal
	GoldGrams           decimal.Decimal
	Points              int64
	PriceRefID          *uuid.UUID
	RedemptionRequestID *uuid.UUID
	Description         string
}

// Reversal is a soft-deleted points credit that must be taken back from its enrollment
type Reversal struct {
	EnrollmentID uuid.UUID `db:"enrollment_id"`
	Points       int64     `db:"points"`
}

// ExportRow is a transaction with the scheme it belongs to
type ExportRow struct {
	Transaction
	SchemeName string `db:"scheme_name"`
}

// Summary aggregates non-deleted transactions of one enrollment
type Summary struct {
	EnrollmentID       uuid.UUID       `json:"enrollment_id"`
	DepositedAmount    decimal.Decimal `json:"deposited_amount"`
	DepositedGoldGrams decimal.Decimal `json:"deposited_gold_grams"`
	WithdrawnAmount    decimal.Decimal `json:"withdrawn_amount"`
	WithdrawnGoldGrams decimal.Decimal `json:"withdrawn_gold_grams"`
	NetAmount          decimal.Decimal `json:"net_amount"`
	NetGoldGrams       decimal.Decimal `json:"net_gold_grams"`
	PointsEarned       int64           `json:"points_earned"`
	PointsRedeemed     int64           `json:"points_redeemed"`
	FeesCharged        int64           `json:"fees_charged"`
	PointsAccrued      int64           `json:"points_accrued"`
	AccruedGoldGrams   decimal.Decimal `json:"accrued_gold_grams"`
	NetPoints          int64           `json:"net_points"`
	TransactionCount   int             `json:"transaction_count"`
}
