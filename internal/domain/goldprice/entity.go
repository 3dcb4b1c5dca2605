package goldprice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoldPrice is the per-gram price for one calendar date. Corrections insert a
// new row and soft-delete the old one, so history is never overwritten.
type GoldPrice struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	PriceDate    time.Time       `db:"price_date" json:"price_date"`
	PricePerGram decimal.Decimal `db:"price_per_gram" json:"price_per_gram"`
	Interpolated bool            `db:"interpolated" json:"interpolated"`
	Deleted      bool            `db:"deleted" json:"-"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// BonusResult reports one bonus run
type BonusResult struct {
	PriceID              uuid.UUID `json:"price_id"`
	PreviousPriceID      uuid.UUID `json:"previous_price_id"`
	PriceDifference      int64     `json:"price_difference"`
	BonusPerGram         int64     `json:"bonus_per_gram"`
	PointsAwarded        int64     `json:"points_awarded"`
	TransactionsCreated  int       `json:"transactions_created"`
	EnrollmentsProcessed int       `json:"enrollments_processed"`
	Failed               int       `json:"failed"`
	PointsReversed       int64     `json:"points_reversed"`
}

// SetPriceResult is the outcome of recording a price
type SetPriceResult struct {
	Price           *GoldPrice   `json:"price"`
	ReplacedPriceID *uuid.UUID   `json:"replaced_price_id,omitempty"`
	PointsReversed  int64        `json:"points_reversed"`
	Bonus           *BonusResult `json:"bonus,omitempty"`
	BonusError      string       `json:"bonus_error,omitempty"`
}
