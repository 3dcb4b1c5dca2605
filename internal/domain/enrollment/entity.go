package enrollment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusWithdrawn Status = "WITHDRAWN"
)

// Enrollment is a user's participation in one scheme. AvailablePoints is a
// cached balance of the ledger; TotalPoints only grows except when a price
// correction reverses a bonus.
type Enrollment struct {
	ID                   uuid.UUID           `db:"id" json:"id"`
	UserID               uuid.UUID           `db:"user_id" json:"user_id"`
	SchemeID             uuid.UUID           `db:"scheme_id" json:"scheme_id"`
	StartDate            time.Time           `db:"start_date" json:"start_date"`
	EndDate              time.Time           `db:"end_date" json:"end_date"`
	TotalPoints          int64               `db:"total_points" json:"total_points"`
	AvailablePoints      int64               `db:"available_points" json:"available_points"`
	Status               Status              `db:"status" json:"status"`
	AccruedGold          decimal.NullDecimal `db:"accrued_gold" json:"accrued_gold"`
	CertificateDelivered bool                `db:"certificate_delivered" json:"certificate_delivered"`
	CertificateKey       *string             `db:"certificate_key" json:"certificate_key,omitempty"`
	CreatedAt            time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time           `db:"updated_at" json:"updated_at"`
}

// Accrued returns accrued gold, zero when none was ever converted.
func (e Enrollment) Accrued() decimal.Decimal {
	if !e.AccruedGold.Valid {
		return decimal.Zero
	}
	return e.AccruedGold.Decimal
}

// Detail joins the enrollment with its scheme and member.
type Detail struct {
	Enrollment
	SchemeName     string          `db:"scheme_name" json:"scheme_name"`
	DurationMonths int             `db:"duration_months" json:"duration_months"`
	GoldGrams      decimal.Decimal `db:"gold_grams" json:"gold_grams"`
	UserEmail      string          `db:"user_email" json:"user_email"`
	UserName       string          `db:"user_name" json:"user_name"`
}

// TotalGold is what the member is owed at maturity.
func (d Detail) TotalGold() decimal.Decimal {
	return d.GoldGrams.Add(d.Accrued())
}
