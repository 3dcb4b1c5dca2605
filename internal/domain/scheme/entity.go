package scheme

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scheme is immutable reference data used to size enrollments.
type Scheme struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	DurationMonths int             `db:"duration_months" json:"duration_months"`
	GoldGrams      decimal.Decimal `db:"gold_grams" json:"gold_grams"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
