package enrollment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EnrollRequest struct {
	Email     string    `json:"email" validate:"required,email"`
	Name      string    `json:"name" validate:"required,min=2,max=255"`
	Phone     string    `json:"phone" validate:"omitempty,max=32"`
	SchemeID  uuid.UUID `json:"scheme_id" validate:"required"`
	StartDate string    `json:"start_date" validate:"required,iso_date"`
}

type EnrollResponse struct {
	Enrollment  *Enrollment `json:"enrollment"`
	UserID      uuid.UUID   `json:"user_id"`
	UserCreated bool        `json:"user_created"`
}

type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"dec_gt0"`
	GoldGrams   decimal.Decimal `json:"gold_grams" validate:"dec_gte0"`
	Description string          `json:"description" validate:"max=500"`
}

type CertificateRequest struct {
	Key string `json:"key" validate:"required,max=512"`
}
