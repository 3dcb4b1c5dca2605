package scheme

import "github.com/shopspring/decimal"

type CreateRequest struct {
	Name           string          `json:"name" validate:"required,min=2,max=255"`
	DurationMonths int             `json:"duration_months" validate:"required,gte=1,lte=120"`
	GoldGrams      decimal.Decimal `json:"gold_grams" validate:"dec_gt0"`
}
