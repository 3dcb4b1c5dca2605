package goldprice

import "github.com/shopspring/decimal"

type SetPriceRequest struct {
	Date         string          `json:"date" validate:"required,iso_date"`
	PricePerGram decimal.Decimal `json:"price_per_gram" validate:"dec_gt0"`
}

type FillMissingRequest struct {
	From string `json:"from" validate:"required,iso_date"`
	To   string `json:"to" validate:"required,iso_date"`
}

type BonusRunRequest struct {
	Date string `json:"date" validate:"required,iso_date"`
}
