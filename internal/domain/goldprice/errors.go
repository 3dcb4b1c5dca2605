package goldprice

import "github.com/goldsave/goldsave-api/internal/pkg/apperr"

var (
	ErrPriceNotFound = apperr.NotFound("PRICE_NOT_FOUND", "Gold price not found")
	ErrNoPreviousDay = apperr.BusinessRule("NO_PREVIOUS_PRICE", "No price recorded for the previous day")
	ErrInvalidPrice  = apperr.Validation(map[string]string{"price_per_gram": "Value must be greater than 0"})
	ErrInvalidRange  = apperr.Validation(map[string]string{"to": "Must not be before from"})
	ErrRangeTooLarge = apperr.Validation(map[string]string{"to": "Range may span at most 366 days"})
)
