package ledger

import "github.com/goldsave/goldsave-api/internal/pkg/apperr"

var (
	ErrInvalidType = apperr.Validation(map[string]string{"type": "Unknown transaction type"})
)

func invalidSign(msg string) error {
	return apperr.Validation(map[string]string{"points": msg})
}
