package scheme

import "github.com/goldsave/goldsave-api/internal/pkg/apperr"

var (
	ErrSchemeNotFound = apperr.NotFound("SCHEME_NOT_FOUND", "scheme not found")
)
