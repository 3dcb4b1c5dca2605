package auth

import "github.com/goldsave/goldsave-api/internal/pkg/apperr"

var (
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	ErrAccountInactive    = apperr.New(apperr.KindForbidden, "ACCOUNT_INACTIVE", "account is inactive")
)
