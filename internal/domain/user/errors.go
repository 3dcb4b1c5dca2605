package user

import "github.com/goldsave/goldsave-api/internal/pkg/apperr"

var (
	ErrUserNotFound = apperr.NotFound("USER_NOT_FOUND", "user not found")
)
