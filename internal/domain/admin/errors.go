package admin

import "github.com/goldsave/goldsave-api/internal/pkg/apperr"

var (
	ErrAdminNotFound = apperr.NotFound("ADMIN_NOT_FOUND", "admin not found")
	ErrAdminExists   = apperr.BusinessRule("ADMIN_EXISTS", "an admin with this email already exists")
	ErrWeakPassword  = apperr.Validation(map[string]string{"password": "Value is too short (min: 8)"})
)
