package file

import "github.com/goldsave/goldsave-api/internal/pkg/apperr"

var (
	ErrStorageDisabled     = apperr.New(apperr.KindConfiguration, "STORAGE_DISABLED", "File storage is not configured")
	ErrUnsupportedType     = apperr.Validation(map[string]string{"content_type": "Must be one of: application/pdf, image/jpeg, image/png"})
	ErrForbiddenKey        = apperr.New(apperr.KindForbidden, "FORBIDDEN_KEY", "You cannot access this file")
	ErrEnrollmentRequired  = apperr.Validation(map[string]string{"enrollment_id": "Required for certificate uploads"})
	ErrCertificateForAdmin = apperr.New(apperr.KindForbidden, "ADMIN_ONLY", "Only admins upload certificates")
)
