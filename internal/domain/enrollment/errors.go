package enrollment

import "github.com/goldsave/goldsave-api/internal/pkg/apperr"

var (
	ErrEnrollmentNotFound = apperr.NotFound("ENROLLMENT_NOT_FOUND", "Enrollment not found")
	ErrAlreadyEnrolled    = apperr.BusinessRule("ALREADY_ENROLLED", "User already has an active enrollment in this scheme")
	ErrNotActive          = apperr.BusinessRule("ENROLLMENT_NOT_ACTIVE", "Enrollment is not active")
	ErrCertificateMissing = apperr.BusinessRule("CERTIFICATE_MISSING", "Certificate file has not been uploaded")
	ErrInvalidCertificate = apperr.Validation(map[string]string{"certificate_key": "Key must live under the enrollment's certificate prefix"})
)
