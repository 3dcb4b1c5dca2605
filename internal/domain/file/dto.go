package file

import (
	"github.com/google/uuid"
)

const PurposeCertificate = "certificate"

type UploadURLRequest struct {
	FileName     string     `json:"file_name" validate:"required,max=255"`
	ContentType  string     `json:"content_type" validate:"required"`
	Purpose      string     `json:"purpose" validate:"omitempty,oneof=certificate"`
	EnrollmentID *uuid.UUID `json:"enrollment_id"`
}
