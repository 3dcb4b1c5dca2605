// Package file hands out pre-signed object storage URLs. Clients move bytes
// straight to and from the bucket.
package file

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/goldsave/goldsave-api/internal/pkg/storage"
)

// OwnershipChecker confirms an enrollment belongs to a member
type OwnershipChecker interface {
	CheckOwner(ctx context.Context, userID, enrollmentID uuid.UUID) error
}

// Caller is the authenticated identity asking for a URL.
type Caller struct {
	UserID uuid.UUID
	Admin  bool
}

type Service struct {
	presigner storage.Presigner
	owners    OwnershipChecker
	ttl       time.Duration
}

// NewService accepts a nil presigner; every call then fails with ErrStorageDisabled.
func NewService(presigner storage.Presigner, owners OwnershipChecker, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{presigner: presigner, owners: owners, ttl: ttl}
}

// UploadURL returns a PUT URL for a fresh key. Members write under their own
// prefix; admins may target an enrollment's certificate prefix.
func (s *Service) UploadURL(ctx context.Context, caller Caller, req *UploadURLRequest) (*storage.Presigned, error) {
	if s.presigner == nil {
		return nil, ErrStorageDisabled
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if _, ok := storage.AllowedContentTypes[contentType]; !ok {
		return nil, ErrUnsupportedType
	}

	prefix := storage.UserPrefix(caller.UserID)
	if req.Purpose == PurposeCertificate {
		if !caller.Admin {
			return nil, ErrCertificateForAdmin
		}
		if req.EnrollmentID == nil {
			return nil, ErrEnrollmentRequired
		}
		prefix = storage.CertificatePrefix(*req.EnrollmentID)
	}

	key := storage.NewKey(prefix, req.FileName, contentType)
	p, err := s.presigner.PresignPut(ctx, key, contentType, s.ttl)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("key", key).Str("user_id", caller.UserID.String()).Msg("Upload URL issued")
	return p, nil
}

// DownloadURL returns a GET URL for key. Members read their own prefix and
// the certificates of their own enrollments.
func (s *Service) DownloadURL(ctx context.Context, caller Caller, key string) (*storage.Presigned, error) {
	if s.presigner == nil {
		return nil, ErrStorageDisabled
	}
	if !caller.Admin {
		if err := s.authorizeRead(ctx, caller.UserID, key); err != nil {
			return nil, err
		}
	}
	return s.presigner.PresignGet(ctx, key, s.ttl)
}

func (s *Service) authorizeRead(ctx context.Context, userID uuid.UUID, key string) error {
	if storage.Owns(storage.UserPrefix(userID), key) {
		return nil
	}
	enrollmentID, ok := certificateEnrollment(key)
	if !ok || s.owners == nil || !storage.Owns(storage.CertificatePrefix(enrollmentID), key) {
		return ErrForbiddenKey
	}
	if err := s.owners.CheckOwner(ctx, userID, enrollmentID); err != nil {
		return ErrForbiddenKey
	}
	return nil
}

// certificateEnrollment extracts the enrollment id from certificates/<id>/...
func certificateEnrollment(key string) (uuid.UUID, bool) {
	rest, ok := strings.CutPrefix(key, "certificates/")
	if !ok {
		return uuid.Nil, false
	}
	idPart, _, ok := strings.Cut(rest, "/")
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
