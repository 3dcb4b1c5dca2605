package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// AllowedContentTypes lists the uploads the service hands out URLs for.
var AllowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// UserPrefix is the namespace a user may read and write.
func UserPrefix(userID uuid.UUID) string {
	return fmt.Sprintf("users/%s/", userID)
}

// CertificatePrefix is the admin-managed namespace for scheme certificates.
func CertificatePrefix(enrollmentID uuid.UUID) string {
	return fmt.Sprintf("certificates/%s/", enrollmentID)
}

// NewKey builds a unique object key under prefix keeping a sanitized file name.
func NewKey(prefix, filename, contentType string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-")
	if base == "" {
		base = "file"
	}
	if len(base) > 64 {
		base = base[:64]
	}
	return prefix + uuid.New().String() + "-" + base + AllowedContentTypes[contentType]
}

// Owns reports whether key lives under prefix and has no path traversal.
func Owns(prefix, key string) bool {
	return strings.HasPrefix(key, prefix) && !strings.Contains(key, "..")
}
