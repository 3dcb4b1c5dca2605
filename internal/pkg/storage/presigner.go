package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
)

var ErrNotConfigured = errors.New("object storage not configured")

// Config for an S3 compatible bucket (AWS, MinIO, R2)
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// Presigned is a time limited URL for direct client access to one object.
type Presigned struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presigner hands out upload and download URLs; object bytes never pass through the API.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*Presigned, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (*Presigned, error)
	Exists(ctx context.Context, key string) (bool, error)
}

type S3Presigner struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Presigner returns nil when credentials are missing (file endpoints disabled).
func NewS3Presigner(ctx context.Context, cfg Config) (*S3Presigner, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		log.Warn().Msg("S3 config incomplete, file uploads disabled")
		return nil, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Info().Str("bucket", cfg.Bucket).Msg("Object storage presigner initialized")

	return &S3Presigner{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

func (p *S3Presigner) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*Presigned, error) {
	if p == nil {
		return nil, ErrNotConfigured
	}
	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}
	return &Presigned{URL: req.URL, Method: req.Method, Key: key, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (p *S3Presigner) PresignGet(ctx context.Context, key string, ttl time.Duration) (*Presigned, error) {
	if p == nil {
		return nil, ErrNotConfigured
	}
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("presign get: %w", err)
	}
	return &Presigned{URL: req.URL, Method: req.Method, Key: key, ExpiresAt: time.Now().Add(ttl)}, nil
}

// Exists reports whether key has been uploaded.
func (p *S3Presigner) Exists(ctx context.Context, key string) (bool, error) {
	if p == nil {
		return false, ErrNotConfigured
	}
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head object: %w", err)
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
