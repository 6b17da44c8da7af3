// Package media issues presigned uploads for product images.
package media

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// MaxImageSize is the largest accepted upload in bytes.
	MaxImageSize = 5 << 20
	// URLExpiry is how long a presigned upload URL stays valid.
	URLExpiry = 15 * time.Minute
)

var (
	allowedContentType = regexp.MustCompile(`^image/(jpeg|png|webp|gif)$`)
	unsafeFilename     = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// Uploader hands out upload URLs for product images.
type Uploader interface {
	PresignUpload(ctx context.Context, userID uuid.UUID, req model.UploadRequest) (*model.UploadTicket, error)
}

// S3Uploader presigns PUT requests against an S3 bucket.
type S3Uploader struct {
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	now       func() time.Time
	logger    zerolog.Logger
}

// NewS3Uploader creates an uploader using the default AWS credential chain.
// endpoint is optional and selects an S3-compatible store with path-style addressing.
func NewS3Uploader(ctx context.Context, bucket, region, prefix, endpoint string, logger zerolog.Logger) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	u := NewS3UploaderWithClient(client, bucket, prefix, logger)
	u.logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Str("prefix", prefix).
		Msg("S3 uploader initialised")

	return u, nil
}

// NewS3UploaderWithClient creates an uploader around an existing S3 client.
func NewS3UploaderWithClient(client *s3.Client, bucket, prefix string, logger zerolog.Logger) *S3Uploader {
	return &S3Uploader{
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		prefix:    prefix,
		now:       time.Now,
		logger:    logger.With().Str("component", "s3-uploader").Logger(),
	}
}

// PresignUpload validates the image metadata and returns a URL valid for URLExpiry.
func (u *S3Uploader) PresignUpload(ctx context.Context, userID uuid.UUID, req model.UploadRequest) (*model.UploadTicket, error) {
	if err := ValidateUpload(req); err != nil {
		u.logger.Info().
			Err(err).
			Str("user_id", userID.String()).
			Str("content_type", req.ContentType).
			Int64("size", req.Size).
			Msg("upload rejected")
		return nil, err
	}

	now := u.now()
	key := ObjectKey(u.prefix, userID, req.Filename, now)

	signed, err := u.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.Size),
	}, s3.WithPresignExpires(URLExpiry))
	if err != nil {
		u.logger.Error().
			Err(err).
			Str("bucket", u.bucket).
			Str("key", key).
			Msg("failed to presign upload")
		return nil, fmt.Errorf("failed to presign upload (bucket=%s, key=%s): %w", u.bucket, key, err)
	}

	u.logger.Info().
		Str("user_id", userID.String()).
		Str("key", key).
		Msg("upload presigned")

	method := signed.Method
	if method == "" {
		method = http.MethodPut
	}

	return &model.UploadTicket{
		URL:       signed.URL,
		Path:      key,
		Method:    method,
		ExpiresAt: now.Add(URLExpiry).UTC(),
	}, nil
}

// ValidateUpload checks filename, content type and size.
func ValidateUpload(req model.UploadRequest) error {
	if strings.TrimSpace(req.Filename) == "" {
		return fmt.Errorf("%w: filename is required", model.ErrUploadRejected)
	}
	if !allowedContentType.MatchString(req.ContentType) {
		return fmt.Errorf("%w: unsupported content type %q", model.ErrUploadRejected, req.ContentType)
	}
	if req.Size <= 0 {
		return fmt.Errorf("%w: size is required", model.ErrUploadRejected)
	}
	if req.Size > MaxImageSize {
		return fmt.Errorf("%w: file exceeds %d bytes", model.ErrUploadRejected, MaxImageSize)
	}
	return nil
}

// ObjectKey builds "<prefix><user>/<unix millis>-<filename>" with the filename
// reduced to a safe base name.
func ObjectKey(prefix string, userID uuid.UUID, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	name = strings.Trim(unsafeFilename.ReplaceAllString(name, "-"), "-")
	if name == "" || name == "." || name == ".." {
		name = "upload"
	}
	return fmt.Sprintf("%s%s/%d-%s", prefix, userID, at.UnixMilli(), name)
}
