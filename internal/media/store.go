// Package media stores uploaded post attachments in object storage.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"celeste/internal/config"
	"celeste/internal/middleware"
	"celeste/internal/models"
)

// Allowed upload content types, mapped to the media type stored on posts.
var allowedContentTypes = map[string]string{
	"image/jpeg": models.MediaTypeImage,
	"image/png":  models.MediaTypeImage,
	"image/gif":  models.MediaTypeImage,
	"image/webp": models.MediaTypeImage,
	"video/mp4":  models.MediaTypeVideo,
	"video/webm": models.MediaTypeVideo,
}

// MaxUploadSize bounds a single attachment upload.
const MaxUploadSize = 25 << 20

// Store wraps the MinIO client for attachment uploads.
type Store struct {
	mc      *minio.Client
	bucket  string
	baseURL string
}

// NewStore creates the object storage client. It does not dial; the first
// operation does.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg.MinioEndpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}

	mc, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Store{
		mc:      mc,
		bucket:  cfg.MinioBucket,
		baseURL: strings.TrimRight(cfg.MediaBaseURL, "/"),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		middleware.Logger.Info("created media bucket", "bucket", s.bucket)
	}
	return nil
}

// Upload stores an attachment under a random object key and returns the media
// descriptor to attach to a post. The original filename only contributes its
// extension.
func (s *Store) Upload(ctx context.Context, filename, contentType string, reader io.Reader, size int64) (*models.Media, error) {
	mediaType, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unsupported content type %q", contentType))
	}
	if size <= 0 || size > MaxUploadSize {
		return nil, models.NewValidationError("upload size out of range")
	}

	key := uuid.NewString() + strings.ToLower(path.Ext(filename))
	_, err := s.mc.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("upload %s: %w", key, err))
	}

	return &models.Media{
		Type: mediaType,
		URL:  s.baseURL + "/" + key,
	}, nil
}

// Delete removes an object by its key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.mc.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
