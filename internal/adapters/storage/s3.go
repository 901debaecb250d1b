// internal/adapters/storage/s3.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
)

// Uploader is the subset of the S3 upload manager the image store needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config holds S3 configuration.
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // For MinIO/LocalStack
	UsePathStyle    bool   // For MinIO/LocalStack
}

// S3ImageStore uploads item images to a bucket and returns their location.
type S3ImageStore struct {
	uploader Uploader
	bucket   string
	prefix   string
	logger   *slog.Logger
}

// Statically assert that *S3ImageStore implements the ImageStore interface.
var _ ports.ImageStore = (*S3ImageStore)(nil)

// NewS3ImageStore creates an S3 backed image store.
func NewS3ImageStore(ctx context.Context, cfg *S3Config, logger *slog.Logger) (*S3ImageStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info("S3 image store initialized",
		slog.String("bucket", cfg.Bucket),
		slog.String("region", cfg.Region))

	return NewS3ImageStoreWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3ImageStoreWithUploader creates a store around an existing uploader.
func NewS3ImageStoreWithUploader(uploader Uploader, bucket, prefix string, logger *slog.Logger) *S3ImageStore {
	return &S3ImageStore{
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger.With(slog.String("storage", "s3")),
	}
}

// buildAWSConfig builds AWS configuration
func buildAWSConfig(ctx context.Context, cfg *S3Config) (aws.Config, error) {
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		return config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretAccessKey,
					"",
				),
			),
		)
	}

	return config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
}

// Put uploads the image under a fresh key and returns the object location.
func (s *S3ImageStore) Put(ctx context.Context, img domain.Image) (string, error) {
	if err := domain.CheckImage(img); err != nil {
		return "", err
	}

	contentType := img.MediaType()
	key := s.objectKey(img.Name, contentType)

	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"uploaded-at":   time.Now().Format(time.RFC3339),
			"original-name": img.Name,
		},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "image upload failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return "", &domain.RequestError{
			Op:      domain.OpUploadImage,
			Message: domain.OpUploadImage.FallbackMessage(),
			Err:     fmt.Errorf("failed to upload image: %w", err),
		}
	}

	s.logger.InfoContext(ctx, "image uploaded",
		slog.String("key", key),
		slog.String("location", result.Location),
		slog.Int64("size", img.Size()))

	return result.Location, nil
}

func (s *S3ImageStore) objectKey(name, contentType string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	key := uuid.New().String() + ext
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return key
}
