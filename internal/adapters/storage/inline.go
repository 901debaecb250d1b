// internal/adapters/storage/inline.go
package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
)

// InlineImageStore encodes images as data URLs stored directly on the item.
type InlineImageStore struct {
	logger *slog.Logger
}

// Statically assert that *InlineImageStore implements the ImageStore interface.
var _ ports.ImageStore = (*InlineImageStore)(nil)

// NewInlineImageStore creates an inline image store.
func NewInlineImageStore(logger *slog.Logger) *InlineImageStore {
	return &InlineImageStore{logger: logger.With(slog.String("storage", "inline"))}
}

// Put returns the image as a base64 data URL.
func (s *InlineImageStore) Put(ctx context.Context, img domain.Image) (string, error) {
	if err := domain.CheckImage(img); err != nil {
		return "", err
	}
	ref := "data:" + img.MediaType() + ";base64," + base64.StdEncoding.EncodeToString(img.Data)

	s.logger.DebugContext(ctx, "image encoded inline",
		slog.String("name", img.Name),
		slog.Int64("size", img.Size()))
	return ref, nil
}

// NewImageStore picks the image store for backend: "s3" uploads to the
// bucket in s3cfg, anything else encodes inline.
func NewImageStore(ctx context.Context, backend string, s3cfg *S3Config, logger *slog.Logger) (ports.ImageStore, error) {
	if backend != "s3" {
		return NewInlineImageStore(logger), nil
	}
	store, err := NewS3ImageStore(ctx, s3cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 image store: %w", err)
	}
	return store, nil
}
