// internal/core/ports/image_store.go
package ports

import (
	"context"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

// ImageStore turns an attachment into the reference stored on the item,
// either an inline data URL or the location of an uploaded object.
type ImageStore interface {
	Put(ctx context.Context, image domain.Image) (string, error)
}
