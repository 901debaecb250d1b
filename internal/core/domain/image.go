// internal/core/domain/image.go
package domain

import (
	"net/http"
	"strings"
)

// MaxImageBytes is the largest image attachment accepted (5 MiB).
const MaxImageBytes = 5 * 1024 * 1024

// Image is an attachment picked by the user, not yet encoded or uploaded.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the payload size in bytes.
func (i Image) Size() int64 {
	return int64(len(i.Data))
}

// MediaType returns the declared content type or sniffs one from the data.
func (i Image) MediaType() string {
	if i.ContentType != "" {
		return i.ContentType
	}
	return http.DetectContentType(i.Data)
}

// CheckImage rejects attachments that are empty, exceed MaxImageBytes, or
// are not an image media type.
func CheckImage(img Image) error {
	if img.Size() == 0 {
		return &ValidationError{Field: "image", Message: "Image file is empty"}
	}
	if img.Size() > MaxImageBytes {
		return &ValidationError{
			Field:   "image",
			Message: "Image size should be less than 5MB",
			Err:     ErrImageTooLarge,
		}
	}
	if !strings.HasPrefix(img.MediaType(), "image/") {
		return &ValidationError{
			Field:   "image",
			Message: "Please choose an image file",
			Err:     ErrNotAnImage,
		}
	}
	return nil
}
