// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no usable session exists or the service
	// rejected the token.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrNoSession is returned by session stores holding nothing.
	ErrNoSession = errors.New("no persisted session")
	// ErrForbiddenSurface means the current role may not open a surface.
	ErrForbiddenSurface = errors.New("action not available for this account")
	// ErrNoActiveSurface means there is nothing to confirm or edit.
	ErrNoActiveSurface = errors.New("no dialog is open")
	// ErrSubmissionInFlight means the surface is waiting on a request and its
	// confirm control is inert.
	ErrSubmissionInFlight = errors.New("request already in progress")
	// ErrOutOfStock means a purchase was attempted on an item with no stock.
	ErrOutOfStock = errors.New("item is out of stock")
	// ErrImageTooLarge means an attachment exceeds MaxImageBytes.
	ErrImageTooLarge = errors.New("image exceeds size limit")
	// ErrNotAnImage means an attachment's media type is not image/*.
	ErrNotAnImage = errors.New("attachment is not an image")
	// ErrResponseTooLarge means the service sent more than the configured
	// response cap.
	ErrResponseTooLarge = errors.New("response exceeds size limit")
	// ErrItemNotFound means an id is not present in the cached list.
	ErrItemNotFound = errors.New("item not found")
)

// ErrorKind is the error taxonomy surfaced to the user.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindValidation failures are detected locally and never reach the network.
	KindValidation
	// KindRequest failures come from the catalog service or the transport.
	KindRequest
	// KindStaleState failures are service rejections of a bound the client
	// snapshotted earlier. They are displayed like request failures.
	KindStaleState
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRequest:
		return "request"
	case KindStaleState:
		return "stale_state"
	default:
		return "unknown"
	}
}

// ValidationError is a client-side rejection of user input.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RequestError is a failed call to the catalog or auth service.
type RequestError struct {
	Op      Operation
	Status  int
	Message string
	Stale   bool
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s request failed with status %d: %s", e.Op, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s request failed: %s", e.Op, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// KindOf classifies an error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return KindValidation
	}
	var rerr *RequestError
	if errors.As(err, &rerr) {
		if rerr.Stale {
			return KindStaleState
		}
		return KindRequest
	}
	return KindUnknown
}

// UserMessage returns the text to show on the surface that issued the action.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var rerr *RequestError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Please sign in to continue"
	case errors.Is(err, ErrForbiddenSurface):
		return "This action is not available for your account"
	case errors.Is(err, ErrSubmissionInFlight):
		return "Please wait for the current request to finish"
	case errors.Is(err, ErrNoActiveSurface):
		return "Nothing to confirm"
	}
	return err.Error()
}
