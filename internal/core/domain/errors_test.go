package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

func TestKindOfAndUserMessage(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedKind domain.ErrorKind
		expectedMsg  string
	}{
		{name: "nil", err: nil, expectedKind: domain.KindUnknown, expectedMsg: ""},
		{
			name:         "validation",
			err:          domain.NewValidationError("price", "Price must be a number"),
			expectedKind: domain.KindValidation,
			expectedMsg:  "Price must be a number",
		},
		{
			name:         "wrapped_validation",
			err:          fmt.Errorf("failed to submit: %w", domain.NewValidationError("name", "Name is required")),
			expectedKind: domain.KindValidation,
			expectedMsg:  "Name is required",
		},
		{
			name:         "request",
			err:          &domain.RequestError{Op: domain.OpCreate, Status: 403, Message: "Admin access required"},
			expectedKind: domain.KindRequest,
			expectedMsg:  "Admin access required",
		},
		{
			name:         "stale",
			err:          &domain.RequestError{Op: domain.OpPurchase, Status: 400, Message: "Insufficient stock", Stale: true},
			expectedKind: domain.KindStaleState,
			expectedMsg:  "Insufficient stock",
		},
		{
			name:         "unauthenticated_sentinel",
			err:          domain.ErrUnauthenticated,
			expectedKind: domain.KindUnknown,
			expectedMsg:  "Please sign in to continue",
		},
		{
			name:         "forbidden_sentinel",
			err:          domain.ErrForbiddenSurface,
			expectedKind: domain.KindUnknown,
			expectedMsg:  "This action is not available for your account",
		},
		{
			name:         "plain_error",
			err:          errors.New("boom"),
			expectedKind: domain.KindUnknown,
			expectedMsg:  "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedKind, domain.KindOf(tt.err))
			assert.Equal(t, tt.expectedMsg, domain.UserMessage(tt.err))
		})
	}
}

func TestRequestError_Error(t *testing.T) {
	withStatus := &domain.RequestError{Op: domain.OpRemove, Status: 404, Message: "Sweet not found"}
	assert.Equal(t, "remove request failed with status 404: Sweet not found", withStatus.Error())

	transport := &domain.RequestError{Op: domain.OpList, Message: "Failed to load sweets", Err: errors.New("connection refused")}
	assert.Equal(t, "list request failed: Failed to load sweets: connection refused", transport.Error())
	assert.Equal(t, domain.KindRequest, domain.KindOf(transport))
}

func TestRequestError_UnwrapsUnauthenticated(t *testing.T) {
	err := fmt.Errorf("failed to restock: %w", &domain.RequestError{
		Op:      domain.OpRestock,
		Status:  401,
		Message: "Could not validate credentials",
		Err:     domain.ErrUnauthenticated,
	})

	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
	assert.Equal(t, "Could not validate credentials", domain.UserMessage(err))
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "validation failed for name: Name is required", domain.NewValidationError("name", "Name is required").Error())
	assert.Equal(t, "validation failed: bad input", domain.NewValidationError("", "bad input").Error())
}

func TestOperation(t *testing.T) {
	assert.Equal(t, "Failed to load sweets", domain.OpList.FallbackMessage())
	assert.Equal(t, "Save failed", domain.OpUpdate.FallbackMessage())
	assert.Equal(t, "Request failed", domain.Operation("other").FallbackMessage())

	assert.True(t, domain.OpPurchase.Mutating())
	assert.True(t, domain.OpRemove.Mutating())
	assert.False(t, domain.OpSearch.Mutating())
	assert.False(t, domain.OpLogin.Mutating())
}
