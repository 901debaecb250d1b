// internal/core/ports/auth.go
package ports

import (
	"context"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

// AuthClient exchanges credentials for a token and role.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (domain.AuthResult, error)
	Register(ctx context.Context, email, password string, role domain.Role) (domain.AuthResult, error)
}
