// internal/adapters/catalogapi/auth.go
package catalogapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
)

// AuthClient implements ports.AuthClient against the service's auth routes.
type AuthClient struct {
	t *transport
}

// Statically assert that *AuthClient implements the AuthClient interface.
var _ ports.AuthClient = (*AuthClient)(nil)

// NewAuthClient creates an auth client. It never sends a bearer token.
func NewAuthClient(cfg Config, logger *slog.Logger) (*AuthClient, error) {
	t, err := newTransport(cfg, logger.With(slog.String("adapter", "auth")))
	if err != nil {
		return nil, err
	}
	return &AuthClient{t: t}, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

// Login exchanges credentials for a token.
func (a *AuthClient) Login(ctx context.Context, email, password string) (domain.AuthResult, error) {
	return a.exchange(ctx, domain.OpLogin, "/api/auth/login", credentials{Email: email, Password: password})
}

// Register creates an account with role and returns its token.
func (a *AuthClient) Register(ctx context.Context, email, password string, role domain.Role) (domain.AuthResult, error) {
	return a.exchange(ctx, domain.OpRegister, "/api/auth/register", credentials{
		Email:    email,
		Password: password,
		Role:     role.WireName(),
	})
}

func (a *AuthClient) exchange(ctx context.Context, op domain.Operation, path string, body credentials) (domain.AuthResult, error) {
	var resp tokenResponse
	if err := a.t.do(ctx, call{op: op, method: http.MethodPost, path: path, body: body}, &resp); err != nil {
		return domain.AuthResult{}, err
	}
	if resp.AccessToken == "" {
		return domain.AuthResult{}, &domain.RequestError{
			Op:      op,
			Message: op.FallbackMessage(),
			Err:     fmt.Errorf("response carried no access token"),
		}
	}

	result := domain.AuthResult{Token: resp.AccessToken}
	if resp.Role != "" {
		role, err := domain.ParseRole(resp.Role)
		if err != nil {
			return domain.AuthResult{}, &domain.RequestError{Op: op, Message: op.FallbackMessage(), Err: err}
		}
		result.Role = role
	}
	return result, nil
}
