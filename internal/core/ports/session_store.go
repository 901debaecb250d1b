// internal/core/ports/session_store.go
package ports

import (
	"context"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

// SessionStore is the durable key-value storage holding the session across
// restarts. Load returns domain.ErrNoSession when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Clear(ctx context.Context) error
}
