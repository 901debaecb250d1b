// internal/core/ports/catalog.go
package ports

import (
	"context"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

// CatalogClient defines the port to the remote catalog service.
// This interface is implemented by the catalog API adapter.
type CatalogClient interface {
	ListAll(ctx context.Context) ([]domain.Item, error)
	Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Item, error)
	Create(ctx context.Context, input domain.ItemInput) (domain.Item, error)
	Update(ctx context.Context, id domain.ItemID, input domain.ItemInput) (domain.Item, error)
	Remove(ctx context.Context, id domain.ItemID) error
	Purchase(ctx context.Context, id domain.ItemID, quantity int) (domain.Item, error)
	Restock(ctx context.Context, id domain.ItemID, quantity int) (domain.Item, error)
}

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means no session.
type TokenSource interface {
	Token() string
}
