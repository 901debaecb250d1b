// internal/adapters/catalogapi/client.go
package catalogapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
)

const sweetsPath = "/api/sweets"

// Client implements ports.CatalogClient over the catalog service's REST API.
// It holds no cache.
type Client struct {
	t      *transport
	tokens ports.TokenSource
}

// Statically assert that *Client implements the CatalogClient interface.
var _ ports.CatalogClient = (*Client)(nil)

// NewClient creates a catalog client. tokens supplies the bearer token for
// each request and may be nil for unauthenticated use.
func NewClient(cfg Config, tokens ports.TokenSource, logger *slog.Logger) (*Client, error) {
	t, err := newTransport(cfg, logger.With(slog.String("adapter", "catalog")))
	if err != nil {
		return nil, err
	}
	return &Client{t: t, tokens: tokens}, nil
}

type itemPayload struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	ImageURL *string `json:"image_url"`
}

func newItemPayload(in domain.ItemInput) itemPayload {
	p := itemPayload{
		Name:     in.Name,
		Category: string(in.Category),
		Price:    in.Price.InexactFloat64(),
		Quantity: in.Quantity,
	}
	if in.ImageURL != "" {
		ref := in.ImageURL
		p.ImageURL = &ref
	}
	return p
}

type quantityPayload struct {
	Quantity int `json:"quantity"`
}

// ListAll fetches every item.
func (c *Client) ListAll(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	if err := c.t.do(ctx, c.call(domain.OpList, http.MethodGet, sweetsPath, nil), &items); err != nil {
		return nil, err
	}
	return checkItems(domain.OpList, items)
}

// Search fetches the items matching criteria. Only present fields are sent.
func (c *Client) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Item, error) {
	req := c.call(domain.OpSearch, http.MethodGet, sweetsPath+"/search", nil)
	req.query = domain.BuildQuery(criteria)

	var items []domain.Item
	if err := c.t.do(ctx, req, &items); err != nil {
		return nil, err
	}
	return checkItems(domain.OpSearch, items)
}

// Create adds an item.
func (c *Client) Create(ctx context.Context, input domain.ItemInput) (domain.Item, error) {
	var item domain.Item
	if err := c.t.do(ctx, c.call(domain.OpCreate, http.MethodPost, sweetsPath, newItemPayload(input)), &item); err != nil {
		return domain.Item{}, err
	}
	return checkItem(domain.OpCreate, item)
}

// Update replaces the fields of item id.
func (c *Client) Update(ctx context.Context, id domain.ItemID, input domain.ItemInput) (domain.Item, error) {
	var item domain.Item
	if err := c.t.do(ctx, c.call(domain.OpUpdate, http.MethodPut, itemPath(id), newItemPayload(input)), &item); err != nil {
		return domain.Item{}, err
	}
	return checkItem(domain.OpUpdate, item)
}

// Remove deletes item id.
func (c *Client) Remove(ctx context.Context, id domain.ItemID) error {
	return c.t.do(ctx, c.call(domain.OpRemove, http.MethodDelete, itemPath(id), nil), nil)
}

// Purchase buys quantity units of item id.
func (c *Client) Purchase(ctx context.Context, id domain.ItemID, quantity int) (domain.Item, error) {
	var item domain.Item
	req := c.call(domain.OpPurchase, http.MethodPost, itemPath(id)+"/purchase", quantityPayload{Quantity: quantity})
	if err := c.t.do(ctx, req, &item); err != nil {
		return domain.Item{}, err
	}
	return checkItem(domain.OpPurchase, item)
}

// Restock adds quantity units to item id.
func (c *Client) Restock(ctx context.Context, id domain.ItemID, quantity int) (domain.Item, error) {
	var item domain.Item
	req := c.call(domain.OpRestock, http.MethodPost, itemPath(id)+"/restock", quantityPayload{Quantity: quantity})
	if err := c.t.do(ctx, req, &item); err != nil {
		return domain.Item{}, err
	}
	return checkItem(domain.OpRestock, item)
}

func (c *Client) call(op domain.Operation, method, path string, body any) call {
	var token string
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	return call{op: op, method: method, path: path, token: token, body: body}
}

func itemPath(id domain.ItemID) string {
	return sweetsPath + "/" + url.PathEscape(id.String())
}

// checkItem rejects items that break client invariants, such as a negative
// quantity. Those are protocol errors and never reach the store.
func checkItem(op domain.Operation, item domain.Item) (domain.Item, error) {
	if item.ID == "" {
		// Some deployments answer mutations with a bare confirmation.
		return item, nil
	}
	if err := item.Validate(); err != nil {
		return domain.Item{}, &domain.RequestError{
			Op:      op,
			Message: op.FallbackMessage(),
			Err:     fmt.Errorf("invalid item in response: %w", err),
		}
	}
	return item, nil
}

func checkItems(op domain.Operation, items []domain.Item) ([]domain.Item, error) {
	if items == nil {
		return []domain.Item{}, nil
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, &domain.RequestError{
				Op:      op,
				Message: op.FallbackMessage(),
				Err:     fmt.Errorf("invalid item in response: %w", err),
			}
		}
	}
	return items, nil
}
