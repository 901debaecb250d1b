// internal/core/services/transaction.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

// DefaultRestockQuantity pre-fills the restock dialog.
const DefaultRestockQuantity = 5

// TransactionKind distinguishes purchases from restocks.
type TransactionKind string

const (
	TransactionPurchase TransactionKind = "purchase"
	TransactionRestock  TransactionKind = "restock"
)

// TransactionRequest is the working state of a purchase or restock dialog.
// Item is a snapshot taken when the dialog opened; its quantity bounds a
// purchase but may be stale by the time the request is confirmed.
type TransactionRequest struct {
	Kind     TransactionKind
	Item     domain.Item
	Quantity int
}

// MaxQuantity returns the upper bound, or 0 when unbounded.
func (r TransactionRequest) MaxQuantity() int {
	if r.Kind == TransactionPurchase {
		return r.Item.Quantity
	}
	return 0
}

// Check validates a requested quantity against the dialog's bounds.
func (r TransactionRequest) Check(quantity int) error {
	if quantity < 1 {
		return domain.NewValidationError("quantity", "Quantity must be at least 1")
	}
	if limit := r.MaxQuantity(); r.Kind == TransactionPurchase && quantity > limit {
		return domain.NewValidationError("quantity", fmt.Sprintf("Only %d available", limit))
	}
	return nil
}

// SuccessMessage names the quantity and item, e.g. "Purchased 3x Kaju Katli".
func (r TransactionRequest) SuccessMessage() string {
	verb := "Purchased"
	if r.Kind == TransactionRestock {
		verb = "Restocked"
	}
	return fmt.Sprintf("%s %dx %s", verb, r.Quantity, r.Item.Name)
}

// TransactionAction is a named transition of a TransactionRequest.
type TransactionAction interface {
	transactionAction()
}

type (
	// ChooseQuantity sets the requested quantity.
	ChooseQuantity struct{ Quantity int }
	// StepQuantity moves the requested quantity by Delta.
	StepQuantity struct{ Delta int }
)

func (ChooseQuantity) transactionAction() {}
func (StepQuantity) transactionAction()   {}

// ReduceTransaction applies an action. Quantities outside the bounds are
// rejected and the request is returned unchanged.
func ReduceTransaction(r TransactionRequest, action TransactionAction) (TransactionRequest, error) {
	var next int
	switch a := action.(type) {
	case ChooseQuantity:
		next = a.Quantity
	case StepQuantity:
		next = r.Quantity + a.Delta
	default:
		return r, fmt.Errorf("unknown transaction action %T", action)
	}
	if err := r.Check(next); err != nil {
		return r, err
	}
	r.Quantity = next
	return r, nil
}

// ParseQuantity reads a quantity typed by the user.
func ParseQuantity(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &domain.ValidationError{Field: "quantity", Message: "Quantity must be a whole number", Err: err}
	}
	return n, nil
}

// TransactionDialog drives a purchase or restock from open to confirm.
type TransactionDialog struct {
	store  *CatalogStore
	logger *slog.Logger

	mu   sync.Mutex
	req  TransactionRequest
	err  error
	busy bool
}

// NewPurchaseDialog opens a purchase of one unit. Items without stock cannot
// be purchased.
func NewPurchaseDialog(store *CatalogStore, item domain.Item, logger *slog.Logger) (*TransactionDialog, error) {
	if !item.InStock() {
		return nil, &domain.ValidationError{Field: "quantity", Message: "Out of stock", Err: domain.ErrOutOfStock}
	}
	return newTransactionDialog(store, TransactionRequest{
		Kind:     TransactionPurchase,
		Item:     item,
		Quantity: 1,
	}, logger), nil
}

// NewRestockDialog opens a restock pre-filled with defaultQty units.
func NewRestockDialog(store *CatalogStore, item domain.Item, defaultQty int, logger *slog.Logger) *TransactionDialog {
	if defaultQty < 1 {
		defaultQty = DefaultRestockQuantity
	}
	return newTransactionDialog(store, TransactionRequest{
		Kind:     TransactionRestock,
		Item:     item,
		Quantity: defaultQty,
	}, logger)
}

func newTransactionDialog(store *CatalogStore, req TransactionRequest, logger *slog.Logger) *TransactionDialog {
	return &TransactionDialog{
		store:  store,
		logger: logger.With(slog.String("component", "transaction"), slog.String("kind", string(req.Kind))),
		req:    req,
	}
}

// Request returns the current working state.
func (t *TransactionDialog) Request() TransactionRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.req
}

// Err returns the error shown in the dialog, if any.
func (t *TransactionDialog) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Busy reports whether a confirm is in flight.
func (t *TransactionDialog) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// Dispatch applies an action to the request.
func (t *TransactionDialog) Dispatch(action TransactionAction) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.busy {
		return domain.ErrSubmissionInFlight
	}
	next, err := ReduceTransaction(t.req, action)
	if err != nil {
		t.err = err
		return err
	}
	t.req = next
	t.err = nil
	return nil
}

// SetQuantity is shorthand for dispatching ChooseQuantity.
func (t *TransactionDialog) SetQuantity(n int) error {
	return t.Dispatch(ChooseQuantity{Quantity: n})
}

// Confirm issues the purchase or restock. It returns the success message.
func (t *TransactionDialog) Confirm(ctx context.Context) (string, error) {
	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		return "", domain.ErrSubmissionInFlight
	}
	req := t.req
	if err := req.Check(req.Quantity); err != nil {
		t.err = err
		t.mu.Unlock()
		return "", err
	}
	t.busy = true
	t.err = nil
	t.mu.Unlock()

	var err error
	switch req.Kind {
	case TransactionPurchase:
		_, err = t.store.Purchase(ctx, req.Item.ID, req.Quantity)
	case TransactionRestock:
		_, err = t.store.Restock(ctx, req.Item.ID, req.Quantity)
	default:
		err = fmt.Errorf("unknown transaction kind %q", req.Kind)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.busy = false
	if err != nil {
		t.err = err
		return "", err
	}

	t.logger.InfoContext(ctx, "transaction confirmed",
		slog.String("item_id", req.Item.ID.String()),
		slog.Int("quantity", req.Quantity))
	return req.SuccessMessage(), nil
}
