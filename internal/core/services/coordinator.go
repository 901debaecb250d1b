// internal/core/services/coordinator.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
)

// SurfaceKind names the interactive surfaces.
type SurfaceKind string

const (
	SurfaceForm     SurfaceKind = "form"
	SurfacePurchase SurfaceKind = "purchase"
	SurfaceRestock  SurfaceKind = "restock"
	SurfaceDelete   SurfaceKind = "delete"
)

// Surface is the single active form or dialog. The set of implementations is
// closed: *FormSurface, *PurchaseSurface, *RestockSurface and *DeleteSurface.
type Surface interface {
	Kind() SurfaceKind
	Busy() bool
	Err() error
	isSurface()
}

// FormSurface is the add/edit form.
type FormSurface struct{ *FormController }

// PurchaseSurface is the purchase dialog.
type PurchaseSurface struct{ *TransactionDialog }

// RestockSurface is the restock dialog.
type RestockSurface struct{ *TransactionDialog }

func (*FormSurface) Kind() SurfaceKind     { return SurfaceForm }
func (*PurchaseSurface) Kind() SurfaceKind { return SurfacePurchase }
func (*RestockSurface) Kind() SurfaceKind  { return SurfaceRestock }

func (*FormSurface) isSurface()     {}
func (*PurchaseSurface) isSurface() {}
func (*RestockSurface) isSurface()  {}

// DeleteSurface is the delete confirmation. It holds only the target id.
type DeleteSurface struct {
	ID domain.ItemID

	mu   sync.Mutex
	err  error
	busy bool
}

func (*DeleteSurface) Kind() SurfaceKind { return SurfaceDelete }
func (*DeleteSurface) isSurface()        {}

// Busy reports whether the removal is in flight.
func (d *DeleteSurface) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Err returns the error shown in the confirmation, if any.
func (d *DeleteSurface) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *DeleteSurface) confirm(ctx context.Context, store *CatalogStore) error {
	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return domain.ErrSubmissionInFlight
	}
	d.busy = true
	d.err = nil
	d.mu.Unlock()

	err := store.Remove(ctx, d.ID)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
	d.err = err
	return err
}

// SessionContext is the signed-in state the coordinator gates on.
type SessionContext interface {
	Current() (domain.Session, bool)
	Logout(ctx context.Context) error
}

// Capabilities lists which surfaces the current role may open.
type Capabilities struct {
	Add      bool
	Edit     bool
	Delete   bool
	Restock  bool
	Purchase bool
}

// CapabilitiesFor maps a role to its capabilities.
func CapabilitiesFor(role domain.Role) Capabilities {
	switch role {
	case domain.RoleAdmin:
		return Capabilities{Add: true, Edit: true, Delete: true, Restock: true}
	case domain.RoleCustomer:
		return Capabilities{Purchase: true}
	}
	return Capabilities{}
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithRestockDefault sets the quantity a restock dialog opens with.
func WithRestockDefault(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.restockDefault = n
		}
	}
}

// Coordinator arbitrates which surface is active. Opening a surface replaces
// whatever was open; a completed submission closes its surface and emits a
// notification.
type Coordinator struct {
	store          *CatalogStore
	session        SessionContext
	images         ports.ImageStore
	notifier       *Notifier
	logger         *slog.Logger
	restockDefault int

	mu     sync.Mutex
	active Surface
}

// NewCoordinator wires the coordinator.
func NewCoordinator(store *CatalogStore, session SessionContext, images ports.ImageStore,
	notifier *Notifier, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {

	c := &Coordinator{
		store:          store,
		session:        session,
		images:         images,
		notifier:       notifier,
		logger:         logger.With(slog.String("component", "coordinator")),
		restockDefault: DefaultRestockQuantity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the catalog store.
func (c *Coordinator) Store() *CatalogStore {
	return c.store
}

// Notifier returns the notification slot.
func (c *Coordinator) Notifier() *Notifier {
	return c.notifier
}

// Capabilities returns what the signed-in role may do. Signed-out sessions
// may do nothing.
func (c *Coordinator) Capabilities() Capabilities {
	session, ok := c.session.Current()
	if !ok {
		return Capabilities{}
	}
	return CapabilitiesFor(session.Role)
}

// Active returns the open surface, or nil.
func (c *Coordinator) Active() Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// OpenAdd opens an empty create form.
func (c *Coordinator) OpenAdd() (*FormSurface, error) {
	if err := c.require(func(caps Capabilities) bool { return caps.Add }); err != nil {
		return nil, err
	}
	s := &FormSurface{NewFormController(c.store, c.images, NewDraft(), c.logger)}
	c.activate(s)
	return s, nil
}

// OpenEdit opens the form seeded from item.
func (c *Coordinator) OpenEdit(item domain.Item) (*FormSurface, error) {
	if err := c.require(func(caps Capabilities) bool { return caps.Edit }); err != nil {
		return nil, err
	}
	s := &FormSurface{NewFormController(c.store, c.images, DraftFromItem(item), c.logger)}
	c.activate(s)
	return s, nil
}

// OpenPurchase opens the purchase dialog with the item's current stock as
// the upper bound.
func (c *Coordinator) OpenPurchase(item domain.Item) (*PurchaseSurface, error) {
	if err := c.require(func(caps Capabilities) bool { return caps.Purchase }); err != nil {
		return nil, err
	}
	dialog, err := NewPurchaseDialog(c.store, item, c.logger)
	if err != nil {
		return nil, err
	}
	s := &PurchaseSurface{dialog}
	c.activate(s)
	return s, nil
}

// OpenRestock opens the restock dialog.
func (c *Coordinator) OpenRestock(item domain.Item) (*RestockSurface, error) {
	if err := c.require(func(caps Capabilities) bool { return caps.Restock }); err != nil {
		return nil, err
	}
	s := &RestockSurface{NewRestockDialog(c.store, item, c.restockDefault, c.logger)}
	c.activate(s)
	return s, nil
}

// OpenDelete opens the delete confirmation for id.
func (c *Coordinator) OpenDelete(id domain.ItemID) (*DeleteSurface, error) {
	if err := c.require(func(caps Capabilities) bool { return caps.Delete }); err != nil {
		return nil, err
	}
	s := &DeleteSurface{ID: id}
	c.activate(s)
	return s, nil
}

// Close dismisses the active surface, discarding its working state.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
}

// Submit confirms the active surface. On success the surface closes, if it
// is still the active one, and a success notification is shown. On failure
// the surface stays open with its error.
func (c *Coordinator) Submit(ctx context.Context) error {
	surface := c.Active()
	if surface == nil {
		return domain.ErrNoActiveSurface
	}
	if _, ok := c.session.Current(); !ok {
		c.Close()
		return domain.ErrUnauthenticated
	}

	var (
		message string
		err     error
	)
	switch s := surface.(type) {
	case *FormSurface:
		mode := s.Draft().Mode()
		if _, err = s.Submit(ctx); err == nil {
			message = mode.SuccessMessage()
		}
	case *PurchaseSurface:
		message, err = s.Confirm(ctx)
	case *RestockSurface:
		message, err = s.Confirm(ctx)
	case *DeleteSurface:
		if err = s.confirm(ctx, c.store); err == nil {
			message = "Sweet deleted successfully"
		}
	default:
		return fmt.Errorf("unsupported surface %T", surface)
	}

	if err != nil {
		c.fail(ctx, surface.Kind(), err)
		return err
	}

	c.mu.Lock()
	if c.active == surface {
		c.active = nil
	}
	c.mu.Unlock()

	c.notifier.Success(message)
	return nil
}

// Refresh reloads the catalog, reporting failures as notifications.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if err := c.store.Refresh(ctx); err != nil {
		c.fail(ctx, "", err)
		return err
	}
	return nil
}

// Search runs a catalog search, reporting failures as notifications.
func (c *Coordinator) Search(ctx context.Context, criteria domain.SearchCriteria) error {
	if err := c.store.Search(ctx, criteria); err != nil {
		c.fail(ctx, "", err)
		return err
	}
	return nil
}

// Logout closes any surface and tears the session down.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.Close()
	if err := c.session.Logout(ctx); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	c.notifier.Notify("Logged out", domain.SeverityInfo)
	return nil
}

func (c *Coordinator) fail(ctx context.Context, kind SurfaceKind, err error) {
	switch {
	case errors.Is(err, domain.ErrSubmissionInFlight):
		return
	case errors.Is(err, domain.ErrUnauthenticated):
		c.logger.WarnContext(ctx, "session rejected by service")
		c.Close()
		if lerr := c.session.Logout(ctx); lerr != nil {
			c.logger.ErrorContext(ctx, "failed to clear rejected session", slog.String("error", lerr.Error()))
		}
		c.notifier.Error("Session expired, please sign in again")
		return
	case domain.KindOf(err) == domain.KindValidation:
		// Shown inline on the surface.
		return
	}

	c.logger.WarnContext(ctx, "action failed",
		slog.String("surface", string(kind)),
		slog.String("kind", domain.KindOf(err).String()),
		slog.String("error", err.Error()))
	c.notifier.Error(domain.UserMessage(err))
}

func (c *Coordinator) require(allowed func(Capabilities) bool) error {
	session, ok := c.session.Current()
	if !ok {
		return domain.ErrUnauthenticated
	}
	if !allowed(CapabilitiesFor(session.Role)) {
		return domain.ErrForbiddenSurface
	}
	return nil
}

func (c *Coordinator) activate(s Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.logger.Debug("replacing active surface",
			slog.String("from", string(c.active.Kind())),
			slog.String("to", string(s.Kind())))
	}
	c.active = s
}
