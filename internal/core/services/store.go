// internal/core/services/store.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
)

// Status is the load state of the catalog store.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is an immutable view of the store.
type Snapshot struct {
	Status    Status
	Items     []domain.Item
	Err       string
	Criteria  domain.SearchCriteria
	Seq       uint64
	FetchedAt time.Time
}

// Find looks an item up by id.
func (s Snapshot) Find(id domain.ItemID) (domain.Item, bool) {
	return domain.FindItem(s.Items, id)
}

// Sorted returns the items ordered by key.
func (s Snapshot) Sorted(key domain.SortKey) []domain.Item {
	return Sort(s.Items, key)
}

// CatalogStore owns the cached item list. It is the only component that
// calls the catalog client for list-affecting operations, and it replaces the
// list wholesale after every confirmed mutation.
type CatalogStore struct {
	client ports.CatalogClient
	logger *slog.Logger
	now    func() time.Time

	issued atomic.Uint64

	// emitMu serializes listener deliveries; see emit.
	emitMu sync.Mutex

	mu        sync.RWMutex
	snap      Snapshot
	listeners []func(Snapshot)
}

// NewCatalogStore creates an idle store.
func NewCatalogStore(client ports.CatalogClient, logger *slog.Logger) *CatalogStore {
	return &CatalogStore{
		client: client,
		logger: logger.With(slog.String("component", "catalog_store")),
		now:    time.Now,
	}
}

// OnChange registers a listener called after every state transition.
func (s *CatalogStore) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns the current state. The item slice is a copy.
func (s *CatalogStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Items = slices.Clone(s.snap.Items)
	return snap
}

// Refresh re-fetches the full list from the service.
func (s *CatalogStore) Refresh(ctx context.Context) error {
	return s.load(ctx, domain.OpList, domain.SearchCriteria{}, func(ctx context.Context) ([]domain.Item, error) {
		return s.client.ListAll(ctx)
	})
}

// Search fetches the items matching criteria. Empty criteria list everything.
func (s *CatalogStore) Search(ctx context.Context, criteria domain.SearchCriteria) error {
	if criteria.IsEmpty() {
		return s.Refresh(ctx)
	}
	return s.load(ctx, domain.OpSearch, criteria, func(ctx context.Context) ([]domain.Item, error) {
		return s.client.Search(ctx, criteria)
	})
}

// load runs a list-replacing fetch. Each fetch gets a sequence number; a
// response is adopted only if no newer one was adopted before it, so the
// latest issued fetch always wins.
func (s *CatalogStore) load(ctx context.Context, op domain.Operation, criteria domain.SearchCriteria,
	fetch func(context.Context) ([]domain.Item, error)) error {

	seq := s.issued.Add(1)

	s.mu.Lock()
	s.snap.Status = StatusLoading
	s.snap.Err = ""
	s.mu.Unlock()
	s.emit()

	items, err := fetch(ctx)

	s.mu.Lock()
	if seq <= s.snap.Seq {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "discarding stale catalog response",
			slog.String("op", string(op)),
			slog.Uint64("seq", seq))
		return nil
	}

	status := StatusReady
	if err != nil {
		status = StatusError
	}
	// A newer fetch is still outstanding; keep showing the loading state.
	if seq < s.issued.Load() {
		status = StatusLoading
	}

	if err != nil {
		s.snap = Snapshot{
			Status:    status,
			Items:     s.snap.Items,
			Err:       domain.UserMessage(err),
			Criteria:  s.snap.Criteria,
			Seq:       seq,
			FetchedAt: s.snap.FetchedAt,
		}
	} else {
		s.snap = Snapshot{
			Status:    status,
			Items:     items,
			Criteria:  criteria,
			Seq:       seq,
			FetchedAt: s.now(),
		}
	}
	s.mu.Unlock()
	s.emit()

	if err != nil {
		s.logger.WarnContext(ctx, "catalog fetch failed",
			slog.String("op", string(op)),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to %s catalog: %w", op, err)
	}

	s.logger.DebugContext(ctx, "catalog fetched",
		slog.String("op", string(op)),
		slog.Int("count", len(items)),
		slog.Uint64("seq", seq))
	return nil
}

// Create adds an item and refreshes the list.
func (s *CatalogStore) Create(ctx context.Context, input domain.ItemInput) (domain.Item, error) {
	item, err := s.client.Create(ctx, input)
	if err != nil {
		return domain.Item{}, s.mutationFailed(ctx, domain.OpCreate, "", err)
	}
	s.mutationSucceeded(ctx, domain.OpCreate, item.ID)
	return item, nil
}

// Update replaces an item's fields and refreshes the list.
func (s *CatalogStore) Update(ctx context.Context, id domain.ItemID, input domain.ItemInput) (domain.Item, error) {
	item, err := s.client.Update(ctx, id, input)
	if err != nil {
		return domain.Item{}, s.mutationFailed(ctx, domain.OpUpdate, id, err)
	}
	s.mutationSucceeded(ctx, domain.OpUpdate, id)
	return item, nil
}

// Remove deletes an item and refreshes the list.
func (s *CatalogStore) Remove(ctx context.Context, id domain.ItemID) error {
	if err := s.client.Remove(ctx, id); err != nil {
		return s.mutationFailed(ctx, domain.OpRemove, id, err)
	}
	s.mutationSucceeded(ctx, domain.OpRemove, id)
	return nil
}

// Purchase buys quantity units and refreshes the list. The service decides
// whether enough stock remains.
func (s *CatalogStore) Purchase(ctx context.Context, id domain.ItemID, quantity int) (domain.Item, error) {
	if quantity < 1 {
		return domain.Item{}, domain.NewValidationError("quantity", "Quantity must be at least 1")
	}
	item, err := s.client.Purchase(ctx, id, quantity)
	if err != nil {
		return domain.Item{}, s.mutationFailed(ctx, domain.OpPurchase, id, err)
	}
	s.mutationSucceeded(ctx, domain.OpPurchase, id)
	return item, nil
}

// Restock adds quantity units and refreshes the list.
func (s *CatalogStore) Restock(ctx context.Context, id domain.ItemID, quantity int) (domain.Item, error) {
	if quantity < 1 {
		return domain.Item{}, domain.NewValidationError("quantity", "Quantity must be at least 1")
	}
	item, err := s.client.Restock(ctx, id, quantity)
	if err != nil {
		return domain.Item{}, s.mutationFailed(ctx, domain.OpRestock, id, err)
	}
	s.mutationSucceeded(ctx, domain.OpRestock, id)
	return item, nil
}

// mutationFailed leaves the cached list untouched.
func (s *CatalogStore) mutationFailed(ctx context.Context, op domain.Operation, id domain.ItemID, err error) error {
	s.logger.WarnContext(ctx, "catalog mutation failed",
		slog.String("op", string(op)),
		slog.String("item_id", id.String()),
		slog.String("kind", domain.KindOf(err).String()),
		slog.String("error", err.Error()))
	return fmt.Errorf("failed to %s item: %w", op, err)
}

// mutationSucceeded re-fetches the canonical list. A failed refresh leaves the
// store in the error state but does not undo the confirmed mutation.
func (s *CatalogStore) mutationSucceeded(ctx context.Context, op domain.Operation, id domain.ItemID) {
	s.logger.InfoContext(ctx, "catalog mutation confirmed",
		slog.String("op", string(op)),
		slog.String("item_id", id.String()))

	if err := s.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "refresh after mutation failed",
			slog.String("op", string(op)),
			slog.String("error", err.Error()))
	}
}

// emit hands listeners the snapshot as it stands once the previous delivery
// has finished, so a slow listener can never receive a Loading snapshot after
// the Ready one that superseded it.
func (s *CatalogStore) emit() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.RLock()
	snap := s.snap
	snap.Items = slices.Clone(s.snap.Items)
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
