//go:build e2e
// +build e2e

package e2e_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ammerola/sweetshop/internal/adapters/catalogapi"
	redis_a "github.com/ammerola/sweetshop/internal/adapters/redis_adapter"
	"github.com/ammerola/sweetshop/internal/adapters/storage"
	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/services"
	"github.com/ammerola/sweetshop/test/helpers"
)

type CatalogE2ESuite struct {
	suite.Suite
	ctx       context.Context
	fake      *helpers.FakeCatalog
	testRedis *helpers.TestRedis

	sessions    *services.SessionManager
	store       *services.CatalogStore
	coordinator *services.Coordinator

	mu    sync.Mutex
	notes []string
}

func (s *CatalogE2ESuite) SetupTest() {
	s.ctx = context.Background()
	s.fake = helpers.NewFakeCatalog(s.T())
	s.fake.AddUser("admin@sweets.test", "pw", "admin")
	s.fake.AddUser("user@sweets.test", "pw", "user")
	s.testRedis = helpers.SetupTestRedis(s.T())
	s.notes = nil

	logger := helpers.TestLogger()
	cfg := catalogapi.Config{BaseURL: s.fake.URL(), Timeout: 5 * time.Second}

	auth, err := catalogapi.NewAuthClient(cfg, logger)
	s.Require().NoError(err)
	s.sessions = services.NewSessionManager(auth,
		redis_a.NewSessionStore(s.testRedis.Client, "e2e", "default", time.Hour, logger), logger)
	s.Require().NoError(s.sessions.Init(s.ctx))

	client, err := catalogapi.NewClient(cfg, s.sessions, logger)
	s.Require().NoError(err)

	s.store = services.NewCatalogStore(client, logger)
	notifier := services.NewNotifier(time.Minute, services.WithNotifyListener(func(n *domain.Notification) {
		if n == nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.notes = append(s.notes, n.Message)
	}))
	s.coordinator = services.NewCoordinator(s.store, s.sessions, storage.NewInlineImageStore(logger), notifier, logger)
}

func (s *CatalogE2ESuite) login(email string) {
	_, err := s.sessions.Login(s.ctx, email, "pw")
	s.Require().NoError(err)
	s.Require().NoError(s.coordinator.Refresh(s.ctx))
}

func (s *CatalogE2ESuite) lastNote() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notes) == 0 {
		return ""
	}
	return s.notes[len(s.notes)-1]
}

func (s *CatalogE2ESuite) item(id int) domain.Item {
	item, ok := s.store.Snapshot().Find(domain.ItemID(strconv.Itoa(id)))
	s.Require().True(ok, "item %d not in list", id)
	return item
}

func (s *CatalogE2ESuite) TestAdminCreatesItemWithImage() {
	s.login("admin@sweets.test")

	form, err := s.coordinator.OpenAdd()
	s.Require().NoError(err)
	for _, action := range []services.DraftAction{
		services.SetName{Value: "Kaju Katli"},
		services.SetCategory{Value: "Traditional"},
		services.SetPrice{Value: "25"},
		services.SetQuantity{Value: "10"},
		services.AttachImage{Image: helpers.TestImage(256)},
	} {
		s.Require().NoError(form.Dispatch(action))
	}

	s.Require().NoError(s.coordinator.Submit(s.ctx))
	s.Equal("Sweet created successfully", s.lastNote())
	s.Nil(s.coordinator.Active())

	items := s.store.Snapshot().Items
	s.Require().Len(items, 1)
	s.Equal("Kaju Katli", items[0].Name)
	s.Equal(10, items[0].Quantity)
	s.Contains(items[0].ImageURL, "data:image/png;base64,")
}

func (s *CatalogE2ESuite) TestCustomerPurchaseDecrementsStock() {
	id := s.fake.Seed("Kaju Katli", "Traditional", 25, 10)
	s.login("user@sweets.test")

	dialog, err := s.coordinator.OpenPurchase(s.item(id))
	s.Require().NoError(err)
	s.Require().NoError(dialog.SetQuantity(3))
	s.Require().NoError(s.coordinator.Submit(s.ctx))

	s.Equal("Purchased 3x Kaju Katli", s.lastNote())
	s.Equal(7, s.item(id).Quantity)
}

func (s *CatalogE2ESuite) TestAdminRestockAddsStock() {
	id := s.fake.Seed("Kaju Katli", "Traditional", 25, 2)
	s.login("admin@sweets.test")

	_, err := s.coordinator.OpenRestock(s.item(id))
	s.Require().NoError(err)
	s.Require().NoError(s.coordinator.Submit(s.ctx))

	s.Equal("Restocked 5x Kaju Katli", s.lastNote())
	s.Equal(7, s.item(id).Quantity)
	s.Equal("7 in stock", s.item(id).StockLabel())
}

func (s *CatalogE2ESuite) TestSearchByCategoryAndSort() {
	s.fake.Seed("Kaju Katli", "Traditional", 25, 10)
	s.fake.Seed("Saffron Pista Roll", "Premium", 60, 3)
	s.fake.Seed("Gold Leaf Barfi", "Premium", 90, 0)
	s.login("user@sweets.test")

	criteria, err := services.ParseCriteria("", "Premium", "", "")
	s.Require().NoError(err)
	s.Require().NoError(s.coordinator.Search(s.ctx, criteria))

	sorted := s.store.Snapshot().Sorted(domain.SortKey{Field: domain.SortByPrice, Direction: domain.Descending})
	s.Require().Len(sorted, 2)
	s.Equal("Gold Leaf Barfi", sorted[0].Name)
	s.Equal(domain.StockOut, sorted[0].StockLevel())
	s.Equal(domain.StockLow, sorted[1].StockLevel())

	_, err = s.coordinator.OpenPurchase(sorted[0])
	s.ErrorIs(err, domain.ErrOutOfStock)
}

func (s *CatalogE2ESuite) TestStaleStockRejectedByService() {
	id := s.fake.Seed("Kaju Katli", "Traditional", 25, 10)
	s.login("user@sweets.test")

	dialog, err := s.coordinator.OpenPurchase(s.item(id))
	s.Require().NoError(err)
	s.Require().NoError(dialog.SetQuantity(8))

	// Another client buys most of the stock.
	s.fake.SetQuantity(id, 2)

	err = s.coordinator.Submit(s.ctx)
	s.Require().Error(err)
	s.Equal(domain.KindStaleState, domain.KindOf(err))
	s.Equal("Insufficient stock", s.lastNote())
	s.Same(dialog, s.coordinator.Active())
}

func (s *CatalogE2ESuite) TestLatestFetchWins() {
	s.fake.Seed("Kaju Katli", "Traditional", 25, 10)
	s.fake.Seed("Saffron Pista Roll", "Premium", 60, 3)
	s.login("user@sweets.test")

	criteria, err := services.ParseCriteria("", "Premium", "", "")
	s.Require().NoError(err)

	// Both fetches are held so their responses can arrive in either order.
	release := s.fake.Hold()
	slow := make(chan error, 1)
	go func() { slow <- s.store.Refresh(s.ctx) }()
	helpers.AssertEventuallyWithTimeout(s.T(), func() bool {
		return s.fake.Calls("GET /api/sweets") == 2
	}, time.Second, "refresh should be in flight")

	fast := make(chan error, 1)
	go func() { fast <- s.store.Search(s.ctx, criteria) }()
	helpers.AssertEventuallyWithTimeout(s.T(), func() bool {
		return s.fake.Calls("GET /api/sweets/search") == 1
	}, time.Second, "search should be in flight")
	s.Equal(services.StatusLoading, s.store.Snapshot().Status)

	release()
	s.Require().NoError(<-slow)
	s.Require().NoError(<-fast)

	snap := s.store.Snapshot()
	s.Equal(services.StatusReady, snap.Status)
	s.Equal(domain.CategoryPremium, snap.Criteria.Category)
	s.Len(snap.Items, 1)
}

func (s *CatalogE2ESuite) TestSessionSurvivesRestartUntilLogout() {
	s.login("admin@sweets.test")

	restored := services.NewSessionManager(nil,
		redis_a.NewSessionStore(s.testRedis.Client, "e2e", "default", time.Hour, helpers.TestLogger()), helpers.TestLogger())
	s.Require().NoError(restored.Init(s.ctx))
	s.Equal(domain.RoleAdmin, restored.Role())

	s.Require().NoError(s.coordinator.Logout(s.ctx))
	s.Equal("Logged out", s.lastNote())

	fresh := services.NewSessionManager(nil,
		redis_a.NewSessionStore(s.testRedis.Client, "e2e", "default", time.Hour, helpers.TestLogger()), helpers.TestLogger())
	s.Require().NoError(fresh.Init(s.ctx))
	s.Empty(fresh.Token())
}

func TestCatalogE2ESuite(t *testing.T) {
	suite.Run(t, new(CatalogE2ESuite))
}
