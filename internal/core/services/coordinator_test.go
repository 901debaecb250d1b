package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/services"
	"github.com/ammerola/sweetshop/test/helpers"
	"github.com/ammerola/sweetshop/test/mocks"
)

type fakeSession struct {
	mu        sync.Mutex
	session   *domain.Session
	loggedOut int
}

func signedIn(role domain.Role) *fakeSession {
	return &fakeSession{session: &domain.Session{Token: "tok", Role: role}}
}

func (f *fakeSession) Current() (domain.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return domain.Session{}, false
	}
	return *f.session, true
}

func (f *fakeSession) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = nil
	f.loggedOut++
	return nil
}

type coordinatorFixture struct {
	coord   *services.Coordinator
	client  *mocks.MockCatalogClient
	images  *mocks.MockImageStore
	session *fakeSession
	clock   *fakeClock
}

func newCoordinator(t *testing.T, session *fakeSession, opts ...services.CoordinatorOption) coordinatorFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockCatalogClient(ctrl)
	images := mocks.NewMockImageStore(ctrl)
	clock := &fakeClock{}

	store := services.NewCatalogStore(client, helpers.TestLogger())
	notifier := services.NewNotifier(time.Second, services.WithAfterFunc(clock.after))
	coord := services.NewCoordinator(store, session, images, notifier, helpers.TestLogger(), opts...)

	return coordinatorFixture{coord: coord, client: client, images: images, session: session, clock: clock}
}

func TestCapabilitiesFor(t *testing.T) {
	assert.Equal(t, services.Capabilities{Add: true, Edit: true, Delete: true, Restock: true}, services.CapabilitiesFor(domain.RoleAdmin))
	assert.Equal(t, services.Capabilities{Purchase: true}, services.CapabilitiesFor(domain.RoleCustomer))
	assert.Equal(t, services.Capabilities{}, services.CapabilitiesFor(""))
}

func TestCoordinator_RoleGating(t *testing.T) {
	item := helpers.CreateTestItem()

	open := map[string]func(*services.Coordinator) error{
		"add":      func(c *services.Coordinator) error { _, err := c.OpenAdd(); return err },
		"edit":     func(c *services.Coordinator) error { _, err := c.OpenEdit(item); return err },
		"delete":   func(c *services.Coordinator) error { _, err := c.OpenDelete(item.ID); return err },
		"restock":  func(c *services.Coordinator) error { _, err := c.OpenRestock(item); return err },
		"purchase": func(c *services.Coordinator) error { _, err := c.OpenPurchase(item); return err },
	}

	tests := []struct {
		name    string
		session *fakeSession
		allowed map[string]bool
		denied  error
	}{
		{
			name:    "admin",
			session: signedIn(domain.RoleAdmin),
			allowed: map[string]bool{"add": true, "edit": true, "delete": true, "restock": true},
			denied:  domain.ErrForbiddenSurface,
		},
		{
			name:    "customer",
			session: signedIn(domain.RoleCustomer),
			allowed: map[string]bool{"purchase": true},
			denied:  domain.ErrForbiddenSurface,
		},
		{
			name:    "signed_out",
			session: &fakeSession{},
			allowed: map[string]bool{},
			denied:  domain.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinator(t, tt.session)

			for surface, fn := range open {
				err := fn(f.coord)
				if tt.allowed[surface] {
					assert.NoError(t, err, surface)
				} else {
					assert.ErrorIs(t, err, tt.denied, surface)
				}
			}
		})
	}
}

func TestCoordinator_SingleActiveSurface(t *testing.T) {
	f := newCoordinator(t, signedIn(domain.RoleAdmin))
	item := helpers.CreateTestItem()

	form, err := f.coord.OpenEdit(item)
	require.NoError(t, err)
	assert.Same(t, form, f.coord.Active())

	restock, err := f.coord.OpenRestock(item)
	require.NoError(t, err)
	assert.Same(t, restock, f.coord.Active(), "opening a surface replaces the previous one")
	assert.Equal(t, services.SurfaceRestock, f.coord.Active().Kind())

	f.coord.Close()
	assert.Nil(t, f.coord.Active())
	assert.ErrorIs(t, f.coord.Submit(context.Background()), domain.ErrNoActiveSurface)
}

func TestCoordinator_RestockDefault(t *testing.T) {
	f := newCoordinator(t, signedIn(domain.RoleAdmin), services.WithRestockDefault(12))

	s, err := f.coord.OpenRestock(helpers.CreateTestItem())
	require.NoError(t, err)
	assert.Equal(t, 12, s.Request().Quantity)
}

func TestCoordinator_PurchaseOutOfStockNotOpened(t *testing.T) {
	f := newCoordinator(t, signedIn(domain.RoleCustomer))

	_, err := f.coord.OpenPurchase(helpers.CreateTestItem(helpers.WithQuantity(0)))
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Nil(t, f.coord.Active())
}

func TestCoordinator_SubmitSuccess(t *testing.T) {
	item := helpers.CreateTestItem(helpers.WithID("9"), helpers.WithName("Kaju Katli"), helpers.WithQuantity(10))

	tests := []struct {
		name        string
		role        domain.Role
		open        func(*services.Coordinator) error
		setupMocks  func(*mocks.MockCatalogClient)
		expectedMsg string
	}{
		{
			name: "delete",
			role: domain.RoleAdmin,
			open: func(c *services.Coordinator) error { _, err := c.OpenDelete(item.ID); return err },
			setupMocks: func(m *mocks.MockCatalogClient) {
				m.EXPECT().Remove(gomock.Any(), item.ID).Return(nil)
				m.EXPECT().ListAll(gomock.Any()).Return([]domain.Item{}, nil)
			},
			expectedMsg: "Sweet deleted successfully",
		},
		{
			name: "purchase",
			role: domain.RoleCustomer,
			open: func(c *services.Coordinator) error {
				s, err := c.OpenPurchase(item)
				if err != nil {
					return err
				}
				return s.SetQuantity(3)
			},
			setupMocks: func(m *mocks.MockCatalogClient) {
				m.EXPECT().Purchase(gomock.Any(), item.ID, 3).Return(item, nil)
				m.EXPECT().ListAll(gomock.Any()).Return([]domain.Item{item}, nil)
			},
			expectedMsg: "Purchased 3x Kaju Katli",
		},
		{
			name: "add",
			role: domain.RoleAdmin,
			open: func(c *services.Coordinator) error {
				s, err := c.OpenAdd()
				if err != nil {
					return err
				}
				for _, a := range []services.DraftAction{
					services.SetName{Value: "Kaju Katli"},
					services.SetCategory{Value: "Traditional"},
					services.SetPrice{Value: "25"},
					services.SetQuantity{Value: "10"},
				} {
					if err := s.Dispatch(a); err != nil {
						return err
					}
				}
				return nil
			},
			setupMocks: func(m *mocks.MockCatalogClient) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(item, nil)
				m.EXPECT().ListAll(gomock.Any()).Return([]domain.Item{item}, nil)
			},
			expectedMsg: "Sweet created successfully",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinator(t, signedIn(tt.role))
			tt.setupMocks(f.client)
			require.NoError(t, tt.open(f.coord))

			require.NoError(t, f.coord.Submit(context.Background()))

			assert.Nil(t, f.coord.Active())
			note, ok := f.coord.Notifier().Current()
			require.True(t, ok)
			assert.Equal(t, tt.expectedMsg, note.Message)
			assert.Equal(t, domain.SeveritySuccess, note.Severity)
		})
	}
}

func TestCoordinator_SubmitFailureKeepsSurface(t *testing.T) {
	f := newCoordinator(t, signedIn(domain.RoleAdmin))
	f.client.EXPECT().Remove(gomock.Any(), domain.ItemID("1")).
		Return(&domain.RequestError{Op: domain.OpRemove, Status: 404, Message: "Sweet not found"})

	s, err := f.coord.OpenDelete("1")
	require.NoError(t, err)

	err = f.coord.Submit(context.Background())
	require.Error(t, err)

	assert.Same(t, s, f.coord.Active())
	assert.Equal(t, "Sweet not found", domain.UserMessage(s.Err()))
	note, ok := f.coord.Notifier().Current()
	require.True(t, ok)
	assert.Equal(t, domain.SeverityError, note.Severity)
	assert.Equal(t, "Sweet not found", note.Message)
}

func TestCoordinator_ValidationShownInlineOnly(t *testing.T) {
	f := newCoordinator(t, signedIn(domain.RoleAdmin))

	form, err := f.coord.OpenAdd()
	require.NoError(t, err)

	err = f.coord.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Name is required", domain.UserMessage(form.Err()))
	assert.Same(t, form, f.coord.Active())

	_, ok := f.coord.Notifier().Current()
	assert.False(t, ok)
}

func TestCoordinator_StaleSuccessDoesNotCloseNewerSurface(t *testing.T) {
	f := newCoordinator(t, signedIn(domain.RoleAdmin))
	item := helpers.CreateTestItem()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.client.EXPECT().Remove(gomock.Any(), item.ID).DoAndReturn(func(context.Context, domain.ItemID) error {
		close(entered)
		<-release
		return nil
	})
	f.client.EXPECT().ListAll(gomock.Any()).Return([]domain.Item{}, nil)

	_, err := f.coord.OpenDelete(item.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- f.coord.Submit(context.Background()) }()
	<-entered

	assert.True(t, f.coord.Active().Busy())
	assert.ErrorIs(t, f.coord.Submit(context.Background()), domain.ErrSubmissionInFlight)

	form, err := f.coord.OpenAdd()
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	assert.Same(t, form, f.coord.Active(), "the newer surface stays open")
	note, ok := f.coord.Notifier().Current()
	require.True(t, ok)
	assert.Equal(t, "Sweet deleted successfully", note.Message)
}

func TestCoordinator_UnauthorizedTearsDownSession(t *testing.T) {
	f := newCoordinator(t, signedIn(domain.RoleAdmin))
	f.client.EXPECT().Restock(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.Item{}, &domain.RequestError{Op: domain.OpRestock, Status: 401, Message: "Could not validate credentials", Err: domain.ErrUnauthenticated})

	_, err := f.coord.OpenRestock(helpers.CreateTestItem())
	require.NoError(t, err)

	err = f.coord.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))

	assert.Nil(t, f.coord.Active())
	assert.Equal(t, 1, f.session.loggedOut)
	assert.Equal(t, services.Capabilities{}, f.coord.Capabilities())

	note, ok := f.coord.Notifier().Current()
	require.True(t, ok)
	assert.Equal(t, "Session expired, please sign in again", note.Message)
}

func TestCoordinator_SubmitWithoutSession(t *testing.T) {
	session := signedIn(domain.RoleAdmin)
	f := newCoordinator(t, session)

	_, err := f.coord.OpenDelete("1")
	require.NoError(t, err)
	require.NoError(t, session.Logout(context.Background()))

	assert.ErrorIs(t, f.coord.Submit(context.Background()), domain.ErrUnauthenticated)
	assert.Nil(t, f.coord.Active())
}

func TestCoordinator_RefreshFailureNotifies(t *testing.T) {
	f := newCoordinator(t, signedIn(domain.RoleCustomer))
	f.client.EXPECT().ListAll(gomock.Any()).Return(nil, &domain.RequestError{Op: domain.OpList, Status: 500, Message: "Failed to load sweets"})

	require.Error(t, f.coord.Refresh(context.Background()))
	note, ok := f.coord.Notifier().Current()
	require.True(t, ok)
	assert.Equal(t, "Failed to load sweets", note.Message)
}

func TestCoordinator_Logout(t *testing.T) {
	f := newCoordinator(t, signedIn(domain.RoleAdmin))
	_, err := f.coord.OpenAdd()
	require.NoError(t, err)

	require.NoError(t, f.coord.Logout(context.Background()))
	assert.Nil(t, f.coord.Active())
	assert.Equal(t, 1, f.session.loggedOut)

	note, ok := f.coord.Notifier().Current()
	require.True(t, ok)
	assert.Equal(t, "Logged out", note.Message)
}
