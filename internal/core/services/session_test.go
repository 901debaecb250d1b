package services_test

import (
	"context"
	"errors"
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

var testSecret = []byte("test-secret")

func newSessionManager(t *testing.T) (*services.SessionManager, *mocks.MockAuthClient, *mocks.MockSessionStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthClient(ctrl)
	store := mocks.NewMockSessionStore(ctrl)
	return services.NewSessionManager(auth, store, helpers.TestLogger()), auth, store
}

func TestSessionManager_Init(t *testing.T) {
	valid := domain.Session{Token: "tok", Role: domain.RoleAdmin, ExpiresAt: time.Now().Add(time.Hour)}
	expired := domain.Session{Token: "tok", Role: domain.RoleAdmin, ExpiresAt: time.Now().Add(-time.Minute)}

	tests := []struct {
		name          string
		setupMocks    func(*mocks.MockSessionStore)
		expectedRole  domain.Role
		expectedError bool
	}{
		{
			name: "nothing_persisted",
			setupMocks: func(s *mocks.MockSessionStore) {
				s.EXPECT().Load(gomock.Any()).Return(domain.Session{}, domain.ErrNoSession)
			},
		},
		{
			name: "restores_valid_session",
			setupMocks: func(s *mocks.MockSessionStore) {
				s.EXPECT().Load(gomock.Any()).Return(valid, nil)
			},
			expectedRole: domain.RoleAdmin,
		},
		{
			name: "expired_session_is_cleared",
			setupMocks: func(s *mocks.MockSessionStore) {
				s.EXPECT().Load(gomock.Any()).Return(expired, nil)
				s.EXPECT().Clear(gomock.Any()).Return(nil)
			},
		},
		{
			name: "store_failure",
			setupMocks: func(s *mocks.MockSessionStore) {
				s.EXPECT().Load(gomock.Any()).Return(domain.Session{}, errors.New("connection refused"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, _, store := newSessionManager(t)
			tt.setupMocks(store)

			err := manager.Init(context.Background())
			if tt.expectedError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to load session")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedRole, manager.Role())
			if tt.expectedRole == "" {
				assert.Empty(t, manager.Token())
			}
		})
	}
}

func TestSessionManager_Login(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token := helpers.SignToken(testSecret, "admin@sweets.test", "admin", exp)

	manager, auth, store := newSessionManager(t)
	auth.EXPECT().Login(gomock.Any(), "admin@sweets.test", "pw").Return(domain.AuthResult{Token: token}, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, s domain.Session) error {
		assert.Equal(t, token, s.Token)
		return nil
	})

	session, err := manager.Login(context.Background(), " admin@sweets.test ", "pw")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleAdmin, session.Role, "role falls back to the token claim")
	assert.Equal(t, "admin@sweets.test", session.Email)
	assert.True(t, exp.Equal(session.ExpiresAt))
	assert.Equal(t, token, manager.Token())
}

func TestSessionManager_LoginFailures(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		password    string
		setupMocks  func(*mocks.MockAuthClient)
		expectedMsg string
	}{
		{
			name:        "missing_credentials",
			email:       " ",
			password:    "pw",
			setupMocks:  func(*mocks.MockAuthClient) {},
			expectedMsg: "Email and password are required",
		},
		{
			name:     "rejected",
			email:    "user@sweets.test",
			password: "bad",
			setupMocks: func(a *mocks.MockAuthClient) {
				a.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(domain.AuthResult{}, &domain.RequestError{Op: domain.OpLogin, Status: 401, Message: "Incorrect email or password"})
			},
			expectedMsg: "Incorrect email or password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, auth, _ := newSessionManager(t)
			tt.setupMocks(auth)

			_, err := manager.Login(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, tt.expectedMsg, domain.UserMessage(err))
			_, ok := manager.Current()
			assert.False(t, ok)
		})
	}
}

func TestSessionManager_Register(t *testing.T) {
	manager, auth, store := newSessionManager(t)

	// Opaque tokens are accepted as-is.
	auth.EXPECT().Register(gomock.Any(), "new@sweets.test", "pw", domain.RoleCustomer).
		Return(domain.AuthResult{Token: "opaque"}, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

	session, err := manager.Register(context.Background(), "new@sweets.test", "pw", domain.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, session.Role)
	assert.True(t, session.ExpiresAt.IsZero())
	assert.Equal(t, domain.RoleCustomer, manager.Role())
}

func TestSessionManager_Logout(t *testing.T) {
	manager, auth, store := newSessionManager(t)

	auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.AuthResult{Token: "opaque", Role: domain.RoleAdmin}, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	store.EXPECT().Clear(gomock.Any()).Return(nil)

	_, err := manager.Login(context.Background(), "admin@sweets.test", "pw")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, manager.Role())

	require.NoError(t, manager.Logout(context.Background()))
	assert.Empty(t, manager.Token())
	assert.Empty(t, manager.Role())
}

func TestSessionManager_PersistFailure(t *testing.T) {
	manager, auth, store := newSessionManager(t)

	auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.AuthResult{Token: "opaque"}, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	_, err := manager.Login(context.Background(), "admin@sweets.test", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist session")
	assert.Empty(t, manager.Token())
}
