package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
	"github.com/kumbo-archives/archives-client/pkg/storage"
)

type mockAuthAPI struct {
	loginResp    *models.LoginResponse
	loginErr     error
	registerResp *models.LoginResponse
	registerErr  error
	logoutErr    error
	meUser       *models.User
	meErr        error
	profileUser  *models.User
	profileErr   error

	loginCalls  int
	meCalls     int
	logoutCalls int
	rearmCalls  int
}

func (m *mockAuthAPI) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.loginCalls++
	return m.loginResp, m.loginErr
}

func (m *mockAuthAPI) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	return m.registerResp, m.registerErr
}

func (m *mockAuthAPI) Logout(ctx context.Context) error {
	m.logoutCalls++
	return m.logoutErr
}

func (m *mockAuthAPI) Me(ctx context.Context) (*models.User, error) {
	m.meCalls++
	return m.meUser, m.meErr
}

func (m *mockAuthAPI) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	return m.profileUser, m.profileErr
}

func (m *mockAuthAPI) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	return nil
}

func (m *mockAuthAPI) ForgotPassword(ctx context.Context, email string) error { return nil }

func (m *mockAuthAPI) ResetPassword(ctx context.Context, token, newPassword string) error {
	return nil
}

func (m *mockAuthAPI) RearmUnauthorized() { m.rearmCalls++ }

func testFiles(t *testing.T) *storage.FileStore {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return files
}

func testUser() models.User {
	return models.User{
		ID:          "u1",
		Email:       "staff@kumbo.org",
		FullName:    "Beatrice Fon",
		Role:        models.RoleStaff,
		Permissions: []string{"documents:manage"},
		Active:      true,
	}
}

func TestLoginInstallsAndPersistsSession(t *testing.T) {
	api := &mockAuthAPI{loginResp: &models.LoginResponse{Token: "tok-1", User: testUser()}}
	files := testFiles(t)
	s := NewAuthStore(AuthStoreParams{API: api, Files: files})

	session, err := s.Login(context.Background(), models.LoginRequest{Email: "staff@kumbo.org", Password: "kumbo-dev"})
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "tok-1", session.Token)
	assert.Equal(t, "tok-1", s.Token())
	assert.Equal(t, 1, api.rearmCalls, "a fresh session must re-arm the 401 hook")

	token, ok, err := files.Load("token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-1", string(token))
}

func TestLoginFailureRevertsToAnonymous(t *testing.T) {
	api := &mockAuthAPI{loginErr: appErrors.ErrInvalidCredentials}
	s := NewAuthStore(AuthStoreParams{API: api, Files: testFiles(t)})

	_, err := s.Login(context.Background(), models.LoginRequest{Email: "staff@kumbo.org", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, StateAnonymous, s.State())
	assert.Nil(t, s.Session())
}

func TestLoginValidatesRequestLocally(t *testing.T) {
	api := &mockAuthAPI{}
	s := NewAuthStore(AuthStoreParams{API: api, Files: testFiles(t)})

	_, err := s.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: ""})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, api.loginCalls, "invalid payloads never reach the wire")
}

func TestBootstrapRestoresAndRevalidates(t *testing.T) {
	files := testFiles(t)

	// First store establishes and persists a session.
	first := NewAuthStore(AuthStoreParams{
		API:   &mockAuthAPI{loginResp: &models.LoginResponse{Token: "tok-1", User: testUser()}},
		Files: files,
	})
	_, err := first.Login(context.Background(), models.LoginRequest{Email: "staff@kumbo.org", Password: "kumbo-dev"})
	require.NoError(t, err)

	// A new process restores it and picks up the fresher user record.
	refreshed := testUser()
	refreshed.FullName = "Beatrice N. Fon"
	api := &mockAuthAPI{meUser: &refreshed}
	s := NewAuthStore(AuthStoreParams{API: api, Files: files})

	require.NoError(t, s.Bootstrap(context.Background()))
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, 1, api.meCalls)
	assert.Equal(t, "Beatrice N. Fon", s.Session().User.FullName)
}

func TestBootstrapExpiredSessionClearsBothHalves(t *testing.T) {
	files := testFiles(t)
	require.NoError(t, files.Save("token", []byte("stale-token")))
	require.NoError(t, files.Save("user", []byte(`{"id":"u1","email":"staff@kumbo.org"}`)))

	api := &mockAuthAPI{meErr: appErrors.ErrSessionExpired}
	s := NewAuthStore(AuthStoreParams{API: api, Files: files})

	err := s.Bootstrap(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionExpired.Code, appErrors.FromError(err).Code)
	assert.Equal(t, StateAnonymous, s.State())

	_, ok, err := files.Load("token")
	require.NoError(t, err)
	assert.False(t, ok, "an invalid session must be wiped from disk")
}

func TestBootstrapKeepsSessionOnNetworkFailure(t *testing.T) {
	files := testFiles(t)
	require.NoError(t, files.Save("token", []byte("tok-1")))
	require.NoError(t, files.Save("user", []byte(`{"id":"u1","email":"staff@kumbo.org"}`)))

	api := &mockAuthAPI{meErr: appErrors.ErrNetwork}
	s := NewAuthStore(AuthStoreParams{API: api, Files: files})

	require.NoError(t, s.Bootstrap(context.Background()))
	assert.Equal(t, StateAuthenticated, s.State(), "offline starts keep the cached session")
}

func TestBootstrapDiscardsHalfPersistedSession(t *testing.T) {
	files := testFiles(t)
	require.NoError(t, files.Save("token", []byte("tok-1")))
	// No user record.

	api := &mockAuthAPI{}
	s := NewAuthStore(AuthStoreParams{API: api, Files: files})

	require.NoError(t, s.Bootstrap(context.Background()))
	assert.Equal(t, StateAnonymous, s.State())
	assert.Zero(t, api.meCalls)
}

func TestBootstrapDiscardsCorruptUserRecord(t *testing.T) {
	files := testFiles(t)
	require.NoError(t, files.Save("token", []byte("tok-1")))
	require.NoError(t, files.Save("user", []byte("{not-json")))

	s := NewAuthStore(AuthStoreParams{API: &mockAuthAPI{}, Files: files})

	require.NoError(t, s.Bootstrap(context.Background()))
	assert.Equal(t, StateAnonymous, s.State())
}

func TestLogoutClearsSessionEvenWhenBackendFails(t *testing.T) {
	api := &mockAuthAPI{
		loginResp: &models.LoginResponse{Token: "tok-1", User: testUser()},
		logoutErr: appErrors.ErrNetwork,
	}
	files := testFiles(t)
	s := NewAuthStore(AuthStoreParams{API: api, Files: files})

	_, err := s.Login(context.Background(), models.LoginRequest{Email: "staff@kumbo.org", Password: "kumbo-dev"})
	require.NoError(t, err)

	s.Logout(context.Background())
	assert.Equal(t, StateAnonymous, s.State())
	assert.Empty(t, s.Token())

	_, ok, err := files.Load("token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandleUnauthorizedDropsSession(t *testing.T) {
	api := &mockAuthAPI{loginResp: &models.LoginResponse{Token: "tok-1", User: testUser()}}
	s := NewAuthStore(AuthStoreParams{API: api, Files: testFiles(t)})

	_, err := s.Login(context.Background(), models.LoginRequest{Email: "staff@kumbo.org", Password: "kumbo-dev"})
	require.NoError(t, err)

	s.HandleUnauthorized()
	assert.Equal(t, StateAnonymous, s.State())
	assert.Nil(t, s.Session())
}

func TestCanAccess(t *testing.T) {
	api := &mockAuthAPI{loginResp: &models.LoginResponse{Token: "tok-1", User: testUser()}}
	s := NewAuthStore(AuthStoreParams{API: api, Files: testFiles(t)})

	assert.False(t, s.CanAccess(nil, nil), "anonymous sessions never pass")

	_, err := s.Login(context.Background(), models.LoginRequest{Email: "staff@kumbo.org", Password: "kumbo-dev"})
	require.NoError(t, err)

	tests := []struct {
		name        string
		roles       []models.Role
		permissions []string
		want        bool
	}{
		{"no constraints", nil, nil, true},
		{"matching role", []models.Role{models.RoleStaff}, nil, true},
		{"wrong role", []models.Role{models.RoleAdmin}, nil, false},
		{"any role of several", []models.Role{models.RoleAdmin, models.RoleStaff}, nil, true},
		{"held permission", nil, []string{"documents:manage"}, true},
		{"missing permission", nil, []string{"users:manage"}, false},
		{"any permission of several", nil, []string{"users:manage", "documents:manage"}, true},
		{"role and permission both required", []models.Role{models.RoleStaff}, []string{"documents:manage"}, true},
		{"role passes but permission missing", []models.Role{models.RoleStaff}, []string{"users:manage"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.CanAccess(tt.roles, tt.permissions))
		})
	}
}

func TestCanAccessAdminBypassesPermissionCheck(t *testing.T) {
	admin := testUser()
	admin.Role = models.RoleAdmin
	admin.Permissions = nil
	api := &mockAuthAPI{loginResp: &models.LoginResponse{Token: "tok-1", User: admin}}
	s := NewAuthStore(AuthStoreParams{API: api, Files: testFiles(t)})

	_, err := s.Login(context.Background(), models.LoginRequest{Email: "admin@kumbo.org", Password: "kumbo-dev"})
	require.NoError(t, err)

	assert.True(t, s.CanAccess(nil, []string{"anything:at:all"}))
}

func TestUpdateProfilePersistsRefreshedUser(t *testing.T) {
	updated := testUser()
	updated.FullName = "Renamed"
	api := &mockAuthAPI{
		loginResp:   &models.LoginResponse{Token: "tok-1", User: testUser()},
		profileUser: &updated,
	}
	files := testFiles(t)
	s := NewAuthStore(AuthStoreParams{API: api, Files: files})

	_, err := s.Login(context.Background(), models.LoginRequest{Email: "staff@kumbo.org", Password: "kumbo-dev"})
	require.NoError(t, err)

	user, err := s.UpdateProfile(context.Background(), models.UpdateProfileRequest{FullName: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.FullName)
	assert.Equal(t, "Renamed", s.Session().User.FullName)

	raw, ok, err := files.Load("user")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(raw), "Renamed")
}
