package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
	"github.com/kumbo-archives/archives-client/pkg/storage"
)

// AuthState is the session lifecycle position.
type AuthState string

const (
	StateAnonymous      AuthState = "anonymous"
	StateAuthenticating AuthState = "authenticating"
	StateAuthenticated  AuthState = "authenticated"
)

// Persisted storage keys for the session side-channel.
const (
	tokenKey = "token"
	userKey  = "user"
)

type authAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	RearmUnauthorized()
}

// AuthStore owns the current session and the persisted token/user pair. The
// persisted pair is a side-channel kept in sync by every mutating action; at
// runtime the in-memory session is the source of truth.
type AuthStore struct {
	api       authAPI
	files     *storage.FileStore
	validator *validator.Validate
	logger    *zap.Logger

	mu      sync.Mutex
	state   AuthState
	session *models.Session
}

// AuthStoreParams groups constructor dependencies.
type AuthStoreParams struct {
	API       authAPI
	Files     *storage.FileStore
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewAuthStore constructs an AuthStore in the anonymous state.
func NewAuthStore(params AuthStoreParams) *AuthStore {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &AuthStore{
		api:       params.API,
		files:     params.Files,
		validator: validate,
		logger:    logger,
		state:     StateAnonymous,
	}
}

// BindAPI attaches the API client. The client needs the store's token source,
// so the two are wired after construction.
func (s *AuthStore) BindAPI(api authAPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = api
}

// Token yields the current bearer token, or "" when anonymous.
func (s *AuthStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.Token
}

// State returns the lifecycle position.
func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns a copy of the active session, or nil when anonymous.
func (s *AuthStore) Session() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	copied := *s.session
	return &copied
}

// Bootstrap restores a persisted session. A token without a user record (or
// the reverse) wipes both halves. When a session is restored it is marked
// authenticated optimistically, then revalidated against /auth/me; a 401
// during revalidation forces a full logout, any other failure keeps the
// optimistic session so offline starts still work.
func (s *AuthStore) Bootstrap(ctx context.Context) error {
	session, ok, err := s.loadPersisted()
	if err != nil {
		return err
	}
	if !ok {
		s.clearSession()
		return nil
	}

	s.mu.Lock()
	s.session = session
	s.state = StateAuthenticated
	s.mu.Unlock()
	if s.api == nil {
		return nil
	}
	s.api.RearmUnauthorized()

	user, err := s.api.Me(ctx)
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrSessionExpired.Code || appErr.Code == appErrors.ErrUnauthorized.Code {
			s.clearSession()
			return appErrors.Clone(appErrors.ErrSessionExpired, "stored session is no longer valid")
		}
		s.logger.Warn("session revalidation failed, keeping cached session", zap.Error(err))
		return nil
	}

	s.applyUser(user)
	return nil
}

// Login authenticates and persists the resulting session.
func (s *AuthStore) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	s.mu.Lock()
	s.state = StateAuthenticating
	s.mu.Unlock()

	resp, err := s.api.Login(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.state = StateAnonymous
		s.mu.Unlock()
		return nil, err
	}

	return s.installSession(resp)
}

// Register creates an account and enters the fresh session.
func (s *AuthStore) Register(ctx context.Context, req models.RegisterRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	s.mu.Lock()
	s.state = StateAuthenticating
	s.mu.Unlock()

	resp, err := s.api.Register(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.state = StateAnonymous
		s.mu.Unlock()
		return nil, err
	}

	return s.installSession(resp)
}

// Logout notifies the backend best-effort, then unconditionally clears the
// local session.
func (s *AuthStore) Logout(ctx context.Context) {
	if s.api != nil {
		if err := s.api.Logout(ctx); err != nil {
			s.logger.Debug("logout notification failed", zap.Error(err))
		}
	}
	s.clearSession()
}

// HandleUnauthorized is the 401 hook target: it drops the session without a
// server round-trip.
func (s *AuthStore) HandleUnauthorized() {
	s.logger.Info("session rejected by backend, logging out")
	s.clearSession()
}

// UpdateProfile edits the caller's account and keeps the persisted user in
// sync with the response.
func (s *AuthStore) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.api.UpdateProfile(ctx, req)
	if err != nil {
		return nil, err
	}
	s.applyUser(user)
	return user, nil
}

// ChangePassword rotates the caller's password.
func (s *AuthStore) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}
	return s.api.ChangePassword(ctx, req)
}

// ForgotPassword requests a reset mail.
func (s *AuthStore) ForgotPassword(ctx context.Context, email string) error {
	return s.api.ForgotPassword(ctx, email)
}

// ResetPassword redeems a reset token.
func (s *AuthStore) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.api.ResetPassword(ctx, token, newPassword)
}

// CanAccess checks role and permission requirements against the session.
// Empty slices mean no constraint; with permissions given, holding any one of
// them suffices, and admins pass the permission check outright.
func (s *AuthStore) CanAccess(roles []models.Role, permissions []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated || s.session == nil {
		return false
	}
	user := s.session.User

	if len(roles) > 0 {
		matched := false
		for _, role := range roles {
			if user.Role == role {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(permissions) > 0 {
		for _, permission := range permissions {
			if user.HasPermission(permission) {
				return true
			}
		}
		return false
	}

	return true
}

func (s *AuthStore) installSession(resp *models.LoginResponse) (*models.Session, error) {
	session := &models.Session{Token: resp.Token, User: resp.User}

	s.mu.Lock()
	s.session = session
	s.state = StateAuthenticated
	s.mu.Unlock()

	if err := s.persistSession(session); err != nil {
		s.logger.Warn("failed to persist session", zap.Error(err))
	}
	if s.api != nil {
		s.api.RearmUnauthorized()
	}

	copied := *session
	return &copied, nil
}

func (s *AuthStore) applyUser(user *models.User) {
	s.mu.Lock()
	if s.session != nil {
		s.session.User = *user
	}
	session := s.session
	s.mu.Unlock()

	if session != nil && s.files != nil {
		payload, err := json.Marshal(session.User)
		if err == nil {
			err = s.files.Save(userKey, payload)
		}
		if err != nil {
			s.logger.Warn("failed to persist user record", zap.Error(err))
		}
	}
}

func (s *AuthStore) persistSession(session *models.Session) error {
	if s.files == nil {
		return nil
	}
	if err := s.files.Save(tokenKey, []byte(session.Token)); err != nil {
		return err
	}
	payload, err := json.Marshal(session.User)
	if err != nil {
		return err
	}
	return s.files.Save(userKey, payload)
}

// loadPersisted returns a session only when both halves are present and the
// user record parses; anything else reports no session.
func (s *AuthStore) loadPersisted() (*models.Session, bool, error) {
	if s.files == nil {
		return nil, false, nil
	}
	token, hasToken, err := s.files.Load(tokenKey)
	if err != nil {
		return nil, false, err
	}
	rawUser, hasUser, err := s.files.Load(userKey)
	if err != nil {
		return nil, false, err
	}
	if !hasToken || !hasUser || len(token) == 0 {
		return nil, false, nil
	}
	var user models.User
	if err := json.Unmarshal(rawUser, &user); err != nil {
		s.logger.Warn("persisted user record is corrupt, discarding session", zap.Error(err))
		return nil, false, nil
	}
	return &models.Session{Token: string(token), User: user}, true, nil
}

func (s *AuthStore) clearSession() {
	s.mu.Lock()
	s.session = nil
	s.state = StateAnonymous
	s.mu.Unlock()

	if s.files != nil {
		if err := s.files.Delete(tokenKey); err != nil {
			s.logger.Warn("failed to clear persisted token", zap.Error(err))
		}
		if err := s.files.Delete(userKey); err != nil {
			s.logger.Warn("failed to clear persisted user", zap.Error(err))
		}
	}
}
