package mockapi

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid login payload"))
		return
	}
	if err := s.validator.Struct(req); err != nil {
		fail(c, validationError(err, "email and password are required"))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	user := s.state.findByEmail(req.Email)
	if user == nil {
		fail(c, appErrors.ErrInvalidCredentials)
		return
	}
	if !user.Active {
		fail(c, appErrors.Clone(appErrors.ErrForbidden, "account is inactive"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.state.passwords[user.ID]), []byte(req.Password)); err != nil {
		fail(c, appErrors.ErrInvalidCredentials)
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token"))
		return
	}

	now := time.Now()
	user.LastLogin = &now
	s.state.recordActivity(user.ID, "login", "auth", "")

	respond(c, 200, models.LoginResponse{Token: token, User: *user, IssuedAt: now}, nil)
}

func (s *Server) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid registration payload"))
		return
	}
	if err := s.validator.Struct(req); err != nil {
		fail(c, validationError(err, "registration payload is incomplete"))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if s.state.findByEmail(req.Email) != nil {
		fail(c, appErrors.Clone(appErrors.ErrConflict, "email already exists"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password"))
		return
	}

	now := time.Now()
	user := &models.User{
		ID:          uuid.NewString(),
		Email:       strings.ToLower(req.Email),
		FullName:    req.FullName,
		Role:        models.RoleResearcher,
		Department:  req.Department,
		Permissions: []string{"documents:read"},
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.state.users[user.ID] = user
	s.state.passwords[user.ID] = string(hash)
	s.state.recordActivity(user.ID, "register", "auth", "")

	token, err := s.tokens.Issue(user)
	if err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token"))
		return
	}

	created(c, models.LoginResponse{Token: token, User: *user, IssuedAt: now})
}

func (s *Server) logout(c *gin.Context) {
	user := currentUser(c)
	s.state.mu.Lock()
	s.state.recordActivity(user.ID, "logout", "auth", "")
	s.state.mu.Unlock()
	noContent(c)
}

func (s *Server) me(c *gin.Context) {
	respond(c, 200, currentUser(c), nil)
}

func (s *Server) updateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid profile payload"))
		return
	}

	user := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	stored := s.state.users[user.ID]
	if req.FullName != "" {
		stored.FullName = req.FullName
	}
	if req.Department != "" {
		stored.Department = req.Department
	}
	if req.AvatarURL != "" {
		stored.AvatarURL = req.AvatarURL
	}
	if req.Prefs != nil {
		stored.Preferences = req.Prefs
	}
	stored.UpdatedAt = time.Now()
	s.state.recordActivity(stored.ID, "profile_update", "auth", "")

	respond(c, 200, stored, nil)
}

func (s *Server) changePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid password payload"))
		return
	}
	if err := s.validator.Struct(req); err != nil {
		fail(c, validationError(err, "both passwords are required"))
		return
	}

	user := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if err := bcrypt.CompareHashAndPassword([]byte(s.state.passwords[user.ID]), []byte(req.CurrentPassword)); err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "current password is incorrect"))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password"))
		return
	}
	s.state.passwords[user.ID] = string(hash)
	s.state.recordActivity(user.ID, "password_change", "auth", "")

	noContent(c)
}

func (s *Server) forgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "email is required"))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	// The response is identical whether or not the address exists, so the
	// endpoint cannot be used to enumerate accounts.
	if user := s.state.findByEmail(req.Email); user != nil {
		token := uuid.NewString()
		s.state.resetTokens[token] = user.ID
		s.logger.Info("password reset issued", zap.String("email", req.Email), zap.String("reset_token", token))
	}

	noContent(c)
}

func (s *Server) resetPassword(c *gin.Context) {
	token := c.Param("token")
	var req struct {
		Password string `json:"password" validate:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Password) < 8 {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "password must be at least 8 characters"))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	userID, ok := s.state.resetTokens[token]
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "reset token is invalid or used"))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password"))
		return
	}
	s.state.passwords[userID] = string(hash)
	delete(s.state.resetTokens, token)
	s.state.recordActivity(userID, "password_reset", "auth", "")

	noContent(c)
}
