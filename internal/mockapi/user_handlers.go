package mockapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

func (s *Server) listUsers(c *gin.Context) {
	role := c.Query("role")
	department := c.Query("department")
	active := c.Query("active")
	search := strings.ToLower(c.Query("search"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	s.state.mu.RLock()
	matched := make([]models.User, 0, len(s.state.users))
	for _, user := range s.state.users {
		if role != "" && string(user.Role) != role {
			continue
		}
		if department != "" && user.Department != department {
			continue
		}
		if active != "" {
			want, err := strconv.ParseBool(active)
			if err == nil && user.Active != want {
				continue
			}
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(user.FullName), search) &&
			!strings.Contains(strings.ToLower(user.Email), search) {
			continue
		}
		matched = append(matched, *user)
	}
	s.state.mu.RUnlock()

	sortedUsers(matched, c.Query("sort_by"), c.Query("sort_order"))
	start, end, pagination := paginate(len(matched), page, limit)
	respond(c, 200, matched[start:end], pagination)
}

func (s *Server) getUser(c *gin.Context) {
	s.state.mu.RLock()
	user, ok := s.state.users[c.Param("id")]
	s.state.mu.RUnlock()
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "user not found"))
		return
	}
	respond(c, 200, user, nil)
}

func (s *Server) createUser(c *gin.Context) {
	var req struct {
		Email       string   `json:"email" validate:"required,email"`
		FullName    string   `json:"full_name" validate:"required"`
		Role        string   `json:"role" validate:"required,oneof=admin staff researcher"`
		Department  string   `json:"department"`
		Permissions []string `json:"permissions"`
		Password    string   `json:"password" validate:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid user payload"))
		return
	}
	if err := s.validator.Struct(req); err != nil {
		fail(c, validationError(err, "user payload is incomplete"))
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
		Role:        models.Role(req.Role),
		Department:  req.Department,
		Permissions: req.Permissions,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.state.users[user.ID] = user
	s.state.passwords[user.ID] = string(hash)
	s.state.recordActivity(currentUser(c).ID, "user_create", "users", user.Email)

	created(c, user)
}

func (s *Server) updateUser(c *gin.Context) {
	var req struct {
		FullName    *string  `json:"full_name"`
		Role        *string  `json:"role"`
		Department  *string  `json:"department"`
		Permissions []string `json:"permissions"`
		Active      *bool    `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid user payload"))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	user, ok := s.state.users[c.Param("id")]
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "user not found"))
		return
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		if role != models.RoleAdmin && role != models.RoleStaff && role != models.RoleResearcher {
			fail(c, appErrors.Clone(appErrors.ErrValidation, "unknown role"))
			return
		}
		user.Role = role
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.Permissions != nil {
		user.Permissions = req.Permissions
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.UpdatedAt = time.Now()
	s.state.recordActivity(currentUser(c).ID, "user_update", "users", user.Email)

	respond(c, 200, user, nil)
}

func (s *Server) deleteUser(c *gin.Context) {
	id := c.Param("id")
	caller := currentUser(c)
	if caller.ID == id {
		fail(c, appErrors.Clone(appErrors.ErrConflict, "cannot delete your own account"))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	user, ok := s.state.users[id]
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "user not found"))
		return
	}
	delete(s.state.users, id)
	delete(s.state.passwords, id)
	s.state.recordActivity(caller.ID, "user_delete", "users", user.Email)

	noContent(c)
}

func (s *Server) userStats(c *gin.Context) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	stats := models.UserStats{
		Total:        len(s.state.users),
		ByRole:       map[string]int{},
		ByDepartment: map[string]int{},
	}
	for _, user := range s.state.users {
		if user.Active {
			stats.Active++
		}
		stats.ByRole[string(user.Role)]++
		if user.Department != "" {
			stats.ByDepartment[user.Department]++
		}
	}
	respond(c, 200, stats, nil)
}

func (s *Server) updateAvatar(c *gin.Context) {
	var req struct {
		AvatarURL string `json:"avatar_url" validate:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AvatarURL == "" {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "avatar_url is required"))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	user, ok := s.state.users[c.Param("id")]
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "user not found"))
		return
	}
	user.AvatarURL = req.AvatarURL
	user.UpdatedAt = time.Now()

	respond(c, 200, user, nil)
}

func (s *Server) setUserPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password" validate:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Password) < 8 {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "password must be at least 8 characters"))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	id := c.Param("id")
	if _, ok := s.state.users[id]; !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "user not found"))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password"))
		return
	}
	s.state.passwords[id] = string(hash)
	s.state.recordActivity(currentUser(c).ID, "user_password_set", "users", id)

	noContent(c)
}

func (s *Server) userActivity(c *gin.Context) {
	id := c.Param("id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	if _, ok := s.state.users[id]; !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "user not found"))
		return
	}
	var entries []models.ActivityEntry
	for _, entry := range s.state.activity {
		if entry.UserID == id {
			entries = append(entries, entry)
		}
	}
	start, end, pagination := paginate(len(entries), page, limit)
	respond(c, 200, entries[start:end], pagination)
}

func (s *Server) updatePreferences(c *gin.Context) {
	var prefs models.UserPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid preferences payload"))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	user, ok := s.state.users[c.Param("id")]
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "user not found"))
		return
	}
	user.Preferences = &prefs
	user.UpdatedAt = time.Now()

	respond(c, 200, user, nil)
}
