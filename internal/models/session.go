package models

import "time"

// Session couples the bearer token with the authenticated user. It exists
// only when both halves are present; a mismatch in the persisted store is
// treated as no session at all.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// LoginRequest carries user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest carries a self-service registration payload.
type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email"`
	FullName   string `json:"full_name" validate:"required"`
	Department string `json:"department" validate:"required"`
	Password   string `json:"password" validate:"required,min=8"`
}

// LoginResponse is the payload of POST /auth/login and /auth/register.
type LoginResponse struct {
	Token    string    `json:"token"`
	User     User      `json:"user"`
	IssuedAt time.Time `json:"issued_at"`
}

// UpdateProfileRequest modifies the caller's own account.
type UpdateProfileRequest struct {
	FullName   string           `json:"full_name,omitempty"`
	Department string           `json:"department,omitempty"`
	AvatarURL  string           `json:"avatar_url,omitempty"`
	Prefs      *UserPreferences `json:"preferences,omitempty"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}
