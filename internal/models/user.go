package models

import "time"

// Role represents the access tiers of the archive.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleResearcher Role = "researcher"
)

// User is an archive account as returned by the backend.
type User struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"`
	FullName    string           `json:"full_name"`
	Role        Role             `json:"role"`
	Department  string           `json:"department"`
	Permissions []string         `json:"permissions"`
	Active      bool             `json:"active"`
	AvatarURL   string           `json:"avatar_url,omitempty"`
	LastLogin   *time.Time       `json:"last_login,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

// HasPermission reports whether the user holds the named permission.
// Admins implicitly hold every permission.
func (u *User) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// UserPreferences captures per-account UI and notification settings.
type UserPreferences struct {
	Language           string `json:"language,omitempty"`
	Theme              string `json:"theme,omitempty"`
	EmailNotifications bool   `json:"email_notifications"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role       string
	Department string
	Active     string
	Search     string
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// UserStats summarises the account population for the admin dashboard.
type UserStats struct {
	Total        int            `json:"total"`
	Active       int            `json:"active"`
	ByRole       map[string]int `json:"by_role"`
	ByDepartment map[string]int `json:"by_department"`
}

// ActivityEntry is one row of a user's recent activity feed.
type ActivityEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
