package api

import (
	"context"

	"github.com/kumbo-archives/archives-client/internal/models"
)

// ListUsers fetches a user page. Params with empty values are stripped before
// the request is issued.
func (c *Client) ListUsers(ctx context.Context, params map[string]string) ([]models.User, *models.Pagination, error) {
	var users []models.User
	pagination, err := c.Get(ctx, "/users", Query(params), &users)
	if err != nil {
		return nil, nil, err
	}
	return users, pagination, nil
}

// GetUser fetches one user by ID.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	out := &models.User{}
	if _, err := c.Get(ctx, "/users/"+id, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser adds an account.
func (c *Client) CreateUser(ctx context.Context, payload map[string]interface{}) (*models.User, error) {
	out := &models.User{}
	if _, err := c.Post(ctx, "/users", payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser modifies an account and returns the updated record.
func (c *Client) UpdateUser(ctx context.Context, id string, payload map[string]interface{}) (*models.User, error) {
	out := &models.User{}
	if _, err := c.Put(ctx, "/users/"+id, payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.Delete(ctx, "/users/"+id)
}

// UserStats returns aggregate account counts.
func (c *Client) UserStats(ctx context.Context) (*models.UserStats, error) {
	out := &models.UserStats{}
	if _, err := c.Get(ctx, "/users/stats", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAvatar sets a user's avatar URL.
func (c *Client) UpdateAvatar(ctx context.Context, id, avatarURL string) (*models.User, error) {
	out := &models.User{}
	if _, err := c.Put(ctx, "/users/"+id+"/avatar", map[string]string{"avatar_url": avatarURL}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetUserPassword resets another user's password (admin operation).
func (c *Client) SetUserPassword(ctx context.Context, id, password string) error {
	_, err := c.Put(ctx, "/users/"+id+"/password", map[string]string{"password": password}, nil)
	return err
}

// UserActivity returns the recent activity feed for one user.
func (c *Client) UserActivity(ctx context.Context, id string, params map[string]string) ([]models.ActivityEntry, *models.Pagination, error) {
	var entries []models.ActivityEntry
	pagination, err := c.Get(ctx, "/users/"+id+"/activity", Query(params), &entries)
	if err != nil {
		return nil, nil, err
	}
	return entries, pagination, nil
}

// UpdatePreferences stores a user's preference record.
func (c *Client) UpdatePreferences(ctx context.Context, id string, prefs models.UserPreferences) (*models.User, error) {
	out := &models.User{}
	if _, err := c.Put(ctx, "/users/"+id+"/preferences", prefs, out); err != nil {
		return nil, err
	}
	return out, nil
}
