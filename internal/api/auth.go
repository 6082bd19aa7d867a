package api

import (
	"context"

	"github.com/kumbo-archives/archives-client/internal/models"
)

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	out := &models.LoginResponse{}
	if _, err := c.Post(ctx, "/auth/login", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Register creates an account and returns the fresh session.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	out := &models.LoginResponse{}
	if _, err := c.Post(ctx, "/auth/register", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Logout notifies the backend that the session ended.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Post(ctx, "/auth/logout", nil, nil)
	return err
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	out := &models.User{}
	if _, err := c.Get(ctx, "/auth/me", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile modifies the caller's own account and returns the updated record.
func (c *Client) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	out := &models.User{}
	if _, err := c.Put(ctx, "/auth/profile", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangePassword rotates the caller's password.
func (c *Client) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	_, err := c.Put(ctx, "/auth/password", req, nil)
	return err
}

// ForgotPassword requests a reset mail for the given address.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil)
	return err
}

// ResetPassword redeems a reset token for a new password.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	_, err := c.Put(ctx, "/auth/reset-password/"+token, map[string]string{"password": newPassword}, nil)
	return err
}
