package apiclient

import (
	"context"
	"net/http"

	"doctor-portal/internal/models"
)

// Login POST /auth/login
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	if req.DeviceFingerprint == "" {
		req.DeviceFingerprint = c.fingerprint
	}
	return doEnvelope[models.LoginResponse](ctx, c, call{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   req,
	})
}

// Refresh POST /auth/refresh
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.LoginResponse, error) {
	return doEnvelope[models.LoginResponse](ctx, c, call{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   map[string]string{"refreshToken": refreshToken},
	})
}

// Logout POST /auth/logout
func (c *Client) Logout(ctx context.Context, cred Credentials) error {
	_, err := c.execute(ctx, call{
		method: http.MethodPost,
		path:   "/auth/logout",
		cred:   &cred,
	})
	return err
}

// Profile GET /auth/profile
func (c *Client) Profile(ctx context.Context, cred Credentials) (models.User, error) {
	return doEnvelope[models.User](ctx, c, call{
		method: http.MethodGet,
		path:   "/auth/profile",
		cred:   &cred,
	})
}
