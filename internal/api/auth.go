package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pribylovaa/go-social-client/internal/models"
)

// Register — POST /auth/register/.
func (c *Client) Register(ctx context.Context, in models.RegisterRequest) (models.DetailResponse, error) {
	const op = "api.Register"

	var out models.DetailResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register/", nil, in, &out); err != nil {
		return models.DetailResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Login — POST /auth/login/, возвращает пару токенов.
func (c *Client) Login(ctx context.Context, email, password string) (models.TokenPair, error) {
	const op = "api.Login"

	var out models.TokenPair
	in := models.LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login/", nil, in, &out); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Me — GET /users/me/.
func (c *Client) Me(ctx context.Context) (*models.UserPublic, error) {
	const op = "api.Me"

	var out models.UserPublic
	if err := c.doJSON(ctx, http.MethodGet, "/users/me/", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
