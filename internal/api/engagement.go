package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pribylovaa/go-social-client/internal/models"
)

type reactRequest struct {
	Type models.ReactionType `json:"type"`
}

type commentRequest struct {
	Body string `json:"body"`
}

// React — POST /posts/{id}/react/ {type}. Сервер переключает реакцию.
func (c *Client) React(ctx context.Context, postID int64, typ models.ReactionType) (models.DetailResponse, error) {
	const op = "api.React"

	var out models.DetailResponse
	if err := c.doJSON(ctx, http.MethodPost, postPath(postID, "react/"), nil, reactRequest{Type: typ}, &out); err != nil {
		return models.DetailResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Comments — GET /posts/{id}/comments/ (массив или пагинация).
func (c *Client) Comments(ctx context.Context, postID int64) ([]models.Comment, error) {
	const op = "api.Comments"

	var out models.List[models.Comment]
	if err := c.doJSON(ctx, http.MethodGet, postPath(postID, "comments/"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// CreateComment — POST /posts/{id}/comments/ {body}.
func (c *Client) CreateComment(ctx context.Context, postID int64, body string) (*models.Comment, error) {
	const op = "api.CreateComment"

	var out models.Comment
	if err := c.doJSON(ctx, http.MethodPost, postPath(postID, "comments/"), nil, commentRequest{Body: body}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
