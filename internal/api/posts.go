package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pribylovaa/go-social-client/internal/models"
)

// Posts — GET /posts/.
func (c *Client) Posts(ctx context.Context) ([]models.Post, error) {
	const op = "api.Posts"

	var out models.List[models.Post]
	if err := c.doJSON(ctx, http.MethodGet, "/posts/", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// PostsByAuthor — GET /posts/?author={id}.
func (c *Client) PostsByAuthor(ctx context.Context, authorID int64) ([]models.Post, error) {
	const op = "api.PostsByAuthor"

	q := url.Values{}
	q.Set("author", strconv.FormatInt(authorID, 10))

	var out models.List[models.Post]
	if err := c.doJSON(ctx, http.MethodGet, "/posts/", q, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Post — GET /posts/{id}/.
func (c *Client) Post(ctx context.Context, id int64) (*models.Post, error) {
	const op = "api.Post"

	var out models.Post
	if err := c.doJSON(ctx, http.MethodGet, postPath(id, ""), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// CreatePost — POST /posts/ (multipart).
func (c *Client) CreatePost(ctx context.Context, form models.PostForm) (*models.Post, error) {
	const op = "api.CreatePost"

	fields, files, err := postFormParts(form)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.Post
	if err := c.doMultipart(ctx, http.MethodPost, "/posts/", fields, files, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// UpdatePost — PATCH /posts/{id}/ (multipart).
func (c *Client) UpdatePost(ctx context.Context, id int64, form models.PostForm) (*models.Post, error) {
	const op = "api.UpdatePost"

	fields, files, err := postFormParts(form)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.Post
	if err := c.doMultipart(ctx, http.MethodPatch, postPath(id, ""), fields, files, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// DeletePost — DELETE /posts/{id}/.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	const op = "api.DeletePost"

	if err := c.doJSON(ctx, http.MethodDelete, postPath(id, ""), nil, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveToggle — POST /posts/{id}/save/.
func (c *Client) SaveToggle(ctx context.Context, id int64) (models.DetailResponse, error) {
	const op = "api.SaveToggle"

	var out models.DetailResponse
	if err := c.doJSON(ctx, http.MethodPost, postPath(id, "save/"), nil, nil, &out); err != nil {
		return models.DetailResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// postFormParts: body — только непустой, visibility — всегда (по умолчанию public).
func postFormParts(form models.PostForm) ([][2]string, []formFile, error) {
	vis, err := models.ParseVisibility(string(form.Visibility))
	if err != nil {
		return nil, nil, err
	}

	var fields [][2]string
	if form.Body != "" {
		fields = append(fields, [2]string{"body", form.Body})
	}
	fields = append(fields, [2]string{"visibility", string(vis)})

	files := make([]formFile, 0, len(form.MediaPaths))
	for _, p := range form.MediaPaths {
		files = append(files, formFile{field: "media", path: p})
	}

	return fields, files, nil
}

func postPath(id int64, suffix string) string {
	return "/posts/" + strconv.FormatInt(id, 10) + "/" + suffix
}
