package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pribylovaa/go-social-client/internal/models"
)

// User — GET /users/{id}/; id — число или "me".
func (c *Client) User(ctx context.Context, id string) (*models.UserPublic, error) {
	const op = "api.User"

	var out models.UserPublic
	if err := c.doJSON(ctx, http.MethodGet, "/users/"+id+"/", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// UpdateUser — PATCH /users/{id}/ (multipart). Текстовые поля уходят
// всегда, файлы аватара и обложки — только если заданы.
func (c *Client) UpdateUser(ctx context.Context, id int64, in models.UpdateUserRequest) (*models.UserPublic, error) {
	const op = "api.UpdateUser"

	fields := [][2]string{
		{"username", in.Username},
		{"bio", in.Bio},
		{"website", in.Website},
		{"location", in.Location},
	}

	var files []formFile
	if in.AvatarPath != "" {
		files = append(files, formFile{field: "avatar", path: in.AvatarPath})
	}
	if in.CoverPath != "" {
		files = append(files, formFile{field: "cover", path: in.CoverPath})
	}

	var out models.UserPublic
	if err := c.doMultipart(ctx, http.MethodPatch, userPath(id, ""), fields, files, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// FollowToggle — POST /users/{id}/follow/.
func (c *Client) FollowToggle(ctx context.Context, id int64) (models.DetailResponse, error) {
	const op = "api.FollowToggle"

	var out models.DetailResponse
	if err := c.doJSON(ctx, http.MethodPost, userPath(id, "follow/"), nil, nil, &out); err != nil {
		return models.DetailResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Followers — GET /users/{id}/followers/.
func (c *Client) Followers(ctx context.Context, id int64) ([]models.FollowRelation, error) {
	const op = "api.Followers"

	var out models.List[models.FollowRelation]
	if err := c.doJSON(ctx, http.MethodGet, userPath(id, "followers/"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Following — GET /users/{id}/following/.
func (c *Client) Following(ctx context.Context, id int64) ([]models.FollowRelation, error) {
	const op = "api.Following"

	var out models.List[models.FollowRelation]
	if err := c.doJSON(ctx, http.MethodGet, userPath(id, "following/"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func userPath(id int64, suffix string) string {
	return "/users/" + strconv.FormatInt(id, 10) + "/" + suffix
}
