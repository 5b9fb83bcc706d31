package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pribylovaa/go-social-client/internal/models"
)

// DefaultFeedLimit — размер страницы ленты по умолчанию.
const DefaultFeedLimit = 20

// Feed — GET /feed/?offset=&limit=.
func (c *Client) Feed(ctx context.Context, offset, limit int) (*models.FeedResponse, error) {
	const op = "api.Feed"

	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if offset < 0 {
		offset = 0
	}

	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var out models.FeedResponse
	if err := c.doJSON(ctx, http.MethodGet, "/feed/", q, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
