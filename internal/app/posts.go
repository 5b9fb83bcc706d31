package app

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-social-client/internal/models"
	"github.com/pribylovaa/go-social-client/internal/toggle"
)

// React оптимистично переключает лайк поста: post обновляется сразу,
// при ошибке запроса возвращается к исходному виду.
func (a *App) React(ctx context.Context, post *models.Post) (toggle.Outcome, error) {
	const op = "app.React"

	tg := toggle.New(post.Liked(), post.ReactionsCount)
	apply := func() {
		s := tg.Snapshot()
		post.ReactionsCount = s.Count
		if s.On {
			like := models.ReactionLike
			post.UserReaction = &like
		} else {
			post.UserReaction = nil
		}
	}

	prev := post.UserReaction
	out, err := tg.Do(ctx, func(ctx context.Context, _ bool) error {
		apply()
		_, err := a.API.React(ctx, post.ID, models.ReactionLike)
		return err
	})
	if err != nil {
		post.UserReaction = prev
		post.ReactionsCount = tg.Snapshot().Count
		return out, fmt.Errorf("%s: %w", op, err)
	}
	apply()

	return out, nil
}
