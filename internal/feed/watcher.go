package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apierrors "github.com/pribylovaa/go-social-client/internal/errors"
	"github.com/pribylovaa/go-social-client/internal/models"
	"github.com/pribylovaa/go-social-client/internal/session"
)

// Watcher периодически перечитывает первую страницу ленты и сообщает о
// постах, которых ещё не видел. Долгоживущий процесс: access-токен за время
// работы истекает и обновляется прозрачно.
type Watcher struct {
	src      Fetcher
	interval time.Duration
	limit    int
	log      *slog.Logger

	seen map[int64]struct{}
}

func NewWatcher(src Fetcher, interval time.Duration, limit int, log *slog.Logger) *Watcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = slog.Default()
	}

	return &Watcher{
		src:      src,
		interval: interval,
		limit:    limit,
		log:      log.With(slog.String("component", "feed_watcher")),
		seen:     make(map[int64]struct{}),
	}
}

// Run блокируется до отмены ctx или конца сессии. Первый опрос только
// запоминает текущие посты; onNew вызывается для новых постов,
// от новых к старым.
//
// Временные ошибки опроса логируются и не прерывают работу; ошибки
// аутентификации (сессия сброшена) завершают Run.
func (w *Watcher) Run(ctx context.Context, onNew func([]models.Post)) error {
	const op = "feed.Watcher.Run"

	if err := w.poll(ctx, nil); err != nil {
		if fatal(err) || ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		w.log.Warn("feed_poll_failed", slog.String("err", err.Error()))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.poll(ctx, onNew); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if fatal(err) {
					return fmt.Errorf("%s: %w", op, err)
				}
				w.log.Warn("feed_poll_failed", slog.String("err", err.Error()))
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context, onNew func([]models.Post)) error {
	page, err := w.src.Feed(ctx, 0, w.limit)
	if err != nil {
		return err
	}

	var fresh []models.Post
	for _, p := range page.Results {
		if _, ok := w.seen[p.ID]; ok {
			continue
		}
		w.seen[p.ID] = struct{}{}
		fresh = append(fresh, p)
	}

	w.log.Debug("feed_polled", slog.Int("fresh", len(fresh)))
	if onNew != nil && len(fresh) > 0 {
		onNew(fresh)
	}

	return nil
}

func fatal(err error) bool {
	return errors.Is(err, session.ErrRefreshFailed) ||
		errors.Is(err, session.ErrNoRefreshToken) ||
		errors.Is(err, apierrors.ErrUnauthenticated)
}
