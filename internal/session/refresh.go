package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/go-social-client/internal/errors"
	"github.com/pribylovaa/go-social-client/internal/models"
	"github.com/pribylovaa/go-social-client/internal/pkg/redact"
)

var (
	// ErrNoRefreshToken — refresh-токена нет, сессия сброшена.
	// Вызывающий получает исходный ответ 401 и должен заново войти.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRefreshFailed — обновление токена не удалось, сессия сброшена.
	// Оборачивает исходную ошибку обновления.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrSessionEnded — сессия была сброшена или заменена, пока шло обновление.
	ErrSessionEnded = errors.New("session ended during refresh")

	// ErrEmptyAccess — сервер обновления вернул пустой access-токен.
	ErrEmptyAccess = errors.New("empty access token in refresh response")
)

// Refresher выпускает новый access-токен по refresh-токену.
// Реализация обязана ходить мимо координатора: текущий access считается недействительным.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

//go:generate mockgen -destination=../../mocks/mock_refresher.go -package=mocks github.com/pribylovaa/go-social-client/internal/session Refresher

// RefresherFunc — адаптер функции к Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (string, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return f(ctx, refreshToken)
}

type refreshResult struct {
	token string
	err   error
}

// HandleAuthFailure вызывается, когда запрос, отправленный с токеном usedToken,
// получил 401 и ещё не повторялся. Возвращает access-токен для повтора.
//
// Контракт:
//  1. refresh-токена нет — Logout и ErrNoRefreshToken;
//  2. обновление уже идёт — ожидание его итога в FIFO-очереди;
//  3. токен уже сменился с момента отправки — повтор с текущим без обновления;
//  4. иначе — ровно один вызов Refresher; успех раздаётся очереди, ошибка —
//     тоже, с последующим Logout и ErrRefreshFailed.
//
// Ожидающий вызывающий, чей ctx завершился, получает ctx.Err(); само
// обновление и запись его итога в хранилище от отмены ctx инициатора
// не зависят.
func (c *Coordinator) HandleAuthFailure(ctx context.Context, usedToken string) (string, error) {
	const op = "session.HandleAuthFailure"

	c.metrics.AuthFailure()

	c.mu.Lock()
	refresh := c.state.RefreshToken

	if refresh == "" {
		c.mu.Unlock()
		c.log.Warn("refresh_unavailable", slog.String("op", op))
		if _, err := c.Logout(context.WithoutCancel(ctx)); err != nil {
			return "", fmt.Errorf("%s: %w (logout: %v)", op, ErrNoRefreshToken, err)
		}
		return "", fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	if c.refreshing {
		ch := make(chan refreshResult, 1)
		c.queue = append(c.queue, ch)
		pos := len(c.queue)
		c.mu.Unlock()

		c.metrics.Queued()
		c.log.Debug("refresh_queued", slog.Int("position", pos))

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if cur := c.state.AccessToken; cur != "" && cur != usedToken {
		c.mu.Unlock()
		c.log.Debug("refresh_skipped_stale_token", c.logAttrsFor(cur))
		return cur, nil
	}

	c.refreshing = true
	c.mu.Unlock()

	c.log.Info("refresh_started", slog.String("refresh", redact.Fingerprint(refresh)))

	rctx := context.WithoutCancel(ctx)
	if c.refreshTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, c.refreshTimeout)
		defer cancel()
	}

	access, err := c.refresher.Refresh(rctx, refresh)
	if err == nil && access == "" {
		err = ErrEmptyAccess
	}

	// Запись в хранилище не зависит от отмены ctx инициатора: иначе
	// сброшенная сессия осталась бы на диске, а новый access не сохранился бы.
	pctx := context.WithoutCancel(ctx)
	if err != nil {
		return "", c.settleFailure(pctx, op, err)
	}

	return c.settleSuccess(pctx, refresh, access)
}

// settleSuccess сохраняет новый access, снимает флаг и раздаёт токен очереди.
// Если за время обновления сессия сменилась (logout/новый логин), новый токен
// не сохраняется: очередь получает текущий access или ErrSessionEnded.
func (c *Coordinator) settleSuccess(ctx context.Context, usedRefresh, access string) (string, error) {
	c.wmu.Lock()

	c.mu.Lock()
	stale := c.state.RefreshToken != usedRefresh
	if !stale {
		c.state.AccessToken = access
	}
	res := refreshResult{token: access}
	if stale {
		if c.state.AccessToken != "" {
			res = refreshResult{token: c.state.AccessToken}
		} else {
			res = refreshResult{err: ErrSessionEnded}
		}
	}
	queue := c.takeQueueLocked()
	c.mu.Unlock()

	var persistErr error
	if !stale {
		persistErr = c.tokens.SetAccess(ctx, access)
	}
	c.wmu.Unlock()

	c.metrics.RefreshSucceeded()
	if persistErr != nil {
		c.log.Warn("refresh_persist_failed", slog.String("err", persistErr.Error()))
	}
	c.log.Info("refresh_succeeded",
		c.logAttrsFor(res.token),
		slog.Int("released", len(queue)),
		slog.Bool("stale", stale),
	)

	release(queue, res)
	return res.token, res.err
}

// settleFailure сбрасывает сессию, снимает флаг и раздаёт ошибку очереди.
// Состояние очищается в той же критической секции, что и снятие флага,
// поэтому 401, пришедший сразу после, видит отсутствие refresh-токена
// и второго обновления не начинает.
func (c *Coordinator) settleFailure(ctx context.Context, op string, cause error) error {
	err := fmt.Errorf("%s: %w: %w", op, ErrRefreshFailed, cause)

	c.wmu.Lock()

	c.mu.Lock()
	wasSet := !c.state.empty()
	c.state = State{}
	listeners := append([]func(){}, c.onLogout...)
	queue := c.takeQueueLocked()
	c.mu.Unlock()

	var clearErr error
	if wasSet {
		clearErr = c.tokens.Clear(ctx)
	}
	c.wmu.Unlock()

	c.metrics.RefreshFailed()
	c.log.Warn("refresh_failed",
		slog.String("err", cause.Error()),
		slog.Int("released", len(queue)),
	)

	release(queue, refreshResult{err: err})

	if wasSet {
		c.metrics.Logout()
		c.log.Info("session_logout")
		if clearErr != nil {
			c.log.Warn("session_clear_failed", slog.String("err", clearErr.Error()))
		}
		for _, fn := range listeners {
			fn()
		}
	}

	return err
}

// takeQueueLocked забирает очередь и снимает флаг обновления. Требует c.mu.
func (c *Coordinator) takeQueueLocked() []chan refreshResult {
	q := c.queue
	c.queue = nil
	c.refreshing = false
	return q
}

// release будит ожидающих строго в порядке постановки в очередь.
// Каналы буферизованы, поэтому ушедший по ctx ожидающий не блокирует раздачу.
func release(queue []chan refreshResult, res refreshResult) {
	for _, ch := range queue {
		ch <- res
	}
}

// HTTPRefresher — POST {base}/auth/token/refresh/ {refresh} -> {access}.
// Использует собственный http.Client без цепочки координатора.
type HTTPRefresher struct {
	BaseURL string
	Client  *http.Client
}

func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "session.HTTPRefresher.Refresh"

	payload, err := json.Marshal(models.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	url := strings.TrimRight(r.BaseURL, "/") + "/auth/token/refresh/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if apiErr := apierrors.FromResponse(resp); apiErr != nil {
		return "", fmt.Errorf("%s: %w", op, apiErr)
	}

	var out models.AccessToken
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode: %w", op, err)
	}

	return out.Access, nil
}
