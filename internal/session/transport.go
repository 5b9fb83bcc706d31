package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-social-client/internal/pkg/log"
)

type retriedKey struct{}

// WithRetried помечает запрос как уже повторённый после обновления токена.
func WithRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// IsRetried сообщает, повторялся ли уже запрос.
func IsRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// Middleware возвращает RoundTripper-обёртку координатора.
func (c *Coordinator) Middleware() func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &Transport{Coordinator: c, Base: next}
	}
}

// Transport прикладывает Bearer-токен и обрабатывает 401:
// один повтор после HandleAuthFailure, повторный 401 отдаётся как есть.
type Transport struct {
	Coordinator *Coordinator
	Base        http.RoundTripper
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	first := req.Clone(ctx)
	used := t.Coordinator.AttachCredential(first)

	resp, err := t.base().RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || IsRetried(ctx) {
		return resp, err
	}

	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	token, herr := t.Coordinator.HandleAuthFailure(ctx, used)
	if herr != nil {
		if errors.Is(herr, ErrNoRefreshToken) {
			return resp, nil
		}
		drain(resp)
		return nil, herr
	}

	if !replayable {
		log.From(ctx).Debug("retry_skipped_body_not_replayable",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
		)
		return resp, nil
	}

	retry := req.Clone(WithRetried(ctx))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			drain(resp)
			return nil, err
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+token)

	drain(resp)

	return t.base().RoundTrip(retry)
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
