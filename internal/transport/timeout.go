package transport

import (
	"context"
	"io"
	"net/http"
	"time"
)

// WithTimeout навешивает таймаут d на исходящий запрос, если у контекста
// ещё нет дедлайна. Существующий дедлайн не переопределяется.
//
// Контракт:
//  1. d <= 0 — запрос уходит как есть;
//  2. у ctx уже есть deadline — оставляет как есть;
//  3. иначе — context.WithTimeout(ctx, d); cancel() вызывается при ошибке
//     или при закрытии тела ответа, чтобы тело можно было дочитать.
func WithTimeout(d time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			if d <= 0 {
				return next.RoundTrip(req)
			}
			if _, ok := ctx.Deadline(); ok {
				return next.RoundTrip(req)
			}

			cctx, cancel := context.WithTimeout(ctx, d)
			resp, err := next.RoundTrip(req.WithContext(cctx))
			if err != nil || resp == nil || resp.Body == nil {
				cancel()
				return resp, err
			}

			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		})
	}
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
