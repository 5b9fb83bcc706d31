package transport

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type CtxKey string

const CtxRequestID CtxKey = "request_id"

// WithRequestID кладёт request id в контекст исходящего запроса.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, CtxRequestID, rid)
}

// RequestIDFrom — request id из контекста или "".
func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(CtxRequestID).(string)
	return rid
}

// WithMetadata — добавляет в исходящий запрос заголовки:
//   - X-Request-Id (из контекста, иначе новый uuid; уже выставленный не трогает),
//   - User-Agent (если передан параметром),
//   - Accept: application/json (если не задан).
//
// Request id кладётся и в контекст запроса, чтобы его видели внутренние слои.
func WithMetadata(userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()

			rid := req.Header.Get("X-Request-Id")
			if rid == "" {
				rid = RequestIDFrom(ctx)
			}
			if rid == "" {
				rid = uuid.NewString()
			}

			r := req.Clone(WithRequestID(ctx, rid))
			r.Header.Set("X-Request-Id", rid)
			if userAgent != "" {
				r.Header.Set("User-Agent", userAgent)
			}
			if r.Header.Get("Accept") == "" {
				r.Header.Set("Accept", "application/json")
			}

			return next.RoundTrip(r)
		})
	}
}
