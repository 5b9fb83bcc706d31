package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-social-client/internal/pkg/log"
	"github.com/pribylovaa/go-social-client/internal/pkg/redact"
)

// Logging — логирование исходящих HTTP-запросов.
// Поведение:
//   - берёт request_id из контекста/заголовка (его выставляет WithMetadata);
//   - добавляет поля method/path и auth (есть ли Bearer, без значения),
//     прокладывает обогащённый логгер в контекст (pkg/log);
//   - пишет одну запись на попытку: msg="http_client", status, dur.
//
// Безопасность: не логирует тела и заголовки (Authorization в том числе).
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := req.Header.Get("X-Request-Id")
			if rid == "" {
				rid = RequestIDFrom(req.Context())
			}
			if rid == "" {
				rid = "-"
			}

			auth := "-"
			if req.Header.Get("Authorization") != "" {
				auth = redact.Token()
			}

			ctx, l := log.With(log.Into(req.Context(), base),
				slog.String("request_id", rid),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("auth", auth),
			)
			req = req.WithContext(ctx)

			resp, err := next.RoundTrip(req)

			if err != nil {
				l.Warn("http_client",
					slog.String("err", err.Error()),
					slog.Duration("dur", time.Since(start)),
				)
				return resp, err
			}

			l.Info("http_client",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)
			return resp, nil
		})
	}
}
