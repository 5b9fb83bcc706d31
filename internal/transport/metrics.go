package transport

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-social-client/internal/metrics"
)

// Metrics пишет длительность каждой попытки в гистограмму по методу и статусу.
// m == nil — прозрачная обёртка.
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if m == nil {
			return next
		}
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			code := 0
			if err == nil && resp != nil {
				code = resp.StatusCode
			}
			m.ObserveRequest(req.Method, code, time.Since(start))

			return resp, err
		})
	}
}
