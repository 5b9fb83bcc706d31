package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-social-client/internal/metrics"
	"github.com/pribylovaa/go-social-client/internal/pkg/log"
)

type capHandler struct {
	mu      sync.Mutex
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   map[string]int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	if h.count == nil {
		h.count = make(map[string]int)
	}
	h.count[r.Message]++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func okResponse(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("{}")),
		Request:    req,
	}
}

func newReq(t *testing.T, ctx context.Context) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.local/api/feed/", nil)
	require.NoError(t, err)
	return req
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		order = append(order, "base")
		return okResponse(r), nil
	})

	rt := Chain(base, mark("a"), nil, mark("b"))
	resp, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, []string{"a", "b", "base"}, order)
}

func TestWithMetadata_SetsHeaders(t *testing.T) {
	t.Parallel()

	const rid = "rid-123"
	var got *http.Request
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		got = r
		return okResponse(r), nil
	})

	rt := WithMetadata("social-cli")(base)
	req := newReq(t, WithRequestID(context.Background(), rid))

	_, err := rt.RoundTrip(req)
	require.NoError(t, err)

	require.Equal(t, rid, got.Header.Get("X-Request-Id"))
	require.Equal(t, "social-cli", got.Header.Get("User-Agent"))
	require.Equal(t, "application/json", got.Header.Get("Accept"))
	require.Equal(t, rid, RequestIDFrom(got.Context()))
	require.Empty(t, req.Header.Get("X-Request-Id"), "original request must not be mutated")
}

func TestWithMetadata_GeneratesRequestID(t *testing.T) {
	t.Parallel()

	var got *http.Request
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		got = r
		return okResponse(r), nil
	})

	req := newReq(t, context.Background())
	req.Header.Set("Accept", "text/plain")

	_, err := WithMetadata("")(base).RoundTrip(req)
	require.NoError(t, err)

	_, err = uuid.Parse(got.Header.Get("X-Request-Id"))
	require.NoError(t, err)
	require.Equal(t, "text/plain", got.Header.Get("Accept"))
	require.NotEqual(t, "", got.Header.Get("X-Request-Id"))
}

func TestWithTimeout_SetsDeadline(t *testing.T) {
	t.Parallel()

	const d = 40 * time.Millisecond
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})

	start := time.Now()
	_, err := WithTimeout(d)(base).RoundTrip(newReq(t, context.Background()))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, time.Since(start), d)
}

func TestWithTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	parentDL, _ := parent.Deadline()

	var childDL time.Time
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		childDL, _ = r.Context().Deadline()
		return okResponse(r), nil
	})

	resp, err := WithTimeout(time.Second)(base).RoundTrip(newReq(t, parent))
	require.NoError(t, err)
	resp.Body.Close()
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestWithTimeout_CancelOnBodyClose(t *testing.T) {
	t.Parallel()

	var reqCtx context.Context
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		reqCtx = r.Context()
		return okResponse(r), nil
	})

	resp, err := WithTimeout(time.Minute)(base).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	require.NoError(t, reqCtx.Err(), "context must stay alive until body is closed")

	_, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.ErrorIs(t, reqCtx.Err(), context.Canceled)
}

func TestWithTimeout_ZeroDuration_PassThrough(t *testing.T) {
	t.Parallel()

	var hasDL bool
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		_, hasDL = r.Context().Deadline()
		return okResponse(r), nil
	})

	_, err := WithTimeout(0)(base).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	require.False(t, hasDL, "no deadline expected when d <= 0")
}

func TestLogging_LogsAndPutsLoggerIntoContext(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		log.From(r.Context()).Info("probe")
		return okResponse(r), nil
	})

	req := newReq(t, context.Background())
	req.Header.Set("X-Request-Id", "rid-1")

	_, err := Logging(slog.New(h))(base).RoundTrip(req)
	require.NoError(t, err)

	require.Equal(t, 1, h.count["probe"])
	require.Equal(t, "http_client", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, "rid-1", h.attrs["request_id"])
	require.Equal(t, "/api/feed/", h.attrs["path"])
	require.Equal(t, "-", h.attrs["auth"])
	require.EqualValues(t, http.StatusOK, h.attrs["status"])
	_, ok := h.attrs["dur"].(time.Duration)
	require.True(t, ok)
}

func TestLogging_RedactsBearer(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) { return okResponse(r), nil })

	req := newReq(t, context.Background())
	req.Header.Set("Authorization", "Bearer secret-access")

	_, err := Logging(slog.New(h))(base).RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, "[REDACTED_TOKEN]", h.attrs["auth"])
	for k, v := range h.attrs {
		s, _ := v.(string)
		require.NotContains(t, s, "secret-access", k)
	}
}

func TestLogging_TransportError(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	boom := errors.New("connection refused")
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, boom })

	_, err := Logging(slog.New(h))(base).RoundTrip(newReq(t, context.Background()))
	require.ErrorIs(t, err, boom)
	require.Equal(t, slog.LevelWarn, h.lastLvl)
	require.Equal(t, "connection refused", h.attrs["err"])
}

func TestMetrics_ObservesRequests(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	ok := RoundTripperFunc(func(r *http.Request) (*http.Response, error) { return okResponse(r), nil })
	fail := RoundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, errors.New("x") })

	_, err := Metrics(m)(ok).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	_, err = Metrics(m)(fail).RoundTrip(newReq(t, context.Background()))
	require.Error(t, err)

	require.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}

func TestMetrics_NilIsPassThrough(t *testing.T) {
	t.Parallel()

	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) { return okResponse(r), nil })
	rt := Metrics(nil)(base)

	resp, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
