package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	apierrors "github.com/pribylovaa/go-social-client/internal/errors"
	"github.com/pribylovaa/go-social-client/mocks"
)

// authServer отвечает 200 только на Bearer valid, иначе 401.
type authServer struct {
	valid atomic.Value
	hits  atomic.Int32
	seen  sync.Map
}

func newAuthServer(t *testing.T, valid string) (*authServer, *httptest.Server) {
	t.Helper()

	a := &authServer{}
	a.valid.Store(valid)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		a.seen.Store(r.Header.Get("Authorization"), string(body))

		if r.Header.Get("Authorization") != "Bearer "+a.valid.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return a, srv
}

func newClient(c *Coordinator) *http.Client {
	return &http.Client{Transport: c.Middleware()(http.DefaultTransport)}
}

func TestTransport_ValidTokenNotQueued(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	a, srv := newAuthServer(t, "a1")
	c, m := newCoordinator(t, seededStore(t, "a1", "r1"), mocks.NewMockRefresher(ctrl))

	resp, err := newClient(c).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(1), a.hits.Load())
	require.Zero(t, testutil.ToFloat64(m.QueuedTotal))
	require.Zero(t, testutil.ToFloat64(m.AuthFailuresTotal))
}

func TestTransport_NoTokenNoHeader(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c, _ := newCoordinator(t, memoryEmpty(), nil)

	resp, err := newClient(c).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, <-got)
}

func TestTransport_ConcurrentExpiryOneRefresh(t *testing.T) {
	a, srv := newAuthServer(t, "a2")

	var calls atomic.Int32
	gate := make(chan struct{})
	ref := RefresherFunc(func(context.Context, string) (string, error) {
		calls.Add(1)
		<-gate
		return "a2", nil
	})
	c, m := newCoordinator(t, seededStore(t, "a1", "r1"), ref)
	client := newClient(c)

	const n = 3
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(srv.URL)
			if err != nil {
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.QueuedTotal) == n-1
	}, 2*time.Second, 5*time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, code := range codes {
		require.Equal(t, http.StatusOK, code)
	}
	require.Equal(t, int32(2*n), a.hits.Load())
	require.Equal(t, "a2", c.AccessToken())
}

func TestTransport_SecondUnauthorizedNotRetried(t *testing.T) {
	a, srv := newAuthServer(t, "never")

	var calls atomic.Int32
	ref := RefresherFunc(func(context.Context, string) (string, error) {
		calls.Add(1)
		return "a2", nil
	})
	c, _ := newCoordinator(t, seededStore(t, "a1", "r1"), ref)

	resp, err := newClient(c).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.ErrorIs(t, apierrors.FromResponse(resp), apierrors.ErrUnauthenticated)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, int32(2), a.hits.Load())
	require.True(t, c.IsAuthenticated())
}

func TestTransport_RefreshFailureRejects(t *testing.T) {
	_, srv := newAuthServer(t, "a2")

	ref := RefresherFunc(func(context.Context, string) (string, error) {
		return "", &apierrors.Error{Status: http.StatusUnauthorized, Code: "unauthenticated"}
	})
	c, _ := newCoordinator(t, seededStore(t, "a1", "r1"), ref)

	var loggedOut atomic.Int32
	c.OnLogout(func() { loggedOut.Add(1) })

	_, err := newClient(c).Get(srv.URL)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRefreshFailed)
	require.Equal(t, int32(1), loggedOut.Load())
	require.False(t, c.IsAuthenticated())
}

func TestTransport_NoRefreshTokenReturnsOriginal401(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	a, srv := newAuthServer(t, "a2")
	c, _ := newCoordinator(t, seededStore(t, "a1", ""), mocks.NewMockRefresher(ctrl))

	resp, err := newClient(c).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	apiErr := apierrors.FromResponse(resp)
	require.Equal(t, "Given token not valid for any token type", apiErr.Message)
	require.Equal(t, int32(1), a.hits.Load())
	require.False(t, c.IsAuthenticated())
}

func TestTransport_ReplaysBody(t *testing.T) {
	a, srv := newAuthServer(t, "a2")

	ref := RefresherFunc(func(context.Context, string) (string, error) { return "a2", nil })
	c, _ := newCoordinator(t, seededStore(t, "a1", "r1"), ref)

	payload, _ := json.Marshal(map[string]string{"body": "hello"})
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(string(payload)))
	require.NoError(t, err)

	resp, err := newClient(c).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, string(payload), string(got))

	first, ok := a.seen.Load("Bearer a1")
	require.True(t, ok)
	require.Equal(t, string(payload), first)
}

func TestTransport_NonReplayableBodyNotRetried(t *testing.T) {
	a, srv := newAuthServer(t, "a2")

	ref := RefresherFunc(func(context.Context, string) (string, error) { return "a2", nil })
	c, _ := newCoordinator(t, seededStore(t, "a1", "r1"), ref)

	req, err := http.NewRequest(http.MethodPost, srv.URL, io.NopCloser(strings.NewReader("x")))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := newClient(c).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int32(1), a.hits.Load())
	require.Equal(t, "a2", c.AccessToken())
}

func TestRetriedMarker(t *testing.T) {
	ctx := context.Background()
	require.False(t, IsRetried(ctx))
	require.True(t, IsRetried(WithRetried(ctx)))
}
