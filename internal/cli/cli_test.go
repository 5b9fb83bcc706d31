package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-social-client/internal/app"
	"github.com/pribylovaa/go-social-client/internal/apitest"
	"github.com/pribylovaa/go-social-client/internal/config"
	apierrors "github.com/pribylovaa/go-social-client/internal/errors"
	"github.com/pribylovaa/go-social-client/internal/models"
	"github.com/pribylovaa/go-social-client/internal/profile"
	"github.com/pribylovaa/go-social-client/internal/storage/memory"
)

type fixture struct {
	srv   *apitest.Server
	store *memory.Storage
	kate  models.UserPublic
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := apitest.New()
	t.Cleanup(srv.Close)

	return &fixture{
		srv:   srv,
		store: memory.New(),
		kate:  srv.AddUser("kate", "kate@example.com", "password123"),
	}
}

func (f *fixture) opener() Opener {
	return func(ctx context.Context, _ string) (*app.App, error) {
		cfg := &config.Config{
			Env: "local",
			API: config.APIConfig{
				BackendURL:     f.srv.URL(),
				Timeout:        5 * time.Second,
				RefreshTimeout: 5 * time.Second,
				UserAgent:      "social-cli-test",
			},
			Storage: config.StorageConfig{Backend: config.StorageMemory},
			Feed:    config.FeedConfig{PageSize: 20, PollInterval: time.Second},
		}
		return app.New(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), app.Options{Store: f.store})
	}
}

// run выполняет одну команду, как отдельный запуск процесса.
func (f *fixture) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	err := Execute(context.Background(), f.opener(), args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func (f *fixture) login(t *testing.T) {
	t.Helper()

	_, _, err := f.run(t, "", "login", "--email", "kate@example.com", "--password", "password123")
	require.NoError(t, err)
}

func decodeJSON[T any](t *testing.T, s string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func TestLogin_StatusAndMe(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, _, err := f.run(t, "password123\n", "login", "--email", "kate@example.com")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as kate@example.com.")
	require.Equal(t, 2, f.store.Len())

	out, _, err = f.run(t, "", "status", "-o", "json")
	require.NoError(t, err)
	st := decodeJSON[statusView](t, out)
	require.True(t, st.Authenticated)
	require.True(t, st.HasRefresh)
	require.Equal(t, strconv.FormatInt(f.kate.ID, 10), st.Subject)
	require.NotNil(t, st.ExpiresAt)
	require.False(t, st.Expired)

	out, _, err = f.run(t, "", "me")
	require.NoError(t, err)
	require.Contains(t, out, "@kate")
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, _, err := f.run(t, "", "login", "--email", "kate@example.com", "--password", "wrong")
	require.Error(t, err)
	require.Equal(t, "No active account found with the given credentials", err.Error())
	require.ErrorIs(t, err, apierrors.ErrUnauthenticated)
	require.Zero(t, f.store.Len())
}

func TestLogin_NoPassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, _, err := f.run(t, "", "login", "--email", "kate@example.com")
	require.ErrorIs(t, err, errNoInput)
}

func TestGuards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, _, err := f.run(t, "", "feed")
	require.ErrorIs(t, err, app.ErrLoginRequired)

	_, _, err = f.run(t, "", "post", "list")
	require.ErrorIs(t, err, app.ErrLoginRequired)

	out, _, err := f.run(t, "", "status")
	require.NoError(t, err)
	require.Contains(t, out, "Not logged in.")

	f.login(t)

	_, _, err = f.run(t, "", "login", "--email", "kate@example.com", "--password", "password123")
	require.ErrorIs(t, err, app.ErrAlreadyLoggedIn)

	_, _, err = f.run(t, "", "register", "--username", "x", "--email", "x@example.com", "--password", "password123")
	require.ErrorIs(t, err, app.ErrAlreadyLoggedIn)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, _, err := f.run(t, "", "register", "--username", "bob", "--email", "bob@example.com", "--password", "password123")
	require.NoError(t, err)
	require.Contains(t, out, "Registration successful.")

	_, _, err = f.run(t, "", "register",
		"--username", "eve", "--email", "eve@example.com",
		"--password", "password123", "--password-confirm", "password124")
	require.Error(t, err)
	require.Equal(t, "Passwords do not match.", err.Error())
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)
}

func TestBadOutputFormat(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, _, err := f.run(t, "", "status", "-o", "yaml")
	require.ErrorIs(t, err, ErrBadOutput)
}

func TestFeed_Paging(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.srv.AddPost(f.kate.ID, "post "+strconv.Itoa(i), models.VisibilityPublic)
	}
	f.login(t)

	out, _, err := f.run(t, "", "feed", "--limit", "2", "-o", "json")
	require.NoError(t, err)
	page := decodeJSON[feedPage](t, out)
	require.Len(t, page.Posts, 2)
	require.True(t, page.HasMore)
	require.Equal(t, 2, page.Offset)

	out, _, err = f.run(t, "", "feed", "--limit", "2", "--offset", "2", "-o", "json")
	require.NoError(t, err)
	page = decodeJSON[feedPage](t, out)
	require.Len(t, page.Posts, 1)
	require.False(t, page.HasMore)

	out, _, err = f.run(t, "", "feed", "--limit", "2", "--pages", "2")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.Contains(t, out, "post "+strconv.Itoa(i))
	}
	require.NotContains(t, out, "More:")
}

func TestFeed_EmptyText(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.login(t)

	out, _, err := f.run(t, "", "feed")
	require.NoError(t, err)
	require.Contains(t, out, "Your feed is empty.")
}

func TestFeed_ExpiredAccessRefreshedOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.srv.AddPost(f.kate.ID, "hello", models.VisibilityPublic)
	f.login(t)

	f.srv.ExpireAccess()

	out, errOut, err := f.run(t, "", "feed")
	require.NoError(t, err)
	require.Contains(t, out, "hello")
	require.Empty(t, errOut)
	require.EqualValues(t, 1, f.srv.RefreshCalls())

	out, _, err = f.run(t, "", "status", "-o", "json")
	require.NoError(t, err)
	require.True(t, decodeJSON[statusView](t, out).Authenticated)
}

func TestFeed_RefreshFailureEndsSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.login(t)

	f.srv.ExpireAccess()
	f.srv.RevokeRefresh()

	_, errOut, err := f.run(t, "", "feed")
	require.Error(t, err)
	require.Equal(t, 1, strings.Count(errOut, "Session ended. Please log in again."))
	require.Zero(t, f.store.Len())

	_, _, err = f.run(t, "", "feed")
	require.ErrorIs(t, err, app.ErrLoginRequired)
}

func TestPost_Lifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.login(t)

	out, _, err := f.run(t, "", "post", "create", "--body", "first", "--visibility", "friends", "-o", "json")
	require.NoError(t, err)
	created := decodeJSON[models.Post](t, out)
	require.Equal(t, "first", created.Body)
	require.Equal(t, models.VisibilityFriends, created.Visibility)
	id := strconv.FormatInt(created.ID, 10)

	out, _, err = f.run(t, "", "post", "edit", id, "--body", "edited", "-o", "json")
	require.NoError(t, err)
	edited := decodeJSON[models.Post](t, out)
	require.Equal(t, "edited", edited.Body)
	require.Equal(t, models.VisibilityFriends, edited.Visibility)

	out, _, err = f.run(t, "", "react", id, "-o", "json")
	require.NoError(t, err)
	rv := decodeJSON[reactView](t, out)
	require.Equal(t, "committed", rv.Outcome)
	require.Equal(t, 1, rv.Post.ReactionsCount)
	require.True(t, rv.Post.Liked())

	out, _, err = f.run(t, "", "react", id, "-o", "json")
	require.NoError(t, err)
	rv = decodeJSON[reactView](t, out)
	require.Zero(t, rv.Post.ReactionsCount)
	require.False(t, rv.Post.Liked())

	out, _, err = f.run(t, "", "post", "save", id)
	require.NoError(t, err)
	require.Contains(t, out, "Saved.")

	out, _, err = f.run(t, "", "post", "list", "--author", strconv.FormatInt(f.kate.ID, 10))
	require.NoError(t, err)
	require.Contains(t, out, "edited")
	require.Contains(t, out, "[saved]")

	out, _, err = f.run(t, "", "post", "delete", id)
	require.NoError(t, err)
	require.Contains(t, out, "deleted")

	_, _, err = f.run(t, "", "post", "get", id)
	require.ErrorIs(t, err, apierrors.ErrNotFound)
}

func TestPost_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.login(t)

	_, _, err := f.run(t, "", "post", "create")
	require.Error(t, err)

	_, _, err = f.run(t, "", "post", "create", "--body", "x", "--visibility", "everyone")
	require.Error(t, err)

	_, _, err = f.run(t, "", "post", "get", "abc")
	require.Error(t, err)
	require.Zero(t, f.srv.Unauthorized())
}

func TestReact_RollbackOnFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.srv.AddPost(f.kate.ID, "hello", models.VisibilityPublic)
	f.login(t)

	id := strconv.FormatInt(p.ID, 10)
	f.srv.FailNext("POST", "/api/posts/"+id+"/react/", 500)

	_, _, err := f.run(t, "", "react", id)
	require.ErrorIs(t, err, apierrors.ErrInternal)

	out, _, err := f.run(t, "", "post", "get", id, "-o", "json")
	require.NoError(t, err)
	require.Zero(t, decodeJSON[models.Post](t, out).ReactionsCount)
}

func TestComments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.srv.AddPost(f.kate.ID, "hello", models.VisibilityPublic)
	f.login(t)
	id := strconv.FormatInt(p.ID, 10)

	out, _, err := f.run(t, "", "comments", "list", id)
	require.NoError(t, err)
	require.Contains(t, out, "No comments yet.")

	_, _, err = f.run(t, "", "comments", "add", id, "nice", "post")
	require.NoError(t, err)

	out, _, err = f.run(t, "", "comments", "list", id, "-o", "json")
	require.NoError(t, err)
	list := decodeJSON[[]models.Comment](t, out)
	require.Len(t, list, 1)
	require.Equal(t, "nice post", list[0].Body)
	require.Equal(t, "kate", list[0].User.Username)
}

func TestProfile_FollowAndRelations(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	bob := f.srv.AddUser("bob", "bob@example.com", "password123")
	f.srv.AddPost(bob.ID, "bob's post", models.VisibilityPublic)
	f.login(t)
	bobID := strconv.FormatInt(bob.ID, 10)

	out, _, err := f.run(t, "", "profile", "show", bobID, "-o", "json")
	require.NoError(t, err)
	pv := decodeJSON[profileView](t, out)
	require.Equal(t, "bob", pv.User.Username)
	require.False(t, pv.Own)
	require.False(t, pv.Incomplete)
	require.Len(t, pv.Posts, 1)

	out, _, err = f.run(t, "", "profile", "follow", bobID, "-o", "json")
	require.NoError(t, err)
	fv := decodeJSON[followView](t, out)
	require.True(t, fv.Following)
	require.Equal(t, 1, fv.Followers)
	require.Equal(t, "committed", fv.Outcome)

	out, _, err = f.run(t, "", "profile", "followers", bobID)
	require.NoError(t, err)
	require.Contains(t, out, "@kate")

	out, _, err = f.run(t, "", "profile", "following")
	require.NoError(t, err)
	require.Contains(t, out, "@bob")

	out, _, err = f.run(t, "", "feed")
	require.NoError(t, err)
	require.Contains(t, out, "bob's post")

	_, _, err = f.run(t, "", "profile", "follow", strconv.FormatInt(f.kate.ID, 10))
	require.ErrorIs(t, err, profile.ErrOwnProfile)
}

func TestProfile_ShowOwnAndUpdate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.login(t)

	out, _, err := f.run(t, "", "profile", "show", "-o", "json")
	require.NoError(t, err)
	require.True(t, decodeJSON[profileView](t, out).Own)

	out, _, err = f.run(t, "", "profile", "update", "--bio", "hello there", "-o", "json")
	require.NoError(t, err)
	u := decodeJSON[models.UserPublic](t, out)
	require.Equal(t, "hello there", u.Bio)
	require.Equal(t, "kate", u.Username)
}

func TestLogout_Idempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.login(t)

	out, errOut, err := f.run(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Logged out.")
	require.Empty(t, errOut)
	require.Zero(t, f.store.Len())

	out, _, err = f.run(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Not logged in.")
}
