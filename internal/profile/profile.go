// profile — страница профиля: загрузка, подписка, настройки.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/go-social-client/internal/models"
	"github.com/pribylovaa/go-social-client/internal/toggle"
)

// ErrOwnProfile — нельзя подписаться на самого себя.
var ErrOwnProfile = errors.New("cannot follow own profile")

// API — эндпойнты профиля (api.Client).
type API interface {
	User(ctx context.Context, id string) (*models.UserPublic, error)
	PostsByAuthor(ctx context.Context, authorID int64) ([]models.Post, error)
	Followers(ctx context.Context, id int64) ([]models.FollowRelation, error)
	Following(ctx context.Context, id int64) ([]models.FollowRelation, error)
	FollowToggle(ctx context.Context, id int64) (models.DetailResponse, error)
	UpdateUser(ctx context.Context, id int64, in models.UpdateUserRequest) (*models.UserPublic, error)
}

// View — загруженный профиль.
// Incomplete=true, если вторичные данные (посты, подписчики, подписки)
// загрузить не удалось: тогда все три списка пустые.
type View struct {
	User       models.UserPublic
	Posts      []models.Post
	Followers  []models.FollowRelation
	Following  []models.FollowRelation
	Incomplete bool

	api    API
	follow *toggle.Toggle
}

// Load грузит пользователя (id — число или "me"), затем параллельно его
// посты, подписчиков и подписки. Ошибка пользователя возвращается;
// ошибка любого вторичного запроса только логируется.
func Load(ctx context.Context, api API, id string, log *slog.Logger) (*View, error) {
	const op = "profile.Load"

	if log == nil {
		log = slog.Default()
	}

	u, err := api.User(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	v := &View{
		User:   *u,
		api:    api,
		follow: toggle.New(u.IsFollowing, u.FollowersCount),
	}

	var (
		posts     []models.Post
		followers []models.FollowRelation
		following []models.FollowRelation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = api.PostsByAuthor(gctx, u.ID)
		return err
	})
	g.Go(func() error {
		var err error
		followers, err = api.Followers(gctx, u.ID)
		return err
	})
	g.Go(func() error {
		var err error
		following, err = api.Following(gctx, u.ID)
		return err
	})

	if err := g.Wait(); err != nil {
		log.Warn("profile_secondary_failed",
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
		v.Incomplete = true
		return v, nil
	}

	v.Posts, v.Followers, v.Following = posts, followers, following
	return v, nil
}

// IsOwn — профиль принадлежит текущему пользователю.
func (v *View) IsOwn(currentID int64) bool {
	return currentID != 0 && v.User.ID == currentID
}

// FollowState — текущее (возможно оптимистичное) состояние подписки.
func (v *View) FollowState() toggle.State {
	return v.follow.Snapshot()
}

// ToggleFollow оптимистично переключает подписку.
func (v *View) ToggleFollow(ctx context.Context, currentID int64) (toggle.Outcome, error) {
	const op = "profile.ToggleFollow"

	if v.IsOwn(currentID) {
		return toggle.None, fmt.Errorf("%s: %w", op, ErrOwnProfile)
	}

	out, err := v.follow.Do(ctx, func(ctx context.Context, _ bool) error {
		_, err := v.api.FollowToggle(ctx, v.User.ID)
		return err
	})

	s := v.follow.Snapshot()
	v.User.IsFollowing, v.User.FollowersCount = s.On, s.Count

	if err != nil {
		return out, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Settings — изменения формы настроек; nil — поле не трогали.
type Settings struct {
	Username   *string
	Bio        *string
	Website    *string
	Location   *string
	AvatarPath string
	CoverPath  string
}

// UpdateSettings отправляет форму настроек текущего пользователя.
// Форма заполняется текущими значениями; current == nil — профиль
// предварительно читается через /users/me/.
func UpdateSettings(ctx context.Context, api API, current *models.UserPublic, s Settings) (*models.UserPublic, error) {
	const op = "profile.UpdateSettings"

	if current == nil {
		me, err := api.User(ctx, "me")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		current = me
	}

	req := models.UpdateUserRequest{
		Username:   pick(s.Username, current.Username),
		Bio:        pick(s.Bio, current.Bio),
		Website:    pick(s.Website, current.Website),
		Location:   pick(s.Location, current.Location),
		AvatarPath: s.AvatarPath,
		CoverPath:  s.CoverPath,
	}

	u, err := api.UpdateUser(ctx, current.ID, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func pick(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}
