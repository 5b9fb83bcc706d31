package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apierrors "github.com/pribylovaa/go-social-client/internal/errors"
	"github.com/pribylovaa/go-social-client/internal/models"
	"github.com/pribylovaa/go-social-client/internal/pkg/redact"
)

// Login получает пару токенов и сохраняет её; профиль текущего
// пользователя запрашивается в фоне, его ошибка игнорируется.
// Close дожидается фонового запроса.
func (a *App) Login(ctx context.Context, email, password string) error {
	const op = "app.Login"

	log := a.Log.With(
		slog.String("op", op),
		slog.String("email", redact.Email(email)),
		slog.String("password", redact.Password()),
	)

	pair, err := a.API.Login(ctx, email, password)
	if err != nil {
		log.Info("login_failed", slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.Session.SetTokens(ctx, pair.Access, pair.Refresh); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("login_succeeded")

	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		a.fetchMe(context.WithoutCancel(ctx))
	}()

	return nil
}

// fetchMe — фоновая загрузка профиля после входа. Результат пишется,
// только если сессия всё ещё активна.
func (a *App) fetchMe(ctx context.Context) {
	u, err := a.API.Me(ctx)
	if err != nil {
		a.Log.Debug("me_fetch_failed", slog.String("err", err.Error()))
		return
	}
	if !a.Session.IsAuthenticated() {
		return
	}
	a.Session.SetUser(u)
}

// CurrentUser — профиль из сессии либо свежий /users/me/.
func (a *App) CurrentUser(ctx context.Context) (*models.UserPublic, error) {
	const op = "app.CurrentUser"

	if u := a.Session.Snapshot().User; u != nil {
		return u, nil
	}

	u, err := a.API.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.Session.SetUser(u)

	return u, nil
}

// Register регистрирует пользователя и возвращает сообщение сервера.
func (a *App) Register(ctx context.Context, in models.RegisterRequest) (string, error) {
	const op = "app.Register"

	out, err := a.API.Register(ctx, in)
	if err != nil {
		a.Log.Info("register_failed",
			slog.String("email", redact.Email(in.Email)),
			slog.String("password", redact.Password()),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return out.Detail, nil
}

// Logout сбрасывает сессию; повторный вызов ничего не делает.
func (a *App) Logout(ctx context.Context) (bool, error) {
	const op = "app.Logout"

	changed, err := a.Session.Logout(ctx)
	if err != nil {
		return changed, fmt.Errorf("%s: %w", op, err)
	}

	return changed, nil
}

// LoginFailureMessage — сообщение для пользователя: detail сервера
// или "Login failed.".
func LoginFailureMessage(err error) string {
	return apierrors.DetailOr(err, "Login failed.")
}

// RegisterFailureMessage — ошибки полей через пробел, иначе detail
// сервера, иначе "Registration failed.".
func RegisterFailureMessage(err error) string {
	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		return apiErr.FieldsMessage()
	}

	return apierrors.DetailOr(err, "Registration failed.")
}
