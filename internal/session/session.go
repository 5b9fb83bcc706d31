package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pribylovaa/go-social-client/internal/metrics"
	"github.com/pribylovaa/go-social-client/internal/models"
	"github.com/pribylovaa/go-social-client/internal/pkg/redact"
	"github.com/pribylovaa/go-social-client/internal/storage"
)

// State — снимок состояния аутентификации.
//
// IsAuthenticated выставляется при инициализации по наличию access-токена
// в хранилище и далее только через SetTokens/Login; сбрасывается Logout.
type State struct {
	User            *models.UserPublic
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
}

func (s State) empty() bool {
	return !s.IsAuthenticated && s.AccessToken == "" && s.RefreshToken == "" && s.User == nil
}

// Options — необязательные зависимости координатора.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// RefreshTimeout ограничивает один вызов обновления; <=0 — без ограничения.
	RefreshTimeout time.Duration
}

// Coordinator — единственный владелец пары токенов и состояния сессии.
type Coordinator struct {
	tokens         *Tokens
	refresher      Refresher
	log            *slog.Logger
	metrics        *metrics.Metrics
	refreshTimeout time.Duration

	// wmu сериализует изменения состояния вместе с записью в хранилище.
	// Порядок захвата: wmu -> mu.
	wmu sync.Mutex

	mu         sync.Mutex
	state      State
	refreshing bool
	queue      []chan refreshResult
	onLogout   []func()
}

// New создаёт координатор и инициализирует состояние из хранилища.
func New(ctx context.Context, store storage.Store, refresher Refresher, opts Options) (*Coordinator, error) {
	const op = "session.New"

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	c := &Coordinator{
		tokens:         NewTokens(store),
		refresher:      refresher,
		log:            log.With(slog.String("component", "session")),
		metrics:        opts.Metrics,
		refreshTimeout: opts.RefreshTimeout,
	}

	access, refresh, err := c.tokens.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.state = State{
		AccessToken:     access,
		RefreshToken:    refresh,
		IsAuthenticated: access != "",
	}

	c.log.Debug("session_loaded",
		slog.Bool("authenticated", c.state.IsAuthenticated),
		slog.Bool("has_refresh", refresh != ""),
	)

	return c, nil
}

// Snapshot возвращает копию текущего состояния.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}

	return s
}

// IsAuthenticated — флаг для гардов команд.
func (c *Coordinator) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.IsAuthenticated
}

// AccessToken — текущий access-токен или "".
func (c *Coordinator) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.AccessToken
}

// OnLogout регистрирует обработчик перехода в состояние logged-out.
// Вызывается ровно один раз на каждый такой переход, вне блокировок.
func (c *Coordinator) OnLogout(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onLogout = append(c.onLogout, fn)
}

// AttachCredential ставит Authorization: Bearer <access>, если токен есть,
// и возвращает использованный токен ("" — запрос уходит без аутентификации).
func (c *Coordinator) AttachCredential(req *http.Request) string {
	token := c.AccessToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return token
}

// SetTokens сохраняет пару токенов и помечает сессию аутентифицированной.
// Состояние в памяти обновляется всегда; ошибка записи в хранилище возвращается.
func (c *Coordinator) SetTokens(ctx context.Context, access, refresh string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.mu.Lock()
	c.state.AccessToken = access
	c.state.RefreshToken = refresh
	c.state.IsAuthenticated = true
	c.mu.Unlock()

	return c.tokens.SetTokens(ctx, access, refresh)
}

// SetAccessToken сохраняет новый access-токен; флаг аутентификации не трогает.
func (c *Coordinator) SetAccessToken(ctx context.Context, access string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.mu.Lock()
	c.state.AccessToken = access
	c.mu.Unlock()

	return c.tokens.SetAccess(ctx, access)
}

// SetUser запоминает профиль текущего пользователя (только в памяти).
func (c *Coordinator) SetUser(user *models.UserPublic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if user == nil {
		c.state.User = nil
		return
	}
	u := *user
	c.state.User = &u
}

// Login — токены и пользователь одним шагом.
func (c *Coordinator) Login(ctx context.Context, access, refresh string, user *models.UserPublic) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.mu.Lock()
	c.state.AccessToken = access
	c.state.RefreshToken = refresh
	c.state.IsAuthenticated = true
	if user != nil {
		u := *user
		c.state.User = &u
	}
	c.mu.Unlock()

	return c.tokens.SetTokens(ctx, access, refresh)
}

// Logout сбрасывает сессию: удаляет обе записи из хранилища и очищает
// состояние в памяти. Идемпотентен: если сессия уже сброшена, ничего не
// делает и возвращает false.
func (c *Coordinator) Logout(ctx context.Context) (bool, error) {
	c.wmu.Lock()

	c.mu.Lock()
	if c.state.empty() {
		c.mu.Unlock()
		c.wmu.Unlock()
		return false, nil
	}
	c.state = State{}
	listeners := append([]func(){}, c.onLogout...)
	c.mu.Unlock()

	err := c.tokens.Clear(ctx)
	c.wmu.Unlock()

	c.metrics.Logout()
	c.log.Info("session_logout")
	if err != nil {
		c.log.Warn("session_clear_failed", slog.String("err", err.Error()))
	}

	for _, fn := range listeners {
		fn()
	}

	return true, err
}

func (c *Coordinator) logAttrsFor(token string) slog.Attr {
	return slog.String("token", redact.Fingerprint(token))
}
