// app собирает клиента: хранилище токенов, координатор сессии, цепочку
// HTTP-middleware и API. Здесь же сценарии входа, регистрации и выхода
// и гарды команд (только для гостей / только для вошедших).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-social-client/internal/api"
	"github.com/pribylovaa/go-social-client/internal/config"
	"github.com/pribylovaa/go-social-client/internal/metrics"
	"github.com/pribylovaa/go-social-client/internal/session"
	"github.com/pribylovaa/go-social-client/internal/storage"
	"github.com/pribylovaa/go-social-client/internal/storage/file"
	"github.com/pribylovaa/go-social-client/internal/storage/memory"
	"github.com/pribylovaa/go-social-client/internal/storage/redis"
	"github.com/pribylovaa/go-social-client/internal/transport"
)

var (
	// ErrLoginRequired — команда доступна только после входа.
	ErrLoginRequired = errors.New("login required")
	// ErrAlreadyLoggedIn — команда доступна только гостю.
	ErrAlreadyLoggedIn = errors.New("already logged in")
)

// Options — подмены зависимостей (тесты).
type Options struct {
	// Store — готовое хранилище вместо cfg.Storage.
	Store storage.Store
	// Transport — базовый RoundTripper; по умолчанию http.DefaultTransport.
	Transport http.RoundTripper
}

type App struct {
	Config   *config.Config
	Log      *slog.Logger
	Session  *session.Coordinator
	API      *api.Client
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	store storage.Store
	bg    sync.WaitGroup

	metricsSrv *http.Server
}

// New собирает приложение.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*App, error) {
	const op = "app.New"

	if log == nil {
		log = slog.Default()
	}

	store := opts.Store
	if store == nil {
		var err error
		store, err = openStore(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	baseURL := cfg.API.BaseURL()

	// Обновление идёт мимо координатора: текущий access заведомо недействителен.
	refresher := &session.HTTPRefresher{
		BaseURL: baseURL,
		Client: &http.Client{Transport: transport.Chain(base,
			transport.WithMetadata(cfg.API.UserAgent),
			transport.Logging(log),
			transport.Metrics(m),
		)},
	}

	coord, err := session.New(ctx, store, refresher, session.Options{
		Logger:         log,
		Metrics:        m,
		RefreshTimeout: cfg.API.RefreshTimeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hc := &http.Client{Transport: transport.Chain(base,
		transport.WithMetadata(cfg.API.UserAgent),
		transport.WithTimeout(cfg.API.Timeout),
		coord.Middleware(),
		transport.Logging(log),
		transport.Metrics(m),
	)}

	return &App{
		Config:   cfg,
		Log:      log,
		Session:  coord,
		API:      api.New(baseURL, hc),
		Metrics:  m,
		Registry: reg,
		store:    store,
	}, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case config.StorageFile:
		return file.New(cfg.TokenPath(), cfg.Key)
	case config.StorageRedis:
		return redis.New(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case config.StorageMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// RequireAuth — гард защищённых команд.
func (a *App) RequireAuth() error {
	if !a.Session.IsAuthenticated() {
		return ErrLoginRequired
	}
	return nil
}

// RequireGuest — гард гостевых команд (login, register).
func (a *App) RequireGuest() error {
	if a.Session.IsAuthenticated() {
		return ErrAlreadyLoggedIn
	}
	return nil
}

// StartMetrics поднимает /metrics на время работы процесса.
func (a *App) StartMetrics() error {
	const op = "app.StartMetrics"

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	a.metricsSrv = &http.Server{
		Addr:              a.Config.Metrics.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s: %w", op, err)
	case <-time.After(50 * time.Millisecond):
	}

	a.Log.Info("metrics_listening", slog.String("addr", a.metricsSrv.Addr))
	return nil
}

// Close дожидается фоновой работы и закрывает хранилище.
func (a *App) Close() error {
	a.bg.Wait()

	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.metricsSrv.Shutdown(ctx)
	}

	return a.store.Close()
}
