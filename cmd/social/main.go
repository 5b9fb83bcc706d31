package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pribylovaa/go-social-client/internal/app"
	"github.com/pribylovaa/go-social-client/internal/cli"
	"github.com/pribylovaa/go-social-client/internal/config"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	err := cli.Execute(rootCtx, open, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		rootCancel()
		os.Exit(1)
	}
}

// open загружает конфиг и собирает приложение для одной команды.
func open(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Debug("starting social", slog.String("env", cfg.Env), slog.String("backend", cfg.API.BackendURL))

	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Error("app_init_failed", slog.String("err", err.Error()))
		return nil, err
	}

	return a, nil
}

// setupLogger пишет в stderr: stdout занят выводом команд.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
