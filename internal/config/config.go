// config - источник загрузки конфигурации клиента социальной сети.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Бэкенды хранилища токенов.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Feed    FeedConfig    `yaml:"feed"`
}

// APIConfig — удалённый REST API социальной сети.
type APIConfig struct {
	BackendURL     string        `yaml:"backend_url"     env:"BACKEND_URL"         env-default:"http://127.0.0.1:8000"`
	Timeout        time.Duration `yaml:"timeout"         env:"API_TIMEOUT"         env-default:"15s"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"API_REFRESH_TIMEOUT" env-default:"10s"`
	UserAgent      string        `yaml:"user_agent"      env:"API_USER_AGENT"      env-default:"social-cli"`
}

// BaseURL — корень REST API: <backend>/api. Читается один раз на старте.
func (a APIConfig) BaseURL() string {
	return strings.TrimRight(a.BackendURL, "/") + "/api"
}

// ResolveMedia превращает относительный путь медиа в абсолютный URL.
// Пустое значение -> "", абсолютные http(s)-ссылки возвращаются как есть.
func (a APIConfig) ResolveMedia(url string) string {
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "http") {
		return url
	}

	return strings.TrimRight(a.BackendURL, "/") + url
}

// StorageConfig — где хранится пара токенов.
type StorageConfig struct {
	Backend     string `yaml:"backend"      env:"STORAGE_BACKEND"      env-default:"file"`
	Path        string `yaml:"path"         env:"STORAGE_PATH"`
	Key         string `yaml:"key"          env:"STORAGE_KEY"`
	RedisURL    string `yaml:"redis_url"    env:"STORAGE_REDIS_URL"    env-default:"redis://127.0.0.1:6379/0"`
	RedisPrefix string `yaml:"redis_prefix" env:"STORAGE_REDIS_PREFIX" env-default:"social:"`
}

// TokenPath — путь к файлу токенов; по умолчанию ~/.social/tokens.json.
func (s StorageConfig) TokenPath() string {
	if s.Path != "" {
		return s.Path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".social-tokens.json"
	}

	return home + string(os.PathSeparator) + ".social" + string(os.PathSeparator) + "tokens.json"
}

// MetricsConfig — опциональный HTTP для Prometheus на время работы команды.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"false"`
	Host    string `yaml:"host"    env:"METRICS_HOST"    env-default:"127.0.0.1"`
	Port    string `yaml:"port"    env:"METRICS_PORT"    env-default:"9464"`
}

func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// FeedConfig — параметры ленты.
type FeedConfig struct {
	PageSize     int           `yaml:"page_size"     env:"FEED_PAGE_SIZE"     env-default:"20"`
	PollInterval time.Duration `yaml:"poll_interval" env:"FEED_POLL_INTERVAL" env-default:"30s"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return validate(&cfg)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return validate(&cfg)
}

func validate(cfg *Config) (*Config, error) {
	switch cfg.Storage.Backend {
	case StorageFile, StorageRedis, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if !strings.HasPrefix(cfg.API.BackendURL, "http://") && !strings.HasPrefix(cfg.API.BackendURL, "https://") {
		return nil, fmt.Errorf("backend_url must be an http(s) URL, got %q", cfg.API.BackendURL)
	}

	if cfg.Feed.PageSize <= 0 {
		return nil, fmt.Errorf("feed.page_size must be positive")
	}

	return cfg, nil
}
