package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT"`
		Host    string `env:"POSTGRES_HOST"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	}
	Redis struct {
		Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" env-default:"0"`
	}
	Feed struct {
		URL            string `env:"FEED_URL"`
		TimeoutSeconds int    `env:"FEED_TIMEOUT_SECONDS" env-default:"10"`
	}
	Playback struct {
		ViewerID                string `env:"VIEWER_ID" env-default:"local-viewer"`
		ImageDisplaySeconds     int    `env:"PLAYBACK_IMAGE_DISPLAY_SECONDS" env-default:"15"`
		PrefetchCount           int    `env:"PLAYBACK_PREFETCH_COUNT" env-default:"2"`
		PrefetchWorkers         int    `env:"PLAYBACK_PREFETCH_WORKERS" env-default:"4"`
		LoadingWatchdogSeconds  int    `env:"PLAYBACK_LOADING_WATCHDOG_SECONDS" env-default:"10"`
		ReconcileIntervalMinute int    `env:"PLAYBACK_RECONCILE_INTERVAL_MINUTES" env-default:"5"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"dbname=%s user=%s password=%s host=%s port=%d sslmode=%s",
		c.Postgres.Name, c.Postgres.User, c.Postgres.Pass, c.Postgres.Host, c.Postgres.Port, c.Postgres.SslMode,
	)
}
