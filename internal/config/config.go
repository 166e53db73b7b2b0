package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	ModeRemote = "remote"
	ModeLocal  = "local"
)

type Config struct {
	App struct {
		Name      string `envconfig:"APP_NAME" default:"Voucher Manager"`
		Port      int    `envconfig:"PORT" default:"8080"`
		Env       string `envconfig:"APP_ENV" default:"development"`
		LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	}

	DB struct {
		Host            string        `envconfig:"DB_HOST" default:"localhost"`
		Port            int           `envconfig:"DB_PORT" default:"5432"`
		User            string        `envconfig:"DB_USER" default:"postgres"`
		Password        string        `envconfig:"DB_PASSWORD" default:""`
		Name            string        `envconfig:"DB_NAME" default:"vouchers"`
		SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Store struct {
		Backend string `envconfig:"STORE_BACKEND" default:"postgres"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	}

	Auth struct {
		Secret   string        `envconfig:"AUTH_SECRET" default:"change-me"`
		TokenTTL time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	}

	Upload struct {
		MaxFileSize int64 `envconfig:"UPLOAD_MAX_FILE_SIZE" default:"5242880"`
	}

	Client struct {
		APIURL   string        `envconfig:"API_URL" default:"http://localhost:8080"`
		Email    string        `envconfig:"API_EMAIL" default:"admin@example.com"`
		Password string        `envconfig:"API_PASSWORD" default:"admin"`
		Mode     string        `envconfig:"TUI_MODE" default:"remote"`
		Timeout  time.Duration `envconfig:"API_TIMEOUT" default:"15s"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// Validate rejects settings the binaries cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.App.Port))
	}

	switch c.Store.Backend {
	case BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.Store.Backend))
	}

	switch c.Client.Mode {
	case ModeRemote, ModeLocal:
	default:
		errs = append(errs, fmt.Errorf("TUI_MODE must be %q or %q, got %q", ModeRemote, ModeLocal, c.Client.Mode))
	}

	if strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, errors.New("AUTH_SECRET must not be empty"))
	}

	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_TTL must be positive"))
	}

	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_FILE_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Client.Mode = strings.ToLower(strings.TrimSpace(cfg.Client.Mode))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
