package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string `yaml:"env" env:"APP_ENV" env-default:"dev"`
	Addr     string `yaml:"addr" env:"APP_ADDR" env-default:"127.0.0.1:8080"`
	LogLevel string `yaml:"log_level" env:"APP_LOG_LEVEL" env-default:"info"`

	DBDSN string `yaml:"db_dsn" env:"APP_DB_DSN"`

	// JWTSecret signs bearer tokens. Never logged.
	JWTSecret     string        `yaml:"jwt_secret" env:"APP_JWT_SECRET"`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"APP_TOKEN_TTL" env-default:"3h"`
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl" env:"APP_RESET_TOKEN_TTL" env-default:"1h"`

	// UploadServerURL is the base URL of the external file-storage
	// service that holds profile-picture binaries.
	UploadServerURL string `yaml:"upload_server_url" env:"APP_UPLOAD_SERVER_URL"`

	// ProfilePicBaseURL is prepended to stored profile-picture filenames
	// at read time.
	ProfilePicBaseURL string `yaml:"profile_pic_base_url" env:"APP_PROFILE_PIC_BASE_URL"`

	SMTP SMTP `yaml:"smtp"`
}

type SMTP struct {
	Host      string `yaml:"host" env:"APP_SMTP_HOST"`
	Port      int    `yaml:"port" env:"APP_SMTP_PORT" env-default:"587"`
	Username  string `yaml:"username" env:"APP_SMTP_USERNAME"`
	Password  string `yaml:"password" env:"APP_SMTP_PASSWORD"`
	FromEmail string `yaml:"from_email" env:"APP_SMTP_FROM"`
	TLSMode   string `yaml:"tls_mode" env:"APP_SMTP_TLS_MODE" env-default:"starttls"`
}

// Load reads configuration from the optional YAML file at path, with
// environment variables taking precedence; an empty path reads the
// environment only.
func Load(path string) (Config, error) {
	var cfg Config

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Env {
	case "dev", "test", "prod":
	default:
		return errors.New("APP_ENV: must be one of dev, test, prod")
	}

	if c.TokenTTL <= 0 {
		return errors.New("APP_TOKEN_TTL: must be > 0")
	}
	if c.ResetTokenTTL <= 0 {
		return errors.New("APP_RESET_TOKEN_TTL: must be > 0")
	}

	if c.UploadServerURL != "" && !strings.HasPrefix(c.UploadServerURL, "http") {
		return errors.New("APP_UPLOAD_SERVER_URL: must be an http(s) URL")
	}

	if c.IsProd() {
		if c.DBDSN == "" {
			return errors.New("APP_DB_DSN: required in prod")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("APP_JWT_SECRET: must be at least 32 bytes in prod")
		}
	}

	return nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c SMTP) Configured() bool { return c.Host != "" && c.FromEmail != "" }
