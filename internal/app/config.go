package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/yungbote/supportchat-backend/internal/assistant"
	"github.com/yungbote/supportchat-backend/internal/data/db"
	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/platform/events"
	"github.com/yungbote/supportchat-backend/internal/realtime/bus"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	LogMode         string        `env:"LOG_MODE" envDefault:"development"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecretKey    string        `env:"JWT_SECRET_KEY" envDefault:"defaultsecret"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	CORSOrigins     []string      `env:"CORS_ALLOW_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	DB        db.Config
	Redis     bus.RedisConfig          `envPrefix:"REDIS_"`
	Events    events.Config            `envPrefix:"AMQP_"`
	Otel      observability.OtelConfig `envPrefix:"OTEL_"`
	Assistant assistant.Config
}

// LoadConfig reads an optional .env file, then the process environment.
func LoadConfig(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.JWTSecretKey = strings.TrimSpace(cfg.JWTSecretKey)
	if cfg.JWTSecretKey == "" {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY must not be empty")
	}
	if cfg.AccessTokenTTL <= 0 {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %s", cfg.AccessTokenTTL)
	}
	return cfg, nil
}

func (c Config) UsesDefaultSecret() bool { return c.JWTSecretKey == defaultJWTSecret }
