package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type WebsocketConf struct {
	ReadLimit    int64         `env:"WEBSOCKET_READ_LIMIT"    envDefault:"4096"`
	PingInterval time.Duration `env:"WEBSOCKET_PING_INTERVAL" envDefault:"5s"`
	WriteTimeout time.Duration `env:"WEBSOCKET_WRITE_TIMEOUT" envDefault:"5s"`
}

type InviteConf struct {
	// Timeout sets the duration before a pending invitation expires.
	Timeout time.Duration `env:"INVITE_TIMEOUT" envDefault:"30s"`
}

type RateConf struct {
	Window time.Duration `env:"EVENT_RATE_WINDOW" envDefault:"1s"`
	Limit  int           `env:"EVENT_RATE_LIMIT"  envDefault:"20"`
}

type LogConf struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type Config struct {
	Addr  string `env:"ADDR"  envDefault:":8080"`
	Debug bool   `env:"DEBUG" envDefault:"false"`

	// JWTSecret enables join tokens when not empty.
	JWTSecret string `env:"JWT_SECRET"`

	DBPath       string `env:"DB_PATH"       envDefault:"pairquiz.db"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`

	Websocket WebsocketConf
	Invite    InviteConf
	Rate      RateConf
	Log       LogConf
}

// LoadConfig loads the optional .env file at path before parsing
// the environment. A missing default .env file is not an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Invite.Timeout <= 0 {
		return errors.New("INVITE_TIMEOUT must be positive")
	}
	if c.Rate.Limit <= 0 || c.Rate.Window <= 0 {
		return errors.New("EVENT_RATE_LIMIT and EVENT_RATE_WINDOW must be positive")
	}
	if c.Websocket.ReadLimit <= 0 {
		return errors.New("WEBSOCKET_READ_LIMIT must be positive")
	}
	return nil
}
