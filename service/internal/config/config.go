// Package config loads the server configuration from the environment. An
// optional .env file is read first; variables already set in the environment
// win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config holds every tunable of the server.
type Config struct {
	Port      int    `env:"PORT"       envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	StoreDriver    string        `env:"STORE_DRIVER"     envDefault:"memory"`
	RedisAddr      string        `env:"REDIS_ADDR"       envDefault:"localhost:6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB"         envDefault:"0"`
	RedisKeyPrefix string        `env:"REDIS_KEY_PREFIX" envDefault:"uno:"`
	RedisRoomTTL   time.Duration `env:"REDIS_ROOM_TTL"   envDefault:"24h"`
	SQLitePath     string        `env:"SQLITE_PATH"      envDefault:"uno.db"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	ActionLog      bool          `env:"ACTION_LOG"       envDefault:"false"`

	PersistDelay time.Duration `env:"PERSIST_DELAY" envDefault:"5s"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`

	DefaultMaxPlayers int `env:"DEFAULT_MAX_PLAYERS" envDefault:"4"`
	MaxPlayersLimit   int `env:"MAX_PLAYERS_LIMIT"   envDefault:"10"`
	HandSize          int `env:"HAND_SIZE"           envDefault:"7"`
	UnoPenalty        int `env:"UNO_PENALTY"         envDefault:"2"`

	OriginPatterns []string `env:"ORIGIN_PATTERNS" envSeparator:","`
}

// Load reads the optional dotenv files (".env" when none are given), then
// parses the environment into a validated Config.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and the settings each store driver needs.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.ActionLog && c.RedisAddr == "" {
		errs = append(errs, errors.New("ACTION_LOG needs REDIS_ADDR"))
	}

	if c.PersistDelay < 0 {
		errs = append(errs, fmt.Errorf("PERSIST_DELAY must not be negative, got %s", c.PersistDelay))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout))
	}
	if c.DefaultMaxPlayers < 2 || c.DefaultMaxPlayers > c.MaxPlayersLimit {
		errs = append(errs, fmt.Errorf("DEFAULT_MAX_PLAYERS must be within [2, MAX_PLAYERS_LIMIT], got %d", c.DefaultMaxPlayers))
	}
	// 108 cards, and at least nine must stay behind after the deal.
	if c.HandSize < 1 || c.MaxPlayersLimit*c.HandSize > 99 {
		errs = append(errs, fmt.Errorf("HAND_SIZE %d cannot be dealt to %d players", c.HandSize, c.MaxPlayersLimit))
	}
	if c.UnoPenalty < 1 || c.UnoPenalty > 255 {
		errs = append(errs, fmt.Errorf("UNO_PENALTY %d out of range", c.UnoPenalty))
	}
	return errors.Join(errs...)
}

// Addr is the HTTP listen address.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
