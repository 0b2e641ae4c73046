package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config describes all runtime settings for the server.
//
// Loaded once in main, validated, then passed down via DI; no globals.
type Config struct {
	Env string // dev|stage|prod

	Log struct {
		Format string // text|json
		Level  string // debug|info|warn|error
	}

	HTTP struct {
		Addr              string
		ReadHeaderTimeout time.Duration
		IdleTimeout       time.Duration
		ShutdownTimeout   time.Duration
	}

	// Postgres is optional: with an empty URL the server runs without the
	// results store and the leaderboard endpoint is not mounted.
	Postgres struct {
		URL           string
		RunMigrations bool
		MigrationsDir string
	}
}

func LoadFromEnv() (Config, error) {
	var c Config

	c.Env = envString("APP_ENV", "dev")
	c.Log.Format = envString("LOG_FORMAT", "text")
	c.Log.Level = envString("LOG_LEVEL", "info")

	port := envString("PORT", "8080")
	c.HTTP.Addr = envString("HTTP_ADDR", ":"+port)
	c.HTTP.ReadHeaderTimeout = envDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second)
	c.HTTP.IdleTimeout = envDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)
	c.HTTP.ShutdownTimeout = envDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)

	c.Postgres.URL = envString("DATABASE_URL", "")
	c.Postgres.RunMigrations = envBool("RUN_MIGRATIONS", false)
	c.Postgres.MigrationsDir = envString("MIGRATIONS_DIR", "./db/migrations")

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("HTTP addr is empty")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT=%q (want text|json)", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL=%q", c.Log.Level)
	}
	if c.Postgres.RunMigrations && c.Postgres.URL == "" {
		return errors.New("RUN_MIGRATIONS=true requires DATABASE_URL")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
