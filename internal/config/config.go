// Package config reads process settings from the environment, optionally seeded from a
// .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	HTTPAddr        string
	DatabaseURL     string
	DBMaxOpenConns  int
	LogLevel        string
	LogEncoding     string
	RoomMaxPlayers  int
	WSWriteTimeout  time.Duration
	WSPingInterval  time.Duration
	WSSendBuffer    int
	WSOrigins       []string
	ShutdownTimeout time.Duration
}

// InMemory reports whether no database is configured.
func (c Config) InMemory() bool { return c.DatabaseURL == "" }

func Load() (Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	return load(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")
	v.SetDefault("ROOM_MAX_PLAYERS", 5)
	v.SetDefault("WS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("WS_PING_INTERVAL", 30*time.Second)
	v.SetDefault("WS_SEND_BUFFER", 32)
	v.SetDefault("WS_ORIGIN_PATTERNS", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)

	cfg := Config{
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		DBMaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		LogEncoding:     strings.ToLower(v.GetString("LOG_ENCODING")),
		RoomMaxPlayers:  v.GetInt("ROOM_MAX_PLAYERS"),
		WSWriteTimeout:  v.GetDuration("WS_WRITE_TIMEOUT"),
		WSPingInterval:  v.GetDuration("WS_PING_INTERVAL"),
		WSSendBuffer:    v.GetInt("WS_SEND_BUFFER"),
		WSOrigins:       splitList(v.GetString("WS_ORIGIN_PATTERNS")),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR must not be empty"))
	}
	if c.RoomMaxPlayers <= 0 {
		errs = append(errs, fmt.Errorf("ROOM_MAX_PLAYERS must be positive, got %d", c.RoomMaxPlayers))
	}
	if c.DBMaxOpenConns <= 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.DBMaxOpenConns))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.LogEncoding != "json" && c.LogEncoding != "console" {
		errs = append(errs, fmt.Errorf("LOG_ENCODING must be json or console, got %q", c.LogEncoding))
	}
	if c.WSWriteTimeout <= 0 || c.WSPingInterval <= 0 || c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("WS_WRITE_TIMEOUT, WS_PING_INTERVAL and SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.WSSendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("WS_SEND_BUFFER must be positive, got %d", c.WSSendBuffer))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
