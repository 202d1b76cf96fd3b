package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// DefaultSecret signs tokens when no secret is configured. It is only fit
// for local development.
const DefaultSecret = "dev-forum-secret"

type Config struct {
	Addr              string
	DBPath            string
	Secret            string
	TokenTTL          time.Duration
	MaxConns          int
	LogLevel          logrus.Level
	LogFormat         string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	CORSOrigin        string
	StatsSchedule     string
	OptimizeSchedule  string
}

// New returns a viper instance carrying defaults, FORUM_* environment
// bindings and, if found, the config file. Variables from a .env file in
// the working directory are exported first.
func New(configFile string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("addr", "")
	v.SetDefault("db", "forum.db")
	v.SetDefault("secret", DefaultSecret)
	v.SetDefault("token_ttl", 14*24*time.Hour)
	v.SetDefault("max_conns", 50)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("read_header_timeout", 5*time.Second)
	v.SetDefault("shutdown_timeout", 5*time.Second)
	v.SetDefault("cors_origin", "")
	v.SetDefault("stats_schedule", "@every 1m")
	v.SetDefault("optimize_schedule", "@daily")

	v.SetEnvPrefix("FORUM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		return v, nil
	}
	v.SetConfigName("forum")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// FromViper reads and validates a Config.
func FromViper(v *viper.Viper) (Config, error) {
	addr := v.GetString("addr")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":3000"
		}
	}

	level, err := logrus.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return Config{}, fmt.Errorf("log_level: %w", err)
	}

	cfg := Config{
		Addr:              addr,
		DBPath:            v.GetString("db"),
		Secret:            v.GetString("secret"),
		TokenTTL:          v.GetDuration("token_ttl"),
		MaxConns:          v.GetInt("max_conns"),
		LogLevel:          level,
		LogFormat:         strings.ToLower(v.GetString("log_format")),
		ReadHeaderTimeout: v.GetDuration("read_header_timeout"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
		CORSOrigin:        v.GetString("cors_origin"),
		StatsSchedule:     v.GetString("stats_schedule"),
		OptimizeSchedule:  v.GetString("optimize_schedule"),
	}

	switch {
	case cfg.DBPath == "":
		return Config{}, errors.New("db must not be empty")
	case cfg.Secret == "":
		return Config{}, errors.New("secret must not be empty")
	case cfg.TokenTTL <= 0:
		return Config{}, fmt.Errorf("token_ttl must be positive, got %s", cfg.TokenTTL)
	case cfg.MaxConns <= 0:
		return Config{}, fmt.Errorf("max_conns must be positive, got %d", cfg.MaxConns)
	case cfg.LogFormat != "text" && cfg.LogFormat != "json":
		return Config{}, fmt.Errorf("log_format must be text or json, got %q", cfg.LogFormat)
	}
	return cfg, nil
}

func Load(configFile string) (Config, error) {
	v, err := New(configFile)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

func (c Config) UsingDefaultSecret() bool {
	return c.Secret == DefaultSecret
}

// Logger builds the process logger from the log settings.
func (c Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
