package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
	LedgerBolt     = "bolt"

	CounterMemory = "memory"
	CounterRedis  = "redis"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	LogLevel    string
	LogFormat   string

	LedgerBackend       string
	CounterBackend      string
	PostgresDSN         string
	PostgresAutoMigrate bool
	PostgresMaxOpen     int
	PostgresMaxIdle     int
	BoltDataDir         string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	SessionSecret    string
	SubscriberBuffer int
	PollSeedFile     string
	Polls            []PollSeed
}

// PollSeed describes a poll served by the in-memory catalog.
type PollSeed struct {
	ID      string       `mapstructure:"id"`
	Title   string       `mapstructure:"title"`
	Options []OptionSeed `mapstructure:"options"`
}

type OptionSeed struct {
	ID    string `mapstructure:"id"`
	Title string `mapstructure:"title"`
}

// Load reads configuration from the environment only.
func Load() (Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration from v, which callers may have bound to
// command line flags. Environment variables use the upper-cased key, e.g.
// LEDGER_BACKEND.
func LoadFrom(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file := strings.TrimSpace(v.GetString("config_file")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := Config{
		ServiceName: v.GetString("service_name"),
		HTTPPort:    v.GetString("http_port"),
		LogLevel:    strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:   strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),

		LedgerBackend:       strings.ToLower(strings.TrimSpace(v.GetString("ledger_backend"))),
		CounterBackend:      strings.ToLower(strings.TrimSpace(v.GetString("counter_backend"))),
		PostgresDSN:         v.GetString("postgres_dsn"),
		PostgresAutoMigrate: v.GetBool("postgres_auto_migrate"),
		PostgresMaxOpen:     v.GetInt("postgres_max_open_conns"),
		PostgresMaxIdle:     v.GetInt("postgres_max_idle_conns"),
		BoltDataDir:         v.GetString("bolt_data_dir"),

		RedisAddr:      v.GetString("redis_addr"),
		RedisPassword:  v.GetString("redis_password"),
		RedisDB:        v.GetInt("redis_db"),
		RedisKeyPrefix: v.GetString("redis_key_prefix"),

		SessionSecret:    v.GetString("session_secret"),
		SubscriberBuffer: v.GetInt("subscriber_buffer"),
		PollSeedFile:     strings.TrimSpace(v.GetString("poll_seed_file")),
	}

	if cfg.PollSeedFile != "" {
		polls, err := ReadPollSeeds(cfg.PollSeedFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Polls = polls
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadPollSeeds loads the "polls" list of a YAML, JSON or TOML file.
func ReadPollSeeds(path string) ([]PollSeed, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read poll seed file %s: %w", path, err)
	}
	var polls []PollSeed
	if err := v.UnmarshalKey("polls", &polls); err != nil {
		return nil, fmt.Errorf("decode poll seed file %s: %w", path, err)
	}
	return polls, nil
}

func (c Config) Validate() error {
	switch c.LedgerBackend {
	case LedgerMemory:
	case LedgerPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required for the postgres ledger")
		}
	case LedgerBolt:
		if strings.TrimSpace(c.BoltDataDir) == "" {
			return errors.New("BOLT_DATA_DIR is required for the bolt ledger")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.LedgerBackend)
	}

	switch c.CounterBackend {
	case CounterMemory:
	case CounterRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("REDIS_ADDR is required for the redis counter store")
		}
	default:
		return fmt.Errorf("unknown counter backend %q", c.CounterBackend)
	}
	return nil
}

// KeyFromFlag turns a command line flag name into its config key, e.g.
// "ledger-backend" into "ledger_backend".
func KeyFromFlag(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "-", "_")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "livepoll")
	v.SetDefault("http_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("ledger_backend", LedgerMemory)
	v.SetDefault("counter_backend", CounterMemory)
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("postgres_auto_migrate", false)
	v.SetDefault("postgres_max_open_conns", 32)
	v.SetDefault("postgres_max_idle_conns", 8)
	v.SetDefault("bolt_data_dir", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key_prefix", "")
	v.SetDefault("session_secret", "")
	v.SetDefault("subscriber_buffer", 128)
	v.SetDefault("poll_seed_file", "")
	v.SetDefault("config_file", "")
}
