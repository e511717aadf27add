package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultEnv            = "dev"
	defaultDBPath         = "./dev.db"
	defaultPort           = "8080"
	defaultMigrationsDir  = "migrations"
	defaultMaxDepth       = 64
	defaultRequestTimeout = 15 * time.Second
	defaultCurrency       = "COP"

	defaultDotEnvPath = ".env"
	defaultConfigPath = "config.yaml"
)

// Config holds application configuration sourced from the environment and an
// optional YAML file. Environment variables win over the file.
type Config struct {
	Env                 string        `mapstructure:"app_env"`
	DBPath              string        `mapstructure:"db_path"`
	Port                string        `mapstructure:"port"`
	MigrationsDir       string        `mapstructure:"migrations_dir"`
	MaxCompositionDepth int           `mapstructure:"max_composition_depth"`
	MetricsEnabled      bool          `mapstructure:"metrics_enabled"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	Currency            string        `mapstructure:"currency"`
}

// Load reads .env and config.yaml from the working directory. CONFIG_FILE
// overrides the YAML path.
func Load() (Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = defaultConfigPath
	}
	return LoadFiles(defaultDotEnvPath, path)
}

// LoadFiles loads dotenvPath into the process environment (without
// overwriting it) and then reads configPath. Either file may be missing.
func LoadFiles(dotenvPath, configPath string) (Config, error) {
	// Best-effort: production should use real env injection.
	if dotenvPath != "" {
		if err := loadDotEnv(dotenvPath); err != nil {
			return Config{}, fmt.Errorf("load dotenv %s: %w", dotenvPath, err)
		}
	}

	v := viper.New()
	v.SetDefault("app_env", defaultEnv)
	v.SetDefault("db_path", defaultDBPath)
	v.SetDefault("port", defaultPort)
	v.SetDefault("migrations_dir", defaultMigrationsDir)
	v.SetDefault("max_composition_depth", defaultMaxDepth)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("request_timeout", defaultRequestTimeout)
	v.SetDefault("currency", defaultCurrency)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.MaxCompositionDepth <= 0 {
		cfg.MaxCompositionDepth = defaultMaxDepth
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}

	return cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "", "dev", "development", "local":
		return true
	default:
		return false
	}
}
