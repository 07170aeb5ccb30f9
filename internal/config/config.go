// Package config loads runtime settings from defaults, an optional config file,
// and environment variables.
//
// PRECEDENCE (highest wins):
//  1. environment variables (PORT, FAKE_STORE_API, DATA_FILE, ...)
//  2. config file (--config flag or PRICE_COMPARE_CONFIG env var; yaml/json/toml)
//  3. defaults below
//
// Every key is registered with SetDefault first. viper's AutomaticEnv only
// consults the environment for keys it already knows about, so a key without a
// default would silently ignore its env var in Unmarshal.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileEnvName = "PRICE_COMPARE_CONFIG"

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config is the fully resolved configuration.
type Config struct {
	Port            int           `mapstructure:"port"`
	FakeStoreAPI    string        `mapstructure:"fake_store_api"`
	StoreDriver     string        `mapstructure:"store_driver"`
	DataFile        string        `mapstructure:"data_file"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	LogLevelName    string        `mapstructure:"log_level"`
	CatalogTTL      time.Duration `mapstructure:"catalog_ttl"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	DocsDir         string        `mapstructure:"docs_dir"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`

	// LogLevel is parsed from LogLevelName by Load.
	LogLevel slog.Level `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("fake_store_api", "https://fakestoreapi.com")
	v.SetDefault("store_driver", DriverFile)
	v.SetDefault("data_file", "data.json")
	v.SetDefault("sqlite_path", "data.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("catalog_ttl", time.Duration(0))
	v.SetDefault("upstream_timeout", 10*time.Second)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("docs_dir", "docs")
	v.SetDefault("cors_origins", []string{"*"})
}

// Load resolves the configuration. args are the command line arguments without
// the program name (os.Args[1:]).
func Load(args []string) (Config, error) {
	flags := pflag.NewFlagSet("price-compare", pflag.ContinueOnError)
	configFile := flags.String("config", "", "optional config file (yaml, json or toml)")
	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: parsing flags: %w", err)
	}
	if env, ok := os.LookupEnv(configFileEnvName); ok && *configFile == "" {
		*configFile = env
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", *configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.StoreDriver != DriverFile && c.StoreDriver != DriverSQLite {
		errs = append(errs, fmt.Errorf("store_driver must be %q or %q, got %q", DriverFile, DriverSQLite, c.StoreDriver))
	}
	if c.CatalogTTL < 0 {
		errs = append(errs, fmt.Errorf("catalog_ttl must not be negative"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream_timeout must be positive"))
	}
	if err := c.LogLevel.UnmarshalText([]byte(c.LogLevelName)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// StorePath returns the location the selected store driver writes to.
func (c Config) StorePath() string {
	if c.StoreDriver == DriverSQLite {
		return c.SQLitePath
	}
	return c.DataFile
}

// LogValue keeps the JWT secret out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("port", c.Port),
		slog.String("fake_store_api", c.FakeStoreAPI),
		slog.String("store_driver", c.StoreDriver),
		slog.String("store_path", c.StorePath()),
		slog.String("log_level", c.LogLevel.String()),
		slog.Duration("catalog_ttl", c.CatalogTTL),
		slog.Duration("upstream_timeout", c.UpstreamTimeout),
		slog.Bool("jwt_enabled", c.JWTSecret != ""),
		slog.String("docs_dir", c.DocsDir),
		slog.Any("cors_origins", c.CORSOrigins),
	)
}
