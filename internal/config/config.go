// Package config loads the service configuration from an optional YAML file,
// a .env file and environment variables.
//
// PRECEDENCE (highest first):
//  1. Environment variables
//  2. .env in the working directory (loaded into the environment by godotenv)
//  3. config.yaml (./ or ./configs, optional)
//  4. Defaults from setDefaults
//
// ENVIRONMENT NAMES:
// Every key can be set as DEVDATE_<SECTION>_<KEY>, for example
// store.sqlite_path → DEVDATE_STORE_SQLITE_PATH. The Supabase settings,
// GITHUB_TOKEN and PORT/ENVIRONMENT also accept the bare names used by the
// hosted deployment (see envAliases).
//
// WHY VIPER AND GODOTENV TOGETHER?
// Viper merges file, environment and defaults into one struct but does not
// read .env files as environment. godotenv does only that, and never
// overrides a variable that is already set, so a real environment still wins.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreSupabase = "supabase"
	StoreSQLite   = "sqlite"
)

// Config is the full service configuration. The mapstructure tags are the
// keys viper uses for YAML and for the environment names.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Auth      AuthConfig      `mapstructure:"auth"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Store     StoreConfig     `mapstructure:"store"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"` // development | production
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SupabaseConfig points at the hosted auth and row store.
type SupabaseConfig struct {
	URL string `mapstructure:"url"`
	// Key is the anon key, used for user-facing calls.
	Key string `mapstructure:"key"`
	// ServiceKey bypasses row level security. Optional; only used for
	// session revocation.
	ServiceKey string `mapstructure:"service_key"`
}

type AuthConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type GitHubConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	Token   string        `mapstructure:"token"` // optional, raises the rate limit
	Timeout time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// envAliases maps config keys to the bare environment names of the hosted
// deployment, in addition to the DEVDATE_ prefixed form.
var envAliases = map[string][]string{
	"supabase.url":         {"DEVDATE_SUPABASE_URL", "SUPABASE_URL"},
	"supabase.key":         {"DEVDATE_SUPABASE_KEY", "SUPABASE_KEY"},
	"supabase.service_key": {"DEVDATE_SUPABASE_SERVICE_KEY", "SUPABASE_SERVICE_KEY"},
	"server.port":          {"DEVDATE_SERVER_PORT", "PORT"},
	"server.mode":          {"DEVDATE_SERVER_MODE", "ENVIRONMENT"},
	"github.token":         {"DEVDATE_GITHUB_TOKEN", "GITHUB_TOKEN"},
}

// Load reads configuration. configFile may be empty, in which case config.yaml
// is looked up in the working directory and ./configs and is optional.
func Load(configFile string) (*Config, error) {
	return load(configFile, (*Config).Validate)
}

// LoadLocal reads configuration for commands that only touch the local SQLite
// store (migrate, seed). The Supabase settings are not required there.
func LoadLocal(configFile string) (*Config, error) {
	return load(configFile, (*Config).validateLocal)
}

func load(configFile string, validate func(*Config) error) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("DEVDATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("supabase.service_key", "")

	v.SetDefault("auth.timeout", 5*time.Second)

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.token", "")
	v.SetDefault("github.timeout", 5*time.Second)

	v.SetDefault("store.driver", StoreSupabase)
	v.SetDefault("store.sqlite_path", "data/devdate.db")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")

	v.SetDefault("ratelimit.requests_per_minute", 120)
}

// Validate checks that the required settings are present and consistent.
//
// FAIL FAST:
// The server refuses to start without a Supabase URL and anon key: every
// auth route needs them, and discovering that on the first login is worse
// than a clear startup error.
func (c *Config) Validate() error {
	if c.Supabase.URL == "" {
		return errors.New("config: supabase.url (SUPABASE_URL) is required")
	}
	if c.Supabase.Key == "" {
		return errors.New("config: supabase.key (SUPABASE_KEY) is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	switch c.Store.Driver {
	case StoreSupabase, StoreSQLite:
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Store.Driver == StoreSQLite && c.Store.SQLitePath == "" {
		return errors.New("config: store.sqlite_path is required for the sqlite driver")
	}
	if c.Auth.Timeout <= 0 || c.GitHub.Timeout <= 0 {
		return errors.New("config: auth.timeout and github.timeout must be positive")
	}
	return nil
}

// validateLocal checks only what the SQLite commands read.
func (c *Config) validateLocal() error {
	if c.Store.SQLitePath == "" {
		return errors.New("config: store.sqlite_path is required")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}
