package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Backend drivers.
const (
	DriverSQLite    = "sqlite"
	DriverMongo     = "mongo"
	DriverFirestore = "firestore"
)

// Change bus drivers.
const (
	BusLocal = "local"
	BusRedis = "redis"
)

// BackendConfig selects and configures the document store.
type BackendConfig struct {
	// Driver is one of "sqlite", "mongo" or "firestore".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Collection is the collection (or table) holding notifications.
	Collection string `mapstructure:"collection" yaml:"collection"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// PollIntervalSec is how often polling backends re-run the live query.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// MongoURI is the connection string. Prefer the keyring for URIs
	// carrying credentials.
	MongoURI string `mapstructure:"mongo_uri" yaml:"mongo_uri"`

	// MongoDatabase is the database holding the collection.
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`

	// FirestoreProject is the Google Cloud project ID.
	FirestoreProject string `mapstructure:"firestore_project" yaml:"firestore_project"`

	// FirestoreCredentials is an optional service-account JSON file.
	FirestoreCredentials string `mapstructure:"firestore_credentials" yaml:"firestore_credentials"`
}

// BusConfig configures cross-process change signalling.
type BusConfig struct {
	Driver   string `mapstructure:"driver" yaml:"driver"`
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
}

// AuthConfig names where the session token and signing key come from.
type AuthConfig struct {
	// TokenEnv is checked before the keyring for the session token.
	TokenEnv string `mapstructure:"token_env" yaml:"token_env"`

	// SigningKeyEnv enables signature verification when set and non-empty.
	SigningKeyEnv string `mapstructure:"signing_key_env" yaml:"signing_key_env"`
}

// ConnectivityConfig configures the online probe.
type ConnectivityConfig struct {
	// ProbeURL is requested periodically. Empty means always online.
	ProbeURL    string `mapstructure:"probe_url" yaml:"probe_url"`
	IntervalSec int    `mapstructure:"interval_sec" yaml:"interval_sec"`
	TimeoutSec  int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// LogConfig configures the log file and minimum level.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme      string `mapstructure:"theme" yaml:"theme"`
	UnreadOnly bool   `mapstructure:"unread_only" yaml:"unread_only"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Backend      BackendConfig      `mapstructure:"backend" yaml:"backend"`
	Bus          BusConfig          `mapstructure:"bus" yaml:"bus"`
	Auth         AuthConfig         `mapstructure:"auth" yaml:"auth"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity" yaml:"connectivity"`
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	Display      DisplayConfig      `mapstructure:"display" yaml:"display"`
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// configDir returns ~/.config/notifier, or "." when the home directory
// cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "notifier")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/notifier/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Backend: BackendConfig{
			Driver:          DriverSQLite,
			Collection:      "notifications",
			SQLitePath:      filepath.Join(configDir(), "notifications.db"),
			PollIntervalSec: 5,
			MongoDatabase:   "notifier",
		},
		Bus: BusConfig{
			Driver: BusLocal,
		},
		Auth: AuthConfig{
			TokenEnv:      "NOTIFIER_TOKEN",
			SigningKeyEnv: "NOTIFIER_SIGNING_KEY",
		},
		Connectivity: ConnectivityConfig{
			IntervalSec: 15,
			TimeoutSec:  5,
		},
		Log: LogConfig{
			Level: "INFO",
			File:  filepath.Join(configDir(), "notifier.log"),
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// setDefaults mirrors defaultAppConfig into v so that keys missing from the
// file resolve to the same values.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("backend.driver", d.Backend.Driver)
	v.SetDefault("backend.collection", d.Backend.Collection)
	v.SetDefault("backend.sqlite_path", d.Backend.SQLitePath)
	v.SetDefault("backend.poll_interval_sec", d.Backend.PollIntervalSec)
	v.SetDefault("backend.mongo_database", d.Backend.MongoDatabase)
	v.SetDefault("bus.driver", d.Bus.Driver)
	v.SetDefault("auth.token_env", d.Auth.TokenEnv)
	v.SetDefault("auth.signing_key_env", d.Auth.SigningKeyEnv)
	v.SetDefault("connectivity.interval_sec", d.Connectivity.IntervalSec)
	v.SetDefault("connectivity.timeout_sec", d.Connectivity.TimeoutSec)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("display.theme", d.Display.Theme)

	// Registered so AutomaticEnv can override them during Unmarshal.
	for _, key := range []string{
		"backend.mongo_uri",
		"backend.firestore_project",
		"backend.firestore_credentials",
		"bus.redis_url",
		"connectivity.probe_url",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("display.unread_only", false)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// Environment variables prefixed NOTIFIER_ override file values
// (e.g. NOTIFIER_BACKEND_DRIVER).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("notifier")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the driver names and intervals.
func (c *AppConfig) Validate() error {
	switch c.Backend.Driver {
	case DriverSQLite, DriverMongo, DriverFirestore:
	default:
		return fmt.Errorf("unknown backend driver %q", c.Backend.Driver)
	}
	switch c.Bus.Driver {
	case BusLocal, BusRedis:
	default:
		return fmt.Errorf("unknown bus driver %q", c.Bus.Driver)
	}
	if c.Bus.Driver == BusRedis && c.Bus.RedisURL == "" {
		return fmt.Errorf("bus.redis_url is required for the redis bus")
	}
	if c.Backend.Driver == DriverFirestore && c.Backend.FirestoreProject == "" {
		return fmt.Errorf("backend.firestore_project is required for firestore")
	}
	if c.Backend.PollIntervalSec <= 0 {
		c.Backend.PollIntervalSec = 5
	}
	if c.Connectivity.IntervalSec <= 0 {
		c.Connectivity.IntervalSec = 15
	}
	if c.Connectivity.TimeoutSec <= 0 {
		c.Connectivity.TimeoutSec = 5
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("bus", cfg.Bus)
	v.Set("auth", cfg.Auth)
	v.Set("connectivity", cfg.Connectivity)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
