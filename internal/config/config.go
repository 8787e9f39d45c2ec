package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Worker   WorkerConfig   `yaml:"worker"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`

	SnapshotStorage SnapshotStorageConfig `yaml:"snapshot_storage"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects and configures the workshop store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	MongoURI string `yaml:"mongo_uri"`
}

// LLMConfig contains completion endpoint settings.
type LLMConfig struct {
	APIKey  string   `yaml:"-"` // env-only, never in YAML
	BaseURL string   `yaml:"base_url"`
	Model   string   `yaml:"model"`
	Timeout Duration `yaml:"timeout"`
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	// SaveDebounce is the quiet period before a pending workshop save is
	// written. Zero writes through.
	SaveDebounce Duration `yaml:"save_debounce"`
	// SnapshotInterval is how often every workshop is archived to
	// SnapshotDir. Zero disables snapshots.
	SnapshotInterval Duration `yaml:"snapshot_interval"`
	SnapshotDir      string   `yaml:"snapshot_dir"`
}

// SnapshotStorageConfig configures S3-compatible upload of workshop
// snapshots. An empty bucket keeps snapshots local.
type SnapshotStorageConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"-"` // env-only
	SecretKey string `yaml:"-"` // env-only
	// UseSSL defaults to true when unset.
	UseSSL *bool `yaml:"use_ssl"`
}

// CacheConfig contains validator result cache settings.
type CacheConfig struct {
	ValidateSize int      `yaml:"validate_size"`
	ValidateTTL  Duration `yaml:"validate_ttl"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("TINYLEAP_CONFIG_PATH", "config/tinyleap.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific path, which must exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(120 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "data/tinyleap.db",
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-3.5-turbo",
			Timeout: Duration(60 * time.Second),
		},
		Worker: WorkerConfig{
			SaveDebounce: Duration(1 * time.Second),
			SnapshotDir:  "data/snapshots",
		},
		Cache: CacheConfig{
			ValidateSize: 512,
			ValidateTTL:  Duration(10 * time.Minute),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values. Unparseable numbers and
// durations are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server (PORT is the hosting-platform convention)
	if v := getEnv("TINYLEAP_PORT", os.Getenv("PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	setDuration("TINYLEAP_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("TINYLEAP_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("TINYLEAP_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Database
	if v := os.Getenv("TINYLEAP_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TINYLEAP_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Database.MongoURI = v
	}

	// LLM
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	setDuration("LLM_TIMEOUT", &cfg.LLM.Timeout)

	// Worker
	setDuration("TINYLEAP_SAVE_DEBOUNCE", &cfg.Worker.SaveDebounce)
	setDuration("TINYLEAP_SNAPSHOT_INTERVAL", &cfg.Worker.SnapshotInterval)
	if v := os.Getenv("TINYLEAP_SNAPSHOT_DIR"); v != "" {
		cfg.Worker.SnapshotDir = v
	}

	// Snapshot storage
	if v := os.Getenv("TINYLEAP_S3_BUCKET"); v != "" {
		cfg.SnapshotStorage.Bucket = v
	}
	if v := os.Getenv("TINYLEAP_S3_ENDPOINT"); v != "" {
		cfg.SnapshotStorage.Endpoint = v
	}
	if v := os.Getenv("TINYLEAP_S3_REGION"); v != "" {
		cfg.SnapshotStorage.Region = v
	}
	if v := os.Getenv("TINYLEAP_S3_ACCESS_KEY"); v != "" {
		cfg.SnapshotStorage.AccessKey = v
	}
	if v := os.Getenv("TINYLEAP_S3_SECRET_KEY"); v != "" {
		cfg.SnapshotStorage.SecretKey = v
	}
	if v := os.Getenv("TINYLEAP_S3_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SnapshotStorage.UseSSL = &b
		}
	}

	// Cache
	if v := os.Getenv("TINYLEAP_VALIDATE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.ValidateSize = n
		}
	}
	setDuration("TINYLEAP_VALIDATE_CACHE_TTL", &cfg.Cache.ValidateTTL)

	// Log
	if v := os.Getenv("TINYLEAP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TINYLEAP_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func setDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// validate checks that the configuration is usable. A missing LLM key is
// allowed: every agent answers with its fallback value.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Database.MongoURI == "" {
			return errors.New("MONGODB_URI is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Worker.SaveDebounce < 0 {
		return errors.New("worker.save_debounce must not be negative")
	}
	if c.Worker.SnapshotInterval < 0 {
		return errors.New("worker.snapshot_interval must not be negative")
	}
	if c.Worker.SnapshotInterval > 0 && c.Worker.SnapshotDir == "" {
		return errors.New("worker.snapshot_dir is required when snapshots are enabled")
	}
	if c.SnapshotStorage.Bucket != "" && c.SnapshotStorage.Endpoint == "" {
		return errors.New("snapshot_storage.endpoint is required when a bucket is set")
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
