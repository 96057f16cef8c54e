package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/snacklabs/feedback-insights/internal/logger"
)

const (
	defaultServerPort      = 8060
	defaultServerTimeout   = 30
	defaultRequestTimeout  = 60
	defaultMaxConcurrency  = 5
	defaultRequestsPerMin  = 60
	defaultMaxUploadMB     = 10
	defaultStoragePath     = "./data"
	defaultOpenAIModel     = "gpt-4o"
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5
)

type Config struct {
	Debug    bool           `env:"APP_DEBUG" yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Logging  logger.Config  `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" yaml:"host"`
	Port         int           `env:"SERVER_PORT" yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
	// MaxUploadMB caps the size of uploaded feedback files.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

// OpenAIConfig holds the LLM collaborator configuration. It is passed to the
// analyzer at construction time; there is no ambient settings singleton.
type OpenAIConfig struct {
	APIKey         string        `env:"OPENAI_API_KEY"  yaml:"api_key"`
	BaseURL        string        `env:"OPENAI_BASE_URL" yaml:"base_url"`
	Model          string        `env:"OPENAI_MODEL"    yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MaxConcurrency bounds simultaneous in-flight analyzer calls.
	MaxConcurrency int `env:"MAX_CONCURRENCY" yaml:"max_concurrency"`
	// RequestsPerMinute paces calls against upstream rate limits.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type StorageConfig struct {
	// BasePath is the root directory for job artifacts.
	BasePath string `env:"STORAGE_PATH" yaml:"base_path"`
	// Retention is how long job directories are kept. Zero keeps them
	// forever.
	Retention time.Duration `env:"STORAGE_RETENTION" yaml:"retention"`
	// CleanupInterval is how often expired jobs are swept.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DatabaseConfig holds the optional Postgres job index configuration.
type DatabaseConfig struct {
	Enabled         bool          `env:"DB_ENABLED"  yaml:"enabled"` // Feature flag for the job index
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"`
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port is required and must be positive")
	}
	if c.OpenAI.APIKey == "" {
		return errors.New("openai.api_key is required (OPENAI_API_KEY)")
	}
	if c.OpenAI.MaxConcurrency <= 0 {
		return errors.New("openai.max_concurrency must be positive")
	}
	if c.Storage.BasePath == "" {
		return errors.New("storage.base_path is required")
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return errors.New("database.host is required when database.enabled")
		}
		if c.Database.User == "" {
			return errors.New("database.user is required when database.enabled")
		}
		if c.Database.DBName == "" {
			return errors.New("database.dbname is required when database.enabled")
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	cfg, err := loadWithDefaults(path, setDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerTimeout * time.Second
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = defaultMaxUploadMB
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:7860"}
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = defaultOpenAIModel
	}
	if cfg.OpenAI.RequestTimeout == 0 {
		cfg.OpenAI.RequestTimeout = defaultRequestTimeout * time.Second
	}
	if cfg.OpenAI.MaxConcurrency == 0 {
		cfg.OpenAI.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.OpenAI.RequestsPerMinute == 0 {
		cfg.OpenAI.RequestsPerMinute = defaultRequestsPerMin
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = defaultStoragePath
	}
	if cfg.Storage.CleanupInterval == 0 {
		cfg.Storage.CleanupInterval = time.Hour
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDatabasePort
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaultConnMaxLifetime * time.Minute
	}
}
