package config

import (
	"fmt"
	"strings"
	"time"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/types"
	"github.com/flexprice/plansync/internal/validator"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Payvalida PayvalidaConfig `mapstructure:"payvalida" validate:"required"`
	Logging   LoggingConfig   `mapstructure:"logging" validate:"required"`
	Store     StoreConfig     `mapstructure:"store" validate:"required"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

// PayvalidaConfig holds the merchant credentials and transport settings.
// Merchant and FixedHash are the two secrets every checksum is built from.
type PayvalidaConfig struct {
	Merchant      string            `mapstructure:"merchant" validate:"required"`
	FixedHash     string            `mapstructure:"fixed_hash" validate:"required"`
	Environment   types.Environment `mapstructure:"environment"`
	SandboxURL    string            `mapstructure:"sandbox_url" validate:"required,url"`
	ProductionURL string            `mapstructure:"production_url" validate:"required,url"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	MaxRetries    int               `mapstructure:"max_retries" validate:"min=0"`
	// RateLimit caps requests per second; 0 disables the limit
	RateLimit float64 `mapstructure:"rate_limit" validate:"min=0"`
}

// BaseURL returns the host for the configured environment
func (c PayvalidaConfig) BaseURL() string {
	if c.Environment == types.EnvironmentProduction {
		return strings.TrimRight(c.ProductionURL, "/")
	}
	return strings.TrimRight(c.SandboxURL, "/")
}

type LoggingConfig struct {
	Level          types.LogLevel `mapstructure:"level"`
	SaveLogging    bool           `mapstructure:"save_logging"`
	FilePath       string         `mapstructure:"file_path"`
	FluentdEnabled bool           `mapstructure:"fluentd_enabled"`
	FluentdHost    string         `mapstructure:"fluentd_host"`
	FluentdPort    int            `mapstructure:"fluentd_port"`
}

type StoreConfig struct {
	Type types.StoreType `mapstructure:"type"`
}

// CatalogConfig locates the catalog export. Path is a local file or an
// s3://bucket/key URL; the S3 fields apply only to the latter.
type CatalogConfig struct {
	Path            string `mapstructure:"path"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type RedisConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	UseTLS    bool          `mapstructure:"use_tls"`
	PoolSize  int           `mapstructure:"pool_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// GetDSN returns the lib/pq connection string
func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type SyncConfig struct {
	// Schedule is a cron spec for the daemon, e.g. "@every 1h"
	Schedule string        `mapstructure:"schedule"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// NewConfig loads configuration from config.yaml (if present), a .env file
// (if present) and PLANSYNC_* environment variables, in increasing priority.
func NewConfig() (*Configuration, error) {
	return Load("")
}

// Load is NewConfig with an explicit config file path
func Load(path string) (*Configuration, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./internal/config")
	}

	v.SetEnvPrefix("PLANSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); path != "" || !notFound {
			return nil, ierr.WithError(err).
				WithHint("Failed to read configuration file").
				Mark(ierr.ErrValidation)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode configuration").
			Mark(ierr.ErrValidation)
	}

	cfg.Payvalida.Environment = types.SanitizeEnvironment(string(cfg.Payvalida.Environment))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration is usable
func (c *Configuration) Validate() error {
	if err := validator.ValidateRequest(c); err != nil {
		return err
	}
	if err := c.Payvalida.Environment.Validate(); err != nil {
		return err
	}
	return c.Store.Type.Validate()
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("payvalida.merchant", d.Payvalida.Merchant)
	v.SetDefault("payvalida.fixed_hash", d.Payvalida.FixedHash)
	v.SetDefault("payvalida.environment", string(d.Payvalida.Environment))
	v.SetDefault("payvalida.sandbox_url", d.Payvalida.SandboxURL)
	v.SetDefault("payvalida.production_url", d.Payvalida.ProductionURL)
	v.SetDefault("payvalida.timeout", d.Payvalida.Timeout)
	v.SetDefault("payvalida.max_retries", d.Payvalida.MaxRetries)
	v.SetDefault("payvalida.rate_limit", d.Payvalida.RateLimit)

	v.SetDefault("logging.level", string(d.Logging.Level))
	v.SetDefault("logging.save_logging", d.Logging.SaveLogging)
	v.SetDefault("logging.file_path", d.Logging.FilePath)
	v.SetDefault("logging.fluentd_enabled", d.Logging.FluentdEnabled)
	v.SetDefault("logging.fluentd_host", d.Logging.FluentdHost)
	v.SetDefault("logging.fluentd_port", d.Logging.FluentdPort)

	v.SetDefault("store.type", string(d.Store.Type))
	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("catalog.region", d.Catalog.Region)
	v.SetDefault("catalog.endpoint", d.Catalog.Endpoint)
	v.SetDefault("catalog.access_key_id", d.Catalog.AccessKeyID)
	v.SetDefault("catalog.secret_access_key", d.Catalog.SecretAccessKey)

	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.use_tls", d.Redis.UseTLS)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.timeout", d.Redis.Timeout)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.password", d.Postgres.Password)
	v.SetDefault("postgres.dbname", d.Postgres.DBName)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)

	v.SetDefault("sync.schedule", d.Sync.Schedule)
	v.SetDefault("sync.lock_ttl", d.Sync.LockTTL)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.address", d.Metrics.Address)

	v.SetDefault("sentry.enabled", d.Sentry.Enabled)
	v.SetDefault("sentry.dsn", d.Sentry.DSN)
	v.SetDefault("sentry.environment", d.Sentry.Environment)
	v.SetDefault("sentry.sample_rate", d.Sentry.SampleRate)
}

// GetDefaultConfig returns the configuration used when nothing is set.
// The merchant and hash defaults are Payvalida's public sandbox test values.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Payvalida: PayvalidaConfig{
			Merchant:      "datosnoblemediapruebas",
			FixedHash:     "hash",
			Environment:   types.EnvironmentSandbox,
			SandboxURL:    "https://api-test.payvalida.com",
			ProductionURL: "https://api.payvalida.com",
			Timeout:       45 * time.Second,
			MaxRetries:    0,
		},
		Logging: LoggingConfig{
			Level:       types.LogLevelInfo,
			SaveLogging: false,
			FilePath:    "payvalida.log",
			FluentdPort: 24224,
		},
		Store: StoreConfig{
			Type: types.StoreTypeMemory,
		},
		Catalog: CatalogConfig{
			Path:   "catalog.json",
			Region: "us-east-1",
		},
		Redis: RedisConfig{
			Host:      "localhost",
			Port:      6379,
			PoolSize:  10,
			Timeout:   5 * time.Second,
			KeyPrefix: "plansync",
		},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "plansync",
			DBName:  "plansync",
			SSLMode: "disable",
		},
		Sync: SyncConfig{
			Schedule: "@every 1h",
			LockTTL:  types.DefaultLockTTL,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Sentry: SentryConfig{
			SampleRate: 1.0,
		},
	}
}
