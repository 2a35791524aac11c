package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Integration IntegrationConfig
	Retry       RetryConfig
	Sweep       SweepConfig
	Storage     StorageConfig
	Secrets     SecretsConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig holds settings for resolving the caller's tenant
type AuthConfig struct {
	JWTSecret   string
	Issuer      string
	TenantClaim string
	// AllowTenantHeader accepts X-Tenant-ID without a token (development only)
	AllowTenantHeader bool
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// PlatformEndpointConfig holds per-platform endpoint settings
type PlatformEndpointConfig struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
}

// IntegrationConfig holds platform adapter settings
type IntegrationConfig struct {
	AdapterTimeout      time.Duration // bound on one adapter call
	RequestTimeout      time.Duration // bound on one HTTP request
	StuckAfter          time.Duration // age at which force-resync accepts a publishing record
	AmazonMarketplaceID string
	Shopify             PlatformEndpointConfig
	VTEX                PlatformEndpointConfig
	MercadoLibre        PlatformEndpointConfig
	Amazon              PlatformEndpointConfig
}

// RetryConfig holds the retry policy applied after a failed sync
type RetryConfig struct {
	Policy      string // fixed, exponential
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int // 0 = unlimited automatic retries
}

// SweepConfig holds automatic retry sweep settings
type SweepConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
	Workers   int
	LockKey   string
	LockTTL   time.Duration
}

// StorageConfig holds S3 settings for master product images
type StorageConfig struct {
	Enabled      bool
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	PresignTTL   time.Duration
	// AccessKey and SecretKey select static credentials; empty uses the
	// default AWS credential chain
	AccessKey string
	SecretKey string
}

// SecretsConfig holds AWS Secrets Manager settings for credential references
type SecretsConfig struct {
	Enabled   bool
	Region    string
	Endpoint  string
	CacheTTL  time.Duration
	AccessKey string
	SecretKey string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CATALOG_ prefix (e.g., CATALOG_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			JWTSecret:         v.GetString("auth.jwt_secret"),
			Issuer:            v.GetString("auth.issuer"),
			TenantClaim:       v.GetString("auth.tenant_claim"),
			AllowTenantHeader: v.GetBool("auth.allow_tenant_header"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Integration: IntegrationConfig{
			AdapterTimeout:      v.GetDuration("integration.adapter_timeout"),
			RequestTimeout:      v.GetDuration("integration.request_timeout"),
			StuckAfter:          v.GetDuration("integration.stuck_after"),
			AmazonMarketplaceID: v.GetString("integration.amazon_marketplace_id"),
			Shopify:             loadEndpoint(v, "integration.shopify"),
			VTEX:                loadEndpoint(v, "integration.vtex"),
			MercadoLibre:        loadEndpoint(v, "integration.mercadolibre"),
			Amazon:              loadEndpoint(v, "integration.amazon"),
		},
		Retry: RetryConfig{
			Policy:      v.GetString("retry.policy"),
			BaseDelay:   v.GetDuration("retry.base_delay"),
			MaxDelay:    v.GetDuration("retry.max_delay"),
			MaxAttempts: v.GetInt("retry.max_attempts"),
		},
		Sweep: SweepConfig{
			Enabled:   v.GetBool("sweep.enabled"),
			Interval:  v.GetDuration("sweep.interval"),
			BatchSize: v.GetInt("sweep.batch_size"),
			Workers:   v.GetInt("sweep.workers"),
			LockKey:   v.GetString("sweep.lock_key"),
			LockTTL:   v.GetDuration("sweep.lock_ttl"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Bucket:       v.GetString("storage.bucket"),
			Region:       v.GetString("storage.region"),
			Endpoint:     v.GetString("storage.endpoint"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			PresignTTL:   v.GetDuration("storage.presign_ttl"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
		},
		Secrets: SecretsConfig{
			Enabled:   v.GetBool("secrets.enabled"),
			Region:    v.GetString("secrets.region"),
			Endpoint:  v.GetString("secrets.endpoint"),
			CacheTTL:  v.GetDuration("secrets.cache_ttl"),
			AccessKey: v.GetString("secrets.access_key"),
			SecretKey: v.GetString("secrets.secret_key"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEndpoint(v *viper.Viper, prefix string) PlatformEndpointConfig {
	return PlatformEndpointConfig{
		BaseURL:           v.GetString(prefix + ".base_url"),
		RequestsPerSecond: v.GetFloat64(prefix + ".requests_per_second"),
		Burst:             v.GetInt(prefix + ".burst"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "catalog-ai"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "catalog"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "catalog-ai"
	}
	if cfg.Auth.TenantClaim == "" {
		cfg.Auth.TenantClaim = "tenant_id"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Sync calls wait on the platform, so the write timeout must outlast
	// the adapter timeout.
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 45 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Integration.AdapterTimeout == 0 {
		cfg.Integration.AdapterTimeout = 30 * time.Second
	}
	if cfg.Integration.RequestTimeout == 0 {
		cfg.Integration.RequestTimeout = 25 * time.Second
	}
	if cfg.Integration.StuckAfter == 0 {
		cfg.Integration.StuckAfter = 10 * time.Minute
	}
	if cfg.Retry.Policy == "" {
		cfg.Retry.Policy = "fixed"
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = 5 * time.Minute
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 30 * time.Minute
	}
	if cfg.Sweep.Interval == 0 {
		cfg.Sweep.Interval = time.Minute
	}
	if cfg.Sweep.BatchSize == 0 {
		cfg.Sweep.BatchSize = 100
	}
	if cfg.Sweep.Workers == 0 {
		cfg.Sweep.Workers = 4
	}
	if cfg.Sweep.LockKey == "" {
		cfg.Sweep.LockKey = "catalog:retry-sweep:lock"
	}
	if cfg.Sweep.LockTTL == 0 {
		cfg.Sweep.LockTTL = 2 * time.Minute
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignTTL == 0 {
		cfg.Storage.PresignTTL = time.Hour
	}
	if cfg.Secrets.Region == "" {
		cfg.Secrets.Region = "us-east-1"
	}
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = 5 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "catalog-ai"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Retry.Policy {
	case "fixed", "exponential":
	default:
		return fmt.Errorf("retry.policy must be fixed or exponential, got %q", c.Retry.Policy)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts cannot be negative")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay (%s) cannot be less than retry.base_delay (%s)",
			c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	if c.Sweep.Workers < 0 || c.Sweep.BatchSize < 0 {
		return fmt.Errorf("sweep.workers and sweep.batch_size cannot be negative")
	}
	if c.Sweep.Enabled && c.Sweep.LockTTL < c.Sweep.Interval {
		return fmt.Errorf("sweep.lock_ttl (%s) must be at least sweep.interval (%s)",
			c.Sweep.LockTTL, c.Sweep.Interval)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required in production")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth.jwt_secret must be at least 32 characters in production")
		}
		if c.Auth.AllowTenantHeader {
			return fmt.Errorf("auth.allow_tenant_header must be false in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
