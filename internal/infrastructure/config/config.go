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
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Security  SecurityConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	Tracking  TrackingConfig
	AdSpend   AdSpendConfig
	Webhook   WebhookConfig
	Providers ProvidersConfig
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

// JWTConfig holds token verification settings for the trigger APIs
type JWTConfig struct {
	Secret string
	Issuer string
}

// SecurityConfig holds encryption settings
type SecurityConfig struct {
	// CredentialKey is the AES-256 key protecting provider credentials at
	// rest. Must be exactly 32 bytes.
	CredentialKey string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	// MaxBodySize caps webhook bodies; providers document payload limits
	// well under this
	MaxBodySize    int64
	TrustedProxies []string
}

// SyncConfig holds order sync engine settings
type SyncConfig struct {
	Enabled  bool
	Interval time.Duration
	LockTTL  time.Duration
	Lookback time.Duration
}

// TrackingConfig holds shipment refresh worker settings
type TrackingConfig struct {
	Enabled bool
	// Interval is the per-courier tick period
	Interval time.Duration
	// InitialDelayMax spreads worker starts after boot
	InitialDelayMax time.Duration
	// Freshness is how stale a shipment must be before reselection
	Freshness   time.Duration
	BatchSize   int
	SelectLimit int
}

// AdSpendConfig holds the daily marketing spend sync settings
type AdSpendConfig struct {
	Enabled  bool
	Interval time.Duration
	USDToINR string
}

// WebhookConfig holds webhook ingestion settings
type WebhookConfig struct {
	DedupTTL time.Duration
}

// ProvidersConfig holds process-wide fallback credentials for providers.
// User-saved credentials always win; these cover webhooks registered before
// a user configured their own app secret.
type ProvidersConfig struct {
	ShopifyAPISecret string
	SelloshipAPIKey  string
	DelhiveryAPIKey  string
	MetaAccessToken  string
	// HTTPTimeout bounds every outbound provider call
	HTTPTimeout time.Duration
	// MaxRetries caps retry attempts for idempotent GET calls
	MaxRetries int
}

// StaticCredentials shapes the fallback secrets for the credential resolver,
// keyed by provider id. Empty values are dropped by the resolver source.
func (p *ProvidersConfig) StaticCredentials() map[string]map[string]string {
	return map[string]map[string]string{
		"shopify":   {"apiSecret": p.ShopifyAPISecret},
		"selloship": {"apiKey": p.SelloshipAPIKey},
		"delhivery": {"apiKey": p.DelhiveryAPIKey},
		"meta_ads":  {"accessToken": p.MetaAccessToken},
	}
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CP_ prefix (e.g., CP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CP")
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
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Security: SecurityConfig{
			CredentialKey: v.GetString("security.credential_key"),
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
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			Enabled:  v.GetBool("sync.enabled"),
			Interval: v.GetDuration("sync.interval"),
			LockTTL:  v.GetDuration("sync.lock_ttl"),
			Lookback: v.GetDuration("sync.lookback"),
		},
		Tracking: TrackingConfig{
			Enabled:         v.GetBool("tracking.enabled"),
			Interval:        v.GetDuration("tracking.interval"),
			InitialDelayMax: v.GetDuration("tracking.initial_delay_max"),
			Freshness:       v.GetDuration("tracking.freshness"),
			BatchSize:       v.GetInt("tracking.batch_size"),
			SelectLimit:     v.GetInt("tracking.select_limit"),
		},
		AdSpend: AdSpendConfig{
			Enabled:  v.GetBool("adspend.enabled"),
			Interval: v.GetDuration("adspend.interval"),
			USDToINR: v.GetString("adspend.usd_to_inr"),
		},
		Webhook: WebhookConfig{
			DedupTTL: v.GetDuration("webhook.dedup_ttl"),
		},
		Providers: ProvidersConfig{
			ShopifyAPISecret: v.GetString("providers.shopify_api_secret"),
			SelloshipAPIKey:  v.GetString("providers.selloship_api_key"),
			DelhiveryAPIKey:  v.GetString("providers.delhivery_api_key"),
			MetaAccessToken:  v.GetString("providers.meta_access_token"),
			HTTPTimeout:      v.GetDuration("providers.http_timeout"),
			MaxRetries:       v.GetInt("providers.max_retries"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "channelpilot-backend"
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
		cfg.Database.DBName = "channelpilot"
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
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "channelpilot-backend"
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
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = time.Hour
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 10 * time.Minute
	}
	if cfg.Sync.Lookback == 0 {
		cfg.Sync.Lookback = 30 * 24 * time.Hour
	}
	if cfg.Tracking.Interval == 0 {
		cfg.Tracking.Interval = 30 * time.Minute
	}
	if cfg.Tracking.InitialDelayMax == 0 {
		cfg.Tracking.InitialDelayMax = 30 * time.Second
	}
	if cfg.Tracking.Freshness == 0 {
		cfg.Tracking.Freshness = 30 * time.Minute
	}
	if cfg.Tracking.BatchSize == 0 {
		cfg.Tracking.BatchSize = 50
	}
	if cfg.Tracking.SelectLimit == 0 {
		cfg.Tracking.SelectLimit = 1000
	}
	if cfg.AdSpend.Interval == 0 {
		cfg.AdSpend.Interval = 24 * time.Hour
	}
	if cfg.AdSpend.USDToINR == "" {
		cfg.AdSpend.USDToINR = "83"
	}
	if cfg.Webhook.DedupTTL == 0 {
		cfg.Webhook.DedupTTL = 24 * time.Hour
	}
	if cfg.Providers.HTTPTimeout == 0 {
		cfg.Providers.HTTPTimeout = 30 * time.Second
	}
	if cfg.Providers.MaxRetries == 0 {
		cfg.Providers.MaxRetries = 3
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
	if c.Tracking.BatchSize > 50 {
		return fmt.Errorf("tracking.batch_size cannot exceed the courier API limit of 50")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if len(c.Security.CredentialKey) != 32 {
			return fmt.Errorf("security.credential_key must be exactly 32 bytes in production")
		}
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
