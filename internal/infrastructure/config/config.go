package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Promo catalog sources
const (
	PromoSourceStatic   = "static"
	PromoSourceDatabase = "database"
)

// Snapshot store kinds
const (
	CartStoreRedis  = "redis"
	CartStoreMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Pricing   PricingConfig
	Promotion PromotionConfig
	Cart      CartConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr
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
	ConnMaxLifetime int  // in minutes
	ConnMaxIdleTime int  // in minutes
	AutoMigrate     bool // apply embedded migrations on server start
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// PromoRateLimit caps promo code attempts per cart session within PromoRateWindow.
	// Zero disables the limit.
	PromoRateLimit  int
	PromoRateWindow time.Duration
}

// PricingConfig holds the cart pricing policy
type PricingConfig struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	Precision             int32
}

// PromotionConfig selects where promo codes come from
type PromotionConfig struct {
	Source string // static, database
	Codes  []PromoSeed
}

// PromoSeed is one promo code entry of the static catalog.
// Amounts are strings so TOML floats and strings both decode without loss.
type PromoSeed struct {
	Code           string `mapstructure:"code"`
	Description    string `mapstructure:"description"`
	Kind           string `mapstructure:"kind"`
	Value          string `mapstructure:"value"`
	BuyQuantity    int    `mapstructure:"buy_quantity"`
	GetQuantity    int    `mapstructure:"get_quantity"`
	MinOrderAmount string `mapstructure:"min_order_amount"`
	MaxDiscount    string `mapstructure:"max_discount"`
	Inactive       bool   `mapstructure:"inactive"`
}

// CartConfig holds cart snapshot storage settings
type CartConfig struct {
	Store               string // redis, memory
	SnapshotTTL         time.Duration
	KeyPrefix           string
	AllowMemoryFallback bool
	SessionHeader       string
	MetricsInterval     time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // traces
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool
	MetricsEnabled    bool
	ExportInterval    time.Duration
	LogsEnabled       bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration
}

// Load loads configuration from config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with SHOP_ prefix (e.g., SHOP_PRICING_TAX_RATE)
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
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return build(v)
}

// LoadFile loads configuration from an explicit TOML file plus environment variables.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("SHOP")
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
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			PromoRateLimit:   v.GetInt("http.promo_rate_limit"),
			PromoRateWindow:  v.GetDuration("http.promo_rate_window"),
		},
		Promotion: PromotionConfig{
			Source: v.GetString("promotion.source"),
		},
		Cart: CartConfig{
			Store:               v.GetString("cart.store"),
			SnapshotTTL:         v.GetDuration("cart.snapshot_ttl"),
			KeyPrefix:           v.GetString("cart.key_prefix"),
			AllowMemoryFallback: v.GetBool("cart.allow_memory_fallback"),
			SessionHeader:       v.GetString("cart.session_header"),
			MetricsInterval:     v.GetDuration("cart.metrics_interval"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	var err error
	if cfg.Pricing, err = pricingFrom(v); err != nil {
		return nil, err
	}
	if err := v.UnmarshalKey("promotion.codes", &cfg.Promotion.Codes); err != nil {
		return nil, fmt.Errorf("promotion.codes: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func pricingFrom(v *viper.Viper) (PricingConfig, error) {
	var (
		p   PricingConfig
		err error
	)
	if p.TaxRate, err = decimalOr(v, "pricing.tax_rate", "0.18"); err != nil {
		return p, err
	}
	if p.FreeShippingThreshold, err = decimalOr(v, "pricing.free_shipping_threshold", "500"); err != nil {
		return p, err
	}
	if p.ShippingFee, err = decimalOr(v, "pricing.shipping_fee", "50"); err != nil {
		return p, err
	}
	p.Precision = 2
	if v.IsSet("pricing.precision") {
		p.Precision = v.GetInt32("pricing.precision")
	}
	return p, nil
}

func decimalOr(v *viper.Viper, key, def string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		raw = def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q", key, raw)
	}
	return d, nil
}

// DefaultPromoSeeds returns the built-in static promo codes.
func DefaultPromoSeeds() []PromoSeed {
	return []PromoSeed{
		{Code: "BUY2GET1", Description: "Buy 2, get 1 free", Kind: "buy_x_get_y_free", BuyQuantity: 2, GetQuantity: 1},
		{Code: "FLAT100", Description: "100 off orders of 1000 or more", Kind: "fixed", Value: "100", MinOrderAmount: "1000"},
		{Code: "SAVE10", Description: "10% off, up to 200", Kind: "percentage", Value: "10", MaxDiscount: "200"},
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-backend"
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
		cfg.Database.DBName = "storefront"
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
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.PromoRateWindow == 0 {
		cfg.HTTP.PromoRateWindow = time.Minute
	}
	// An empty origin list allows no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if cfg.Cart.SessionHeader == "" {
		cfg.Cart.SessionHeader = "X-Cart-Session"
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", cfg.Cart.SessionHeader}
	}
	if cfg.Promotion.Source == "" {
		cfg.Promotion.Source = PromoSourceStatic
	}
	if cfg.Promotion.Source == PromoSourceStatic && len(cfg.Promotion.Codes) == 0 {
		cfg.Promotion.Codes = DefaultPromoSeeds()
	}
	if cfg.Cart.Store == "" {
		cfg.Cart.Store = CartStoreRedis
	}
	if cfg.Cart.SnapshotTTL == 0 {
		cfg.Cart.SnapshotTTL = 7 * 24 * time.Hour
	}
	if cfg.Cart.KeyPrefix == "" {
		cfg.Cart.KeyPrefix = "cart:snapshot:"
	}
	if cfg.Cart.MetricsInterval == 0 {
		cfg.Cart.MetricsInterval = time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
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

	if c.Pricing.TaxRate.IsNegative() || c.Pricing.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("pricing.tax_rate must be in [0, 1), got %s", c.Pricing.TaxRate)
	}
	if c.Pricing.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("pricing.free_shipping_threshold cannot be negative")
	}
	if c.Pricing.ShippingFee.IsNegative() {
		return fmt.Errorf("pricing.shipping_fee cannot be negative")
	}
	if c.Pricing.Precision < 0 || c.Pricing.Precision > 8 {
		return fmt.Errorf("pricing.precision must be between 0 and 8, got %d", c.Pricing.Precision)
	}

	switch c.Promotion.Source {
	case PromoSourceStatic, PromoSourceDatabase:
	default:
		return fmt.Errorf("promotion.source must be %q or %q, got %q",
			PromoSourceStatic, PromoSourceDatabase, c.Promotion.Source)
	}

	switch c.Cart.Store {
	case CartStoreRedis, CartStoreMemory:
	default:
		return fmt.Errorf("cart.store must be %q or %q, got %q", CartStoreRedis, CartStoreMemory, c.Cart.Store)
	}
	if c.HTTP.PromoRateLimit < 0 {
		return fmt.Errorf("http.promo_rate_limit cannot be negative")
	}
	if c.Cart.SnapshotTTL < 0 {
		return fmt.Errorf("cart.snapshot_ttl cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" && c.Promotion.Source == PromoSourceDatabase {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" && c.Promotion.Source == PromoSourceDatabase {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Cart.Store == CartStoreRedis && c.Cart.AllowMemoryFallback {
			return fmt.Errorf("cart.allow_memory_fallback must be false in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
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
