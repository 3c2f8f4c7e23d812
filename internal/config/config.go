// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App          AppConfig          `koanf:"app"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	Wallet       WalletConfig       `koanf:"wallet"`
	Subscription SubscriptionConfig `koanf:"subscription"`
	Events       EventsConfig       `koanf:"events"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	CORS         CORSConfig         `koanf:"cors"`
	Log          LogConfig          `koanf:"log"`
	Otel         OtelConfig         `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type WalletConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

type SubscriptionConfig struct {
	ActiveCacheTTL     time.Duration `koanf:"active_cache_ttl"`
	MaxRenewalAttempts int           `koanf:"max_renewal_attempts"`
	RenewalBatchSize   int           `koanf:"renewal_batch_size"`
	RenewalSchedule    string        `koanf:"renewal_schedule"`
	RenewalEnabled     bool          `koanf:"renewal_enabled"`
}

type EventsConfig struct {
	URL      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
	Enabled  bool   `koanf:"enabled"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		k := koanf.New(".")

		if err := loadDefaults(k); err != nil {
			loadErr = fmt.Errorf("load defaults: %w", err)
			return
		}

		if configPath != "" {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				loadErr = fmt.Errorf("load config file: %w", err)
				return
			}
		}

		if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
			loadErr = fmt.Errorf("load env vars: %w", err)
			return
		}

		cfg = &Config{}
		if err := k.Unmarshal("", cfg); err != nil {
			loadErr = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		if err := validate(cfg); err != nil {
			loadErr = fmt.Errorf("validate config: %w", err)
			return
		}
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Subscription Backend",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"wallet.timeout": "10s",

		"subscription.active_cache_ttl":     "3600s",
		"subscription.max_renewal_attempts": 3,
		"subscription.renewal_batch_size":   100,
		"subscription.renewal_schedule":     "0 3 * * *",
		"subscription.renewal_enabled":      false,

		"events.exchange": "subscription.events",
		"events.enabled":  false,

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "subscription-backend",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                      "database.url",
	"REDIS_URL":                         "redis.url",
	"ENVIRONMENT":                       "app.environment",
	"HOST":                              "server.host",
	"PORT":                              "server.port",
	"LOG_LEVEL":                         "log.level",
	"LOG_FORMAT":                        "log.format",
	"WALLET_BASE_URL":                   "wallet.base_url",
	"WALLET_API_KEY":                    "wallet.api_key",
	"WALLET_TIMEOUT":                    "wallet.timeout",
	"SUBSCRIPTION_ACTIVE_CACHE_TTL":     "subscription.active_cache_ttl",
	"SUBSCRIPTION_MAX_RENEWAL_ATTEMPTS": "subscription.max_renewal_attempts",
	"SUBSCRIPTION_RENEWAL_BATCH_SIZE":   "subscription.renewal_batch_size",
	"SUBSCRIPTION_RENEWAL_SCHEDULE":     "subscription.renewal_schedule",
	"SUBSCRIPTION_RENEWAL_ENABLED":      "subscription.renewal_enabled",
	"EVENTS_URL":                        "events.url",
	"EVENTS_EXCHANGE":                   "events.exchange",
	"EVENTS_ENABLED":                    "events.enabled",
	"RATE_LIMIT_REQUESTS":               "rate_limit.requests",
	"RATE_LIMIT_WINDOW":                 "rate_limit.window",
	"RATE_LIMIT_BURST":                  "rate_limit.burst",
	"OTEL_ENDPOINT":                     "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT":       "otel.endpoint",
	"OTEL_SERVICE_NAME":                 "otel.service_name",
	"OTEL_ENABLED":                      "otel.enabled",
	"OTEL_INSECURE":                     "otel.insecure",
	"OTEL_SAMPLE_RATE":                  "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Wallet.BaseURL == "" {
		return fmt.Errorf("WALLET_BASE_URL is required")
	}

	if c.Database.ConnMaxLifetime <= 0 {
		return fmt.Errorf("database.conn_max_lifetime must be positive")
	}

	if c.Subscription.MaxRenewalAttempts < 1 {
		return fmt.Errorf("subscription.max_renewal_attempts must be positive")
	}

	if c.Subscription.RenewalBatchSize < 1 {
		return fmt.Errorf("subscription.renewal_batch_size must be positive")
	}

	if c.Subscription.ActiveCacheTTL <= 0 {
		return fmt.Errorf("subscription.active_cache_ttl must be positive")
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("EVENTS_URL is required when events are enabled")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
