package config

import (
	"fmt"
	"time"
)

// Config represents the global configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Security  SecurityConfig  `mapstructure:"security"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	Orders    OrdersConfig    `mapstructure:"orders"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig represents tracing configuration
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Global  struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"global"`
	Checkout struct {
		Limit  int           `mapstructure:"limit"`
		Window time.Duration `mapstructure:"window"`
	} `mapstructure:"checkout"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	JWT struct {
		Secret     string        `mapstructure:"secret"`
		Expire     time.Duration `mapstructure:"expire"`
		RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
		Issuer     string        `mapstructure:"issuer"`
	} `mapstructure:"jwt"`
	CORS struct {
		Enabled          bool     `mapstructure:"enabled"`
		AllowOrigins     []string `mapstructure:"allow_origins"`
		AllowMethods     []string `mapstructure:"allow_methods"`
		AllowHeaders     []string `mapstructure:"allow_headers"`
		AllowCredentials bool     `mapstructure:"allow_credentials"`
		MaxAge           int      `mapstructure:"max_age"`
	} `mapstructure:"cors"`
}

// NotifyConfig represents notification fan-out configuration
type NotifyConfig struct {
	TopicPrefix   string        `mapstructure:"topic_prefix"`    // broadcast topic prefix
	AdminCacheTTL time.Duration `mapstructure:"admin_cache_ttl"` // barangay admin lookup cache TTL
	Breaker       struct {
		MaxRequests      uint32        `mapstructure:"max_requests"`
		Interval         time.Duration `mapstructure:"interval"`
		Timeout          time.Duration `mapstructure:"timeout"`
		FailureThreshold uint32        `mapstructure:"failure_threshold"`
	} `mapstructure:"breaker"`
}

// DeliveryConfig represents hybrid delivery configuration
type DeliveryConfig struct {
	PollInterval        time.Duration `mapstructure:"poll_interval"`         // polling fallback tick
	PollTimeout         time.Duration `mapstructure:"poll_timeout"`          // per poll call budget
	DebounceWindow      time.Duration `mapstructure:"debounce_window"`       // primary activity window suppressing polls
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"` // primary channel health tick
	DedupCapacity       int           `mapstructure:"dedup_capacity"`        // recent-id set size
	PushBuffer          int           `mapstructure:"push_buffer"`           // in-process channel buffer
}

// OrdersConfig represents order orchestration configuration
type OrdersConfig struct {
	LockTTL       time.Duration `mapstructure:"lock_ttl"`     // per-order mutation lock TTL
	LockRetries   int           `mapstructure:"lock_retries"` // lock acquisition retries
	LockRetryWait time.Duration `mapstructure:"lock_retry_wait"`
	CodeCapacity  uint          `mapstructure:"code_capacity"` // purchase-code bloom sizing
}

// GetAddr returns the server address
func (s *ServerConfig) GetAddr() string {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GetDSN returns the database DSN
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.DBName)
}

// GetAddr returns the Redis address
func (r *RedisConfig) GetAddr() string {
	if r.Host == "" {
		r.Host = "localhost"
	}
	if r.Port == 0 {
		r.Port = 6379
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	if c.Security.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.Delivery.DedupCapacity <= 0 {
		return fmt.Errorf("delivery dedup capacity must be positive")
	}

	return nil
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 100
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = time.Hour
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 10
	}
	if c.Redis.MaxRetries == 0 {
		c.Redis.MaxRetries = 3
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "farm2go"
	}

	if c.Security.JWT.Expire == 0 {
		c.Security.JWT.Expire = 2 * time.Hour
	}
	if c.Security.JWT.RefreshTTL == 0 {
		c.Security.JWT.RefreshTTL = 7 * 24 * time.Hour
	}
	if c.Security.JWT.Issuer == "" {
		c.Security.JWT.Issuer = "farm2go"
	}

	if c.RateLimit.Global.RPS == 0 {
		c.RateLimit.Global.RPS = 100
	}
	if c.RateLimit.Global.Burst == 0 {
		c.RateLimit.Global.Burst = 200
	}
	if c.RateLimit.Checkout.Limit == 0 {
		c.RateLimit.Checkout.Limit = 10
	}
	if c.RateLimit.Checkout.Window == 0 {
		c.RateLimit.Checkout.Window = time.Minute
	}

	if c.Notify.TopicPrefix == "" {
		c.Notify.TopicPrefix = "notifications_"
	}
	if c.Notify.AdminCacheTTL == 0 {
		c.Notify.AdminCacheTTL = time.Minute
	}
	if c.Notify.Breaker.MaxRequests == 0 {
		c.Notify.Breaker.MaxRequests = 5
	}
	if c.Notify.Breaker.Interval == 0 {
		c.Notify.Breaker.Interval = time.Minute
	}
	if c.Notify.Breaker.Timeout == 0 {
		c.Notify.Breaker.Timeout = 30 * time.Second
	}
	if c.Notify.Breaker.FailureThreshold == 0 {
		c.Notify.Breaker.FailureThreshold = 5
	}

	if c.Delivery.PollInterval == 0 {
		c.Delivery.PollInterval = 15 * time.Second
	}
	if c.Delivery.PollTimeout == 0 {
		c.Delivery.PollTimeout = 5 * time.Second
	}
	if c.Delivery.DebounceWindow == 0 {
		c.Delivery.DebounceWindow = 60 * time.Second
	}
	if c.Delivery.HealthCheckInterval == 0 {
		c.Delivery.HealthCheckInterval = 60 * time.Second
	}
	if c.Delivery.DedupCapacity == 0 {
		c.Delivery.DedupCapacity = 100
	}
	if c.Delivery.PushBuffer == 0 {
		c.Delivery.PushBuffer = 64
	}

	if c.Orders.LockTTL == 0 {
		c.Orders.LockTTL = 10 * time.Second
	}
	if c.Orders.LockRetries == 0 {
		c.Orders.LockRetries = 3
	}
	if c.Orders.LockRetryWait == 0 {
		c.Orders.LockRetryWait = 100 * time.Millisecond
	}
	if c.Orders.CodeCapacity == 0 {
		c.Orders.CodeCapacity = 100000
	}
}
