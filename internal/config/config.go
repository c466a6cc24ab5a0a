package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Relay     RelayConfig     `yaml:"relay"`
	Cache     CacheConfig     `yaml:"cache"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Events    EventsConfig    `yaml:"events"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC health listener settings
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	HealthPort int    `yaml:"health_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
	Migrate  bool   `yaml:"migrate"`
}

// RedisConfig contains cache backend settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// RelayConfig contains the change-notification listener settings
type RelayConfig struct {
	Channel              string        `yaml:"channel"`
	MinReconnectInterval time.Duration `yaml:"min_reconnect_interval"`
	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	DedupWindow          int           `yaml:"dedup_window"`
}

// CacheConfig contains read-through cache settings
type CacheConfig struct {
	TTL       time.Duration `yaml:"ttl"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// LedgerConfig contains availability ledger settings
type LedgerConfig struct {
	HorizonDays int `yaml:"horizon_days"`
}

// RealtimeConfig contains websocket settings
type RealtimeConfig struct {
	SendBuffer      int           `yaml:"send_buffer"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	PongTimeout     time.Duration `yaml:"pong_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MaxMessageBytes int64         `yaml:"max_message_bytes"`
}

// EventsConfig contains downstream event forwarding settings
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"` // empty disables forwarding
	Exchange string `yaml:"exchange"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	Enabled             bool   `yaml:"enabled"`
	ExpireBookings      string `yaml:"expire_bookings"`
	ExtendLedgerHorizon string `yaml:"extend_ledger_horizon"`
	RefreshRoomStatus   string `yaml:"refresh_room_status"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Events
	if val := os.Getenv("AMQP_URL"); val != "" {
		c.Events.AMQPURL = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HealthPort < 0 || c.Server.HealthPort > 65535 {
		return fmt.Errorf("invalid health port: %d", c.Server.HealthPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Relay defaults
	if c.Relay.Channel == "" {
		c.Relay.Channel = "booking_changes"
	}
	if c.Relay.MinReconnectInterval == 0 {
		c.Relay.MinReconnectInterval = time.Second
	}
	if c.Relay.MaxReconnectInterval == 0 {
		c.Relay.MaxReconnectInterval = 30 * time.Second
	}
	if c.Relay.MaxReconnectInterval < c.Relay.MinReconnectInterval {
		return fmt.Errorf("relay max_reconnect_interval must be >= min_reconnect_interval")
	}
	if c.Relay.PingInterval == 0 {
		c.Relay.PingInterval = 90 * time.Second
	}
	if c.Relay.DedupWindow == 0 {
		c.Relay.DedupWindow = 1024
	}

	// Cache defaults
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 10 * time.Minute
	}
	if c.Cache.OpTimeout == 0 {
		c.Cache.OpTimeout = 500 * time.Millisecond
	}

	if c.Ledger.HorizonDays == 0 {
		c.Ledger.HorizonDays = 365
	}
	if c.Ledger.HorizonDays < 0 {
		return fmt.Errorf("invalid ledger horizon: %d", c.Ledger.HorizonDays)
	}

	// Realtime defaults
	if c.Realtime.SendBuffer == 0 {
		c.Realtime.SendBuffer = 64
	}
	if c.Realtime.WriteTimeout == 0 {
		c.Realtime.WriteTimeout = 10 * time.Second
	}
	if c.Realtime.PongTimeout == 0 {
		c.Realtime.PongTimeout = 60 * time.Second
	}
	if c.Realtime.MaxMessageBytes == 0 {
		c.Realtime.MaxMessageBytes = 4096
	}

	if c.Events.Exchange == "" {
		c.Events.Exchange = "booking.events"
	}

	// Scheduler defaults
	if c.Scheduler.ExpireBookings == "" {
		c.Scheduler.ExpireBookings = "0 5 0 * * *" // 00:05 UTC
	}
	if c.Scheduler.ExtendLedgerHorizon == "" {
		c.Scheduler.ExtendLedgerHorizon = "0 15 0 * * *" // 00:15 UTC
	}
	if c.Scheduler.RefreshRoomStatus == "" {
		c.Scheduler.RefreshRoomStatus = "0 1 0 * * *" // 00:01 UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHealthAddress returns the gRPC health server address, or "" when disabled
func (c *Config) GetHealthAddress() string {
	if c.Server.HealthPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HealthPort)
}
