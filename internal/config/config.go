package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Badger    BadgerConfig    `json:"badger" yaml:"badger"`
	Notify    NotifyConfig    `json:"notify" yaml:"notify"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

type ServerConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         string        `json:"port" yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	Environment  string        `json:"environment" yaml:"environment"`
	CORSOrigins  []string      `json:"cors_origins" yaml:"cors_origins"`
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type StorageConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	Key     string `json:"key" yaml:"key"`

	BreakerMaxFailures int           `json:"breaker_max_failures" yaml:"breaker_max_failures"`
	BreakerTimeout     time.Duration `json:"breaker_timeout" yaml:"breaker_timeout"`
}

type DatabaseConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            string        `json:"port" yaml:"port"`
	User            string        `json:"user" yaml:"user"`
	Password        string        `json:"password" yaml:"password"`
	Name            string        `json:"name" yaml:"name"`
	SSLMode         string        `json:"ssl_mode" yaml:"ssl_mode"`
	SQLitePath      string        `json:"sqlite_path" yaml:"sqlite_path"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         string        `json:"port" yaml:"port"`
	Password     string        `json:"password" yaml:"password"`
	DB           int           `json:"db" yaml:"db"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns"`
	MaxRetries   int           `json:"max_retries" yaml:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

type BadgerConfig struct {
	Path           string        `json:"path" yaml:"path"`
	InMemory       bool          `json:"in_memory" yaml:"in_memory"`
	SyncWrites     bool          `json:"sync_writes" yaml:"sync_writes"`
	GCInterval     time.Duration `json:"gc_interval" yaml:"gc_interval"`
	GCDiscardRatio float64       `json:"gc_discard_ratio" yaml:"gc_discard_ratio"`
}

type NotifyConfig struct {
	RedisEnabled bool   `json:"redis_enabled" yaml:"redis_enabled"`
	Queue        string `json:"queue" yaml:"queue"`
	HistorySize  int    `json:"history_size" yaml:"history_size"`
}

type RateLimitConfig struct {
	Enabled         bool          `json:"enabled" yaml:"enabled"`
	RequestsPerMin  int           `json:"requests_per_minute" yaml:"requests_per_minute"`
	BurstSize       int           `json:"burst_size" yaml:"burst_size"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			Environment:  "development",
			CORSOrigins:  []string{"http://localhost:5173"},
		},
		Storage: StorageConfig{
			Backend:            BackendBadger,
			Key:                "taskflow-tasks-v1",
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Name:            "taskflow",
			SSLMode:         "disable",
			SQLitePath:      "taskflow.db",
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         "6379",
			PoolSize:     10,
			MinIdleConns: 5,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Badger: BadgerConfig{
			Path:           "data/badger",
			SyncWrites:     true,
			GCInterval:     5 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Notify: NotifyConfig{
			Queue:       "taskflow:events",
			HistorySize: 100,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			RequestsPerMin:  100,
			BurstSize:       10,
			CleanupInterval: 10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by CONFIG_FILE (if any), then environment variables.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv("CONFIG_FILE"))
}

// LoadConfigFile is LoadConfig with an explicit YAML path. An empty path
// skips the file.
func LoadConfigFile(path string) (*Config, error) {
	config := defaults()

	if path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvAsDuration("IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.Environment = getEnv("ENVIRONMENT", c.Server.Environment)
	c.Server.CORSOrigins = getEnvAsSlice("CORS_ORIGINS", c.Server.CORSOrigins)

	c.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.Key = getEnv("STORAGE_KEY", c.Storage.Key)
	c.Storage.BreakerMaxFailures = getEnvAsInt("STORAGE_BREAKER_MAX_FAILURES", c.Storage.BreakerMaxFailures)
	c.Storage.BreakerTimeout = getEnvAsDuration("STORAGE_BREAKER_TIMEOUT", c.Storage.BreakerTimeout)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.SQLitePath = getEnv("SQLITE_PATH", c.Database.SQLitePath)
	c.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)
	c.Database.ConnMaxIdleTime = getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", c.Database.ConnMaxIdleTime)

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getEnvAsInt("REDIS_POOL_SIZE", c.Redis.PoolSize)
	c.Redis.MinIdleConns = getEnvAsInt("REDIS_MIN_IDLE_CONNS", c.Redis.MinIdleConns)
	c.Redis.MaxRetries = getEnvAsInt("REDIS_MAX_RETRIES", c.Redis.MaxRetries)
	c.Redis.DialTimeout = getEnvAsDuration("REDIS_DIAL_TIMEOUT", c.Redis.DialTimeout)
	c.Redis.ReadTimeout = getEnvAsDuration("REDIS_READ_TIMEOUT", c.Redis.ReadTimeout)
	c.Redis.WriteTimeout = getEnvAsDuration("REDIS_WRITE_TIMEOUT", c.Redis.WriteTimeout)

	c.Badger.Path = getEnv("BADGER_PATH", c.Badger.Path)
	c.Badger.InMemory = getEnvAsBool("BADGER_IN_MEMORY", c.Badger.InMemory)
	c.Badger.SyncWrites = getEnvAsBool("BADGER_SYNC_WRITES", c.Badger.SyncWrites)
	c.Badger.GCInterval = getEnvAsDuration("BADGER_GC_INTERVAL", c.Badger.GCInterval)
	c.Badger.GCDiscardRatio = getEnvAsFloat("BADGER_GC_DISCARD_RATIO", c.Badger.GCDiscardRatio)

	c.Notify.RedisEnabled = getEnvAsBool("NOTIFY_REDIS_ENABLED", c.Notify.RedisEnabled)
	c.Notify.Queue = getEnv("NOTIFY_QUEUE", c.Notify.Queue)
	c.Notify.HistorySize = getEnvAsInt("NOTIFY_HISTORY_SIZE", c.Notify.HistorySize)

	c.RateLimit.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerMin = getEnvAsInt("RATE_LIMIT_RPM", c.RateLimit.RequestsPerMin)
	c.RateLimit.BurstSize = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.BurstSize)
	c.RateLimit.CleanupInterval = getEnvAsDuration("RATE_LIMIT_CLEANUP", c.RateLimit.CleanupInterval)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendRedis, BackendBadger, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.Key == "" {
		return fmt.Errorf("storage key must not be empty")
	}

	if c.Storage.Backend == BackendBadger && !c.Badger.InMemory && c.Badger.Path == "" {
		return fmt.Errorf("badger path is required unless running in memory")
	}

	if c.Badger.GCDiscardRatio < 0 || c.Badger.GCDiscardRatio > 1 {
		return fmt.Errorf("badger gc discard ratio must be between 0 and 1")
	}

	if c.IsProduction() {
		if c.Storage.Backend == BackendPostgres && c.Database.Password == "" {
			return fmt.Errorf("database password is required in production")
		}
		if c.Storage.Backend == BackendMemory {
			return fmt.Errorf("memory storage backend is not durable and cannot be used in production")
		}
	}

	if (c.Storage.Backend == BackendRedis || c.Notify.RedisEnabled) && c.Redis.Host == "" {
		return fmt.Errorf("redis host is required for the redis backend or redis notifications")
	}

	return nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// UsesRedis reports whether any component needs a redis connection.
func (c *Config) UsesRedis() bool {
	return c.Storage.Backend == BackendRedis || c.Notify.RedisEnabled
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
