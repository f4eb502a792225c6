package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Kafka    KafkaConfig    `toml:"kafka"`
	ADX      ADXConfig      `toml:"adx"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string `toml:"port"`
	Host           string `toml:"host"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
	// RetentionDays > 0 enables the periodic sweep of old analyses
	RetentionDays int `toml:"retention_days"`
}

// RedisConfig holds the result cache configuration
type RedisConfig struct {
	Enabled          bool   `toml:"enabled"`
	Addr             string `toml:"addr"`
	Password         string `toml:"password"`
	DB               int    `toml:"db"`
	ResultTTLSeconds int    `toml:"result_ttl_seconds"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled      bool     `toml:"enabled"`
	Brokers      []string `toml:"brokers"`
	SeriesTopic  string   `toml:"series_topic"`
	ResultsTopic string   `toml:"results_topic"`
	GroupID      string   `toml:"group_id"`
}

// ADXConfig holds indicator parameters
type ADXConfig struct {
	Period int `toml:"period"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `toml:"level"`
	Environment string `toml:"environment"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Host:           "0.0.0.0",
			MaxUploadBytes: 10 << 20,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "adxservice",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Addr:             "localhost:6379",
			ResultTTLSeconds: 3600,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			SeriesTopic:  "adx-series",
			ResultsTopic: "adx-results",
			GroupID:      "adx-service",
		},
		ADX: ADXConfig{
			Period: 14,
		},
		Log: LogConfig{
			Level:       "info",
			Environment: "production",
		},
	}
}

// Load reads configuration from an optional TOML file named by CONFIG_FILE,
// then from environment variables (a .env file is loaded first when present).
// Environment values override the file.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.MaxUploadBytes = getEnvAsInt64("SERVER_MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)

	c.Database.Enabled = getEnvAsBool("DB_ENABLED", c.Database.Enabled)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.RetentionDays = getEnvAsInt("DB_RETENTION_DAYS", c.Database.RetentionDays)

	c.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.ResultTTLSeconds = getEnvAsInt("REDIS_RESULT_TTL_SECONDS", c.Redis.ResultTTLSeconds)

	c.Kafka.Enabled = getEnvAsBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = getEnvAsStringSlice("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.SeriesTopic = getEnv("KAFKA_SERIES_TOPIC", c.Kafka.SeriesTopic)
	c.Kafka.ResultsTopic = getEnv("KAFKA_RESULTS_TOPIC", c.Kafka.ResultsTopic)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)

	c.ADX.Period = getEnvAsInt("ADX_PERIOD", c.ADX.Period)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Environment = getEnv("ENVIRONMENT", c.Log.Environment)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ADX.Period < 1 {
		return fmt.Errorf("ADX_PERIOD must be at least 1, got %d", c.ADX.Period)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("SERVER_MAX_UPLOAD_BYTES must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when Kafka is enabled")
	}
	if c.Database.RetentionDays < 0 {
		return fmt.Errorf("DB_RETENTION_DAYS must not be negative")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when Redis is enabled")
	}
	return nil
}

// Addr returns the HTTP listen address
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Retention returns how long stored analyses are kept, zero meaning forever
func (d *DatabaseConfig) Retention() time.Duration {
	return time.Duration(d.RetentionDays) * 24 * time.Hour
}

// ResultTTL returns how long cached results live
func (r *RedisConfig) ResultTTL() time.Duration {
	return time.Duration(r.ResultTTLSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
