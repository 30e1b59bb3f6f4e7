package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of chat service settings, built by layering a YAML
// file (if present) over environment-variable defaults.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Security   SecurityConfig   `yaml:"security"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Services   ServicesConfig   `yaml:"services"`
}

// ServiceEndpoint describes an infrastructure dependency's health-check
// shape. cmd/chatserver reads only Services.Redis.Enabled, to decide whether
// to open the session cache; nothing waits on these endpoints at startup.
type ServiceEndpoint struct {
	Host       string        `yaml:"host"`
	Port       string        `yaml:"port"`
	Enabled    bool          `yaml:"enabled"`
	Required   bool          `yaml:"required"`
	HealthType string        `yaml:"health_type"` // "tcp", "pgx", "redis"
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
}

// ServicesConfig holds the health-check shape for every infrastructure
// dependency the chat service needs at startup.
type ServicesConfig struct {
	PostgreSQL ServiceEndpoint `yaml:"postgresql"`
	Redis      ServiceEndpoint `yaml:"redis"`
}

// ServerConfig configures the HTTP/websocket listener.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port"`
	Mode           string        `yaml:"mode"` // "debug" or "release", passed straight to gin
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	EnableCORS     bool          `yaml:"enable_cors"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RequestLogging bool          `yaml:"request_logging"`
}

// DatabaseConfig configures the Postgres connection chat history and the
// notification bridge both use.
type DatabaseConfig struct {
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Name           string        `yaml:"name"`
	SSLMode        string        `yaml:"ssl_mode"`
	MaxConnections int           `yaml:"max_connections"`
	ConnTimeout    time.Duration `yaml:"conn_timeout"`
}

// DSN renders the Postgres connection string both pgxpool and lib/pq accept.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RedisConfig configures the session cache store.
type RedisConfig struct {
	Host     string        `yaml:"host"`
	Port     string        `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Addr renders the host:port go-redis expects.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// SecurityConfig configures authentication and session lifetime.
type SecurityConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"`
	TokenExpiry      time.Duration `yaml:"token_expiry"`
	SessionTimeout   time.Duration `yaml:"session_timeout"`
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
	LockoutDuration  time.Duration `yaml:"lockout_duration"`
}

// MonitoringConfig configures logging, metrics, and tracing.
type MonitoringConfig struct {
	LogLevel          string `yaml:"log_level"`
	MetricsEnabled    bool   `yaml:"metrics_enabled"`
	MetricsPath       string `yaml:"metrics_path"`
	MetricsNamespace  string `yaml:"metrics_namespace"`
	TracingEnabled    bool   `yaml:"tracing_enabled"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate"`
}

// Load builds a Config from environment variables, then overlays path (if
// non-empty and the file exists) on top. Environment variables set the
// defaults so the service is runnable with zero config files, the same
// precedence order the teacher's env-first Load used.
func Load(path string) (*Config, error) {
	cfg := fromEnv()

	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("PORT", "8080"),
			Mode:           getEnv("GIN_MODE", "release"),
			ReadTimeout:    getDurationEnv("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 30*time.Second),
			EnableCORS:     getBoolEnv("CORS_ENABLED", true),
			CORSOrigins:    getEnvSlice("CORS_ORIGINS", []string{"*"}),
			RequestLogging: getBoolEnv("REQUEST_LOGGING", true),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "chatcore"),
			Password:       getEnv("DB_PASSWORD", "secret"),
			Name:           getEnv("DB_NAME", "chatcore_db"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getIntEnv("DB_MAX_CONNECTIONS", 20),
			ConnTimeout:    getDurationEnv("DB_CONN_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			PoolSize: getIntEnv("REDIS_POOL_SIZE", 10),
			Timeout:  getDurationEnv("REDIS_TIMEOUT", 5*time.Second),
		},
		Security: SecurityConfig{
			JWTSecret:        getEnv("JWT_SECRET", ""),
			TokenExpiry:      getDurationEnv("TOKEN_EXPIRY", 24*time.Hour),
			SessionTimeout:   getDurationEnv("SESSION_TIMEOUT", 24*time.Hour),
			MaxLoginAttempts: getIntEnv("MAX_LOGIN_ATTEMPTS", 5),
			LockoutDuration:  getDurationEnv("LOCKOUT_DURATION", 15*time.Minute),
		},
		Monitoring: MonitoringConfig{
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			MetricsEnabled:    getBoolEnv("METRICS_ENABLED", true),
			MetricsPath:       getEnv("METRICS_PATH", "/metrics"),
			MetricsNamespace:  getEnv("METRICS_NAMESPACE", "chatcore"),
			TracingEnabled:    getBoolEnv("TRACING_ENABLED", false),
			TracingSampleRate: getFloatEnv("TRACING_SAMPLE_RATE", 0.1),
		},
		Services: ServicesConfig{
			PostgreSQL: ServiceEndpoint{
				Host: getEnv("DB_HOST", "localhost"), Port: getEnv("DB_PORT", "5432"),
				Enabled: true, Required: true, HealthType: "pgx",
				Timeout: 10 * time.Second, RetryCount: 6,
			},
			Redis: ServiceEndpoint{
				Host: getEnv("REDIS_HOST", "localhost"), Port: getEnv("REDIS_PORT", "6379"),
				Enabled: true, Required: true, HealthType: "redis",
				Timeout: 5 * time.Second, RetryCount: 6,
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
