// Package config loads the placement service configuration from a YAML file
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PathEnv overrides the location of the YAML file.
const PathEnv = "PLACEMENT_CONFIG"

// DefaultPath is the YAML file used when PathEnv is unset.
var DefaultPath = filepath.Join("internal", "placement", "config", "config.yaml")

// Config struct for YAML configuration
type Config struct {
	GRPCPort int `yaml:"GRPC_PORT"`
	HTTPPort int `yaml:"HTTP_PORT"`

	DBDriver   string `yaml:"DB_DRIVER"`
	DBHost     string `yaml:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`
	DBPath     string `yaml:"DB_PATH"`

	KafkaBrokers      []string `yaml:"KAFKA_BROKERS"`
	AuditTopic        string   `yaml:"AUDIT_TOPIC"`
	NotificationTopic string   `yaml:"NOTIFICATION_TOPIC"`
	ConsumerGroup     string   `yaml:"CONSUMER_GROUP"`

	RedisURL      string        `yaml:"REDIS_URL"`
	StatsCacheTTL time.Duration `yaml:"STATS_CACHE_TTL"`

	JWTSecret string        `yaml:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"TOKEN_TTL"`

	AdminName  string `yaml:"ADMIN_NAME"`
	AdminEmail string `yaml:"ADMIN_EMAIL"`

	// TracingEnabled exports operation spans to stdout.
	TracingEnabled bool `yaml:"TRACING_ENABLED"`
}

// Load reads the YAML file at PathEnv (or DefaultPath), loads a .env file
// when present and applies environment overrides.
func Load() (*Config, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	path := os.Getenv(PathEnv)
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile reads the YAML file at path and applies environment overrides.
func LoadFile(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaults()
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		GRPCPort:          50051,
		HTTPPort:          8080,
		DBDriver:          "postgres",
		DBSSLMode:         "disable",
		AuditTopic:        "placement.audit",
		NotificationTopic: "placement.notifications",
		ConsumerGroup:     "placement-activitylog",
		StatsCacheTTL:     30 * time.Second,
		TokenTTL:          24 * time.Hour,
	}
}

// applyEnv overrides secrets and endpoints from the environment.
func (c *Config) applyEnv() error {
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBName, "DB_NAME")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.AdminEmail, "ADMIN_EMAIL")

	if v, ok := os.LookupEnv("DB_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		c.DBPort = port
	}
	if v, ok := os.LookupEnv("TRACING_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRACING_ENABLED %q: %w", v, err)
		}
		c.TracingEnabled = enabled
	}
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}
	return nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
