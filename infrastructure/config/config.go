package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Record store
	StoreDriver      string        `yaml:"store_driver"`
	StoreTimeout     time.Duration `yaml:"store_timeout"`
	SQLitePath       string        `yaml:"sqlite_path"`
	AWSRegion        string        `yaml:"aws_region"`
	DynamoDBEndpoint string        `yaml:"dynamodb_endpoint"`
	TodosTable       string        `yaml:"todos_table"`
	TagsTable        string        `yaml:"tags_table"`
	CreateTables     bool          `yaml:"create_tables"`
	SeedSampleData   bool          `yaml:"seed_sample_data"`

	// Circuit breaker around the store
	BreakerMinRequests  uint32        `yaml:"breaker_min_requests"`
	BreakerFailureRatio float64       `yaml:"breaker_failure_ratio"`
	BreakerInterval     time.Duration `yaml:"breaker_interval"`
	BreakerOpenTimeout  time.Duration `yaml:"breaker_open_timeout"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Feature flags
	EnableMetrics      bool     `yaml:"enable_metrics"`
	EnableTracing      bool     `yaml:"enable_tracing"`
	OTLPEndpoint       string   `yaml:"otlp_endpoint"`
	EnableCORS         bool     `yaml:"enable_cors"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// ConfigFile is the YAML file the values were read from, if any
	ConfigFile string `yaml:"-"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		ServerAddress:       "127.0.0.1:5000",
		Environment:         "development",
		StoreDriver:         DriverMemory,
		StoreTimeout:        5 * time.Second,
		SQLitePath:          "todos.db",
		AWSRegion:           "us-west-2",
		TodosTable:          "todos",
		TagsTable:           "tags",
		BreakerMinRequests:  5,
		BreakerFailureRatio: 0.8,
		BreakerInterval:     30 * time.Second,
		BreakerOpenTimeout:  30 * time.Second,
		LogLevel:            "info",
		EnableCORS:          true,
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by CONFIG_FILE (if any), then environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadEnvironmentVariables()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile overlays the YAML document at path onto c
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.ConfigFile = path
	return nil
}

func (c *Config) loadEnvironmentVariables() {
	setString(&c.ServerAddress, "SERVER_ADDRESS")
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.StoreDriver, "STORE_DRIVER")
	setDuration(&c.StoreTimeout, "STORE_TIMEOUT")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.AWSRegion, "AWS_REGION")
	setString(&c.DynamoDBEndpoint, "DYNAMODB_ENDPOINT")
	setString(&c.TodosTable, "TODOS_TABLE")
	setString(&c.TagsTable, "TAGS_TABLE")
	setBool(&c.CreateTables, "DYNAMODB_CREATE_TABLES")
	setBool(&c.SeedSampleData, "SEED_SAMPLE_DATA")

	if value := os.Getenv("BREAKER_MIN_REQUESTS"); value != "" {
		if n, err := strconv.ParseUint(value, 10, 32); err == nil {
			c.BreakerMinRequests = uint32(n)
		}
	}
	if value := os.Getenv("BREAKER_FAILURE_RATIO"); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			c.BreakerFailureRatio = f
		}
	}
	setDuration(&c.BreakerInterval, "BREAKER_INTERVAL")
	setDuration(&c.BreakerOpenTimeout, "BREAKER_OPEN_TIMEOUT")

	setString(&c.LogLevel, "LOG_LEVEL")
	setBool(&c.EnableMetrics, "ENABLE_METRICS")
	setBool(&c.EnableTracing, "ENABLE_TRACING")
	setString(&c.OTLPEndpoint, "OTLP_ENDPOINT")
	setBool(&c.EnableCORS, "ENABLE_CORS")

	if value := os.Getenv("CORS_ALLOWED_ORIGINS"); value != "" {
		var origins []string
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		c.CORSAllowedOrigins = origins
	}
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("SERVER_ADDRESS must not be empty")
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case DriverDynamoDB:
		if c.TodosTable == "" || c.TagsTable == "" {
			return fmt.Errorf("TODOS_TABLE and TAGS_TABLE are required for the dynamodb store")
		}
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want memory, sqlite or dynamodb)", c.StoreDriver)
	}

	if c.StoreTimeout < 0 {
		return fmt.Errorf("STORE_TIMEOUT must not be negative")
	}
	if c.BreakerInterval < 0 {
		return fmt.Errorf("BREAKER_INTERVAL must not be negative")
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.BreakerFailureRatio)
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value == "true" || value == "1" || value == "yes"
	}
}

func setDuration(dst *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			*dst = d
		}
	}
}
