package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Import   ImportConfig
	CRMSync  CRMSyncConfig
	Services ServicesConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings.
// Driver "sqlite" keeps everything in a local file (or memory) for development.
type DatabaseConfig struct {
	Driver   string `env:"DB_DRIVER" envDefault:"pgx"`
	Host     string `env:"DB_HOST"`
	Username string `env:"DB_USERNAME"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	Path     string `env:"DB_PATH" envDefault:"targetlist.db"`
}

// RedisConfig holds Redis connection settings used for import progress and background jobs
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// KafkaConfig holds Kafka/event streaming configuration
type KafkaConfig struct {
	Brokers string `env:"KAFKA_BROKERS"`
	Topic   string `env:"KAFKA_TOPIC" envDefault:"target-list-events"`
	// ConsumerGroup prefixes the per-instance group the API uses to hear about imports
	ConsumerGroup string `env:"KAFKA_CONSUMER_GROUP" envDefault:"targetlist-api"`
}

// ImportConfig holds import pipeline settings
type ImportConfig struct {
	MaxFileBytes int64         `env:"IMPORT_MAX_FILE_BYTES" envDefault:"10485760"`
	RateLimitRPM int           `env:"IMPORT_RATE_LIMIT_RPM" envDefault:"30"`
	ProgressTTL  time.Duration `env:"IMPORT_PROGRESS_TTL" envDefault:"24h"`
	S3Bucket     string        `env:"IMPORT_S3_BUCKET"`
	S3Region     string        `env:"IMPORT_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint   string        `env:"IMPORT_S3_ENDPOINT"`
	S3PathStyle  bool          `env:"IMPORT_S3_PATH_STYLE" envDefault:"false"`
}

// CRMSyncConfig describes the dealership CRM the worker pulls on a schedule.
// An empty Schedule disables periodic syncs.
type CRMSyncConfig struct {
	Schedule     string   `env:"CRM_SYNC_SCHEDULE"`
	Provider     string   `env:"CRM_PROVIDER"`
	BaseURL      string   `env:"CRM_BASE_URL"`
	TokenURL     string   `env:"CRM_TOKEN_URL"`
	ClientID     string   `env:"CRM_CLIENT_ID"`
	ClientSecret string   `env:"CRM_CLIENT_SECRET"`
	Scopes       []string `env:"CRM_SCOPES" envSeparator:","`
	DealerID     string   `env:"CRM_DEALER_ID"`
}

// ServicesConfig holds external service credentials
type ServicesConfig struct {
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	WebAppURI        string `env:"WEBAPP_URI" envDefault:"http://localhost:3000"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `env:"SERVER_PORT" envDefault:"8080"`
	// ContactRefreshInterval controls how often the API reloads contacts written by the worker
	ContactRefreshInterval time.Duration `env:"CONTACT_REFRESH_INTERVAL" envDefault:"5m"`
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "pgx":
		for key, value := range map[string]string{
			"DB_HOST":     c.Database.Host,
			"DB_USERNAME": c.Database.Username,
			"DB_PASSWORD": c.Database.Password,
			"DB_NAME":     c.Database.Name,
		} {
			if value == "" {
				return fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
			}
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is not set: %w", ErrEmptyEnvironmentVariable)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.CRMSync.Schedule != "" && (c.CRMSync.Provider == "" || c.CRMSync.BaseURL == "") {
		return fmt.Errorf("CRM_PROVIDER and CRM_BASE_URL are required with CRM_SYNC_SCHEDULE: %w", ErrEmptyEnvironmentVariable)
	}

	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}
	return nil
}

// ConnectionString returns the data source name for the configured driver
func (c *DatabaseConfig) ConnectionString() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.Username, c.Password, c.Host, c.Name)
}

// Addr returns the host:port of the Redis server
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BrokerList splits the comma separated broker list; empty means Kafka is disabled
func (c *KafkaConfig) BrokerList() []string {
	if strings.TrimSpace(c.Brokers) == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// TwilioEnabled reports whether phone verification through Twilio Lookup is configured
func (c *ServicesConfig) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != ""
}
