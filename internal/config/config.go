package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server     ServerConfig
	App        AppConfig
	Store      StoreConfig
	Auth       AuthConfig
	Cache      CacheConfig
	Kafka      KafkaConfig
	Inventory  InventoryConfig
	Billing    BillingConfig
	Storefront StorefrontConfig
	Messaging  MessagingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"3001"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	MaxUploadBytes  int64         `envconfig:"SERVER_MAX_UPLOAD_BYTES" default:"10485760"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"kitstock-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"mongodb"` // mongodb, postgres, mysql or sqlite

	// MongoDB settings
	MongoURL      string `envconfig:"MONGO_URL" default:""`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"kitstock"`

	// SQLite settings
	SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/kitstock.db"`

	// PostgreSQL / MySQL settings
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"0"`
	Name     string `envconfig:"DB_NAME" default:"kitstock"`
	User     string `envconfig:"DB_USER" default:""`
	Password string `envconfig:"DB_PASS" default:""`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	ConnectTimeout time.Duration `envconfig:"STORE_CONNECT_TIMEOUT" default:"10s"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"1h"`
	Required  bool          `envconfig:"AUTH_REQUIRED" default:"false"`
}

// CacheConfig holds cache settings. The cache backs sell idempotency keys.
type CacheConfig struct {
	Type           string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// KafkaConfig holds event publishing settings. Publishing is disabled when
// no brokers are set.
type KafkaConfig struct {
	Brokers      []string      `envconfig:"KAFKA_BROKERS" default:""`
	Topic        string        `envconfig:"KAFKA_TOPIC" default:"kitstock.events"`
	WriteTimeout time.Duration `envconfig:"KAFKA_WRITE_TIMEOUT" default:"5s"`
}

// InventoryConfig holds allocator settings.
type InventoryConfig struct {
	PairingFactor int `envconfig:"KIT_PAIRING_FACTOR" default:"1"`
}

// BillingConfig points at the invoicing platform.
type BillingConfig struct {
	BaseURL string        `envconfig:"BILLING_API_URL" default:""`
	APIKey  string        `envconfig:"BILLING_API_KEY" default:""`
	Timeout time.Duration `envconfig:"BILLING_TIMEOUT" default:"10s"`
}

// StorefrontConfig points at the storefront platform.
type StorefrontConfig struct {
	BaseURL     string        `envconfig:"STOREFRONT_API_URL" default:""`
	AccessToken string        `envconfig:"STOREFRONT_ACCESS_TOKEN" default:""`
	Timeout     time.Duration `envconfig:"STOREFRONT_TIMEOUT" default:"10s"`
}

// MessagingConfig points at the customer messaging platform.
type MessagingConfig struct {
	BaseURL    string        `envconfig:"MESSAGING_API_URL" default:""`
	APIKey     string        `envconfig:"MESSAGING_API_KEY" default:""`
	ConfirmKey string        `envconfig:"MESSAGING_CONFIRM_CAMPAIGN" default:"cod_confirmed"`
	CancelKey  string        `envconfig:"MESSAGING_CANCEL_CAMPAIGN" default:"cod_cancelled"`
	Timeout    time.Duration `envconfig:"MESSAGING_TIMEOUT" default:"10s"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	port := s.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, port, s.Name, s.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	port := s.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true&clientFoundRows=true",
		s.User, s.Password, s.Host, port, s.Name)
}

// Kind returns the normalised backend name.
func (s *StoreConfig) Kind() string {
	switch strings.ToLower(s.Type) {
	case "mongo", "mongodb":
		return "mongodb"
	case "postgres", "postgresql":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	}
	return strings.ToLower(s.Type)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// Enabled reports whether at least one broker is configured.
func (k *KafkaConfig) Enabled() bool {
	for _, b := range k.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	switch c.Store.Kind() {
	case "mongodb":
		if c.Store.MongoURL == "" {
			return errors.New("MONGO_URL is required when STORE_TYPE=mongodb")
		}
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported STORE_TYPE %q", c.Store.Type)
	}
	if c.Inventory.PairingFactor < 1 {
		return fmt.Errorf("KIT_PAIRING_FACTOR must be at least 1, got %d", c.Inventory.PairingFactor)
	}
	switch c.Cache.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_TYPE %q", c.Cache.Type)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
