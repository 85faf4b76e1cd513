package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Firebase  FirebaseConfig  `yaml:"firebase"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains gRPC server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// HTTPConfig contains the callable HTTP endpoint settings
type HTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

const (
	StorageFirestore = "firestore"
	StoragePostgres  = "postgres"
	StorageMemory    = "memory"
)

// StorageConfig selects the ledger backend
type StorageConfig struct {
	Type string `yaml:"type"` // "firestore", "postgres" or "memory"
}

type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

const (
	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
)

// AuthConfig selects how bearer tokens are verified
type AuthConfig struct {
	Mode      string `yaml:"mode"` // "firebase" or "jwt"
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// LedgerConfig contains wallet ledger behaviour settings
type LedgerConfig struct {
	MaxAttempts         int    `yaml:"max_attempts"`
	MissingWalletPolicy string `yaml:"missing_wallet_policy"` // "reject" or "zero_balance"
}

// RedisConfig enables the idempotency cache when Addr is set
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLMinutes int    `yaml:"ttl_minutes"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// KafkaConfig enables ledger event publication when Brokers is set
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// SendGridConfig enables reconciliation alert emails when APIKey is set
type SendGridConfig struct {
	APIKey     string   `yaml:"api_key"`
	FromEmail  string   `yaml:"from_email"`
	FromName   string   `yaml:"from_name"`
	AlertEmail []string `yaml:"alert_emails"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ReconcileWallets  string `yaml:"reconcile_wallets"`
	JobTimeoutMinutes int    `yaml:"job_timeout_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies environment overrides and
// validates the result.
func Parse(data []byte) (*Config, error) {
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
	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("HTTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.HTTP.Port)
	}

	// Storage
	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}
	if val := os.Getenv("FIREBASE_PROJECT_ID"); val != "" {
		c.Firebase.ProjectID = val
	}
	if val := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); val != "" {
		c.Firebase.CredentialsFile = val
	}

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

	// Auth
	if val := os.Getenv("AUTH_MODE"); val != "" {
		c.Auth.Mode = val
	}
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.Auth.JWTSecret = val
	}

	// Ledger
	if val := os.Getenv("LEDGER_MAX_ATTEMPTS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Ledger.MaxAttempts)
	}
	if val := os.Getenv("LEDGER_MISSING_WALLET_POLICY"); val != "" {
		c.Ledger.MissingWalletPolicy = val
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// Kafka
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		c.Kafka.Brokers = splitList(val)
	}
	if val := os.Getenv("KAFKA_TOPIC"); val != "" {
		c.Kafka.Topic = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}
	if val := os.Getenv("ALERT_EMAILS"); val != "" {
		c.SendGrid.AlertEmail = splitList(val)
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = c.Server.Port + 1
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}

	if c.Storage.Type == "" {
		c.Storage.Type = StorageFirestore
	}
	switch c.Storage.Type {
	case StorageFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase project id is required for firestore storage")
		}
	case StoragePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unsupported storage type: %q", c.Storage.Type)
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = AuthFirebase
	}
	switch c.Auth.Mode {
	case AuthFirebase:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase project id is required for firebase auth")
		}
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT secret is required")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters")
		}
	default:
		return fmt.Errorf("unsupported auth mode: %q", c.Auth.Mode)
	}

	if c.Ledger.MaxAttempts == 0 {
		c.Ledger.MaxAttempts = 5
	}
	if c.Ledger.MaxAttempts < 1 {
		return fmt.Errorf("ledger max attempts must be positive: %d", c.Ledger.MaxAttempts)
	}
	if c.Ledger.MissingWalletPolicy == "" {
		c.Ledger.MissingWalletPolicy = "reject"
	}
	if c.Ledger.MissingWalletPolicy != "reject" && c.Ledger.MissingWalletPolicy != "zero_balance" {
		return fmt.Errorf("unsupported missing wallet policy: %q", c.Ledger.MissingWalletPolicy)
	}

	if c.Redis.TTLMinutes == 0 {
		c.Redis.TTLMinutes = 24 * 60
	}

	if c.SendGrid.APIKey != "" {
		if c.SendGrid.FromEmail == "" {
			return fmt.Errorf("sendgrid from email is required")
		}
		if len(c.SendGrid.AlertEmail) == 0 {
			return fmt.Errorf("at least one alert email is required when sendgrid is configured")
		}
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "Harvest Wallet"
	}

	// Scheduler defaults
	if c.Scheduler.ReconcileWallets == "" {
		c.Scheduler.ReconcileWallets = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.JobTimeoutMinutes == 0 {
		c.Scheduler.JobTimeoutMinutes = 30
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

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the callable HTTP server address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.HTTP.Port)
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
