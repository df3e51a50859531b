package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	LGL      LGLConfig      `yaml:"lgl"`
	Sync     SyncConfig     `yaml:"sync"`
	Renewal  RenewalConfig  `yaml:"renewal"`
	Blocking BlockingConfig `yaml:"blocking"`
	SES      SESConfig      `yaml:"ses"`
	Queue    QueueConfig    `yaml:"queue"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// WebhookSecret, when set, must be sent as X-Webhook-Secret on order events.
	WebhookSecret string `yaml:"webhook_secret"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	URL string `yaml:"url"`
	// KeyPrefix namespaces every key this service writes.
	KeyPrefix string `yaml:"key_prefix"`
}

// StorageConfig selects the sync record backend and the audit archive.
type StorageConfig struct {
	Type          string `yaml:"type"` // "postgres" or "dynamodb"
	DynamoDBTable string `yaml:"dynamodb_table"`
	AuditBucket   string `yaml:"audit_bucket"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// LGLConfig holds the CRM API configuration
type LGLConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	// GiftTypeID and CampaignID are attached to every payment we create.
	GiftTypeID int `yaml:"gift_type_id"`
	CampaignID int `yaml:"campaign_id"`
}

// Timeout returns the configured timeout as a duration
func (c LGLConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SyncConfig controls order synchronization.
type SyncConfig struct {
	Enabled bool `yaml:"enabled"`
	// ArchiveResponses copies raw CRM responses to the audit bucket.
	ArchiveResponses bool `yaml:"archive_responses"`
}

// RenewalConfig controls the reminder scheduler.
type RenewalConfig struct {
	Enabled         bool   `yaml:"enabled"`
	GracePeriodDays int    `yaml:"grace_period_days"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds"`
	FromName        string `yaml:"from_name"`
	FromEmail       string `yaml:"from_email"`
	RenewURL        string `yaml:"renew_url"`
	// SubscriptionsEnabled says whether the store's subscription integration
	// is installed. When false every member is plugin-managed.
	SubscriptionsEnabled bool `yaml:"subscriptions_enabled"`
	// Templates overrides the built-in reminder copy, keyed by interval
	// ("30", "14", "7", "0", "-7", "-30").
	Templates map[string]TemplateConfig `yaml:"templates"`
}

// TemplateConfig is a liquid subject/body pair.
type TemplateConfig struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Interval returns the renewal job period.
func (c RenewalConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// LockTTL returns the per-member lock TTL.
func (c RenewalConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// BlockingConfig holds the static half of the email blocking settings. The
// mutable half (force flag, pause, whitelist) lives in Redis.
type BlockingConfig struct {
	AdminEmail string `yaml:"admin_email"`
	// Environment is an explicit override: production, staging, development, local, test.
	Environment string `yaml:"environment"`
	SiteURL     string `yaml:"site_url"`
	Hostname    string `yaml:"hostname"`
	// DevHostPatterns are extra substrings that mark a host as non-production.
	DevHostPatterns []string `yaml:"dev_host_patterns"`
	// ForceBlocking seeds the persisted override on first start.
	ForceBlocking bool     `yaml:"force_blocking"`
	Whitelist     []string `yaml:"whitelist"`
	LogCapacity   int      `yaml:"log_capacity"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Enabled   bool   `yaml:"enabled"`
}

// QueueConfig holds the SQS order event queue.
type QueueConfig struct {
	OrderQueueURL string `yaml:"order_queue_url"`
	Region        string `yaml:"region"`
	Enabled       bool   `yaml:"enabled"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether PII redaction is on (default true).
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 300
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "lgl"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "postgres"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-west-2"
	}
	if cfg.LGL.BaseURL == "" {
		cfg.LGL.BaseURL = "https://api.littlegreenlight.com/api/v1"
	}
	if cfg.LGL.TimeoutSeconds == 0 {
		cfg.LGL.TimeoutSeconds = 30
	}
	if cfg.LGL.MaxRetries == 0 {
		cfg.LGL.MaxRetries = 3
	}
	if cfg.Renewal.GracePeriodDays == 0 {
		cfg.Renewal.GracePeriodDays = 30
	}
	if cfg.Renewal.IntervalMinutes == 0 {
		cfg.Renewal.IntervalMinutes = 60
	}
	if cfg.Renewal.LockTTLSeconds == 0 {
		cfg.Renewal.LockTTLSeconds = 120
	}
	if cfg.Blocking.LogCapacity == 0 {
		cfg.Blocking.LogCapacity = 50
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.Queue.Region == "" {
		cfg.Queue.Region = cfg.Storage.AWSRegion
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks cross-field constraints. It is called once at the load
// boundary so the rest of the code can trust typed values.
func (cfg *Config) Validate() error {
	var errs []error
	switch cfg.Storage.Type {
	case "postgres":
	case "dynamodb":
		if cfg.Storage.DynamoDBTable == "" {
			errs = append(errs, errors.New("storage.dynamodb_table is required for dynamodb storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type %q is not supported", cfg.Storage.Type))
	}
	if cfg.Sync.ArchiveResponses && cfg.Storage.AuditBucket == "" {
		errs = append(errs, errors.New("storage.audit_bucket is required when sync.archive_responses is set"))
	}
	if cfg.Renewal.GracePeriodDays < 0 {
		errs = append(errs, errors.New("renewal.grace_period_days must not be negative"))
	}
	if cfg.Renewal.Enabled && cfg.Renewal.FromEmail == "" {
		errs = append(errs, errors.New("renewal.from_email is required when renewals are enabled"))
	}
	for key := range cfg.Renewal.Templates {
		if _, err := strconv.Atoi(key); err != nil {
			errs = append(errs, fmt.Errorf("renewal.templates key %q is not an interval", key))
		}
	}
	if cfg.Blocking.LogCapacity < 1 {
		errs = append(errs, errors.New("blocking.log_capacity must be positive"))
	}
	if cfg.Queue.Enabled && cfg.Queue.OrderQueueURL == "" {
		errs = append(errs, errors.New("queue.order_queue_url is required when the queue is enabled"))
	}
	return errors.Join(errs...)
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LGL_API_KEY"); v != "" {
		cfg.LGL.APIKey = v
	}
	if v := os.Getenv("LGL_BASE_URL"); v != "" {
		cfg.LGL.BaseURL = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("ORDER_QUEUE_URL"); v != "" {
		cfg.Queue.OrderQueueURL = v
		cfg.Queue.Enabled = true
	}
	if v := os.Getenv("LGL_ADMIN_EMAIL"); v != "" {
		cfg.Blocking.AdminEmail = v
	}
	if v := os.Getenv("LGL_FORCE_BLOCKING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Blocking.ForceBlocking = b
		}
	}
	if v := os.Getenv("SITE_URL"); v != "" {
		cfg.Blocking.SiteURL = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Blocking.Environment = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if cfg.Blocking.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			cfg.Blocking.Hostname = h
		}
	}

	return cfg, nil
}
