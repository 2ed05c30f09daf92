package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBDSN      string

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// JWT
	JWTSecret      string
	JWTExpireHours int

	// API
	APIPort       int
	ClientURL     string
	StaticDir     string
	RateLimit     int
	LogLevel      string
	EncryptionKey string

	// Public site links
	DocsURL string
	BlogURL string

	Payments PaymentsConfig
	Broker   BrokerConfig
	SMTP     SMTPConfig
	Archive  ArchiveConfig
}

// PaymentsConfig holds the LemonSqueezy checkout settings and the processor
// variant id of every plan.
type PaymentsConfig struct {
	APIKey        string
	APIBaseURL    string
	StoreID       string
	WebhookSecret string
	HobbyPlanID   string
	StartupPlanID string
	ScalePlanID   string
}

// BrokerConfig points at the external soketi-compatible broker.
type BrokerConfig struct {
	Host   string
	Port   int
	Scheme string
}

func (b BrokerConfig) Enabled() bool {
	return b.Host != ""
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	NotifyTo string
}

// ArchiveConfig controls metric snapshot retention. FTP fields are optional;
// without them old snapshots are pruned without an archive copy.
type ArchiveConfig struct {
	RetentionDays int
	Interval      time.Duration
	FTPHost       string
	FTPPort       int
	FTPUsername   string
	FTPPassword   string
	FTPPath       string
}

func (a ArchiveConfig) FTPEnabled() bool {
	return a.FTPHost != ""
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Errorf("read random bytes: %w", err))
	}
	return hex.EncodeToString(bytes)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "jetsocket")
	v.SetDefault("db_name", "jetsocket")
	v.SetDefault("redis_host", "")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("jwt_expire_hours", 168)
	v.SetDefault("api_port", 8080)
	v.SetDefault("client_url", "http://localhost:3000")
	v.SetDefault("rate_limit", 100)
	v.SetDefault("log_level", "info")
	v.SetDefault("payments_api_base_url", "https://api.lemonsqueezy.com")
	v.SetDefault("broker_port", 6001)
	v.SetDefault("broker_scheme", "http")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("metrics_retention_days", 30)
	v.SetDefault("metrics_retention_interval", "1h")
	v.SetDefault("archive_ftp_port", 21)
	v.SetDefault("archive_ftp_path", "/jetsocket/metrics")
}

// Load reads configuration from the environment and, when configFile is not
// empty, from that YAML file. Environment variables win over the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		DBDriver:   strings.ToLower(v.GetString("db_driver")),
		DBHost:     v.GetString("db_host"),
		DBPort:     v.GetInt("db_port"),
		DBUser:     v.GetString("db_user"),
		DBPassword: v.GetString("db_password"),
		DBName:     v.GetString("db_name"),
		DBDSN:      v.GetString("db_dsn"),

		RedisHost:     v.GetString("redis_host"),
		RedisPort:     v.GetInt("redis_port"),
		RedisPassword: v.GetString("redis_password"),

		JWTSecret:      v.GetString("jwt_secret"),
		JWTExpireHours: v.GetInt("jwt_expire_hours"),

		APIPort:       v.GetInt("api_port"),
		ClientURL:     strings.TrimRight(v.GetString("client_url"), "/"),
		StaticDir:     v.GetString("static_dir"),
		RateLimit:     v.GetInt("rate_limit"),
		LogLevel:      v.GetString("log_level"),
		EncryptionKey: v.GetString("encryption_key"),

		DocsURL: v.GetString("docs_url"),
		BlogURL: v.GetString("blog_url"),

		Payments: PaymentsConfig{
			APIKey:        v.GetString("payments_api_key"),
			APIBaseURL:    strings.TrimRight(v.GetString("payments_api_base_url"), "/"),
			StoreID:       v.GetString("payments_store_id"),
			WebhookSecret: v.GetString("payments_webhook_secret"),
			HobbyPlanID:   v.GetString("payments_hobby_subscription_plan_id"),
			StartupPlanID: v.GetString("payments_startup_subscription_plan_id"),
			ScalePlanID:   v.GetString("payments_scale_subscription_plan_id"),
		},
		Broker: BrokerConfig{
			Host:   v.GetString("broker_host"),
			Port:   v.GetInt("broker_port"),
			Scheme: v.GetString("broker_scheme"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp_host"),
			Port:     v.GetInt("smtp_port"),
			Username: v.GetString("smtp_username"),
			Password: v.GetString("smtp_password"),
			From:     v.GetString("smtp_from"),
			NotifyTo: v.GetString("contact_notify_email"),
		},
		Archive: ArchiveConfig{
			RetentionDays: v.GetInt("metrics_retention_days"),
			Interval:      v.GetDuration("metrics_retention_interval"),
			FTPHost:       v.GetString("archive_ftp_host"),
			FTPPort:       v.GetInt("archive_ftp_port"),
			FTPUsername:   v.GetString("archive_ftp_username"),
			FTPPassword:   v.GetString("archive_ftp_password"),
			FTPPath:       v.GetString("archive_ftp_path"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.warnInsecureDefaults()

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres, mysql or sqlite)", c.DBDriver)
	}
	if c.DBDriver == "sqlite" && c.DBDSN == "" {
		c.DBDSN = "jetsocket.db"
	}
	if c.Broker.Scheme != "http" && c.Broker.Scheme != "https" {
		return fmt.Errorf("unsupported BROKER_SCHEME %q", c.Broker.Scheme)
	}
	if c.Archive.Interval <= 0 {
		c.Archive.Interval = time.Hour
	}
	return nil
}

func (c *Config) warnInsecureDefaults() {
	// An empty JWT secret is resolved later against the persisted preference.
	if c.DBDriver != "sqlite" && c.DBPassword == "" && c.DBDSN == "" {
		slog.Warn("DB_PASSWORD not set - this is insecure for production!")
	}
	if c.RedisHost != "" && c.RedisPassword == "" {
		slog.Warn("REDIS_PASSWORD not set - Redis is not secured!")
	}
	if c.EncryptionKey == "" {
		c.EncryptionKey = generateSecureSecret(32)
		slog.Warn("ENCRYPTION_KEY not set - generated a random key. Existing 2FA secrets will not decrypt after restart.")
	}
	if c.Payments.APIKey != "" && c.Payments.WebhookSecret == "" {
		slog.Warn("PAYMENTS_WEBHOOK_SECRET not set - payment webhooks will be rejected")
	}
}

// GenerateSecret returns a random hex string of 2*length characters.
func GenerateSecret(length int) string {
	return generateSecureSecret(length)
}
