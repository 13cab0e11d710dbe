package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Mongo archive configuration
	Mongo MongoConfig

	// Redis live-feed configuration
	Redis RedisConfig

	// Mailgun configuration
	Mailgun MailgunConfig

	// Notification system configuration
	Notification NotificationConfig

	// Logging configuration
	Logging LoggingConfig
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         string `envconfig:"port" default:"8087"`
	Host         string `envconfig:"host" default:"0.0.0.0"`
	ReadTimeout  int    `envconfig:"read_timeout" default:"15"`
	WriteTimeout int    `envconfig:"write_timeout" default:"15"`
	Environment  string `envconfig:"environment" default:"development"`
	JWTSecret    string `envconfig:"jwt_secret"`
	ServiceToken string `envconfig:"service_token"`
}

// DatabaseConfig contains the Postgres connection configuration
type DatabaseConfig struct {
	Host         string `envconfig:"postgres_host" default:"localhost"`
	Port         string `envconfig:"postgres_port" default:"5432"`
	Username     string `envconfig:"postgres_user"`
	Password     string `envconfig:"postgres_password"`
	DatabaseName string `envconfig:"postgres_db"`
	SSLMode      string `envconfig:"postgres_sslmode" default:"disable"`
	MaxOpenConns int    `envconfig:"postgres_max_open_conns" default:"20"`
	MaxIdleConns int    `envconfig:"postgres_max_idle_conns" default:"5"`
}

// MongoConfig contains the archive store configuration
type MongoConfig struct {
	URI      string `envconfig:"mongo_uri" default:"mongodb://localhost:27017"`
	Database string `envconfig:"mongo_db" default:"evently"`
	Enabled  bool   `envconfig:"mongo_enabled" default:"false"`
}

// RedisConfig contains the live change-feed configuration
type RedisConfig struct {
	Addr     string `envconfig:"redis_addr" default:"localhost:6379"`
	Password string `envconfig:"redis_password"`
	DB       int    `envconfig:"redis_db" default:"0"`
	Enabled  bool   `envconfig:"redis_enabled" default:"true"`
}

// MailgunConfig contains the transactional email provider configuration
type MailgunConfig struct {
	Domain    string `envconfig:"mg_domain"`
	APIKey    string `envconfig:"mg_api_key"`
	FromEmail string `envconfig:"mg_email_from" default:"notifications@evently.app"`
	FromName  string `envconfig:"mg_from_name" default:"Evently"`
	Enabled   bool   `envconfig:"mg_enabled" default:"false"`
}

// NotificationConfig contains notification system configuration
type NotificationConfig struct {
	Workers           int   `envconfig:"notif_workers" default:"4"`
	ChannelBufferSize int   `envconfig:"notif_channel_buffer" default:"1000"`
	SchedulerMinutes  int   `envconfig:"scheduler_interval_minutes" default:"15"`
	LookaheadHours    int   `envconfig:"scheduler_lookahead_hours" default:"168"`
	DefaultLeadTimes  []int `envconfig:"default_lead_times" default:"24,1"`
	RetentionDays     int   `envconfig:"retention_days" default:"30"`
	SweepHours        int   `envconfig:"sweep_interval_hours" default:"24"`
	SchedulerEnabled  bool  `envconfig:"scheduler_enabled" default:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `envconfig:"log_level" default:"info"`
	Format string `envconfig:"log_format" default:"json"` // json, console
}

// Load reads .env when present and populates the config from the EVENTLY_*
// environment.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			// .env is optional; system environment still applies.
			_ = err
		}
	}

	c := &Config{}
	if err := envconfig.Process("evently", c); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return c, nil
}

// DSN builds the Postgres connection string.
func (cfg *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.DatabaseName,
		cfg.Database.Port,
		cfg.Database.SSLMode,
	)
}

func (cfg *Config) SchedulerInterval() time.Duration {
	if cfg.Notification.SchedulerMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(cfg.Notification.SchedulerMinutes) * time.Minute
}

func (cfg *Config) Lookahead() time.Duration {
	if cfg.Notification.LookaheadHours <= 0 {
		return 168 * time.Hour
	}
	return time.Duration(cfg.Notification.LookaheadHours) * time.Hour
}

func (cfg *Config) SweepInterval() time.Duration {
	if cfg.Notification.SweepHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(cfg.Notification.SweepHours) * time.Hour
}

func (cfg *Config) Retention() time.Duration {
	days := cfg.Notification.RetentionDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}
