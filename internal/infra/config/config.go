package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken      string
	DatabaseURL        string
	AdminTelegramID    int64
	LogLevel           string
	Environment        string
	CronSpecOutreach   string
	Location           *time.Location
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	MailFrom           string
	MailFromName       string
	MetricsAddr        string
	OutreachWorkers    int
	CourseNameCacheTTL time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is not set")
	}

	cfg.MailFrom = os.Getenv("MAIL_FROM")
	if cfg.MailFrom == "" {
		return nil, fmt.Errorf("MAIL_FROM is not set")
	}
	cfg.MailFromName = os.Getenv("MAIL_FROM_NAME")

	cfg.SMTPPort = 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		cfg.SMTPPort, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecOutreach = os.Getenv("CRON_SPEC_OUTREACH")
	if cfg.CronSpecOutreach == "" {
		cfg.CronSpecOutreach = "0 19 * * 1-5" // Default: 7 PM on weekdays
	}
	if _, err := cron.ParseStandard(cfg.CronSpecOutreach); err != nil {
		return nil, fmt.Errorf("invalid CRON_SPEC_OUTREACH: %w", err)
	}

	cfg.Location = time.Local
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		cfg.Location, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
	}

	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9090"
	}

	cfg.OutreachWorkers = 8
	if v := os.Getenv("OUTREACH_WORKERS"); v != "" {
		cfg.OutreachWorkers, err = strconv.Atoi(v)
		if err != nil || cfg.OutreachWorkers < 1 {
			return nil, fmt.Errorf("invalid OUTREACH_WORKERS: %q", v)
		}
	}

	cfg.CourseNameCacheTTL = time.Hour
	if v := os.Getenv("COURSE_NAME_CACHE_TTL"); v != "" {
		cfg.CourseNameCacheTTL, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid COURSE_NAME_CACHE_TTL: %w", err)
		}
	}

	return cfg, nil
}
