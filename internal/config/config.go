package config

import (
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bugreport/internal/retention"
)

type Config struct {
	// Server
	Port    string
	Env     string // development, production
	SiteURL string

	// Database
	DatabaseURL string

	// Security
	SessionSecret      string
	SecureCookies      bool
	RateLimitPerMinute int
	Cors               struct {
		TrustedOrigins []string
	}

	// Uploads
	UploadDir       string
	MaxUploadSizeMB int

	Report struct {
		LeadIn          string
		RetentionPolicy retention.Policy
		NonceLifetime   time.Duration
	}

	Mail struct {
		Driver       string // smtp, resend, log
		Timeout      time.Duration
		SMTPHost     string
		SMTPPort     int
		SMTPUser     string
		SMTPPass     string
		SMTPSecurity string
		FromEmail    string
		FromName     string
		ResendAPIKey string
	}
}

// Load reads configuration from the environment, an optional .env file and
// command line flags. Flags win over the environment.
func Load(args []string) (*Config, error) {
	// Load .env file if it exists (don't error if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	fs := flag.NewFlagSet("bugreport", flag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "Server port")
	fs.StringVar(&cfg.Env, "env", getEnv("ENV", "development"), "Environment (development, production)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", "file:bugreport.db"), "SQLite path or PostgreSQL connection string")
	fs.StringVar(&cfg.UploadDir, "upload-dir", getEnv("UPLOAD_DIR", "./uploads"), "Directory screenshots are written to")

	cfg.SessionSecret = mustEnv("SESSION_SECRET")
	cfg.SiteURL = getEnv("SITE_URL", "http://localhost:8080")
	cfg.SecureCookies = getEnv("SECURE_COOKIES", "false") == "true"
	cfg.Report.LeadIn = getEnv("REPORT_LEAD_IN", "")

	cfg.Mail.Driver = getEnv("MAIL_DRIVER", "smtp")
	cfg.Mail.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.Mail.SMTPUser = getEnv("SMTP_USER", "")
	cfg.Mail.SMTPPass = getEnv("SMTP_PASS", "")
	cfg.Mail.SMTPSecurity = getEnv("SMTP_SECURITY", "starttls")
	cfg.Mail.FromEmail = getEnv("SMTP_FROM_EMAIL", "")
	cfg.Mail.FromName = getEnv("SMTP_FROM_NAME", "Bug Reports")
	cfg.Mail.ResendAPIKey = getEnv("RESEND_API_KEY", "")

	var err error
	if cfg.MaxUploadSizeMB, err = getEnvInt("MAX_UPLOAD_SIZE_MB", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", 10); err != nil {
		return nil, err
	}
	if cfg.Mail.SMTPPort, err = getEnvInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.Mail.Timeout, err = getEnvDuration("MAIL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Report.NonceLifetime, err = getEnvDuration("NONCE_LIFETIME", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Report.RetentionPolicy, err = retention.ParsePolicy(getEnv("REPORT_RETENTION_POLICY", "keep")); err != nil {
		return nil, err
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Parse CORS trusted origins from comma-separated env var
	if origins := getEnv("CORS_TRUSTED_ORIGINS", ""); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.Cors.TrustedOrigins = append(cfg.Cors.TrustedOrigins, trimmed)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 characters")
	}

	if u, err := url.Parse(c.SiteURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SITE_URL must be an absolute URL")
	}

	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}

	switch c.Mail.Driver {
	case "smtp":
		if c.Mail.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when MAIL_DRIVER=smtp")
		}
		switch c.Mail.SMTPSecurity {
		case "ssl", "starttls", "none":
		default:
			return fmt.Errorf("SMTP_SECURITY must be ssl, starttls or none")
		}
	case "resend":
		if c.Mail.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required when MAIL_DRIVER=resend")
		}
	case "log":
	default:
		return fmt.Errorf("MAIL_DRIVER must be smtp, resend or log")
	}

	if c.Mail.Driver != "log" && c.Mail.FromEmail == "" {
		return fmt.Errorf("SMTP_FROM_EMAIL is required")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SubmitURL is the absolute URL the widget posts reports to.
func (c *Config) SubmitURL() string {
	return strings.TrimRight(c.SiteURL, "/") + "/api/report"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func mustEnv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("missing required environment variable", "key", key)
	os.Exit(1)
	return ""
}
