package config

import (
	"testing"
	"time"

	"github.com/bugreport/internal/retention"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123")
	t.Setenv("MAIL_DRIVER", "log")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DatabaseURL != "file:bugreport.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.UploadDir != "./uploads" {
		t.Errorf("UploadDir = %q", cfg.UploadDir)
	}
	if cfg.MaxUploadSizeMB != 10 {
		t.Errorf("MaxUploadSizeMB = %d", cfg.MaxUploadSizeMB)
	}
	if cfg.RateLimitPerMinute != 10 {
		t.Errorf("RateLimitPerMinute = %d", cfg.RateLimitPerMinute)
	}
	if cfg.Mail.Timeout != 30*time.Second {
		t.Errorf("Mail.Timeout = %v", cfg.Mail.Timeout)
	}
	if cfg.Report.NonceLifetime != 24*time.Hour {
		t.Errorf("NonceLifetime = %v", cfg.Report.NonceLifetime)
	}
	if cfg.Report.RetentionPolicy.Mode != retention.Keep {
		t.Errorf("RetentionPolicy = %v", cfg.Report.RetentionPolicy)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development by default")
	}
	if cfg.SubmitURL() != "http://localhost:8080/api/report" {
		t.Errorf("SubmitURL = %q", cfg.SubmitURL())
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("REPORT_RETENTION_POLICY", "30d")
	t.Setenv("CORS_TRUSTED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("MAIL_TIMEOUT", "5s")
	t.Setenv("SITE_URL", "https://example.com/")

	cfg, err := Load([]string{"-port", "9090", "-env", "production"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "9090" || !cfg.IsProduction() {
		t.Errorf("flags not applied: port=%q env=%q", cfg.Port, cfg.Env)
	}
	if cfg.Report.RetentionPolicy.MaxAge != 30*24*time.Hour {
		t.Errorf("RetentionPolicy = %v", cfg.Report.RetentionPolicy)
	}
	if got := cfg.Cors.TrustedOrigins; len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("TrustedOrigins = %v", got)
	}
	if cfg.Mail.Timeout != 5*time.Second {
		t.Errorf("Mail.Timeout = %v", cfg.Mail.Timeout)
	}
	if cfg.SubmitURL() != "https://example.com/api/report" {
		t.Errorf("SubmitURL = %q", cfg.SubmitURL())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name, key, value string
	}{
		{"upload size", "MAX_UPLOAD_SIZE_MB", "ten"},
		{"timeout", "MAIL_TIMEOUT", "soon"},
		{"retention", "REPORT_RETENTION_POLICY", "forever"},
		{"driver", "MAIL_DRIVER", "pigeon"},
		{"site url", "SITE_URL", "example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(nil); err == nil {
				t.Errorf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestValidateMailDrivers(t *testing.T) {
	base := func() *Config {
		c := &Config{
			DatabaseURL:        "file:test.db",
			SessionSecret:      "0123456789abcdef",
			SiteURL:            "https://example.com",
			UploadDir:          "/tmp",
			MaxUploadSizeMB:    10,
			RateLimitPerMinute: 10,
		}
		c.Mail.FromEmail = "noreply@example.com"
		return c
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"smtp ok", func(c *Config) {
			c.Mail.Driver = "smtp"
			c.Mail.SMTPHost = "smtp.example.com"
			c.Mail.SMTPSecurity = "ssl"
		}, false},
		{"smtp missing host", func(c *Config) { c.Mail.Driver = "smtp"; c.Mail.SMTPSecurity = "ssl" }, true},
		{"smtp bad security", func(c *Config) { c.Mail.Driver = "smtp"; c.Mail.SMTPHost = "h"; c.Mail.SMTPSecurity = "tls1" }, true},
		{"resend ok", func(c *Config) { c.Mail.Driver = "resend"; c.Mail.ResendAPIKey = "re_x" }, false},
		{"resend missing key", func(c *Config) { c.Mail.Driver = "resend" }, true},
		{"missing from", func(c *Config) { c.Mail.Driver = "resend"; c.Mail.ResendAPIKey = "re_x"; c.Mail.FromEmail = "" }, true},
		{"log needs nothing", func(c *Config) { c.Mail.Driver = "log"; c.Mail.FromEmail = "" }, false},
		{"short secret", func(c *Config) { c.Mail.Driver = "log"; c.SessionSecret = "short" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			if err := c.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
