package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Set only required env var
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("Store.Driver = %q, want postgres", cfg.Store.Driver)
	}
	if cfg.Upload.MaxFileSize != 5*1024*1024 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 5*1024*1024)
	}
	if cfg.Upload.MaxConcurrent != 5 {
		t.Errorf("Upload.MaxConcurrent = %d, want %d", cfg.Upload.MaxConcurrent, 5)
	}
	if cfg.UploadDeadline() != 5*time.Minute {
		t.Errorf("UploadDeadline() = %v, want 5m", cfg.UploadDeadline())
	}
	if cfg.Server.WriteTimeout <= cfg.UploadDeadline() {
		t.Errorf("Server.WriteTimeout = %v, want more than the upload deadline", cfg.Server.WriteTimeout)
	}
	if cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 100)
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Errorf("Auth.BcryptCost = %d, want 10", cfg.Auth.BcryptCost)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should default to false")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("UPLOAD_MAX_CONCURRENT", "10")
	t.Setenv("UPLOAD_MAX_FILE_SIZE", "1048576")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EXPORT_TIMEZONE", "Asia/Ho_Chi_Minh")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.168.0.0/16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Upload.MaxConcurrent != 10 {
		t.Errorf("Upload.MaxConcurrent = %d, want %d", cfg.Upload.MaxConcurrent, 10)
	}
	if cfg.Upload.MaxFileSize != 1048576 {
		t.Errorf("Upload.MaxFileSize = %d, want 1048576", cfg.Upload.MaxFileSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if len(cfg.Security.TrustedProxies) != 2 {
		t.Errorf("TrustedProxies = %v, want 2 entries", cfg.Security.TrustedProxies)
	}

	loc, err := cfg.Export.Location()
	if err != nil {
		t.Fatalf("Export.Location() error = %v", err)
	}
	if loc.String() != "Asia/Ho_Chi_Minh" {
		t.Errorf("Export.Location() = %v", loc)
	}
}

func TestLoad_DBURLFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "postgres://fallback/db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.URL != "postgres://fallback/db" {
		t.Errorf("Database.URL = %q, want DB_URL value", cfg.Database.URL)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail without DATABASE_URL")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL is required") {
		t.Errorf("error = %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
		},
		Store:    StoreConfig{Driver: "memory"},
		Database: DatabaseConfig{MaxConns: 20, MinConns: 4},
		Upload: UploadConfig{
			MaxFileSize:   5 * 1024 * 1024,
			MaxConcurrent: 5,
			MaxWaitTime:   30 * time.Second,
			Timeout:       5 * time.Minute,
		},
		Rate:    RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 10},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Export:  ExportConfig{Timezone: "UTC"},
		Auth:    AuthConfig{BcryptCost: 10},
		Cache:   CacheConfig{RedisAddr: "127.0.0.1:6379"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "postgres without url",
			modify:  func(c *Config) { c.Store.Driver = "postgres" },
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "unknown driver",
			modify:  func(c *Config) { c.Store.Driver = "sqlite" },
			wantErr: "STORE_DRIVER",
		},
		{
			name: "max conns less than min",
			modify: func(c *Config) {
				c.Store.Driver = "postgres"
				c.Database.URL = "postgres://x"
				c.Database.MaxConns = 2
			},
			wantErr: "DB_MAX_CONNS (2) must be >= DB_MIN_CONNS (4)",
		},
		{
			name:    "invalid port",
			modify:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "SERVER_PORT",
		},
		{
			name:    "zero file size",
			modify:  func(c *Config) { c.Upload.MaxFileSize = 0 },
			wantErr: "UPLOAD_MAX_FILE_SIZE must be positive",
		},
		{
			name:    "rate limit enabled with zero limit",
			modify:  func(c *Config) { c.Rate.UploadLimit = 0 },
			wantErr: "RATE_LIMIT_UPLOAD",
		},
		{
			name:   "rate limit disabled ignores limits",
			modify: func(c *Config) { c.Rate = RateLimitConfig{} },
		},
		{
			name:    "api key required but none set",
			modify:  func(c *Config) { c.Security.RequireAPIKey = true },
			wantErr: "API_KEYS is empty",
		},
		{
			name:    "bad timezone",
			modify:  func(c *Config) { c.Export.Timezone = "Mars/Olympus" },
			wantErr: "EXPORT_TIMEZONE",
		},
		{
			name:    "bcrypt cost too low",
			modify:  func(c *Config) { c.Auth.BcryptCost = 2 },
			wantErr: "AUTH_BCRYPT_COST (2)",
		},
		{
			name: "cache without address",
			modify: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.RedisAddr = ""
			},
			wantErr: "REDIS_ADDR is required",
		},
		{
			name: "write timeout shorter than upload timeout",
			modify: func(c *Config) {
				c.Server.WriteTimeout = time.Minute
				c.Upload.Timeout = 5 * time.Minute
			},
			wantErr: "SERVER_WRITE_TIMEOUT (1m0s) must exceed UPLOAD_TIMEOUT (5m0s)",
		},
		{
			name: "write timeout equal to upload timeout",
			modify: func(c *Config) {
				c.Server.WriteTimeout = 5 * time.Minute
			},
			wantErr: "SERVER_WRITE_TIMEOUT",
		},
		{
			name:   "write timeout covers upload timeout",
			modify: func(c *Config) { c.Server.WriteTimeout = 6 * time.Minute },
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Upload.MaxConcurrent = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"SERVER_PORT", "UPLOAD_MAX_CONCURRENT", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = "postgres://user:hunter2@db/app"
	cfg.Security.APIKeys = []string{"super-secret-key"}
	cfg.Cache.RedisPassword = "redis-pass"

	s := cfg.String()
	for _, secret := range []string{"hunter2", "super-secret-key", "redis-pass"} {
		if strings.Contains(s, secret) {
			t.Errorf("String() leaks %q: %s", secret, s)
		}
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s, want masked fields", s)
	}
}

func TestAddr(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: 3000}
	if got := c.Addr(); got != "127.0.0.1:3000" {
		t.Errorf("Addr() = %q", got)
	}
}
