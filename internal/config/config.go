package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Delete policies for proxies that still have bound accounts.
const (
	// DeleteBoundReject refuses the delete while bindings exist.
	DeleteBoundReject = "reject"
	// DeleteBoundUnbind clears the bindings and deletes the proxy.
	DeleteBoundUnbind = "unbind"
)

// Config is the full service configuration loaded at boot.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Database DBConfig      `yaml:"database"`
	JWT      JWTConfig     `yaml:"jwt"`
	Checker  CheckerConfig `yaml:"checker"`
	Redis    RedisConfig   `yaml:"redis"`
	Log      LogConfig     `yaml:"log"`
	Policy   PolicyConfig  `yaml:"policy"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Listen string `yaml:"listen"` // Listen address, e.g. ":8080".
}

// DBConfig holds database settings.
type DBConfig struct {
	DSN string `yaml:"dsn"` // SQLite path or postgres DSN.
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret      string `yaml:"secret"`       // HS256 signing secret.
	ExpiryHours int    `yaml:"expiry_hours"` // Token lifetime in hours.
}

// Expiry returns the configured token lifetime.
func (c JWTConfig) Expiry() time.Duration {
	if c.ExpiryHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ExpiryHours) * time.Hour
}

// CheckerConfig holds health-check settings. Timeout and concurrency can be
// overridden at runtime through the settings table.
type CheckerConfig struct {
	CheckURL       string `yaml:"check_url"`       // URL fetched through each proxy.
	TimeoutSeconds int    `yaml:"timeout_seconds"` // Per-check timeout.
	MaxConcurrency int    `yaml:"max_concurrency"` // Worker pool size for check-all.
}

// RedisConfig holds optional redis cache settings for the dashboard summary.
type RedisConfig struct {
	Addr       string `yaml:"addr"`        // host:port; empty disables the cache.
	Password   string `yaml:"password"`    // Optional password.
	DB         int    `yaml:"db"`          // Logical database index.
	TTLSeconds int    `yaml:"ttl_seconds"` // Summary cache TTL; keep below the dashboard poll interval.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`       // logrus level name.
	File       string `yaml:"file"`        // Optional rotating log file path.
	MaxSizeMB  int    `yaml:"max_size_mb"` // Rotate threshold.
	MaxBackups int    `yaml:"max_backups"` // Rotated files kept.
}

// PolicyConfig holds behavior policies left open by the product.
type PolicyConfig struct {
	DeleteBound string `yaml:"delete_bound"` // reject or unbind.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:   ServerConfig{Listen: ":8080"},
		Database: DBConfig{DSN: "file:data/proxy-manager.db"},
		JWT:      JWTConfig{Secret: "", ExpiryHours: 24},
		Checker: CheckerConfig{
			CheckURL:       "http://httpbin.org/ip",
			TimeoutSeconds: 5,
			MaxConcurrency: 20,
		},
		Redis:  RedisConfig{TTLSeconds: 5},
		Log:    LogConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 5},
		Policy: PolicyConfig{DeleteBound: DeleteBoundReject},
	}
}

// Load reads the YAML config at path, falling back to defaults when the
// path is empty or missing, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		if errRead != nil {
			if !os.IsNotExist(errRead) {
				return cfg, fmt.Errorf("config: read %s: %w", path, errRead)
			}
		} else if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	}

	applyEnvOverrides(&cfg)

	if errValidate := cfg.validate(); errValidate != nil {
		return cfg, errValidate
	}
	return cfg, nil
}

// applyEnvOverrides copies PROXY_MANAGER_* environment values over the file config.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PROXY_MANAGER_LISTEN")); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("PROXY_MANAGER_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("PROXY_MANAGER_JWT_SECRET")); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("PROXY_MANAGER_REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("PROXY_MANAGER_CHECK_URL")); v != "" {
		cfg.Checker.CheckURL = v
	}
}

func (c Config) validate() error {
	if c.Checker.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: checker.timeout_seconds must be positive")
	}
	if c.Checker.MaxConcurrency <= 0 {
		return fmt.Errorf("config: checker.max_concurrency must be positive")
	}
	switch c.Policy.DeleteBound {
	case DeleteBoundReject, DeleteBoundUnbind:
	default:
		return fmt.Errorf("config: policy.delete_bound must be %q or %q", DeleteBoundReject, DeleteBoundUnbind)
	}
	return nil
}
