package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Session    SessionConfig    `yaml:"session"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port      int             `yaml:"port"`
	RateLimit ServerRateLimit `yaml:"rate_limit"`
}

type ServerRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BackendConfig points every client call at a single injected origin.
// Timeout 0 keeps the historical no-timeout behavior.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig configures identity resolution. The fallback identities
// are adopted and persisted when a visitor has no session entry yet.
type SessionConfig struct {
	TTL                time.Duration `yaml:"ttl"`
	FallbackUserID     string        `yaml:"fallback_user_id"`
	FallbackUserName   string        `yaml:"fallback_user_name"`
	FallbackUserEmail  string        `yaml:"fallback_user_email"`
	FallbackBusinessID string        `yaml:"fallback_business_id"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	CredentialsFile         string `yaml:"credentials_file"`
	AttendanceSpreadsheetID string `yaml:"attendance_spreadsheet_id"`
}

// UnmarshalYAML decodes the timeout from a duration string ("5s").
func (c *BackendConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.BaseURL = raw.BaseURL
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("backend timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// UnmarshalYAML decodes the TTL from a duration string ("24h").
func (c *SessionConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TTL                string `yaml:"ttl"`
		FallbackUserID     string `yaml:"fallback_user_id"`
		FallbackUserName   string `yaml:"fallback_user_name"`
		FallbackUserEmail  string `yaml:"fallback_user_email"`
		FallbackBusinessID string `yaml:"fallback_business_id"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.FallbackUserID = raw.FallbackUserID
	c.FallbackUserName = raw.FallbackUserName
	c.FallbackUserEmail = raw.FallbackUserEmail
	c.FallbackBusinessID = raw.FallbackBusinessID
	if raw.TTL != "" {
		d, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return fmt.Errorf("session ttl: %w", err)
		}
		c.TTL = d
	}
	return nil
}

func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}

	if c.Session.FallbackUserID == "" {
		return errors.New("session fallback_user_id is required")
	}

	if c.Session.FallbackBusinessID == "" {
		return errors.New("session fallback_business_id is required")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "aforo"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
