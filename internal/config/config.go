package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/prompt-integrity/internal/domain/bias"
)

// APIKeyEnv is the fixed name of the secret holding the provider credential.
const APIKeyEnv = "OPENAI_API_KEY"

// Secret is a credential that never prints itself.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Reveal returns the raw value; only the provider client should call it.
func (s Secret) Reveal() string { return string(s) }

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	OpenAI struct {
		Provider string `yaml:"provider"` // openai | stub
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"baseURL"`
		APIKey   Secret `yaml:"apiKey"`
	} `yaml:"openai"`

	Analysis struct {
		DefaultThreshold *int `yaml:"defaultThreshold"`
	} `yaml:"analysis"`

	Auth struct {
		APIKeys map[string]string `yaml:"apiKeys"` // tenant -> key
	} `yaml:"auth"`

	RateLimit struct {
		Capacity        int `yaml:"capacity"`
		RefillPerSecond int `yaml:"refillPerSecond"`
	} `yaml:"rateLimit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`

	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`

	Archive struct {
		Driver   string `yaml:"driver"` // "" | mysql | postgres | sqlite
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password Secret `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Path     string `yaml:"path"` // sqlite file
	} `yaml:"archive"`

	// History is the CLI's local sqlite record of past analyses.
	History struct {
		Path string `yaml:"path"`
	} `yaml:"history"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  Secret `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Default returns a config usable without any file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load baca file config.yaml. A missing file yields the defaults.
// The provider key always comes from OPENAI_API_KEY when it is set.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if v := os.Getenv(APIKeyEnv); v != "" {
		cfg.OpenAI.APIKey = Secret(v)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.OpenAI.Provider == "" {
		c.OpenAI.Provider = "openai"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4"
	}
	if c.Analysis.DefaultThreshold == nil {
		t := bias.DefaultThreshold
		c.Analysis.DefaultThreshold = &t
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 30
	}
	if c.RateLimit.RefillPerSecond == 0 {
		c.RateLimit.RefillPerSecond = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Archive.Driver == "postgres" && c.Archive.SSLMode == "" {
		c.Archive.SSLMode = "disable"
	}
}

// Validate checks cross-field rules after defaults are applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Analysis.DefaultThreshold != nil {
		if err := bias.ValidateThreshold(*c.Analysis.DefaultThreshold); err != nil {
			return fmt.Errorf("analysis.defaultThreshold: %w", err)
		}
	}
	switch c.OpenAI.Provider {
	case "openai", "stub":
	default:
		return fmt.Errorf("openai.provider must be openai or stub, got %q", c.OpenAI.Provider)
	}
	switch c.Archive.Driver {
	case "", "mysql", "postgres":
	case "sqlite":
		if c.Archive.Path == "" {
			return errors.New("archive.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("archive.driver must be mysql, postgres or sqlite, got %q", c.Archive.Driver)
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		return errors.New("minio.endpoint and minio.bucketName are required when minio is enabled")
	}
	return nil
}

// RequireAPIKey fails when the openai provider has no credential.
func (c *Config) RequireAPIKey() error {
	if c.OpenAI.Provider == "openai" && c.OpenAI.APIKey == "" {
		return fmt.Errorf("%s is not set", APIKeyEnv)
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Archive.User,
		c.Archive.Password.Reveal(),
		c.Archive.Host,
		c.Archive.Port,
		c.Archive.Name,
	)
}

// PostgresDSN builds a lib/pq connection URL.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Archive.User, c.Archive.Password.Reveal()),
		Host:     fmt.Sprintf("%s:%d", c.Archive.Host, c.Archive.Port),
		Path:     "/" + c.Archive.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Archive.SSLMode),
	}
	return u.String()
}

// Threshold returns the configured default tolerance threshold.
func (c *Config) Threshold() int {
	if c.Analysis.DefaultThreshold == nil {
		return bias.DefaultThreshold
	}
	return *c.Analysis.DefaultThreshold
}

// TenantKeys returns trimmed, non-empty auth keys.
func (c *Config) TenantKeys() map[string]string {
	out := make(map[string]string, len(c.Auth.APIKeys))
	for tenant, key := range c.Auth.APIKeys {
		if k := strings.TrimSpace(key); k != "" {
			out[tenant] = k
		}
	}
	return out
}
