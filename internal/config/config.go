package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Backend   BackendConfig   `yaml:"backend"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RateLimit is requests per second per tenant on /rpc; zero disables it.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type DBConfig struct {
	Path string `yaml:"path"`
	// ActivityRetention is how long activity entries are kept; zero keeps them forever.
	ActivityRetention time.Duration `yaml:"activity_retention"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "stdio" or "http"
}

// AuthConfig selects how bearer tokens are verified. PublicKeyPath (RS256)
// takes precedence over HMACSecret (HS256).
type AuthConfig struct {
	Enabled       bool   `yaml:"enabled"`
	HMACSecret    string `yaml:"hmac_secret"`
	PublicKeyPath string `yaml:"public_key_path"`
	Issuer        string `yaml:"issuer"`
}

type BackendConfig struct {
	URL        string        `yaml:"url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	Rate       float64       `yaml:"rate"`
	Burst      int           `yaml:"burst"`
	OptionsTTL time.Duration `yaml:"options_ttl"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path:              "tasking.db",
			ActivityRetention: 30 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Backend: BackendConfig{
			Timeout:    30 * time.Second,
			Rate:       5,
			Burst:      5,
			OptionsTTL: 5 * time.Minute,
		},
	}

	if path := os.Getenv("TASKING_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("TASKING_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TASKING_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKING_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("TASKING_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if retention := os.Getenv("TASKING_DB_ACTIVITY_RETENTION"); retention != "" {
		d, err := time.ParseDuration(retention)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKING_DB_ACTIVITY_RETENTION: %w", err)
		}
		cfg.DB.ActivityRetention = d
	}
	if level := os.Getenv("TASKING_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("TASKING_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if mode := os.Getenv("TASKING_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv("TASKING_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKING_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if secret := os.Getenv("TASKING_AUTH_HMAC_SECRET"); secret != "" {
		cfg.Auth.HMACSecret = secret
	}
	if keyPath := os.Getenv("TASKING_AUTH_PUBLIC_KEY_PATH"); keyPath != "" {
		cfg.Auth.PublicKeyPath = keyPath
	}
	if issuer := os.Getenv("TASKING_AUTH_ISSUER"); issuer != "" {
		cfg.Auth.Issuer = issuer
	}
	if url := os.Getenv("TASKING_BACKEND_URL"); url != "" {
		cfg.Backend.URL = url
	}
	if token := os.Getenv("TASKING_BACKEND_TOKEN"); token != "" {
		cfg.Backend.Token = token
	}
	if timeout := os.Getenv("TASKING_BACKEND_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKING_BACKEND_TIMEOUT: %w", err)
		}
		cfg.Backend.Timeout = d
	}
	if rate := os.Getenv("TASKING_BACKEND_RATE"); rate != "" {
		v, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKING_BACKEND_RATE: %w", err)
		}
		cfg.Backend.Rate = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks option combinations that cannot work together.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	if c.Auth.Enabled && c.Transport.Mode == "http" && c.Auth.HMACSecret == "" && c.Auth.PublicKeyPath == "" {
		return fmt.Errorf("auth enabled but neither hmac_secret nor public_key_path is set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
