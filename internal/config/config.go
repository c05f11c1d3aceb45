package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

// BaseURLEnv is the environment variable that supplies the backend URL
const BaseURLEnv = "REPORTS_API_URL"

var _ domain.ConfigManager = (*Manager)(nil)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager. configFile may be empty,
// in which case config.yaml is searched for in the usual places.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath(DataDir())
	}

	v.SetEnvPrefix("REPORTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api.base_url", BaseURLEnv, "REPORTS_API_BASE_URL"); err != nil {
		return fmt.Errorf("error binding %s: %w", BaseURLEnv, err)
	}

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(m.configFile == "" && os.IsNotExist(err)) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.API.BaseURL = strings.TrimRight(strings.TrimSpace(config.API.BaseURL), "/")

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Backend
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.rate_limit", 20)
	v.SetDefault("api.burst", 5)
	v.SetDefault("api.circuit_breaker.max_requests", 3)
	v.SetDefault("api.circuit_breaker.interval", "30s")
	v.SetDefault("api.circuit_breaker.timeout", "30s")
	v.SetDefault("api.circuit_breaker.failure_threshold", 5)

	// Session
	v.SetDefault("session.backend", "sqlite")
	v.SetDefault("session.sqlite_path", filepath.Join(DataDir(), "session.db"))
	v.SetDefault("session.redis_url", "redis://localhost:6379/0")
	v.SetDefault("session.redis_key", "report-client:session")
	v.SetDefault("session.ttl", "0s")

	// Report list cache
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_items", 64)
	v.SetDefault("cache.ttl", "30s")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Development backend
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", "30m")
	v.SetDefault("server.username", "reporter")
	v.SetDefault("server.password", "")
}

// DataDir returns the per-user directory for the session database and config.
func DataDir() string {
	if dir := os.Getenv("REPORTS_DATA_DIR"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".report-client"
	}
	return filepath.Join(homeDir, ".report-client")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetAPIConfig returns backend connection configuration
func (m *Manager) GetAPIConfig() *domain.APIConfig {
	return &m.config.API
}

// GetSessionConfig returns session store configuration
func (m *Manager) GetSessionConfig() *domain.SessionConfig {
	return &m.config.Session
}

// GetServerConfig returns development backend configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration. An empty base URL is accepted here;
// the request client reports it on the first call instead.
func (m *Manager) Validate() error {
	config := m.config

	if config.API.BaseURL != "" {
		u, err := url.Parse(config.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid backend base URL: %q", config.API.BaseURL)
		}
	}
	if config.API.Timeout < 0 {
		return fmt.Errorf("invalid api timeout: %s", config.API.Timeout)
	}
	if config.API.RateLimit < 0 {
		return fmt.Errorf("invalid api rate limit: %d", config.API.RateLimit)
	}

	switch config.Session.Backend {
	case "memory":
	case "sqlite":
		if config.Session.SQLitePath == "" {
			return fmt.Errorf("session sqlite path is required")
		}
	case "redis":
		if config.Session.RedisURL == "" {
			return fmt.Errorf("session redis URL is required")
		}
	default:
		return fmt.Errorf("invalid session backend: %s", config.Session.Backend)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}
