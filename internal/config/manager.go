package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. KWPIVOT_SERVER_PORT.
const EnvPrefix = "KWPIVOT"

type manager struct {
	mu       sync.RWMutex
	config   *Config
	viper    *viper.Viper
	fromFile bool
}

func NewManager() Manager {
	return &manager{
		viper: viper.New(),
	}
}

// Load reads configPath (optional) layered over defaults and environment.
func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setupViper(configPath)

	if m.fromFile {
		if err := m.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config, err := m.decode()
	if err != nil {
		return nil, err
	}
	m.config = config
	return config, nil
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return fmt.Errorf("config not loaded")
	}

	if m.fromFile {
		if err := m.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to reload config: %w", err)
		}
	}

	config, err := m.decode()
	if err != nil {
		return err
	}
	m.config = config
	return nil
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) decode() (*Config, error) {
	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalizeVocabulary(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func (m *manager) setupViper(configPath string) {
	setDefaults(m.viper)

	m.fromFile = configPath != ""
	if m.fromFile {
		m.viper.SetConfigFile(configPath)
	}

	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("dataset.source", "")
	v.SetDefault("dataset.timeout_ms", 30000)
	v.SetDefault("vocabulary.brands", []string{})
	v.SetDefault("vocabulary.categories", []string{})
	v.SetDefault("vocabulary.intents", []string{})
	v.SetDefault("query.default_page_size", 50)
	v.SetDefault("query.max_page_size", 500)
	v.SetDefault("query.timeout_ms", 5000)
	v.SetDefault("session.max_sessions", 256)
	v.SetDefault("session.ttl_seconds", 1800)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 120)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.time_format", "")
}

// normalizeVocabulary splits comma-separated entries, which is how lists
// arrive from environment variables.
func normalizeVocabulary(config *Config) {
	config.Vocabulary.Brands = splitList(config.Vocabulary.Brands)
	config.Vocabulary.Categories = splitList(config.Vocabulary.Categories)
	config.Vocabulary.Intents = splitList(config.Vocabulary.Intents)
}

func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Dataset.Source == "" {
		return fmt.Errorf("dataset.source cannot be empty")
	}

	if config.Dataset.TimeoutMs <= 0 {
		return fmt.Errorf("dataset.timeout_ms must be positive")
	}

	if config.Query.DefaultPageSize <= 0 {
		return fmt.Errorf("query.default_page_size must be positive")
	}

	if config.Query.MaxPageSize < config.Query.DefaultPageSize {
		return fmt.Errorf("query.max_page_size (%d) is below default_page_size (%d)",
			config.Query.MaxPageSize, config.Query.DefaultPageSize)
	}

	if config.Session.MaxSessions <= 0 {
		return fmt.Errorf("session.max_sessions must be positive")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.WindowSeconds <= 0) {
		return fmt.Errorf("rate_limit requires positive requests and window_seconds")
	}

	return nil
}
