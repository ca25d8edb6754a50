package config

import (
	"time"

	"keyword-pivot/pkg/logger"
	"keyword-pivot/pkg/pivot"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Vocabulary pivot.Vocabulary `mapstructure:"vocabulary"`
	Query      QueryConfig      `mapstructure:"query"`
	Session    SessionConfig    `mapstructure:"session"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logger     logger.Config    `mapstructure:"logger"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatasetConfig struct {
	Source    string `mapstructure:"source"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

func (d DatasetConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

type QueryConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
	TimeoutMs       int `mapstructure:"timeout_ms"`
}

func (q QueryConfig) Timeout() time.Duration {
	return time.Duration(q.TimeoutMs) * time.Millisecond
}

type SessionConfig struct {
	MaxSessions int `mapstructure:"max_sessions"`
	TTLSeconds  int `mapstructure:"ttl_seconds"`
}

func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Requests      int  `mapstructure:"requests"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}
