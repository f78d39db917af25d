package config

import "fmt"

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	API      APIConfig      `yaml:"api"`
	Stats    StatsConfig    `yaml:"stats"`
}

// ServerConfig holds http, storage and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// RealtimeConfig controls the WebSocket broadcaster.
type RealtimeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// Event is the name carried on every broadcast frame.
	Event string `yaml:"event"`
}

// SecurityConfig holds CORS and rate limiting.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// APIConfig holds response-shape options.
type APIConfig struct {
	// Envelope wraps success bodies as {"success":{"data":...}} when true.
	// The unwrapped form is canonical.
	Envelope bool `yaml:"envelope"`
}

// StatsConfig controls the cron-scheduled store stats reporter.
type StatsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// WSPath returns the realtime endpoint path.
func (c *Config) WSPath() string {
	if c.Realtime.Path == "" {
		return "/ws"
	}
	return c.Realtime.Path
}
