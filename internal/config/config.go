// Package config handles sieman configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full configuration.
type Config struct {
	Sources []SourceConfig  `yaml:"sources"`
	Follow  FollowSettings  `yaml:"follow"`
	Server  ServerSettings  `yaml:"server"`
	Logging LoggingSettings `yaml:"logging"`
}

// SourceConfig defines one log source to ingest.
type SourceConfig struct {
	Name     string         `yaml:"name"`
	Path     string         `yaml:"path"`
	Ingestor string         `yaml:"ingestor"` // "generic", "syslog", "windows"
	Parser   string         `yaml:"parser"`   // "generic", "syslog", "web"
	Options  map[string]any `yaml:"options"`  // passed opaquely to the factories
}

// FollowSettings defines follow-mode behavior.
type FollowSettings struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	PositionsPath string        `yaml:"positions_path"`
	StartPosition string        `yaml:"start_position"` // "beginning" or "end"
	SaveInterval  time.Duration `yaml:"save_interval"`
}

// ServerSettings defines the serve-mode HTTP surface.
type ServerSettings struct {
	ListenAddr    string        `yaml:"listen_addr"`
	RecentRecords int           `yaml:"recent_records"` // ring buffer size for /api/v1/records
	BatchSize     int           `yaml:"batch_size"`     // stream broadcast batch size
	BatchInterval time.Duration `yaml:"batch_interval"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

// LoggingSettings contains logging configuration.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Follow: FollowSettings{
			PollInterval:  time.Second,
			PositionsPath: "/var/lib/sieman/positions.json",
			StartPosition: "end",
			SaveInterval:  30 * time.Second,
		},
		Server: ServerSettings{
			ListenAddr:    ":8086",
			RecentRecords: 500,
			BatchSize:     100,
			BatchInterval: time.Second,
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file on top of the defaults,
// then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("SIEMAN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("SIEMAN_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if path := os.Getenv("SIEMAN_POSITIONS_PATH"); path != "" {
		c.Follow.PositionsPath = path
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for i, src := range c.Sources {
		if err := src.Validate(i); err != nil {
			return err
		}
	}

	if err := c.Follow.Validate(); err != nil {
		return err
	}

	return c.Server.Validate()
}

// Validate validates a source configuration. Ingestor and parser kinds
// are not restricted here: an unknown kind falls back to generic at
// construction time.
func (s *SourceConfig) Validate(index int) error {
	if s.Name == "" {
		return fmt.Errorf("sources[%d].name is required", index)
	}
	if s.Path == "" {
		return fmt.Errorf("sources[%d].path is required", index)
	}
	return nil
}

// Validate validates follow settings.
func (f *FollowSettings) Validate() error {
	if f.PollInterval <= 0 {
		return fmt.Errorf("follow.poll_interval must be positive")
	}
	if f.StartPosition != "" && f.StartPosition != "beginning" && f.StartPosition != "end" {
		return fmt.Errorf("follow.start_position must be 'beginning' or 'end'")
	}
	return nil
}

// Validate validates server settings.
func (s *ServerSettings) Validate() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if s.RecentRecords <= 0 {
		return fmt.Errorf("server.recent_records must be positive")
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("server.batch_size must be positive")
	}
	if s.BatchInterval <= 0 {
		return fmt.Errorf("server.batch_interval must be positive")
	}
	return nil
}
