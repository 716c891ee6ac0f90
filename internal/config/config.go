package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServiceConfig is the root configuration for the auction service.
type ServiceConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Auction    AuctionConfig    `yaml:"auction"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Database   DatabaseConfig   `yaml:"database"`
	Hub        HubConfig        `yaml:"hub"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// AuctionConfig holds bidding rules.
type AuctionConfig struct {
	// MinIncrement is the smallest amount a new bid must exceed the
	// current highest bid by.
	MinIncrement int64    `yaml:"min_increment"`
	// BidWaitTimeout bounds how long a PlaceBid call may wait for its
	// turn on a contended auction before failing with Busy.
	BidWaitTimeout Duration `yaml:"bid_wait_timeout"`
}

// SchedulerConfig holds settlement sweep settings.
type SchedulerConfig struct {
	Interval    Duration `yaml:"interval"`
	Concurrency int      `yaml:"concurrency"`
}

// DatabaseConfig selects and configures the durable store. When Enabled is
// false the service runs on the in-memory store.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HubConfig holds broadcast settings.
type HubConfig struct {
	WriteTimeout Duration `yaml:"write_timeout"`
}

// DispatcherConfig holds notification delivery settings.
type DispatcherConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// MetricsConfig holds Prometheus exposure settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
