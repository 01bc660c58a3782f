package config

// Configuration loading and validation for cipmsg

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tturner/cipmsg/internal/cip/client"
	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/errors"
	"github.com/tturner/cipmsg/internal/logging"
)

// DefaultPort is the registered EtherNet/IP explicit messaging port.
const DefaultPort = 44818

// TargetConfig identifies the controller.
type TargetConfig struct {
	Address   string `yaml:"address"`
	Port      int    `yaml:"port"`
	RoutePath string `yaml:"route_path,omitempty"` // e.g. "bp/0" or "1,0"
	TimeoutMs int    `yaml:"timeout_ms"`
}

// OriginatorConfig identifies this client in Forward Open and PCCC requester IDs.
type OriginatorConfig struct {
	VendorID     uint16 `yaml:"vendor_id"`
	SerialNumber uint32 `yaml:"serial_number"`
}

// ConnectionConfig sizes and times the Class-3 connection.
type ConnectionConfig struct {
	RPIMs             int    `yaml:"rpi_ms"`
	PacketSize        uint16 `yaml:"packet_size"`
	TimeoutMultiplier uint8  `yaml:"timeout_multiplier"`
	Priority          string `yaml:"priority"` // "low", "high", "scheduled", "urgent"
	FixedSize         bool   `yaml:"fixed_size,omitempty"`
}

// LoggingConfig selects the log level and optional log file.
type LoggingConfig struct {
	Level string `yaml:"level"` // "silent", "error", "info", "verbose", "debug"
	File  string `yaml:"file,omitempty"`
}

// TraceConfig enables pcap capture of every exchanged frame.
type TraceConfig struct {
	PCAPFile string `yaml:"pcap_file,omitempty"`
}

// MetricsConfig enables per-exchange CSV metrics.
type MetricsConfig struct {
	CSVFile string `yaml:"csv_file,omitempty"`
}

// Config represents the client configuration
type Config struct {
	Target     TargetConfig     `yaml:"target"`
	Originator OriginatorConfig `yaml:"originator"`
	Connection ConnectionConfig `yaml:"connection"`
	Logging    LoggingConfig    `yaml:"logging"`
	Trace      TraceConfig      `yaml:"trace,omitempty"`
	Metrics    MetricsConfig    `yaml:"metrics,omitempty"`
}

// CreateDefaultConfig returns a configuration for a local controller.
func CreateDefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			Address:   "127.0.0.1",
			Port:      DefaultPort,
			TimeoutMs: int(client.DefaultTimeout / time.Millisecond),
		},
		Originator: OriginatorConfig{
			VendorID:     0x1337,
			SerialNumber: 0x21436587,
		},
		Connection: ConnectionConfig{
			RPIMs:             2000,
			PacketSize:        504,
			TimeoutMultiplier: 1,
			Priority:          "low",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// WriteDefaultConfig writes the default configuration to path.
func WriteDefaultConfig(path string) error {
	cfg := CreateDefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadConfig loads a configuration from a YAML file
// If the file doesn't exist and autoCreate is true, it will create a default config file
func LoadConfig(path string, autoCreate bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
		}
		if !autoCreate {
			return nil, errors.WrapConfigError(fmt.Errorf("config file not found: %s", path), path)
		}
		if err := WriteDefaultConfig(path); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapConfigError(fmt.Errorf("read created config file: %w", err), path)
		}
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	return cfg, nil
}

// parse decodes YAML over the defaults so omitted sections keep working values.
func parse(data []byte) (*Config, error) {
	cfg := CreateDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return cfg, nil
}

// ValidateConfig checks ranges and parses the route path and log level.
func ValidateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Target.Address) == "" {
		return fmt.Errorf("target.address is required")
	}
	if cfg.Target.Port <= 0 || cfg.Target.Port > 65535 {
		return fmt.Errorf("target.port must be 1-65535, got %d", cfg.Target.Port)
	}
	if cfg.Target.TimeoutMs <= 0 {
		return fmt.Errorf("target.timeout_ms must be > 0")
	}
	if _, err := protocol.ParseRoutePath(cfg.Target.RoutePath); err != nil {
		return fmt.Errorf("target.route_path: %w", err)
	}

	if cfg.Connection.RPIMs <= 0 {
		return fmt.Errorf("connection.rpi_ms must be > 0")
	}
	if cfg.Connection.TimeoutMultiplier > 7 {
		return fmt.Errorf("connection.timeout_multiplier must be 0-7, got %d", cfg.Connection.TimeoutMultiplier)
	}
	if _, err := cfg.ConnectionParams().NetworkParameters(); err != nil {
		return fmt.Errorf("connection: %w", err)
	}

	if _, err := cfg.LogLevel(); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Address returns the host:port dial address of the target.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Target.Address, strconv.Itoa(c.Target.Port))
}

// Timeout returns the per-exchange reply timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Target.TimeoutMs) * time.Millisecond
}

// LogLevel parses logging.level; empty means info.
func (c *Config) LogLevel() (logging.LogLevel, error) {
	if c.Logging.Level == "" {
		return logging.LogLevelInfo, nil
	}
	return logging.ParseLevel(c.Logging.Level)
}

// ConnectionParams maps the connection section to Forward Open parameters.
func (c *Config) ConnectionParams() protocol.ConnectionParams {
	p := client.DefaultConnectionParams()
	p.RPI = time.Duration(c.Connection.RPIMs) * time.Millisecond
	p.PacketSize = c.Connection.PacketSize
	p.TimeoutMultiplier = c.Connection.TimeoutMultiplier
	p.FixedSize = c.Connection.FixedSize
	if c.Connection.Priority != "" {
		p.Priority = c.Connection.Priority
	}
	return p
}

// ClientOptions maps the configuration to client options. Logging, trace
// and metrics sinks are opened by the caller.
func (c *Config) ClientOptions() ([]client.Option, error) {
	route, err := protocol.ParseRoutePath(c.Target.RoutePath)
	if err != nil {
		return nil, fmt.Errorf("target.route_path: %w", err)
	}
	return []client.Option{
		client.WithTarget(c.Address()),
		client.WithTimeout(c.Timeout()),
		client.WithVendor(c.Originator.VendorID, c.Originator.SerialNumber),
		client.WithRoutePath(route),
		client.WithConnectionParams(c.ConnectionParams()),
	}, nil
}
