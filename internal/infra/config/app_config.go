// Package config manages application configuration loading and validation.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GatewayConfig points the desk at the trading gateway REST surface.
type GatewayConfig struct {
	BaseURL          string        `yaml:"baseURL"`
	Timeout          time.Duration `yaml:"timeout"`
	WriteRate        float64       `yaml:"writeRate"`
	WriteBurst       int           `yaml:"writeBurst"`
	BootstrapTimeout time.Duration `yaml:"bootstrapTimeout"`
}

// PollConfig controls the collection refresh cadence.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DeskConfig carries the selector contents supplied to every form.
type DeskConfig struct {
	SessionIDs   []string `yaml:"sessionIDs"`
	Symbols      []string `yaml:"symbols"`
	WriteWorkers int      `yaml:"writeWorkers"`
}

// ConsoleConfig configures the operator console HTTP surface.
type ConsoleConfig struct {
	Addr string `yaml:"addr"`
}

// TelemetryConfig configures OTLP exporters (metrics only).
type TelemetryConfig struct {
	OTLPEndpoint  string `yaml:"otlpEndpoint"`
	ServiceName   string `yaml:"serviceName"`
	OTLPInsecure  bool   `yaml:"otlpInsecure"`
	EnableMetrics bool   `yaml:"enableMetrics"`
}

// LoggingConfig selects log level, encoding and an optional rotated file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

// AppConfig is the unified desk configuration sourced from YAML.
type AppConfig struct {
	Environment Environment     `yaml:"environment"`
	Gateway     GatewayConfig   `yaml:"gateway"`
	Poll        PollConfig      `yaml:"poll"`
	Desk        DeskConfig      `yaml:"desk"`
	Console     ConsoleConfig   `yaml:"console"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Logging     LoggingConfig   `yaml:"logging"`
}

const (
	defaultBaseURL          = "http://localhost:8080"
	defaultTimeout          = 5 * time.Second
	defaultWriteRate        = 5
	defaultWriteBurst       = 3
	defaultBootstrapTimeout = 30 * time.Second
	defaultPollInterval     = time.Second
	defaultWriteWorkers     = 4
	defaultConsoleAddr      = ":8890"
	defaultServiceName      = "traderdesk"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultLogMaxSizeMB     = 64
	defaultLogMaxBackups    = 5
)

// DefaultAppConfig returns the configuration used when no file is supplied.
func DefaultAppConfig() AppConfig {
	cfg := AppConfig{
		Environment: EnvDev,
		Gateway: GatewayConfig{
			BaseURL:          defaultBaseURL,
			Timeout:          defaultTimeout,
			WriteRate:        defaultWriteRate,
			WriteBurst:       defaultWriteBurst,
			BootstrapTimeout: defaultBootstrapTimeout,
		},
		Poll: PollConfig{Interval: defaultPollInterval},
		Desk: DeskConfig{
			SessionIDs:   []string{"FIX.4.2:TRADER->EXCHANGE"},
			Symbols:      []string{"AAPL", "MSFT", "TSLA"},
			WriteWorkers: defaultWriteWorkers,
		},
		Console: ConsoleConfig{Addr: defaultConsoleAddr},
		Telemetry: TelemetryConfig{
			ServiceName:  defaultServiceName,
			OTLPInsecure: true,
		},
		Logging: LoggingConfig{
			Level:      defaultLogLevel,
			Format:     defaultLogFormat,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
	return cfg
}

// Clone returns a deep copy of the configuration.
func (c AppConfig) Clone() AppConfig {
	clone := c
	clone.Desk.SessionIDs = append([]string(nil), c.Desk.SessionIDs...)
	clone.Desk.Symbols = append([]string(nil), c.Desk.Symbols...)
	return clone
}

// Load reads and validates an AppConfig from the provided YAML file.
func Load(ctx context.Context, configPath string) (AppConfig, error) {
	_ = ctx

	reader, closer, err := openConfigFile(configPath)
	if err != nil {
		return AppConfig{}, err
	}
	defer closer()

	bytes, err := io.ReadAll(reader)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}
	return parse(bytes)
}

// LoadOrDefault behaves like Load but falls back to DefaultAppConfig when the
// file does not exist. The boolean reports whether the file was read.
func LoadOrDefault(ctx context.Context, configPath string) (AppConfig, bool, error) {
	cfg, err := Load(ctx, configPath)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultAppConfig(), false, nil
	}
	return AppConfig{}, false, err
}

func parse(bytes []byte) (AppConfig, error) {
	cfg := DefaultAppConfig()
	// Lists replace rather than merge with the defaults.
	cfg.Desk.SessionIDs = nil
	cfg.Desk.Symbols = nil
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Desk.SessionIDs) == 0 && len(cfg.Desk.Symbols) == 0 {
		defaults := DefaultAppConfig()
		cfg.Desk.SessionIDs = defaults.Desk.SessionIDs
		cfg.Desk.Symbols = defaults.Desk.Symbols
	}

	if err := cfg.normalise(); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c *AppConfig) normalise() error {
	c.Environment = Environment(strings.ToLower(strings.TrimSpace(string(c.Environment))))
	if c.Environment == "" {
		c.Environment = EnvDev
	}

	c.Gateway.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gateway.BaseURL), "/")
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = defaultTimeout
	}
	if c.Gateway.WriteBurst <= 0 {
		c.Gateway.WriteBurst = 1
	}
	if c.Gateway.BootstrapTimeout <= 0 {
		c.Gateway.BootstrapTimeout = defaultBootstrapTimeout
	}

	if c.Poll.Interval <= 0 {
		c.Poll.Interval = defaultPollInterval
	}

	c.Desk.SessionIDs = normalizeList(c.Desk.SessionIDs)
	c.Desk.Symbols = normalizeList(c.Desk.Symbols)
	if c.Desk.WriteWorkers <= 0 {
		c.Desk.WriteWorkers = defaultWriteWorkers
	}

	c.Console.Addr = strings.TrimSpace(c.Console.Addr)
	c.Telemetry.OTLPEndpoint = strings.TrimSpace(c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.File = strings.TrimSpace(c.Logging.File)
	if c.Logging.File != "" {
		c.Logging.File = filepath.Clean(c.Logging.File)
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	return nil
}

// Validate performs semantic validation on the configuration.
func (c AppConfig) Validate() error {
	switch c.Environment {
	case EnvDev, EnvStaging, EnvProd:
	default:
		return fmt.Errorf("environment must be one of dev, staging, prod")
	}

	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway baseURL required")
	}
	parsed, err := url.Parse(c.Gateway.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("gateway baseURL must be an absolute URL")
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway timeout must be >0")
	}
	if c.Gateway.WriteRate <= 0 {
		return fmt.Errorf("gateway writeRate must be >0")
	}
	if c.Gateway.WriteBurst <= 0 {
		return fmt.Errorf("gateway writeBurst must be >0")
	}
	if c.Gateway.BootstrapTimeout <= 0 {
		return fmt.Errorf("gateway bootstrapTimeout must be >0")
	}

	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be >0")
	}

	if len(c.Desk.SessionIDs) == 0 {
		return fmt.Errorf("desk sessionIDs required")
	}
	if c.Desk.WriteWorkers <= 0 {
		return fmt.Errorf("desk writeWorkers must be >0")
	}

	if c.Console.Addr == "" {
		return fmt.Errorf("console addr required")
	}
	if c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry serviceName required")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging format must be json or text")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging level must be one of debug, info, warn, error")
	}
	return nil
}

func openConfigFile(path string) (io.Reader, func(), error) {
	candidate := strings.TrimSpace(path)
	candidate = filepath.Clean(candidate)

	file, err := os.Open(candidate) // #nosec G304 -- path is operator controlled.
	if err != nil {
		return nil, nil, fmt.Errorf("open app config: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}
