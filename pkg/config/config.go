// Package config loads the agent configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"hostmon/pkg/log"
)

const (
	// DefaultPath is the config file read when no path is given.
	DefaultPath = "hostmon.yaml"
	// EnvPrefix prefixes every environment override. Nested keys use "__".
	EnvPrefix = "HOSTMON_"

	defaultHost          = "127.0.0.1"
	defaultPort          = 9100
	defaultPrimeInterval = 250 * time.Millisecond
	maxPort              = 65535
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Certificate points at the PEM files used for TLS.
type Certificate struct {
	PrivatePath string `koanf:"private_path"`
	PublicPath  string `koanf:"public_path"`
}

// Collect toggles the optional metrics.
type Collect struct {
	CPULoad        bool          `koanf:"cpu_load"`
	CPUPerCore     bool          `koanf:"cpu_per_core"`
	MemoryDetailed bool          `koanf:"memory_detailed"`
	PrimeInterval  time.Duration `koanf:"prime_interval"`
}

// Logging selects the log level and output format.
type Logging struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Config is the agent configuration. It is not modified after startup.
type Config struct {
	Host        string       `koanf:"host"`
	Port        int          `koanf:"port"`
	AgentID     string       `koanf:"agent_id"`
	Token       string       `koanf:"token"`
	Certificate *Certificate `koanf:"certificate"`
	Collect     Collect      `koanf:"collect"`
	Log         Logging      `koanf:"log"`
}

// Default returns the configuration used when no file is available.
func Default() *Config {
	return &Config{
		Host: defaultHost,
		Port: defaultPort,
		Collect: Collect{
			CPULoad:        true,
			CPUPerCore:     true,
			MemoryDetailed: true,
			PrimeInterval:  defaultPrimeInterval,
		},
		Log: Logging{
			Level:  "info",
			Format: log.FormatConsole,
		},
	}
}

// Load reads path over the defaults and applies HOSTMON_ environment overrides.
// A missing, unreadable or malformed file falls back to the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Config file could not be read, falling back to defaults")
		k = koanf.New(".")
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if cfg.AgentID == "" {
		cfg.AgentID = uuid.NewString()
	}

	return cfg, nil
}

// envKey maps HOSTMON_CERTIFICATE__PRIVATE_PATH to certificate.private_path.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Validate checks the values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > maxPort {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}

	if c.Certificate != nil && (c.Certificate.PrivatePath == "" || c.Certificate.PublicPath == "") {
		return fmt.Errorf("%w: certificate needs both private_path and public_path", ErrInvalidConfig)
	}

	if c.Collect.PrimeInterval < 0 {
		return fmt.Errorf("%w: negative prime_interval", ErrInvalidConfig)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TLSEnabled reports whether a certificate is configured.
func (c *Config) TLSEnabled() bool {
	return c.Certificate != nil
}
