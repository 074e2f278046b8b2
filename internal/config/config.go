package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/executor"
	"github.com/ksyq12/sslops/internal/remote"
	"github.com/ksyq12/sslops/internal/ssl"
	"github.com/ksyq12/sslops/internal/store"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SSLOPS_"

// Config represents the application configuration
type Config struct {
	ACME     ACMEConfig     `yaml:"acme" envPrefix:"ACME_"`
	SSH      SSHConfig      `yaml:"ssh" envPrefix:"SSH_"`
	Timeouts TimeoutsConfig `yaml:"timeouts" envPrefix:"TIMEOUT_"`
	Sweep    SweepConfig    `yaml:"sweep" envPrefix:"SWEEP_"`
	Store    StoreConfig    `yaml:"store" envPrefix:"STORE_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
}

// ACMEConfig holds certificate authority settings
type ACMEConfig struct {
	Email   string `yaml:"email" env:"EMAIL"`
	Staging bool   `yaml:"staging" env:"STAGING"`
	Plugin  string `yaml:"plugin" env:"PLUGIN"`
}

// SSHConfig holds remote execution settings
type SSHConfig struct {
	Binary         string        `yaml:"binary" env:"BINARY"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	KeyDir         string        `yaml:"key_dir,omitempty" env:"KEY_DIR"`
	MaxOutputBytes int           `yaml:"max_output_bytes" env:"MAX_OUTPUT_BYTES"`
}

// TimeoutsConfig bounds each kind of remote call
type TimeoutsConfig struct {
	Obtain  time.Duration `yaml:"obtain" env:"OBTAIN"`
	Renew   time.Duration `yaml:"renew" env:"RENEW"`
	Revoke  time.Duration `yaml:"revoke" env:"REVOKE"`
	Install time.Duration `yaml:"install" env:"INSTALL"`
	Check   time.Duration `yaml:"check" env:"CHECK"`
}

// SweepConfig controls automatic renewal
type SweepConfig struct {
	Window      time.Duration `yaml:"window" env:"WINDOW"`
	Concurrency int           `yaml:"concurrency" env:"CONCURRENCY"`
	Interval    time.Duration `yaml:"interval" env:"INTERVAL"`
}

// StoreConfig selects the domain store
type StoreConfig struct {
	Driver  string `yaml:"driver" env:"DRIVER"`
	Path    string `yaml:"path,omitempty" env:"PATH"`
	DSN     string `yaml:"dsn,omitempty" env:"DSN"`
	Migrate bool   `yaml:"migrate" env:"MIGRATE"`
}

// MetricsConfig holds the metrics listener address used by serve
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// configDir is the default config directory
const configDir = ".config/sslops"
const configFile = "config.yaml"

// New creates a new Config with default values
func New() *Config {
	return &Config{
		ACME: ACMEConfig{
			Plugin: ssl.DefaultPlugin,
		},
		SSH: SSHConfig{
			Binary:         remote.DefaultSSHBinary,
			ConnectTimeout: remote.DefaultConnectTimeout,
			MaxOutputBytes: executor.DefaultMaxOutput,
		},
		Timeouts: TimeoutsConfig{
			Obtain:  ssl.DefaultObtainTimeout,
			Renew:   ssl.DefaultRenewTimeout,
			Revoke:  ssl.DefaultRevokeTimeout,
			Install: ssl.DefaultInstallTimeout,
			Check:   ssl.DefaultCheckTimeout,
		},
		Sweep: SweepConfig{
			Window:      ssl.DefaultRenewWindow,
			Concurrency: ssl.DefaultSweepConcurrency,
			Interval:    ssl.DefaultSweepInterval,
		},
		Store: StoreConfig{
			Driver: store.DriverFile,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

// ConfigPath returns the config file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file at path (ConfigPath when empty), then applies
// .env and SSLOPS_* environment overrides, and validates the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, "failed to resolve config path", err)
		}
		path = p
	}

	cfg := New()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeConfig, "failed to read config", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, "failed to parse config", err)
		}
	}

	// .env is optional and never overrides variables already set.
	_ = godotenv.Load()

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, "failed to parse environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path, creating the directory if needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	var problems []string

	if c.ACME.Email != "" && !strings.Contains(c.ACME.Email, "@") {
		problems = append(problems, fmt.Sprintf("acme.email %q is not an email address", c.ACME.Email))
	}
	if !ssl.IsValidPlugin(c.ACME.Plugin) {
		problems = append(problems, fmt.Sprintf("acme.plugin must be one of %s", strings.Join(ssl.ValidPlugins(), ", ")))
	}
	if c.SSH.Binary == "" {
		problems = append(problems, "ssh.binary is required")
	}
	if c.SSH.ConnectTimeout < time.Second {
		problems = append(problems, "ssh.connect_timeout must be at least 1s")
	}
	if c.SSH.MaxOutputBytes <= 0 {
		problems = append(problems, "ssh.max_output_bytes must be positive")
	}

	for name, d := range map[string]time.Duration{
		"obtain":  c.Timeouts.Obtain,
		"renew":   c.Timeouts.Renew,
		"revoke":  c.Timeouts.Revoke,
		"install": c.Timeouts.Install,
		"check":   c.Timeouts.Check,
	} {
		if d <= 0 {
			problems = append(problems, fmt.Sprintf("timeouts.%s must be positive", name))
		}
	}

	if c.Sweep.Window <= 0 {
		problems = append(problems, "sweep.window must be positive")
	}
	if c.Sweep.Concurrency < 1 {
		problems = append(problems, "sweep.concurrency must be at least 1")
	}
	if c.Sweep.Interval <= 0 {
		problems = append(problems, "sweep.interval must be positive")
	}

	switch c.Store.Driver {
	case store.DriverFile:
	case store.DriverMySQL:
		if c.Store.DSN == "" {
			problems = append(problems, "store.dsn is required for the mysql driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver must be %s or %s", store.DriverFile, store.DriverMySQL))
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.Wrap(errors.ErrCodeConfig, "invalid configuration: "+strings.Join(problems, "; "), nil)
}

// SSL returns the certificate manager settings.
func (c *Config) SSL() ssl.Config {
	return ssl.Config{
		Email:   c.ACME.Email,
		Staging: c.ACME.Staging,
		Plugin:  c.ACME.Plugin,
		Timeouts: ssl.Timeouts{
			Obtain:  c.Timeouts.Obtain,
			Renew:   c.Timeouts.Renew,
			Revoke:  c.Timeouts.Revoke,
			Install: c.Timeouts.Install,
			Check:   c.Timeouts.Check,
		},
		RenewWindow:      c.Sweep.Window,
		SweepConcurrency: c.Sweep.Concurrency,
	}
}

// Remote returns the gateway settings.
func (c *Config) Remote() remote.Config {
	return remote.Config{
		SSHBinary:      c.SSH.Binary,
		ConnectTimeout: c.SSH.ConnectTimeout,
		DefaultTimeout: c.Timeouts.Check,
		KeyDir:         c.SSH.KeyDir,
	}
}

// StoreOptions returns the store settings.
func (c *Config) StoreOptions() store.Config {
	return store.Config{
		Driver:  c.Store.Driver,
		Path:    c.Store.Path,
		DSN:     c.Store.DSN,
		Migrate: c.Store.Migrate,
	}
}
