// Package config loads the wallet host configuration from YAML.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/roles"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/stake"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// Config is the host configuration.
type Config struct {
	// LogLevel is a zap level name: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// Development switches to the human readable console logger.
	Development bool `yaml:"development,omitempty"`
	// CachePath is the bbolt file holding scanned notes.
	CachePath string `yaml:"cache_path"`
	// GasLimit and GasPrice are used when a command does not set them.
	GasLimit uint64 `yaml:"gas_limit"`
	GasPrice uint64 `yaml:"gas_price"`
	// StakeContract is the base58 id of the stake contract.
	StakeContract string `yaml:"stake_contract"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "info",
		CachePath:     filepath.Join(".phoenix", "notes.db"),
		GasLimit:      500_000_000,
		GasPrice:      1,
		StakeContract: roles.FormatContractID(stake.ContractID),
	}
}

// Load reads the configuration at path. A missing file yields the
// defaults; keys absent from the file keep their default value.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	defer f.Close()
	return Read(f)
}

// Read decodes and validates a configuration. Unknown keys are rejected.
func Read(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, replacing it atomically.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "encode config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "save config")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "save config")
	}
	return errors.Wrap(os.Rename(tmp, path), "save config")
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	if c.CachePath == "" {
		return errors.New("cache_path: must not be empty")
	}
	if c.GasLimit == 0 {
		return errors.New("gas_limit: must be positive")
	}
	if _, err := c.Contract(); err != nil {
		return errors.Wrap(err, "stake_contract")
	}
	return nil
}

// Contract returns the decoded stake contract id.
func (c *Config) Contract() (utx.ContractID, error) {
	return roles.ParseContractID(c.StakeContract)
}

// Logger builds the zap logger for the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
