package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/stake"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())

	id, err := cfg.Contract()
	require.NoError(t, err)
	assert.Equal(t, stake.ContractID, id)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "wallet.yaml")

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.Development = true
	cfg.CachePath = "/var/lib/phoenix/notes.db"
	cfg.GasLimit = 2_000
	cfg.GasPrice = 3
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRead_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Read(strings.NewReader("gas_price: 7\n"))
	require.NoError(t, err)

	want := DefaultConfig()
	want.GasPrice = 7
	assert.Equal(t, want, cfg)
}

func TestRead_Empty(t *testing.T) {
	cfg, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "gas: 1\n"},
		{"bad level", "log_level: loud\n"},
		{"empty cache path", "cache_path: \"\"\n"},
		{"zero gas limit", "gas_limit: 0\n"},
		{"bad contract", "stake_contract: abc\n"},
		{"not yaml", "log_level: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	cfg.Development = true
	logger, err = cfg.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
