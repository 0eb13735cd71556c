package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, cfg Config) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, Default())
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestValidatePortOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	require.Error(t, cfg.Validate())

	cfg.Port = 70000
	require.Error(t, cfg.Validate())
}

func TestValidateBankWorkers(t *testing.T) {
	cfg := Default()
	cfg.BankWorkers = 0
	require.Error(t, cfg.Validate())
}

func TestValidateScanPortRange(t *testing.T) {
	cfg := Default()
	cfg.NetworkScanPortRange.Low = 100
	cfg.NetworkScanPortRange.High = 50
	require.Error(t, cfg.Validate())
}

func TestValidateScanSubnet(t *testing.T) {
	cfg := Default()
	cfg.NetworkScanSubnet = "not-an-ip"
	require.Error(t, cfg.Validate())
}

func TestValidateTimeoutUpperBounds(t *testing.T) {
	cfg := Default()
	cfg.StorageTimeoutMS = 15001
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ClientTimeoutMS = 999999999
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.NetworkTimeoutMS = 15001
	require.Error(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	require.Equal(t, cfg.StorageTimeoutMS, int(cfg.StorageTimeout().Milliseconds()))
	require.Equal(t, cfg.ClientTimeoutMS, int(cfg.ClientTimeout().Milliseconds()))
	require.Equal(t, cfg.NetworkTimeoutMS, int(cfg.NetworkTimeout().Milliseconds()))
	require.Equal(t, cfg.BanDurationSeconds, int(cfg.BanDuration().Seconds()))
}
