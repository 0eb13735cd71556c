// Package config loads and validates the bank node's JSON configuration
// file, mirroring the bounds the source's ConfigurationManager enforces.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

// Upper bounds on the timeout fields, matching the source's documented
// validation limits.
const (
	maxStorageTimeoutMS = 15000
	maxClientTimeoutMS  = 60000
	maxNetworkTimeoutMS = 15000
)

// PortRange is an inclusive [Low, High] TCP port range.
type PortRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Config is the bank node's full runtime configuration.
type Config struct {
	Host                 string    `json:"host"`
	Port                 int       `json:"port"`
	StoragePath          string    `json:"storage_path"`
	StorageTimeoutMS     int       `json:"storage_timeout"`
	BankWorkers          int       `json:"bank_workers"`
	ClientTimeoutMS      int       `json:"client_timeout"`
	MaxRequestsPerMinute int       `json:"max_requests_per_minute"`
	MaxBadCommands       int       `json:"max_bad_commands"`
	BanDurationSeconds   int       `json:"ban_duration"`
	NetworkScanPortRange PortRange `json:"network_scan_port_range"`
	NetworkScanSubnet    string    `json:"network_scan_subnet"`
	NetworkTimeoutMS     int       `json:"network_timeout"`
	LogLevel             string    `json:"log_level"`
	LogFile              string    `json:"log_file"`
}

// Default returns a Config with the same defaults as the source's shipped
// config.json.
func Default() Config {
	return Config{
		Host:                 "0.0.0.0",
		Port:                 65525,
		StoragePath:          "data/accounts.db",
		StorageTimeoutMS:     5000,
		BankWorkers:          4,
		ClientTimeoutMS:      30000,
		MaxRequestsPerMinute: 60,
		MaxBadCommands:       5,
		BanDurationSeconds:   300,
		NetworkScanPortRange: PortRange{Low: 65520, High: 65530},
		NetworkScanSubnet:    "192.168.1",
		NetworkTimeoutMS:     500,
		LogLevel:             "info",
		LogFile:              "bankd.log",
	}
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

// Validate enforces the bounds the bank node depends on to start safely.
func (c Config) Validate() error {
	if net.ParseIP(c.Host) == nil && c.Host != "0.0.0.0" && c.Host != "localhost" {
		return fmt.Errorf("host %q is not a valid IPv4 address", c.Host)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range [1, 65535]", c.Port)
	}
	if c.StoragePath == "" {
		return fmt.Errorf("storage_path must not be empty")
	}
	if c.StorageTimeoutMS <= 0 || c.StorageTimeoutMS > maxStorageTimeoutMS {
		return fmt.Errorf("storage_timeout must be in (0, %d] ms", maxStorageTimeoutMS)
	}
	if c.BankWorkers < 1 || c.BankWorkers > 16 {
		return fmt.Errorf("bank_workers must be in [1, 16]")
	}
	if c.ClientTimeoutMS <= 0 || c.ClientTimeoutMS > maxClientTimeoutMS {
		return fmt.Errorf("client_timeout must be in (0, %d] ms", maxClientTimeoutMS)
	}
	if c.MaxRequestsPerMinute < 1 {
		return fmt.Errorf("max_requests_per_minute must be at least 1")
	}
	if c.MaxBadCommands < 1 {
		return fmt.Errorf("max_bad_commands must be at least 1")
	}
	if c.BanDurationSeconds < 1 {
		return fmt.Errorf("ban_duration must be at least 1 second")
	}
	if c.NetworkScanPortRange.Low < 1 || c.NetworkScanPortRange.High > 65535 ||
		c.NetworkScanPortRange.Low > c.NetworkScanPortRange.High {
		return fmt.Errorf("network_scan_port_range %+v is invalid", c.NetworkScanPortRange)
	}
	if c.NetworkScanSubnet == "" {
		return fmt.Errorf("network_scan_subnet must not be empty")
	}
	if net.ParseIP(c.NetworkScanSubnet + ".0") == nil {
		return fmt.Errorf("network_scan_subnet %q is not a valid /24 prefix", c.NetworkScanSubnet)
	}
	if c.NetworkTimeoutMS <= 0 || c.NetworkTimeoutMS > maxNetworkTimeoutMS {
		return fmt.Errorf("network_timeout must be in (0, %d] ms", maxNetworkTimeoutMS)
	}
	return nil
}

// StorageTimeout returns StorageTimeoutMS as a time.Duration.
func (c Config) StorageTimeout() time.Duration {
	return time.Duration(c.StorageTimeoutMS) * time.Millisecond
}

// ClientTimeout returns ClientTimeoutMS as a time.Duration.
func (c Config) ClientTimeout() time.Duration {
	return time.Duration(c.ClientTimeoutMS) * time.Millisecond
}

// NetworkTimeout returns NetworkTimeoutMS as a time.Duration.
func (c Config) NetworkTimeout() time.Duration {
	return time.Duration(c.NetworkTimeoutMS) * time.Millisecond
}

// BanDuration returns BanDurationSeconds as a time.Duration.
func (c Config) BanDuration() time.Duration {
	return time.Duration(c.BanDurationSeconds) * time.Second
}

// Address returns the "host:port" the gateway should listen on.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
