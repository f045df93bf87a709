// Package config handles node configuration: which network the instance
// serves, where it keeps state, how the ledgers are labeled, and the RPC
// surface. Settings load from a key = value .conf file with flag
// overrides on top.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Storage backends.
const (
	StorageBadger = "badger"
	StorageMemory = "memory"
)

// Config holds node runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Ledger instance
	Ledger LedgerConfig

	// State storage
	Storage StorageConfig

	// RPC server
	RPC RPCConfig

	// Keyring
	Keyring KeyringConfig

	// Logging
	Log LogConfig
}

// LedgerConfig labels the ledger instance and its three ledgers.
// InstanceLabel feeds the instance identity that delegated approvals are
// bound to; changing it invalidates every outstanding approval.
type LedgerConfig struct {
	InstanceLabel string `conf:"ledger.instance"`

	FTName     string `conf:"ledger.ft.name"`
	FTSymbol   string `conf:"ledger.ft.symbol"`
	FTDecimals uint8  `conf:"ledger.ft.decimals"`

	MTName    string `conf:"ledger.mt.name"`
	MTSymbol  string `conf:"ledger.mt.symbol"`
	MTBaseURI string `conf:"ledger.mt.baseuri"`

	NFTName    string `conf:"ledger.nft.name"`
	NFTSymbol  string `conf:"ledger.nft.symbol"`
	NFTBaseURI string `conf:"ledger.nft.baseuri"`

	// CheckpointSeconds is the interval between automatic state
	// checkpoints. Zero disables the timer; state is still saved at
	// shutdown.
	CheckpointSeconds int `conf:"ledger.checkpoint"`
}

// StorageConfig selects the state database backend.
type StorageConfig struct {
	Backend string `conf:"storage.backend"` // badger or memory
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// KeyringConfig holds keyring settings.
type KeyringConfig struct {
	Dir string `conf:"keyring.dir"` // empty = <datadir>/<network>/keyring
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.tokenledger
//	macOS:   ~/Library/Application Support/TokenLedger
//	Windows: %APPDATA%\TokenLedger
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tokenledger"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "TokenLedger")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "TokenLedger")
		}
		return filepath.Join(home, "AppData", "Roaming", "TokenLedger")
	default:
		return filepath.Join(home, ".tokenledger")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// StateDir returns the state database directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.NetworkDataDir(), "state")
}

// KeyringDir returns the keyring directory.
func (c *Config) KeyringDir() string {
	if c.Keyring.Dir != "" {
		return c.Keyring.Dir
	}
	return filepath.Join(c.NetworkDataDir(), "keyring")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "tokenledger.conf")
}
