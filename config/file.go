package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a node config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Ledger instance
	case "ledger.instance":
		cfg.Ledger.InstanceLabel = value
	case "ledger.ft.name":
		cfg.Ledger.FTName = value
	case "ledger.ft.symbol":
		cfg.Ledger.FTSymbol = value
	case "ledger.ft.decimals":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		cfg.Ledger.FTDecimals = uint8(n)
	case "ledger.mt.name":
		cfg.Ledger.MTName = value
	case "ledger.mt.symbol":
		cfg.Ledger.MTSymbol = value
	case "ledger.mt.baseuri":
		cfg.Ledger.MTBaseURI = value
	case "ledger.nft.name":
		cfg.Ledger.NFTName = value
	case "ledger.nft.symbol":
		cfg.Ledger.NFTSymbol = value
	case "ledger.nft.baseuri":
		cfg.Ledger.NFTBaseURI = value
	case "ledger.checkpoint":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Ledger.CheckpointSeconds = n

	// Storage
	case "storage.backend":
		cfg.Storage.Backend = strings.ToLower(value)

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Keyring
	case "keyring.dir":
		cfg.Keyring.Dir = value

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# Token Ledger Node Configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.tokenledger)
# datadir = ~/.tokenledger

# ============================================================================
# Ledger instance
# ============================================================================

# Instance label. Delegated approvals are bound to the identity derived
# from this label; changing it invalidates outstanding approvals.
ledger.instance = ` + cfg.Ledger.InstanceLabel + `

# Fungible token metadata
ledger.ft.name = ` + cfg.Ledger.FTName + `
ledger.ft.symbol = ` + cfg.Ledger.FTSymbol + `
ledger.ft.decimals = ` + strconv.Itoa(int(cfg.Ledger.FTDecimals)) + `

# Multi-token and NFT collection metadata
ledger.mt.name = ` + cfg.Ledger.MTName + `
ledger.mt.symbol = ` + cfg.Ledger.MTSymbol + `
# ledger.mt.baseuri = ipfs://...
ledger.nft.name = ` + cfg.Ledger.NFTName + `
ledger.nft.symbol = ` + cfg.Ledger.NFTSymbol + `
# ledger.nft.baseuri = ipfs://...

# Seconds between automatic state checkpoints (0 = shutdown only)
ledger.checkpoint = ` + strconv.Itoa(cfg.Ledger.CheckpointSeconds) + `

# ============================================================================
# Storage
# ============================================================================

# State database backend: badger or memory
storage.backend = ` + cfg.Storage.Backend + `

# ============================================================================
# RPC
# ============================================================================

rpc.enabled = true
rpc.addr = ` + cfg.RPC.Addr + `
rpc.port = ` + strconv.Itoa(cfg.RPC.Port) + `

# Allowed client IPs (comma-separated)
rpc.allowed = 127.0.0.1

# Allowed CORS origins ("*" = all)
# rpc.cors =

# ============================================================================
# Logging
# ============================================================================

log.level = ` + cfg.Log.Level + `
# log.file = tokenledger.log
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
