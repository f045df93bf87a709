package config

// DefaultMainnet returns the default node configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Ledger: LedgerConfig{
			InstanceLabel:     "tokenledger-mainnet",
			FTName:            "Token",
			FTSymbol:          "TOK",
			FTDecimals:        12,
			MTName:            "Token Items",
			MTSymbol:          "TOKI",
			NFTName:           "Token Collectibles",
			NFTSymbol:         "TOKC",
			CheckpointSeconds: 60,
		},
		Storage: StorageConfig{
			Backend: StorageBadger,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       8571,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default node configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Ledger.InstanceLabel = "tokenledger-testnet"
	cfg.RPC.Port = 8671
	return cfg
}

// Default returns the default node configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
