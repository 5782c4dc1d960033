package config

import (
	"testing"

	"github.com/stark-indexer/strkindexer/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestLoadFromYAML(t *testing.T) {
	cfg, err := LoadFromYAML("../../config.example.yaml")
	require.NoError(t, err)
	validateConfig(t, cfg, "YAML")
}

func TestLoadFromJSON(t *testing.T) {
	cfg, err := LoadFromJSON("../../config.example.json")
	require.NoError(t, err)
	validateConfig(t, cfg, "JSON")
}

func TestLoadFromTOML(t *testing.T) {
	cfg, err := LoadFromTOML("../../config.example.toml")
	require.NoError(t, err)
	validateConfig(t, cfg, "TOML")
}

func TestLoadFromFile_YAML(t *testing.T) {
	cfg, err := LoadFromFile("../../config.example.yaml")
	require.NoError(t, err)
	validateConfig(t, cfg, "auto-detected YAML")
}

func TestLoadFromFile_JSON(t *testing.T) {
	cfg, err := LoadFromFile("../../config.example.json")
	require.NoError(t, err)
	validateConfig(t, cfg, "auto-detected JSON")
}

func TestLoadFromFile_TOML(t *testing.T) {
	cfg, err := LoadFromFile("../../config.example.toml")
	require.NoError(t, err)
	validateConfig(t, cfg, "auto-detected TOML")
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	_, err := LoadFromFile("config.txt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported config file format")
}

// validateConfig checks that the loaded config has expected values applied
// by ApplyDefaults after parsing.
func validateConfig(t *testing.T, cfg *config.Config, format string) {
	t.Helper()

	require.NotEmpty(t, cfg.RPCNodeURL, "[%s] rpc_node_url should not be empty", format)
	require.NotEmpty(t, cfg.WSNodeURL, "[%s] ws_node_url should not be empty", format)
	require.NotEmpty(t, cfg.Database.Path, "[%s] database.path should not be empty", format)

	require.NotEmpty(t, cfg.Database.JournalMode, "[%s] database.journal_mode should have a default", format)
	require.NotEmpty(t, cfg.Database.Synchronous, "[%s] database.synchronous should have a default", format)

	require.NotZero(t, cfg.HistoricalConcurrency, "[%s] historical_concurrency should have a default", format)
	require.NotZero(t, cfg.ReorgWindow, "[%s] reorg_window should have a default", format)
	require.NotEmpty(t, cfg.LogLevel, "[%s] log_level should have a default", format)

	start, err := cfg.ResolveStart()
	require.NoError(t, err, "[%s] starting_block_number should parse", format)
	_ = start
}

func TestConfigDefaults(t *testing.T) {
	cfg := &config.Config{
		RPCNodeURL: "https://test.example/rpc",
		WSNodeURL:  "wss://test.example/ws",
		Database:   config.DatabaseConfig{Path: "./test.db"},
	}

	cfg.ApplyDefaults()

	if cfg.HistoricalConcurrency != 8 {
		t.Errorf("expected default historical_concurrency=8, got %d", cfg.HistoricalConcurrency)
	}
	if cfg.ReorgWindow != 64 {
		t.Errorf("expected default reorg_window=64, got %d", cfg.ReorgWindow)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log_level=info, got %s", cfg.LogLevel)
	}
	if cfg.Database.JournalMode != "WAL" {
		t.Errorf("expected default journal_mode=WAL, got %s", cfg.Database.JournalMode)
	}
	if cfg.Database.Synchronous != "NORMAL" {
		t.Errorf("expected default synchronous=NORMAL, got %s", cfg.Database.Synchronous)
	}
	if cfg.Database.BusyTimeoutMS != 5000 {
		t.Errorf("expected default busy_timeout_ms=5000, got %d", cfg.Database.BusyTimeoutMS)
	}
	if cfg.Database.MaxOpenConnections != 25 {
		t.Errorf("expected default max_open_connections=25, got %d", cfg.Database.MaxOpenConnections)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: &config.Config{
				RPCNodeURL: "https://test.example/rpc",
				WSNodeURL:  "wss://test.example/ws",
				Database:   config.DatabaseConfig{Path: "./test.db"},
			},
			wantErr: false,
		},
		{
			name: "missing rpc_node_url",
			cfg: &config.Config{
				WSNodeURL: "wss://test.example/ws",
				Database:  config.DatabaseConfig{Path: "./test.db"},
			},
			wantErr: true,
		},
		{
			name: "missing ws_node_url",
			cfg: &config.Config{
				RPCNodeURL: "https://test.example/rpc",
				Database:   config.DatabaseConfig{Path: "./test.db"},
			},
			wantErr: true,
		},
		{
			name: "missing database path",
			cfg: &config.Config{
				RPCNodeURL: "https://test.example/rpc",
				WSNodeURL:  "wss://test.example/ws",
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: &config.Config{
				RPCNodeURL: "https://test.example/rpc",
				WSNodeURL:  "wss://test.example/ws",
				Database:   config.DatabaseConfig{Path: "./test.db"},
				LogLevel:   "verbose",
			},
			wantErr: true,
		},
		{
			name: "invalid starting_block_number",
			cfg: &config.Config{
				RPCNodeURL:          "https://test.example/rpc",
				WSNodeURL:           "wss://test.example/ws",
				Database:            config.DatabaseConfig{Path: "./test.db"},
				StartingBlockNumber: "not-a-number",
			},
			wantErr: true,
		},
		{
			name: "starting_block_number latest",
			cfg: &config.Config{
				RPCNodeURL:          "https://test.example/rpc",
				WSNodeURL:           "wss://test.example/ws",
				Database:            config.DatabaseConfig{Path: "./test.db"},
				StartingBlockNumber: "latest",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
