// Package config carries every option spec §6's table names, plus the
// ambient retry/database/metrics/logging knobs a production deployment of
// the indexer needs, following the teacher's ApplyDefaults/Validate
// convention throughout internal/config and this package's own predecessor.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/stark-indexer/strkindexer/internal/common"
	"github.com/stark-indexer/strkindexer/internal/logger"
	"github.com/stark-indexer/strkindexer/internal/retry"
	"github.com/stark-indexer/strkindexer/internal/store/sqlite"
)

// latestKeyword is the sentinel string value for StartingBlockNumber that
// spec §6 spells `"latest"`.
const latestKeyword = "latest"

// Config is the top-level configuration, spec §6's Configuration table.
type Config struct {
	// RPCNodeURL is the HTTPS JSON-RPC endpoint (required).
	RPCNodeURL string `yaml:"rpc_node_url" json:"rpc_node_url" toml:"rpc_node_url"`

	// WSNodeURL is the WebSocket endpoint for live heads (required).
	WSNodeURL string `yaml:"ws_node_url" json:"ws_node_url" toml:"ws_node_url"`

	// Database selects and configures the persistence adapter (required).
	Database DatabaseConfig `yaml:"database" json:"database" toml:"database"`

	// StartingBlockNumber is a decimal block number or the literal string
	// "latest", consulted only when no cursor has ever been committed.
	StartingBlockNumber string `yaml:"starting_block_number,omitempty" json:"starting_block_number,omitempty" toml:"starting_block_number,omitempty"` //nolint:lll

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty" toml:"log_level,omitempty"`

	// HistoricalConcurrency is W, the historical paging worker pool size.
	HistoricalConcurrency int `yaml:"historical_concurrency,omitempty" json:"historical_concurrency,omitempty" toml:"historical_concurrency,omitempty"` //nolint:lll

	// ReorgWindow is K, the CanonicalTail depth.
	ReorgWindow int `yaml:"reorg_window,omitempty" json:"reorg_window,omitempty" toml:"reorg_window,omitempty"`

	// WatchTransferContract, if set, is the address cmd/indexer's built-in
	// demo Transfer subscription registers against. Left empty, the CLI
	// starts with no subscriptions and simply tracks the chain.
	WatchTransferContract string `yaml:"watch_transfer_contract,omitempty" json:"watch_transfer_contract,omitempty" toml:"watch_transfer_contract,omitempty"` //nolint:lll

	// Retry tunes the storage-commit backoff.
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`

	// Logging configures per-component log levels.
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics configures the Prometheus HTTP exposition.
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// ResolvedStart is the outcome of parsing StartingBlockNumber, spec §4.G
// step 2's `startingBlockNumber` (numeric) or `"latest"` branch.
type ResolvedStart struct {
	BlockNumber uint64
	UseLatest   bool
}

// ResolveStart parses StartingBlockNumber, defaulting to block 0 if unset.
func (c *Config) ResolveStart() (ResolvedStart, error) {
	if c.StartingBlockNumber == "" {
		return ResolvedStart{}, nil
	}
	if common.ToLowerWithTrim(c.StartingBlockNumber) == latestKeyword {
		return ResolvedStart{UseLatest: true}, nil
	}
	n, err := strconv.ParseUint(c.StartingBlockNumber, 10, 64)
	if err != nil {
		return ResolvedStart{}, fmt.Errorf("starting_block_number: must be a decimal number or %q: %w", latestKeyword, err)
	}
	return ResolvedStart{BlockNumber: n}, nil
}

// ApplyDefaults fills in every optional field's default, spec §6's table
// ("historicalConcurrency default 8", "reorgWindow default 64").
func (c *Config) ApplyDefaults() {
	if c.HistoricalConcurrency == 0 {
		c.HistoricalConcurrency = 8 //nolint:mnd
	}
	if c.ReorgWindow == 0 {
		c.ReorgWindow = 64 //nolint:mnd
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Database.ApplyDefaults()
	if c.Retry != nil {
		c.Retry.ApplyDefaults()
	}
	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}
	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks required fields and enum values and returns a plain error
// describing the first problem found (not an errs.ConfigurationError).
func (c *Config) Validate() error {
	if c.RPCNodeURL == "" {
		return fmt.Errorf("rpc_node_url is required")
	}
	if c.WSNodeURL == "" {
		return fmt.Errorf("ws_node_url is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if !logger.ValidLogLevels[common.ToLowerWithTrim(c.LogLevel)] {
		return fmt.Errorf("log_level: must be one of: debug, info, warn, error")
	}
	if c.HistoricalConcurrency <= 0 {
		return fmt.Errorf("historical_concurrency: must be positive")
	}
	if c.ReorgWindow <= 0 {
		return fmt.Errorf("reorg_window: must be positive")
	}
	if _, err := c.ResolveStart(); err != nil {
		return err
	}
	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}
	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}

// RetryConfig tunes the storage-commit backoff, §4.E step 4's "bounded
// exponential backoff, max 5 attempts". WebSocket reconnection uses the
// Chain Source's own fixed policy and does not read this config.
type RetryConfig struct {
	MaxAttempts       int             `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`
	InitialBackoff    common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`
	MaxBackoff        common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`
	BackoffMultiplier float64         `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
	JitterFraction    float64         `yaml:"jitter_fraction" json:"jitter_fraction" toml:"jitter_fraction"`
}

// ApplyDefaults mirrors internal/retry.Config.ApplyDefaults's values.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5 //nolint:mnd
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(500 * time.Millisecond) //nolint:mnd
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
	if r.JitterFraction == 0 {
		r.JitterFraction = 0.2 //nolint:mnd
	}
}

// ToRetryConfig converts to internal/retry's plain time.Duration shape.
func (r RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:       r.MaxAttempts,
		InitialBackoff:    r.InitialBackoff.Duration,
		MaxBackoff:        r.MaxBackoff.Duration,
		BackoffMultiplier: r.BackoffMultiplier,
		JitterFraction:    r.JitterFraction,
	}
}

// DatabaseConfig selects the persistence adapter. Only the SQLite reference
// adapter (internal/store/sqlite) is shipped, spec §4.A/§6.
type DatabaseConfig struct {
	Path               string `yaml:"path" json:"path" toml:"path"`
	JournalMode        string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`
	Synchronous        string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`
	BusyTimeoutMS      int    `yaml:"busy_timeout_ms" json:"busy_timeout_ms" toml:"busy_timeout_ms"`
	MaxOpenConnections int    `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
}

// ApplyDefaults mirrors sqlite.Config.ApplyDefaults's values.
func (d *DatabaseConfig) ApplyDefaults() {
	sqliteDefaults := sqlite.Config{
		JournalMode:        d.JournalMode,
		Synchronous:        d.Synchronous,
		BusyTimeoutMS:      d.BusyTimeoutMS,
		MaxOpenConnections: d.MaxOpenConnections,
		MaxIdleConnections: d.MaxIdleConnections,
	}
	sqliteDefaults.ApplyDefaults()
	d.JournalMode = sqliteDefaults.JournalMode
	d.Synchronous = sqliteDefaults.Synchronous
	d.BusyTimeoutMS = sqliteDefaults.BusyTimeoutMS
	d.MaxOpenConnections = sqliteDefaults.MaxOpenConnections
	d.MaxIdleConnections = sqliteDefaults.MaxIdleConnections
}

// ToSQLiteConfig converts to the adapter's own config type.
func (d DatabaseConfig) ToSQLiteConfig() sqlite.Config {
	return sqlite.Config{
		Path:               d.Path,
		JournalMode:        d.JournalMode,
		Synchronous:        d.Synchronous,
		BusyTimeoutMS:      d.BusyTimeoutMS,
		MaxOpenConnections: d.MaxOpenConnections,
		MaxIdleConnections: d.MaxIdleConnections,
	}
}

// LoggingConfig configures logging behavior with per-component log levels,
// satisfying internal/logger.LoggingConfig.
type LoggingConfig struct {
	DefaultLevel    string            `yaml:"default_level" json:"default_level" toml:"default_level"`
	Development     bool              `yaml:"development" json:"development" toml:"development"`
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets DefaultLevel to "info" if unset.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks that every configured level is recognized. Component
// names are not restricted to internal/common.AllComponents — operators may
// legitimately name components this package doesn't know about (e.g. from
// a custom Provider implementation's own logging).
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" && !logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)] {
		return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
	}
	for component, level := range l.ComponentLevels {
		if !logger.ValidLogLevels[common.ToLowerWithTrim(level)] {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}
	return nil
}

// GetComponentLevel implements internal/logger.LoggingConfig.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return common.ToLowerWithTrim(level)
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel implements internal/logger.LoggingConfig.
func (l *LoggingConfig) GetDefaultLevel() string {
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment implements internal/logger.LoggingConfig.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition, served by
// internal/metrics.Server.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`
	Path          string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets ListenAddress/Path defaults.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks the listen address and path are set when metrics are
// enabled.
func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.ListenAddress == "" {
		return fmt.Errorf("listen_address is required when metrics are enabled")
	}
	if m.Path == "" || m.Path[0] != '/' {
		return fmt.Errorf("path must start with '/'")
	}
	return nil
}
