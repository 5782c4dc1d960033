// Package indexer implements the Orchestrator (spec §4.G): owns component
// lifetimes and the cursor, wiring the Chain Source, Reorg Detector, Block
// Processor, ABI Registry and Handler Dispatcher into one driven loop. It
// plays the role of the teacher's cmd/indexer/main.go wiring plus
// internal/downloader.Downloader's lifecycle, generalized to
// registration-then-Start semantics.
package indexer

import (
	"context"
	"sync"

	"github.com/stark-indexer/strkindexer/internal/logger"
	"github.com/stark-indexer/strkindexer/internal/retry"
	"github.com/stark-indexer/strkindexer/pkg/abi"
	"github.com/stark-indexer/strkindexer/pkg/chainsource"
	"github.com/stark-indexer/strkindexer/pkg/errs"
	"github.com/stark-indexer/strkindexer/pkg/starknet"
	"github.com/stark-indexer/strkindexer/pkg/store"
)

// Options tunes the Orchestrator, spec §4.G step 2 and §3's CanonicalTail.
type Options struct {
	// StartingBlockNumber is where to begin if no cursor is persisted yet.
	// Ignored if UseLatestHead is set.
	StartingBlockNumber uint64

	// UseLatestHead makes the Orchestrator derive the starting point from
	// the live head instead of a fixed number, spec §4.G step 2's
	// `"latest"` option.
	UseLatestHead bool

	// ReorgWindow is K, the CanonicalTail size (default 64).
	ReorgWindow int

	// HistoricalConcurrency is W, forwarded to the Chain Source.
	HistoricalConcurrency int

	// StorageRetry bounds the Block Processor's commit retry policy, spec
	// §4.E step 4 ("bounded exponential backoff, max 5 attempts").
	StorageRetry retry.Config
}

func (o *Options) applyDefaults() {
	if o.ReorgWindow == 0 {
		o.ReorgWindow = 64 //nolint:mnd
	}
	if o.HistoricalConcurrency == 0 {
		o.HistoricalConcurrency = 8 //nolint:mnd
	}
	o.StorageRetry.ApplyDefaults()
}

// Indexer is the Orchestrator: it owns the cursor and drives the pipeline
// from registration through Start/Stop.
type Indexer struct {
	provider chainsource.Provider
	st       store.Store
	opts     Options
	metrics  Metrics
	log      *logger.Logger

	mu            sync.Mutex
	started       bool
	subscriptions []abi.Subscription
	reorgHandler  abi.ReorgHandler

	health *healthTracker

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an Indexer over provider and st. Subscriptions must be
// registered via OnEvent/OnReorg before Start.
func New(provider chainsource.Provider, st store.Store, opts Options, metrics Metrics, log *logger.Logger) *Indexer {
	opts.applyDefaults()
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Indexer{
		provider: provider,
		st:       st,
		opts:     opts,
		metrics:  metrics,
		log:      log.WithComponent("orchestrator"),
		health:   newHealthTracker(),
	}
}

// OnEvent registers a handler for (contractAddress, descriptor). Returns
// ConfigurationError if called after Start, spec §4.G/§7.
func (idx *Indexer) OnEvent(contractAddress starknet.Felt, descriptor abi.EventDescriptor, handler abi.Handler) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.started {
		return errs.NewConfigurationError("OnEvent called after Start; subscriptions are frozen once running")
	}
	if handler == nil {
		return errs.NewConfigurationError("handler must not be nil")
	}

	idx.subscriptions = append(idx.subscriptions, abi.Subscription{
		ContractAddress: contractAddress,
		Descriptor:      descriptor,
		Handler:         handler,
	})
	return nil
}

// OnReorg registers the single optional reorg handler. Returns
// ConfigurationError if called after Start or if one is already registered.
func (idx *Indexer) OnReorg(handler abi.ReorgHandler) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.started {
		return errs.NewConfigurationError("OnReorg called after Start; subscriptions are frozen once running")
	}
	if idx.reorgHandler != nil {
		return errs.NewConfigurationError("a reorg handler is already registered")
	}
	idx.reorgHandler = handler
	return nil
}

// HealthCheck reports liveness of each external dependency from the last
// observed interaction within a 30-second window, spec §4.G.
func (idx *Indexer) HealthCheck() Health {
	return idx.health.snapshot()
}

// Introspect implements abi.OrchestratorHandle, giving handlers read-only
// access to the same liveness view HealthCheck exposes without giving them
// Start/Stop, spec §4.F.
func (idx *Indexer) Introspect() (ws, rpc, database bool) {
	h := idx.HealthCheck()
	return h.WS, h.RPC, h.Database
}

// Stop signals cancellation and blocks until the in-flight block has
// committed or rolled back and every goroutine has joined, spec §4.G's
// `stop()` contract.
func (idx *Indexer) Stop() {
	idx.mu.Lock()
	cancel := idx.cancel
	done := idx.done
	idx.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
	_ = idx.st.Close()
}

func (idx *Indexer) markStarted(cancel context.CancelFunc) chan struct{} {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.started = true
	idx.cancel = cancel
	idx.done = make(chan struct{})
	return idx.done
}

// registry snapshots the frozen subscription set; safe to call only once
// Start has begun (subscriptions are immutable from that point on).
func (idx *Indexer) registry() *abi.Registry {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return abi.NewRegistry(idx.subscriptions)
}
