package chainsource

import "context"

// Provider is the minimal RPC/WS surface the Chain Source needs. It is
// modeled after github.com/NethermindEth/starknet.go's rpc.Provider shape —
// grounded on other_examples/NethermindEth-teeception__event_watcher.go, the
// only corpus file that talks to a live Starknet node — and the teacher's
// own interface-first pkg/rpc.EthClient pattern: a narrow interface here,
// a concrete adapter behind it elsewhere, never imported directly.
type Provider interface {
	// BlockNumber returns the current chain head.
	BlockNumber(ctx context.Context) (uint64, error)

	// BlockWithReceipts returns the header and decoded-free raw events for
	// one block, spec §4.C's `getBlockWithReceipts`.
	BlockWithReceipts(ctx context.Context, number uint64) (BlockCandidate, error)

	// BlockHeaderByNumber returns just the header, used by the Reorg
	// Detector's ancestor walk-back (spec §4.D's `getBlockByNumber`).
	BlockHeaderByNumber(ctx context.Context, number uint64) (Header, error)

	// SubscribeNewHeads opens the live head subscription, spec §6's
	// `subscribeNewHeads`-equivalent.
	SubscribeNewHeads(ctx context.Context) (HeadSubscription, error)
}

// HeadSubscription is a live feed of new chain heads.
type HeadSubscription interface {
	Heads() <-chan Header
	Err() <-chan error
	Unsubscribe()
}
