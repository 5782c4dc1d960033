// Package store defines the Persistence Port (spec §4.A): the abstract
// contract any relational adapter must satisfy so the ingestion engine never
// depends on a concrete database.
package store

import (
	"context"
	"database/sql"

	"github.com/stark-indexer/strkindexer/pkg/starknet"
)

// BlockStatus mirrors spec §3's Block.status enum.
type BlockStatus string

const (
	StatusAccepted BlockStatus = "accepted"
	StatusPending  BlockStatus = "pending"
)

// Block is the persisted identity+attributes of spec §3's Block entity.
type Block struct {
	Number     uint64            `meddler:"block_number"`
	Hash       starknet.Felt     `meddler:"block_hash,felt"`
	ParentHash starknet.Felt     `meddler:"parent_hash,felt"`
	Timestamp  uint64            `meddler:"timestamp"`
	Status     BlockStatus       `meddler:"status"`
}

// Event is the persisted identity+attributes of spec §3's Event entity.
// Keys/Data/Decoded are stored as JSON text columns (the adapter's choice of
// encoding, per spec §6's persisted state layout note).
type Event struct {
	BlockHash       starknet.Felt `meddler:"block_hash,felt"`
	TxHash          starknet.Felt `meddler:"tx_hash,felt"`
	EventIndex      int           `meddler:"event_index"`
	BlockNumber     uint64        `meddler:"block_number"`
	ContractAddress starknet.Felt `meddler:"contract_address,felt"`
	Keys            []starknet.Felt   `meddler:"keys,feltlist"`
	Data            []starknet.Felt   `meddler:"data,feltlist"`
	Decoded         map[string]interface{} `meddler:"decoded,jsonnull"`
}

// Cursor is the process-wide committed high-water mark, spec §3.
type Cursor struct {
	ID               int           `meddler:"id,pk"`
	BlockNumber      uint64        `meddler:"block_number"`
	BlockHash        starknet.Felt `meddler:"block_hash,felt"`
}

// Store is the root persistence handle: it opens transactions and answers
// the read-only cursor query directly (reads don't need a scoped txn).
type Store interface {
	// Begin opens a scoped write transaction, spec §4.A `begin()`.
	Begin(ctx context.Context) (Txn, error)

	// GetCursor returns the committed cursor, or (Cursor{}, false, nil) if
	// none has ever been set.
	GetCursor(ctx context.Context) (Cursor, bool, error)

	// Query is the escape hatch exposed to user handlers, bound to a fresh
	// connection per spec §4.A/§4.F/§9 — never the processor's own Txn.
	Query(ctx context.Context, sqlText string, params ...interface{}) ([]map[string]interface{}, error)

	// Conn exposes a raw *sql.DB for components (e.g. migrations) that need
	// it directly rather than through the Txn abstraction.
	Conn() *sql.DB

	// Close releases the underlying connection pool.
	Close() error
}

// Txn is a single write-scoped transaction over blocks/events/cursor.
type Txn interface {
	// UpsertBlock inserts or replaces the block header row.
	UpsertBlock(ctx context.Context, block Block) error

	// InsertEvents inserts the block's matched events. Must tolerate a
	// primary-key conflict on (block_hash, tx_hash, event_index) as a no-op,
	// per spec invariant 6 (restart must not duplicate rows).
	InsertEvents(ctx context.Context, events []Event) error

	// SetCursor commits the cursor within the same transaction that wrote
	// the block, per spec §4.A ("cursor is derived, not independent").
	SetCursor(ctx context.Context, cursor Cursor) error

	// DeleteFrom removes all blocks and events with number >= blockNumber,
	// atomically and idempotently, per spec §4.A/invariant 3.
	DeleteFrom(ctx context.Context, blockNumber uint64) (int64, error)

	Commit() error
	Rollback() error
}
