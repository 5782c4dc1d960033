// Package processor implements the Block Processor (spec §4.E): for each
// accepted candidate, filter its events against the ABI Registry, decode the
// matches, and persist block+events+cursor in a single transaction.
package processor

import (
	"context"
	"fmt"

	"github.com/stark-indexer/strkindexer/internal/logger"
	"github.com/stark-indexer/strkindexer/pkg/abi"
	"github.com/stark-indexer/strkindexer/pkg/chainsource"
	"github.com/stark-indexer/strkindexer/pkg/store"
)

// Processor applies accepted blocks to the Store, spec §4.E.
type Processor struct {
	registry *abi.Registry
	st       store.Store
	log      *logger.Logger
}

// New builds a Processor over registry and st.
func New(registry *abi.Registry, st store.Store, log *logger.Logger) *Processor {
	return &Processor{registry: registry, st: st, log: log.WithComponent("block-processor")}
}

// Result carries what a successful Apply committed, for the dispatcher to
// replay against handlers.
type Result struct {
	Block  store.Block
	Events []abi.DecodedEvent
}

// Apply filters candidate.Events through the registry, decodes the matches,
// and commits block+events+cursor in one transaction. A decode failure never
// aborts the block: the event is still persisted with Decoded == nil and a
// warning is logged, so the raw keys/data survive even though no handler
// will be invoked for it (spec §4.B, §4.E step 2).
func (p *Processor) Apply(ctx context.Context, candidate chainsource.BlockCandidate) (Result, error) {
	matched := make([]abi.DecodedEvent, 0, len(candidate.Events))

	for _, raw := range candidate.Events {
		if len(raw.Keys) == 0 {
			continue
		}
		sub, ok := p.registry.Lookup(raw.ContractAddress, raw.Keys[0])
		if !ok {
			continue
		}

		decoded, err := abi.Decode(sub.Descriptor, raw.Keys, raw.Data)
		if err != nil {
			p.log.Warnw("event decode failed, persisting raw with decoded=nil",
				"event", sub.Descriptor.Name, "tx_hash", raw.TxHash.Hex(), "error", err)
			decoded = nil
		}

		matched = append(matched, abi.DecodedEvent{
			ContractAddress: raw.ContractAddress,
			BlockNumber:     candidate.Header.Number,
			BlockHash:       candidate.Header.Hash,
			TxHash:          raw.TxHash,
			EventIndex:      raw.EventIndex,
			Keys:            raw.Keys,
			Data:            raw.Data,
			Decoded:         decoded,
		})
	}

	block := store.Block{
		Number:     candidate.Header.Number,
		Hash:       candidate.Header.Hash,
		ParentHash: candidate.Header.ParentHash,
		Timestamp:  candidate.Header.Timestamp,
		Status:     store.StatusAccepted,
	}

	if err := p.commit(ctx, block, matched); err != nil {
		return Result{}, err
	}

	return Result{Block: block, Events: matched}, nil
}

func (p *Processor) commit(ctx context.Context, block store.Block, events []abi.DecodedEvent) error {
	txn, err := p.st.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin txn: %w", err)
	}

	if err := p.apply(ctx, txn, block, events); err != nil {
		_ = txn.Rollback()
		return err
	}

	return txn.Commit()
}

func (p *Processor) apply(ctx context.Context, txn store.Txn, block store.Block, events []abi.DecodedEvent) error {
	if err := txn.UpsertBlock(ctx, block); err != nil {
		return fmt.Errorf("upsert block %d: %w", block.Number, err)
	}

	rows := make([]store.Event, 0, len(events))
	for _, e := range events {
		rows = append(rows, store.Event{
			BlockHash:       e.BlockHash,
			TxHash:          e.TxHash,
			EventIndex:      e.EventIndex,
			BlockNumber:     e.BlockNumber,
			ContractAddress: e.ContractAddress,
			Keys:            e.Keys,
			Data:            e.Data,
			Decoded:         e.Decoded,
		})
	}
	if len(rows) > 0 {
		if err := txn.InsertEvents(ctx, rows); err != nil {
			return fmt.Errorf("insert events for block %d: %w", block.Number, err)
		}
	}

	if err := txn.SetCursor(ctx, store.Cursor{BlockNumber: block.Number, BlockHash: block.Hash}); err != nil {
		return fmt.Errorf("set cursor to %d: %w", block.Number, err)
	}

	return nil
}

// Rollback deletes every block/event with number >= fromBlock and resets the
// cursor to newCursor (the last block still on the canonical chain), spec
// §4.D/§9: the reorg handler then sees `forkedBlock = fromBlock`, the first
// block no longer canonical.
func (p *Processor) Rollback(ctx context.Context, fromBlock uint64, newCursor store.Cursor) error {
	txn, err := p.st.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rollback txn: %w", err)
	}

	deleted, err := txn.DeleteFrom(ctx, fromBlock)
	if err != nil {
		_ = txn.Rollback()
		return fmt.Errorf("delete from block %d: %w", fromBlock, err)
	}

	if err := txn.SetCursor(ctx, newCursor); err != nil {
		_ = txn.Rollback()
		return fmt.Errorf("reset cursor to %d: %w", newCursor.BlockNumber, err)
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit rollback: %w", err)
	}

	p.log.Infow("rolled back", "from_block", fromBlock, "rows_deleted", deleted, "new_cursor", newCursor.BlockNumber)
	return nil
}
