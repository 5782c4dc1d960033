package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/stark-indexer/strkindexer/internal/common"
	"github.com/stark-indexer/strkindexer/internal/retry"
	"github.com/stark-indexer/strkindexer/pkg/abi"
	"github.com/stark-indexer/strkindexer/pkg/chainsource"
	"github.com/stark-indexer/strkindexer/pkg/dispatch"
	"github.com/stark-indexer/strkindexer/pkg/processor"
	"github.com/stark-indexer/strkindexer/pkg/reorg"
	"github.com/stark-indexer/strkindexer/pkg/store"
)

// Start implements spec §4.G's `start()` contract: derive the cursor, build
// the ABI Registry from frozen subscriptions, start the Chain Source at
// cursor+1, and drive the loop until ctx is cancelled or a fatal error
// occurs. Start neither opens the store nor runs schema migrations; it uses
// the store it was constructed with as it is.
func (idx *Indexer) Start(ctx context.Context) error {
	registry := idx.registry()
	idx.log.Infow("starting", "subscriptions", registry.Len())

	runCtx, cancel := context.WithCancel(ctx)
	done := idx.markStarted(cancel)
	defer close(done)

	cursor, err := idx.deriveCursor(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("derive starting cursor: %w", err)
	}
	idx.health.markDB()
	idx.metrics.SetCursorBlock(cursor.BlockNumber)

	detector := reorg.NewDetector(idx.opts.ReorgWindow, headerAdapter{idx.provider}, idx.log)
	proc := processor.New(registry, idx.st, idx.log)
	disp := dispatch.New(registry, dispatch.QueryFromStore(idx.st), idx.reorgHandlerSnapshot(), idx, idx.log)

	from := cursor.BlockNumber + 1
	tailCursor := reorg.BlockRef{Number: cursor.BlockNumber, Hash: cursor.BlockHash}

	for {
		next, fatal := idx.drive(runCtx, from, tailCursor, detector, proc, disp)
		if fatal != nil {
			for _, comp := range []string{common.ComponentChainSource, common.ComponentBlockProcessor} {
				idx.metrics.SetComponentHealth(comp, false)
			}
			return fatal
		}
		if runCtx.Err() != nil {
			return nil
		}
		from = next.Number + 1
		tailCursor = next
	}
}

// drive streams candidates starting at `from` until the detector emits a
// Reorg directive (at which point it returns the new restart point) or a
// fatal error/cancellation ends the stream.
func (idx *Indexer) drive(
	ctx context.Context,
	from uint64,
	cursor reorg.BlockRef,
	detector *reorg.Detector,
	proc *processor.Processor,
	disp *dispatch.Dispatcher,
) (reorg.BlockRef, error) {
	// Stream runs until its context is cancelled, with no notion of the
	// reorg that ends this cycle — scope it to the cycle itself so the
	// live subscription from a prior cycle doesn't keep running (and
	// holding a WS connection open) after drive returns on a Reorg
	// directive and the caller starts a fresh Source at the fork point.
	cycleCtx, cancelCycle := context.WithCancel(ctx)
	defer cancelCycle()

	source := chainsource.New(idx.provider, chainsource.Config{HistoricalConcurrency: idx.opts.HistoricalConcurrency},
		func(attempt int) {
			idx.metrics.IncWSReconnects()
			idx.log.Warnw("websocket reconnecting", "attempt", attempt)
		})

	blocks, errCh := source.Stream(cycleCtx, from)

	for {
		select {
		case <-ctx.Done():
			return cursor, nil

		case candidate, ok := <-blocks:
			if !ok {
				if err := <-errCh; err != nil {
					return cursor, fmt.Errorf("chain source stream ended: %w", err)
				}
				return cursor, nil
			}
			idx.health.markRPC()
			idx.health.markWS()

			ref := reorg.BlockRef{
				Number:     candidate.Header.Number,
				Hash:       candidate.Header.Hash,
				ParentHash: candidate.Header.ParentHash,
			}

			directive, err := detector.Decide(ctx, ref, cursor)
			if err != nil {
				return cursor, fmt.Errorf("reorg detection failed: %w", err)
			}

			switch directive.Kind {
			case reorg.Accept:
				newCursor, err := idx.applyAccept(ctx, candidate, proc, disp)
				if err != nil {
					return cursor, err
				}
				cursor = newCursor

			case reorg.Reorg:
				idx.metrics.IncReorgsDetected()
				newCursor, err := idx.applyReorg(ctx, directive.FromBlock, detector, proc, disp)
				if err != nil {
					return cursor, err
				}
				return newCursor, nil
			}
		}
	}
}

// applyAccept commits one accepted block with bounded retry, spec §4.E
// step 4, then dispatches its handlers.
func (idx *Indexer) applyAccept(
	ctx context.Context,
	candidate chainsource.BlockCandidate,
	proc *processor.Processor,
	disp *dispatch.Dispatcher,
) (reorg.BlockRef, error) {
	var result processor.Result

	err := retry.Do(ctx, idx.opts.StorageRetry, isTransientStorage, func(attempt int, _ error) {
		idx.metrics.IncRPCRetries()
		idx.log.Warnw("retrying block commit", "block", candidate.Header.Number, "attempt", attempt)
	}, func() error {
		r, applyErr := proc.Apply(ctx, candidate)
		if applyErr != nil {
			return applyErr
		}
		result = r
		return nil
	})
	if err != nil {
		return reorg.BlockRef{}, fmt.Errorf("block %d commit exhausted retries, halting in safe state: %w",
			candidate.Header.Number, err)
	}

	idx.health.markDB()
	idx.metrics.SetCursorBlock(result.Block.Number)
	idx.metrics.IncBlocksProcessed()
	decodedCount := 0
	for _, e := range result.Events {
		if e.Decoded != nil {
			decodedCount++
		}
	}
	idx.metrics.IncEventsDecoded(decodedCount)

	if len(result.Events) > 0 {
		disp.DispatchEvents(ctx, result.Events)
		idx.metrics.IncHandlerInvocations()
	}

	return reorg.BlockRef{
		Number:     result.Block.Number,
		Hash:       result.Block.Hash,
		ParentHash: result.Block.ParentHash,
	}, nil
}

// applyReorg rolls back to fromBlock, resets the cursor and the detector's
// tail, and invokes the reorg handler once, spec §4.E's Reorg-directive
// steps and §9's Open Question 1 resolution.
func (idx *Indexer) applyReorg(
	ctx context.Context,
	fromBlock uint64,
	detector *reorg.Detector,
	proc *processor.Processor,
	disp *dispatch.Dispatcher,
) (reorg.BlockRef, error) {
	header, err := idx.provider.BlockHeaderByNumber(ctx, fromBlock-1)
	if err != nil {
		return reorg.BlockRef{}, fmt.Errorf("fetch parent header for rollback to %d: %w", fromBlock-1, err)
	}

	newCursor := store.Cursor{BlockNumber: fromBlock - 1, BlockHash: header.Hash}
	if err := proc.Rollback(ctx, fromBlock, newCursor); err != nil {
		return reorg.BlockRef{}, fmt.Errorf("rollback from block %d: %w", fromBlock, err)
	}

	detector.Tail().TruncateTo(fromBlock)
	idx.metrics.SetCursorBlock(newCursor.BlockNumber)

	disp.DispatchReorg(ctx, fromBlock)

	return reorg.BlockRef{Number: newCursor.BlockNumber, Hash: newCursor.BlockHash, ParentHash: header.ParentHash}, nil
}

// deriveCursor reads the persisted cursor, falling back to
// StartingBlockNumber (or the live head) minus one, spec §4.G step 2.
func (idx *Indexer) deriveCursor(ctx context.Context) (store.Cursor, error) {
	cursor, found, err := idx.st.GetCursor(ctx)
	if err != nil {
		return store.Cursor{}, err
	}
	if found {
		return cursor, nil
	}

	start := idx.opts.StartingBlockNumber
	if idx.opts.UseLatestHead {
		head, err := idx.provider.BlockNumber(ctx)
		if err != nil {
			return store.Cursor{}, fmt.Errorf("fetch live head for starting cursor: %w", err)
		}
		start = head
	}
	if start == 0 {
		return store.Cursor{BlockNumber: 0}, nil
	}

	header, err := idx.provider.BlockHeaderByNumber(ctx, start-1)
	if err != nil {
		return store.Cursor{}, fmt.Errorf("fetch header for synthetic starting cursor %d: %w", start-1, err)
	}
	return store.Cursor{BlockNumber: header.Number, BlockHash: header.Hash}, nil
}

func (idx *Indexer) reorgHandlerSnapshot() abi.ReorgHandler {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.reorgHandler
}

func isTransientStorage(err error) bool {
	var transient *store.TransientStorageError
	return errors.As(err, &transient)
}

// headerAdapter narrows chainsource.Provider down to reorg.HeaderProvider,
// keeping pkg/reorg decoupled from pkg/chainsource per the capability-set
// pattern used throughout this codebase.
type headerAdapter struct {
	provider chainsource.Provider
}

func (a headerAdapter) BlockHeaderByNumber(ctx context.Context, number uint64) (reorg.BlockRef, error) {
	h, err := a.provider.BlockHeaderByNumber(ctx, number)
	if err != nil {
		return reorg.BlockRef{}, err
	}
	return reorg.BlockRef{Number: h.Number, Hash: h.Hash, ParentHash: h.ParentHash}, nil
}
