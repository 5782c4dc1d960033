package chainsource

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// fetchHistorical pages [from, to] with a worker pool of size w, generalizing
// the teacher's internal/fetcher chunked-paging loop into true fan-out/fan-in
// (golang.org/x/sync/errgroup, the teacher's own concurrency primitive,
// reused here rather than for the Handler Dispatcher — see pkg/dispatch).
// Results are resequenced into strictly ascending order before emission,
// spec §4.C/§5, backpressured by a bounded channel of depth 2*w.
func fetchHistorical(ctx context.Context, provider Provider, from, to uint64, w int) (<-chan BlockCandidate, <-chan error) {
	out := make(chan BlockCandidate, 2*w) //nolint:mnd
	errCh := make(chan error, 1)

	if from > to {
		close(out)
		close(errCh)
		return out, errCh
	}

	go func() {
		defer close(out)
		defer close(errCh)

		unordered := make(chan BlockCandidate, 2*w) //nolint:mnd

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w)

		for n := from; n <= to; n++ {
			number := n
			g.Go(func() error {
				candidate, err := provider.BlockWithReceipts(gctx, number)
				if err != nil {
					return fmt.Errorf("failed to fetch block %d: %w", number, err)
				}
				select {
				case unordered <- candidate:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}

		fetchDone := make(chan error, 1)
		go func() {
			fetchDone <- g.Wait()
			close(unordered)
		}()

		resequence(ctx, from, to, unordered, out)

		if err := <-fetchDone; err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// resequence buffers out-of-order arrivals until the next expected block
// number is available, then emits contiguously.
func resequence(ctx context.Context, from, to uint64, in <-chan BlockCandidate, out chan<- BlockCandidate) {
	pending := make(map[uint64]BlockCandidate)
	next := from

	for next <= to {
		if candidate, ok := pending[next]; ok {
			delete(pending, next)
			select {
			case out <- candidate:
				next++
				continue
			case <-ctx.Done():
				return
			}
		}

		select {
		case candidate, ok := <-in:
			if !ok {
				return
			}
			pending[candidate.Header.Number] = candidate
		case <-ctx.Done():
			return
		}
	}
}
