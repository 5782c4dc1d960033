package chainsource

import (
	"context"
	"fmt"
	"time"

	"github.com/stark-indexer/strkindexer/internal/retry"
	"github.com/stark-indexer/strkindexer/pkg/errs"
)

// reconnectConfig is spec §4.C's literal reconnection policy: initial
// 500ms, cap 30s, jitter ±20%, indefinite retries.
var reconnectConfig = retry.Config{
	InitialBackoff:    500 * time.Millisecond, //nolint:mnd
	MaxBackoff:        30 * time.Second,       //nolint:mnd
	BackoffMultiplier: 2.0,
	JitterFraction:    0.2, //nolint:mnd
}

// liveReader is the single long-lived reader half of the Chain Source
// (spec §5: "the live subscription is a single long-lived reader").
type liveReader struct {
	provider Provider
	onRetry  func(attempt int, err error)
}

// run streams live heads starting just after `from` (the last block already
// emitted by the historical half or a previous live cycle) onto out. It
// never trusts the WS payload as authoritative — every head triggers an RPC
// fetch for receipts, per spec §9 open question 3 — and on every
// (re)connect it closes the gap between `from` and the current chain head
// before re-engaging the subscription, spec §4.C.
func (l *liveReader) run(ctx context.Context, from uint64, out chan<- BlockCandidate) error {
	last := from

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		head, err := l.provider.BlockNumber(ctx)
		if err != nil {
			attempt++
			if !l.wait(ctx, attempt) {
				return ctx.Err()
			}
			continue
		}

		if err := l.closeGap(ctx, last, head, out); err != nil {
			return err
		}
		if head > last {
			last = head
		}

		sub, err := l.provider.SubscribeNewHeads(ctx)
		if err != nil {
			attempt++
			if !l.wait(ctx, attempt) {
				return ctx.Err()
			}
			continue
		}

		reconnect := l.drain(ctx, sub, &last, out)
		sub.Unsubscribe()
		if reconnect == nil {
			return nil // context cancelled, clean shutdown
		}
		attempt++
		if !l.wait(ctx, attempt) {
			return ctx.Err()
		}
	}
}

// drain reads heads until the subscription errors or ctx is cancelled. It
// returns the triggering error (non-nil) to signal "please reconnect", or
// nil when ctx was cancelled (clean shutdown, caller should not reconnect).
func (l *liveReader) drain(ctx context.Context, sub HeadSubscription, last *uint64, out chan<- BlockCandidate) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-sub.Err():
			return errs.NewTransientNetworkError("ws_subscription", err)

		case head, ok := <-sub.Heads():
			if !ok {
				return errs.NewTransientNetworkError("ws_subscription", fmt.Errorf("heads channel closed"))
			}
			if head.Number <= *last {
				continue // duplicate/stale notification, ignore
			}
			if err := l.closeGap(ctx, *last, head.Number, out); err != nil {
				return err
			}
			*last = head.Number
		}
	}
}

// closeGap fetches every block in (from, to] via RPC and emits it in order —
// the gap-close step run both at initial handoff and after every reconnect.
func (l *liveReader) closeGap(ctx context.Context, from, to uint64, out chan<- BlockCandidate) error {
	for n := from + 1; n <= to; n++ {
		candidate, err := l.provider.BlockWithReceipts(ctx, n)
		if err != nil {
			return fmt.Errorf("failed to fetch block %d during gap close: %w", n, err)
		}
		select {
		case out <- candidate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (l *liveReader) wait(ctx context.Context, attempt int) bool {
	if l.onRetry != nil {
		l.onRetry(attempt, nil)
	}
	delay := retry.Backoff(attempt+1, reconnectConfig)
	if delay <= 0 {
		return true
	}
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}
