package chainsource

import "context"

// Config tunes the Chain Source, spec §6's `historicalConcurrency`.
type Config struct {
	// HistoricalConcurrency is W, the historical worker pool size.
	HistoricalConcurrency int
}

// ApplyDefaults mirrors the teacher's config-default convention.
func (c *Config) ApplyDefaults() {
	if c.HistoricalConcurrency == 0 {
		c.HistoricalConcurrency = 8
	}
}

// OnReconnect is called every time the live half retries a dropped WS
// connection, the hook the Orchestrator uses to bump
// strkindexer_ws_reconnects_total.
type OnReconnect func(attempt int)

// Source composes the historical pager and the live subscriber into one
// ordered stream, joined at the handoff point, spec §4.C.
type Source struct {
	provider    Provider
	cfg         Config
	onReconnect OnReconnect
}

// New builds a Chain Source over provider.
func New(provider Provider, cfg Config, onReconnect OnReconnect) *Source {
	cfg.ApplyDefaults()
	return &Source{provider: provider, cfg: cfg, onReconnect: onReconnect}
}

// Stream starts at `from` and emits BlockCandidates indefinitely until ctx
// is cancelled or a fatal error occurs. The caller (Orchestrator) re-drives
// the source starting at fork_point after a Reorg directive — Stream itself
// has no notion of reorgs, per spec §4.D's "only then does the detector
// resume accepting."
func (s *Source) Stream(ctx context.Context, from uint64) (<-chan BlockCandidate, <-chan error) {
	out := make(chan BlockCandidate, 2*s.cfg.HistoricalConcurrency) //nolint:mnd
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		headAtStart, err := s.provider.BlockNumber(ctx)
		if err != nil {
			errCh <- err
			return
		}

		last := from - 1
		to := headAtStart - 1 // handoff point, spec §4.C

		if to >= from && headAtStart > 0 {
			hist, histErr := fetchHistorical(ctx, s.provider, from, to, s.cfg.HistoricalConcurrency)
			for candidate := range hist {
				select {
				case out <- candidate:
					last = candidate.Header.Number
				case <-ctx.Done():
					return
				}
			}
			if err := <-histErr; err != nil {
				errCh <- err
				return
			}
			last = to
		}

		live := &liveReader{
			provider: s.provider,
			onRetry: func(attempt int, _ error) {
				if s.onReconnect != nil {
					s.onReconnect(attempt)
				}
			},
		}
		if err := live.run(ctx, last, out); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}
