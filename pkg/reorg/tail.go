// Package reorg implements the Reorg Detector (spec §4.D): an in-memory
// CanonicalTail plus RPC ancestor walk-back, replacing the teacher's
// DB-backed block_hashes table (internal/reorg/reorg_detector.go) with the
// in-memory sliding window spec §3's CanonicalTail invariant calls for. The
// walk-back-against-RPC technique itself — fetch ancestor headers, compare
// hashes, detect discontinuity — is carried over directly from
// VerifyAndRecordBlocks.
package reorg

import "github.com/stark-indexer/strkindexer/pkg/starknet"

// BlockRef is the minimal header identity the detector tracks: just enough
// to validate parent-hash linkage, never the full block payload.
type BlockRef struct {
	Number     uint64
	Hash       starknet.Felt
	ParentHash starknet.Felt
}

// CanonicalTail is the in-memory ordered sequence of the most recent K
// committed headers, spec §3. Evicting from the front keeps it bounded; the
// Detector is its sole owner, so no locking is needed (spec §5: "owned
// exclusively by the Orchestrator's main loop").
type CanonicalTail struct {
	k       int
	entries []BlockRef
}

// NewCanonicalTail builds an empty tail with window size k (default 64).
func NewCanonicalTail(k int) *CanonicalTail {
	if k <= 0 {
		k = 64 //nolint:mnd
	}
	return &CanonicalTail{k: k}
}

// Len reports the current number of tracked headers.
func (t *CanonicalTail) Len() int { return len(t.entries) }

// Last returns the most recently appended header, or false if empty.
func (t *CanonicalTail) Last() (BlockRef, bool) {
	if len(t.entries) == 0 {
		return BlockRef{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// At returns the i-th entry from the back (0 = last, 1 = second-to-last...).
func (t *CanonicalTail) At(fromBack int) (BlockRef, bool) {
	idx := len(t.entries) - 1 - fromBack
	if idx < 0 || idx >= len(t.entries) {
		return BlockRef{}, false
	}
	return t.entries[idx], true
}

// Append adds a new header, evicting from the front if the window would
// exceed K, spec §3: "evict from front if |tail| > K."
func (t *CanonicalTail) Append(ref BlockRef) {
	t.entries = append(t.entries, ref)
	if len(t.entries) > t.k {
		t.entries = t.entries[len(t.entries)-t.k:]
	}
}

// TruncateTo drops every entry with Number >= blockNumber, the in-memory
// half of a rollback (the on-disk half is Txn.DeleteFrom).
func (t *CanonicalTail) TruncateTo(blockNumber uint64) {
	kept := t.entries[:0]
	for _, e := range t.entries {
		if e.Number < blockNumber {
			kept = append(kept, e)
		}
	}
	t.entries = kept
}

// FindByHash walks the tail back-to-front looking for a header with the
// given hash, used during fork-point resolution.
func (t *CanonicalTail) FindByHash(hash starknet.Felt) (BlockRef, bool) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].Hash == hash {
			return t.entries[i], true
		}
	}
	return BlockRef{}, false
}
