package reorg

import (
	"context"
	"errors"
	"testing"

	"github.com/stark-indexer/strkindexer/internal/logger"
	"github.com/stark-indexer/strkindexer/pkg/starknet"
)

// fakeHeaderProvider serves ancestor headers from an in-memory chain, used
// by the walk-back path in resolveFork.
type fakeHeaderProvider struct {
	headers map[uint64]BlockRef
}

func (f fakeHeaderProvider) BlockHeaderByNumber(_ context.Context, number uint64) (BlockRef, error) {
	h, ok := f.headers[number]
	if !ok {
		return BlockRef{}, errors.New("no such header")
	}
	return h, nil
}

func TestDetector_AcceptAgainstCursor(t *testing.T) {
	d := NewDetector(8, fakeHeaderProvider{}, logger.NewNopLogger())
	cursor := ref(10, "0xa")
	candidate := BlockRef{Number: 11, Hash: starknet.HexToFelt("0xb"), ParentHash: starknet.HexToFelt("0xa")}

	directive, err := d.Decide(context.Background(), candidate, cursor)
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if directive.Kind != Accept {
		t.Fatalf("directive.Kind = %v, want Accept", directive.Kind)
	}
	if d.Tail().Len() != 1 {
		t.Fatalf("tail should now hold the accepted block, Len() = %d", d.Tail().Len())
	}
}

func TestDetector_ReorgAgainstCursor(t *testing.T) {
	d := NewDetector(8, fakeHeaderProvider{}, logger.NewNopLogger())
	cursor := ref(10, "0xa")
	candidate := BlockRef{Number: 11, Hash: starknet.HexToFelt("0xb"), ParentHash: starknet.HexToFelt("0xnotA")}

	directive, err := d.Decide(context.Background(), candidate, cursor)
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if directive.Kind != Reorg || directive.FromBlock != cursor.Number {
		t.Fatalf("directive = %+v, want Reorg from %d", directive, cursor.Number)
	}
}

func TestDetector_AcceptAgainstTail(t *testing.T) {
	d := NewDetector(8, fakeHeaderProvider{}, logger.NewNopLogger())
	d.Tail().Append(ref(10, "0xa"))

	candidate := BlockRef{Number: 11, Hash: starknet.HexToFelt("0xb"), ParentHash: starknet.HexToFelt("0xa")}
	directive, err := d.Decide(context.Background(), candidate, BlockRef{})
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if directive.Kind != Accept {
		t.Fatalf("directive.Kind = %v, want Accept", directive.Kind)
	}
	if d.Tail().Len() != 2 {
		t.Fatalf("tail should now hold 2 blocks, got %d", d.Tail().Len())
	}
}

// TestDetector_ShallowReorgFindsForkPoint builds a tail of 2, then feeds a
// candidate whose parent hash is neither the tail's head nor any tail entry,
// forcing resolveFork to walk back via the fake provider until it lands on a
// tail entry.
func TestDetector_ShallowReorgFindsForkPoint(t *testing.T) {
	provider := fakeHeaderProvider{headers: map[uint64]BlockRef{
		// the reorged chain's block 12 (candidate.Number-1) has a parent
		// hash pointing to block 10, which IS still in our tail: fork point.
		12: {Number: 12, Hash: starknet.HexToFelt("0xforked12"), ParentHash: starknet.HexToFelt("0xa10")},
	}}

	d := NewDetector(8, provider, logger.NewNopLogger())
	d.Tail().Append(ref(10, "0xa10"))
	d.Tail().Append(ref(11, "0xa11"))

	candidate := BlockRef{Number: 13, Hash: starknet.HexToFelt("0xforked13"), ParentHash: starknet.HexToFelt("0xforked12")}

	directive, err := d.Decide(context.Background(), candidate, BlockRef{})
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if directive.Kind != Reorg {
		t.Fatalf("directive.Kind = %v, want Reorg", directive.Kind)
	}
	if directive.FromBlock != 11 {
		t.Fatalf("FromBlock = %d, want 11 (first block no longer canonical)", directive.FromBlock)
	}
}

func TestDetector_DeepReorgExceedsWindow(t *testing.T) {
	// A tiny window and a provider that never matches any tail entry:
	// resolveFork must exhaust the window and report DeepReorgError.
	provider := fakeHeaderProvider{headers: map[uint64]BlockRef{
		2: {Number: 2, Hash: starknet.HexToFelt("0xf2"), ParentHash: starknet.HexToFelt("0xf1")},
		1: {Number: 1, Hash: starknet.HexToFelt("0xf1"), ParentHash: starknet.HexToFelt("0xf0")},
	}}

	d := NewDetector(2, provider, logger.NewNopLogger())
	d.Tail().Append(ref(5, "0xa5")) // unrelated to the forked chain below

	candidate := BlockRef{Number: 3, Hash: starknet.HexToFelt("0xf3"), ParentHash: starknet.HexToFelt("0xf2")}

	_, err := d.Decide(context.Background(), candidate, BlockRef{})
	var deepErr *DeepReorgError
	if !errors.As(err, &deepErr) {
		t.Fatalf("expected a DeepReorgError, got %v", err)
	}
}
