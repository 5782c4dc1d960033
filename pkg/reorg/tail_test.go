package reorg

import (
	"testing"

	"github.com/stark-indexer/strkindexer/pkg/starknet"
)

func ref(n uint64, hash string) BlockRef {
	return BlockRef{Number: n, Hash: starknet.HexToFelt(hash)}
}

func TestCanonicalTail_AppendAndEvict(t *testing.T) {
	tail := NewCanonicalTail(2)
	tail.Append(ref(1, "0x1"))
	tail.Append(ref(2, "0x2"))
	tail.Append(ref(3, "0x3"))

	if tail.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (window should evict the oldest entry)", tail.Len())
	}

	last, ok := tail.Last()
	if !ok || last.Number != 3 {
		t.Fatalf("Last() = %+v, want block 3", last)
	}

	if _, ok := tail.FindByHash(starknet.HexToFelt("0x1")); ok {
		t.Fatal("evicted entry should no longer be findable")
	}
}

func TestCanonicalTail_DefaultWindow(t *testing.T) {
	tail := NewCanonicalTail(0)
	if tail.k != 64 {
		t.Fatalf("NewCanonicalTail(0).k = %d, want default 64", tail.k)
	}
}

func TestCanonicalTail_At(t *testing.T) {
	tail := NewCanonicalTail(8)
	tail.Append(ref(1, "0x1"))
	tail.Append(ref(2, "0x2"))

	if got, ok := tail.At(0); !ok || got.Number != 2 {
		t.Fatalf("At(0) = %+v, want block 2", got)
	}
	if got, ok := tail.At(1); !ok || got.Number != 1 {
		t.Fatalf("At(1) = %+v, want block 1", got)
	}
	if _, ok := tail.At(5); ok {
		t.Fatal("At() out of range should report false")
	}
}

func TestCanonicalTail_TruncateTo(t *testing.T) {
	tail := NewCanonicalTail(8)
	tail.Append(ref(1, "0x1"))
	tail.Append(ref(2, "0x2"))
	tail.Append(ref(3, "0x3"))

	tail.TruncateTo(2)

	if tail.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after truncating from block 2", tail.Len())
	}
	last, _ := tail.Last()
	if last.Number != 1 {
		t.Fatalf("Last() = %+v, want block 1", last)
	}
}

func TestCanonicalTail_FindByHash(t *testing.T) {
	tail := NewCanonicalTail(8)
	tail.Append(ref(1, "0x1"))
	tail.Append(ref(2, "0x2"))

	got, ok := tail.FindByHash(starknet.HexToFelt("0x1"))
	if !ok || got.Number != 1 {
		t.Fatalf("FindByHash(0x1) = %+v, %v", got, ok)
	}

	if _, ok := tail.FindByHash(starknet.HexToFelt("0xdead")); ok {
		t.Fatal("FindByHash matched a hash never appended")
	}
}
