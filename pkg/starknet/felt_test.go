package starknet

import (
	"math/big"
	"testing"
)

func TestHexToFelt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"zero", "0x0", "0x0"},
		{"no prefix", "1a2b", "0x1a2b"},
		{"odd digit count", "0xabc", "0xabc"},
		{"upper and lower prefix", "0X1", "0x1"},
		{"empty", "", "0x0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HexToFelt(tt.in).Hex()
			if got != tt.want {
				t.Errorf("HexToFelt(%q).Hex() = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFelt_RoundTrip(t *testing.T) {
	f := HexToFelt("0xdeadbeef")
	if f.Hex() != "0xdeadbeef" {
		t.Fatalf("round trip mismatch: got %s", f.Hex())
	}
	if HexToFelt(f.Hex()) != f {
		t.Fatalf("re-parsing hex did not reproduce the same felt")
	}
}

func TestFelt_IsZero(t *testing.T) {
	if !(Felt{}).IsZero() {
		t.Fatal("zero-value Felt should be IsZero")
	}
	if HexToFelt("0x1").IsZero() {
		t.Fatal("non-zero felt reported IsZero")
	}
}

func TestFelt_Uint64(t *testing.T) {
	f := HexToFelt("0x2a")
	if f.Uint64() != 42 {
		t.Fatalf("Uint64() = %d, want 42", f.Uint64())
	}
}

func TestFelt_BigInt(t *testing.T) {
	f := HexToFelt("0xff")
	if f.BigInt().Cmp(big.NewInt(255)) != 0 {
		t.Fatalf("BigInt() = %s, want 255", f.BigInt())
	}
}

func TestBytesToFelt_TruncatesFromLeft(t *testing.T) {
	oversized := make([]byte, FeltSize+4)
	oversized[len(oversized)-1] = 0x7 // last byte
	f := BytesToFelt(oversized)
	if f.Uint64() != 7 {
		t.Fatalf("expected truncation to keep the trailing bytes, got %s", f.Hex())
	}
}

func TestFelt_MarshalUnmarshalText(t *testing.T) {
	f := HexToFelt("0x123456")
	text, err := f.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error: %v", err)
	}

	var out Felt
	if err := out.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText() error: %v", err)
	}
	if out != f {
		t.Fatalf("UnmarshalText(MarshalText()) = %s, want %s", out.Hex(), f.Hex())
	}
}

func TestUint256ToBigInt(t *testing.T) {
	low := HexToFelt("0x1")
	high := HexToFelt("0x1")
	got := Uint256ToBigInt(low, high)

	want := new(big.Int).Lsh(big.NewInt(1), 128)
	want.Or(want, big.NewInt(1))

	if got.Cmp(want) != 0 {
		t.Fatalf("Uint256ToBigInt(1, 1) = %s, want %s", got, want)
	}
}
