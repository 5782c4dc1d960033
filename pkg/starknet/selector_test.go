package starknet

import "testing"

func TestSelector_Deterministic(t *testing.T) {
	a := Selector("Transfer")
	b := Selector("Transfer")
	if a != b {
		t.Fatalf("Selector(%q) is not deterministic: %s != %s", "Transfer", a.Hex(), b.Hex())
	}
}

func TestSelector_DiffersByName(t *testing.T) {
	if Selector("Transfer") == Selector("Approval") {
		t.Fatal("distinct event names hashed to the same selector")
	}
}

func TestSelector_FitsFeltField(t *testing.T) {
	// starknet_keccak masks the top 6 bits of a 256-bit digest, so the
	// result must fit in 250 bits.
	limit := Selector("Transfer").BigInt().BitLen()
	if limit > 250 {
		t.Fatalf("selector bit length %d exceeds the 250-bit field", limit)
	}
}
