// Package starknet holds the chain-primitive types shared by every layer of
// the indexer: the 32-byte felt representation, selector hashing, and the
// u256 limb-pair decoding used by ABI fields.
package starknet

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// FeltSize is the byte width of a Starknet field element as carried on the
// wire. Starknet felts are bounded by a 252-bit prime field, but the indexer
// stores and compares them as fixed 32-byte values, mirroring how go-ethereum
// represents hashes and addresses.
const FeltSize = 32

// Felt is a 32-byte Starknet field element: a block hash, transaction hash,
// contract address, or a single event key/data word.
type Felt [FeltSize]byte

// BytesToFelt right-aligns b into a Felt, truncating from the left if b is
// longer than FeltSize.
func BytesToFelt(b []byte) Felt {
	var f Felt
	if len(b) > FeltSize {
		b = b[len(b)-FeltSize:]
	}
	copy(f[FeltSize-len(b):], b)
	return f
}

// HexToFelt parses a 0x-prefixed (or bare) hex string into a Felt.
func HexToFelt(s string) Felt {
	return BytesToFelt(FromHex(s))
}

// FromHex decodes a 0x-prefixed or bare hex string to bytes, tolerating odd
// digit counts the way go-ethereum's hexutil does.
func FromHex(s string) []byte {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// Hex renders the felt as a 0x-prefixed hex string with no leading zero
// padding beyond a single digit, matching Starknet's canonical felt
// formatting.
func (f Felt) Hex() string {
	trimmed := strings.TrimLeft(hex.EncodeToString(f[:]), "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return "0x" + trimmed
}

func (f Felt) String() string {
	return f.Hex()
}

// Bytes returns the raw 32-byte backing array as a slice.
func (f Felt) Bytes() []byte {
	b := make([]byte, FeltSize)
	copy(b, f[:])
	return b
}

// IsZero reports whether the felt is the zero value.
func (f Felt) IsZero() bool {
	return f == Felt{}
}

// BigInt returns the felt's value as an unsigned big.Int.
func (f Felt) BigInt() *big.Int {
	return new(big.Int).SetBytes(f[:])
}

// Uint64 returns the low 8 bytes of the felt interpreted as a big-endian
// uint64, for fields known to fit (block numbers, counts, timestamps).
func (f Felt) Uint64() uint64 {
	var v uint64
	for _, b := range f[FeltSize-8:] {
		v = v<<8 | uint64(b)
	}
	return v
}

// MarshalText implements encoding.TextMarshaler so Felt round-trips through
// JSON/YAML config and meddler the same way go-ethereum's common.Hash does.
func (f Felt) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Felt) UnmarshalText(text []byte) error {
	*f = HexToFelt(string(text))
	return nil
}

// Uint256ToBigInt combines two consecutive felts (low limb first, as emitted
// by Starknet's u256 ABI encoding) into a single big.Int.
func Uint256ToBigInt(low, high Felt) *big.Int {
	result := new(big.Int).Lsh(high.BigInt(), 128) //nolint:mnd
	return result.Or(result, low.BigInt())
}

// ErrInvalidFelt names a malformed felt hex string. No function in this
// package returns it: HexToFelt maps malformed hex to the zero felt.
var ErrInvalidFelt = fmt.Errorf("invalid felt hex string")
