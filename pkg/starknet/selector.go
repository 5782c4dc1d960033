package starknet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// mask250 clears the top 6 bits of a Keccak256 digest, the masking Starknet
// applies so a 256-bit hash fits the 252-bit felt field. Equivalent to
// `value mod 2**250`.
var mask250 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1)) //nolint:mnd

// Selector computes the Starknet event/function selector for name:
// starknet_keccak(name) = mask250(keccak256(name)).
//
// The teacher corpus has no Starknet hashing of its own; this reuses the
// Keccak256 primitive it already imports via go-ethereum/crypto rather than
// pulling in a second hash library.
func Selector(name string) Felt {
	digest := crypto.Keccak256([]byte(name))
	masked := new(big.Int).And(new(big.Int).SetBytes(digest), mask250)
	return BytesToFelt(masked.Bytes())
}
