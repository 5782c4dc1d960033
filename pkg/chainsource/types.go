// Package chainsource implements the Chain Source (spec §4.C): one ordered,
// potentially infinite stream of candidate blocks composed from a
// concurrent historical pager and a live head subscription, joined at a
// handoff point.
package chainsource

import "github.com/stark-indexer/strkindexer/pkg/starknet"

// Header is the chain primitive carried by both the historical pager and the
// live subscription.
type Header struct {
	Number     uint64
	Hash       starknet.Felt
	ParentHash starknet.Felt
	Timestamp  uint64
}

// RawEvent is a contract-emitted event exactly as the RPC returned it,
// before the ABI Registry filters/decodes it.
type RawEvent struct {
	ContractAddress starknet.Felt
	TxHash          starknet.Felt
	EventIndex      int
	Keys            []starknet.Felt
	Data            []starknet.Felt
}

// BlockCandidate is spec §4.C's `{header, receipts}` pair, flattened to the
// events the receipts carry (the indexer never needs raw receipt framing
// beyond the events it holds).
type BlockCandidate struct {
	Header Header
	Events []RawEvent
}
