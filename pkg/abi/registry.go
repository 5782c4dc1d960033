package abi

import (
	"fmt"

	"github.com/stark-indexer/strkindexer/pkg/starknet"
)

// Subscription is the Go realization of spec §3's Subscription tuple:
// (contract_address, event_name, abi_ref, handler_ref).
type Subscription struct {
	ContractAddress starknet.Felt
	Descriptor      EventDescriptor
	Handler         Handler
}

type key struct {
	selector starknet.Felt
	contract starknet.Felt
}

// Registry holds the immutable set of subscriptions indexed by event
// selector, disambiguated by contract address, per spec §3/§4.B. It is built
// once from the subscriptions registered before start() and never mutated
// afterward — the Orchestrator enforces the immutability contract
// (ConfigurationError on late registration), the Registry itself is just the
// frozen lookup table.
type Registry struct {
	subs map[key]Subscription
}

// NewRegistry builds a Registry from the subscriptions accumulated during
// pre-start registration.
func NewRegistry(subs []Subscription) *Registry {
	r := &Registry{subs: make(map[key]Subscription, len(subs))}
	for _, s := range subs {
		r.subs[key{selector: s.Descriptor.Selector(), contract: s.ContractAddress}] = s
	}
	return r
}

// Lookup returns the subscription matching (contractAddress, selector), the
// event's first key per spec §4.E step 1 filter.
func (r *Registry) Lookup(contractAddress, selector starknet.Felt) (Subscription, bool) {
	s, ok := r.subs[key{selector: selector, contract: contractAddress}]
	return s, ok
}

// Len reports the number of registered subscriptions, mostly useful for
// logging at start().
func (r *Registry) Len() int {
	return len(r.subs)
}

// Decode walks descriptor's fields in declaration order, consuming indexed
// fields from keys (skipping keys[0], the selector) and the rest from data.
// It never panics on short input — length mismatches become a DecodeError,
// per spec §4.B: "Unknown fields or length mismatches produce
// AbiDecodeError; this never kills the pipeline."
func Decode(descriptor EventDescriptor, keys, data []starknet.Felt) (map[string]interface{}, error) {
	if len(keys) == 0 {
		return nil, NewDecodeError(descriptor.Name, "event has no selector key")
	}

	// keys[0] is the selector itself; indexed fields consume keys[1:].
	keyCursor := 1
	dataCursor := 0

	decoded := make(map[string]interface{}, len(descriptor.Fields))

	for _, field := range descriptor.Fields {
		var source *[]starknet.Felt
		var cursor *int
		if field.Indexed {
			source, cursor = &keys, &keyCursor
		} else {
			source, cursor = &data, &dataCursor
		}

		value, consumed, err := decodeField(field, *source, *cursor)
		if err != nil {
			return nil, err
		}
		decoded[field.Name] = value
		*cursor += consumed
	}

	if keyCursor != len(keys) {
		return nil, NewDecodeError(descriptor.Name,
			fmt.Sprintf("unconsumed keys: used %d of %d", keyCursor, len(keys)))
	}
	if dataCursor != len(data) {
		return nil, NewDecodeError(descriptor.Name,
			fmt.Sprintf("unconsumed data: used %d of %d", dataCursor, len(data)))
	}

	return decoded, nil
}

func decodeField(field Field, source []starknet.Felt, cursor int) (interface{}, int, error) {
	switch field.Kind {
	case KindFelt:
		if cursor >= len(source) {
			return nil, 0, NewDecodeError(field.Name, "missing felt field")
		}
		return source[cursor], 1, nil

	case KindBool:
		if cursor >= len(source) {
			return nil, 0, NewDecodeError(field.Name, "missing bool field")
		}
		return !source[cursor].IsZero(), 1, nil

	case KindU256:
		const limbs = 2
		if cursor+limbs > len(source) {
			return nil, 0, NewDecodeError(field.Name, "missing u256 limbs")
		}
		return starknet.Uint256ToBigInt(source[cursor], source[cursor+1]), limbs, nil

	default:
		return nil, 0, NewDecodeError(field.Name, "unknown field kind")
	}
}
