package abi

import (
	"testing"

	"github.com/stark-indexer/strkindexer/pkg/starknet"
)

var transferDescriptor = EventDescriptor{
	Name: "Transfer",
	Fields: []Field{
		{Name: "from", Kind: KindFelt, Indexed: true},
		{Name: "to", Kind: KindFelt, Indexed: true},
		{Name: "value", Kind: KindU256, Indexed: false},
	},
}

func TestRegistry_LookupByContractAndSelector(t *testing.T) {
	contract := starknet.HexToFelt("0xc0ffee")
	reg := NewRegistry([]Subscription{
		{ContractAddress: contract, Descriptor: transferDescriptor, Handler: func(HandlerContext, DecodedEvent) error { return nil }},
	})

	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}

	if _, ok := reg.Lookup(contract, transferDescriptor.Selector()); !ok {
		t.Fatal("expected lookup to find the registered subscription")
	}

	other := starknet.HexToFelt("0xdead")
	if _, ok := reg.Lookup(other, transferDescriptor.Selector()); ok {
		t.Fatal("lookup matched a different contract address")
	}
}

func TestDecode_Transfer(t *testing.T) {
	from := starknet.HexToFelt("0x1")
	to := starknet.HexToFelt("0x2")
	valueLow := starknet.HexToFelt("0x64")
	valueHigh := starknet.HexToFelt("0x0")

	keys := []starknet.Felt{transferDescriptor.Selector(), from, to}
	data := []starknet.Felt{valueLow, valueHigh}

	decoded, err := Decode(transferDescriptor, keys, data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	if decoded["from"].(starknet.Felt) != from {
		t.Errorf("from = %v, want %v", decoded["from"], from)
	}
	if decoded["to"].(starknet.Felt) != to {
		t.Errorf("to = %v, want %v", decoded["to"], to)
	}
	if decoded["value"].(interface{ String() string }).String() != "100" {
		t.Errorf("value = %v, want 100", decoded["value"])
	}
}

func TestDecode_UnconsumedKeysIsError(t *testing.T) {
	keys := []starknet.Felt{transferDescriptor.Selector(), starknet.HexToFelt("0x1"), starknet.HexToFelt("0x2"), starknet.HexToFelt("0x3")}
	data := []starknet.Felt{starknet.HexToFelt("0x64"), starknet.HexToFelt("0x0")}

	if _, err := Decode(transferDescriptor, keys, data); err == nil {
		t.Fatal("expected an error for an extra unconsumed key")
	}
}

func TestDecode_MissingDataIsError(t *testing.T) {
	keys := []starknet.Felt{transferDescriptor.Selector(), starknet.HexToFelt("0x1"), starknet.HexToFelt("0x2")}
	data := []starknet.Felt{starknet.HexToFelt("0x64")} // missing the high u256 limb

	if _, err := Decode(transferDescriptor, keys, data); err == nil {
		t.Fatal("expected an error for a truncated u256 field")
	}
}

func TestDecode_NoSelectorKeyIsError(t *testing.T) {
	if _, err := Decode(transferDescriptor, nil, nil); err == nil {
		t.Fatal("expected an error when the event carries no selector key")
	}
}

func TestDecode_BoolField(t *testing.T) {
	desc := EventDescriptor{Name: "Paused", Fields: []Field{{Name: "paused", Kind: KindBool, Indexed: false}}}
	keys := []starknet.Felt{desc.Selector()}

	decoded, err := Decode(desc, keys, []starknet.Felt{starknet.HexToFelt("0x1")})
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if decoded["paused"] != true {
		t.Errorf("paused = %v, want true", decoded["paused"])
	}

	decoded, err = Decode(desc, keys, []starknet.Felt{starknet.HexToFelt("0x0")})
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if decoded["paused"] != false {
		t.Errorf("paused = %v, want false", decoded["paused"])
	}
}
