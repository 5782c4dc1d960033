package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stark-indexer/strkindexer/internal/logger"
	"github.com/stark-indexer/strkindexer/pkg/abi"
	"github.com/stark-indexer/strkindexer/pkg/starknet"
)

var transferDescriptor = abi.EventDescriptor{
	Name:   "Transfer",
	Fields: []abi.Field{{Name: "from", Kind: abi.KindFelt, Indexed: true}},
}

func noopQuery(context.Context) (abi.QueryFunc, func(), error) {
	return func(string, ...interface{}) ([]map[string]interface{}, error) { return nil, nil }, func() {}, nil
}

func TestDispatcher_DeliversInEventIndexOrder(t *testing.T) {
	contract := starknet.HexToFelt("0xc0ffee")
	var order []int

	registry := abi.NewRegistry([]abi.Subscription{
		{ContractAddress: contract, Descriptor: transferDescriptor, Handler: func(_ abi.HandlerContext, e abi.DecodedEvent) error {
			order = append(order, e.EventIndex)
			return nil
		}},
	})

	d := New(registry, noopQuery, nil, nil, logger.NewNopLogger())

	decoded := map[string]interface{}{"from": starknet.HexToFelt("0x1")}
	events := []abi.DecodedEvent{
		{ContractAddress: contract, EventIndex: 2, Keys: []starknet.Felt{transferDescriptor.Selector()}, Decoded: decoded},
		{ContractAddress: contract, EventIndex: 0, Keys: []starknet.Felt{transferDescriptor.Selector()}, Decoded: decoded},
		{ContractAddress: contract, EventIndex: 1, Keys: []starknet.Felt{transferDescriptor.Selector()}, Decoded: decoded},
	}

	d.DispatchEvents(context.Background(), events)

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("handler invocation order = %v, want [0 1 2]", order)
	}
}

func TestDispatcher_UnmatchedEventIsSkipped(t *testing.T) {
	registry := abi.NewRegistry(nil)
	invoked := false
	_ = invoked

	d := New(registry, noopQuery, nil, nil, logger.NewNopLogger())

	// no subscription registered at all; DispatchEvents must not panic on a
	// lookup miss.
	d.DispatchEvents(context.Background(), []abi.DecodedEvent{
		{ContractAddress: starknet.HexToFelt("0x1"), EventIndex: 0, Keys: []starknet.Felt{starknet.HexToFelt("0xselector")},
			Decoded: map[string]interface{}{"from": starknet.HexToFelt("0x1")}},
	})
}

func TestDispatcher_HandlerErrorDoesNotStopRemaining(t *testing.T) {
	contract := starknet.HexToFelt("0xc0ffee")
	var invoked []int

	registry := abi.NewRegistry([]abi.Subscription{
		{ContractAddress: contract, Descriptor: transferDescriptor, Handler: func(_ abi.HandlerContext, e abi.DecodedEvent) error {
			invoked = append(invoked, e.EventIndex)
			if e.EventIndex == 0 {
				return errors.New("boom")
			}
			return nil
		}},
	})

	d := New(registry, noopQuery, nil, nil, logger.NewNopLogger())

	decoded := map[string]interface{}{"from": starknet.HexToFelt("0x1")}
	d.DispatchEvents(context.Background(), []abi.DecodedEvent{
		{ContractAddress: contract, EventIndex: 0, Keys: []starknet.Felt{transferDescriptor.Selector()}, Decoded: decoded},
		{ContractAddress: contract, EventIndex: 1, Keys: []starknet.Felt{transferDescriptor.Selector()}, Decoded: decoded},
	})

	if len(invoked) != 2 {
		t.Fatalf("expected both handlers to run despite the first erroring, got %v", invoked)
	}
}

func TestDispatcher_NilDecodedEventSkipsHandler(t *testing.T) {
	contract := starknet.HexToFelt("0xc0ffee")
	invoked := false

	registry := abi.NewRegistry([]abi.Subscription{
		{ContractAddress: contract, Descriptor: transferDescriptor, Handler: func(abi.HandlerContext, abi.DecodedEvent) error {
			invoked = true
			return nil
		}},
	})

	d := New(registry, noopQuery, nil, nil, logger.NewNopLogger())

	// matches a registered subscription but was persisted raw after a
	// decode failure (Decoded == nil): no handler call, per S5.
	d.DispatchEvents(context.Background(), []abi.DecodedEvent{
		{ContractAddress: contract, EventIndex: 0, Keys: []starknet.Felt{transferDescriptor.Selector()}, Decoded: nil},
	})

	if invoked {
		t.Fatal("handler must not be invoked for an event with Decoded == nil")
	}
}

func TestDispatcher_ReorgHandlerInvokedOnce(t *testing.T) {
	calls := 0
	d := New(abi.NewRegistry(nil), noopQuery, func(_ abi.HandlerContext, forkedBlock uint64) error {
		calls++
		if forkedBlock != 42 {
			t.Errorf("forkedBlock = %d, want 42", forkedBlock)
		}
		return nil
	}, nil, logger.NewNopLogger())

	d.DispatchReorg(context.Background(), 42)

	if calls != 1 {
		t.Fatalf("reorg handler called %d times, want 1", calls)
	}
}

func TestDispatcher_NilReorgHandlerIsNoop(t *testing.T) {
	d := New(abi.NewRegistry(nil), noopQuery, nil, nil, logger.NewNopLogger())
	// must not panic
	d.DispatchReorg(context.Background(), 1)
}
