package abi

import "github.com/stark-indexer/strkindexer/pkg/starknet"

// FieldKind enumerates the scalar shapes the decoder understands. The core
// does not embed a full Cairo ABI type system — it supports the field kinds
// needed to decode the events a handler actually subscribes to.
type FieldKind int

const (
	// KindFelt is a single 32-byte field element.
	KindFelt FieldKind = iota
	// KindBool is a felt that is either zero or one.
	KindBool
	// KindU256 is two consecutive felts, low limb first.
	KindU256
)

// Field describes one member of an event's payload, in declaration order.
type Field struct {
	Name    string
	Kind    FieldKind
	Indexed bool
}

// EventDescriptor is the decoding recipe for one named event: its
// fully-qualified name (used to compute the selector) and its ordered
// fields.
type EventDescriptor struct {
	Name   string
	Fields []Field
}

// Selector returns the event's dispatch-table key.
func (d EventDescriptor) Selector() starknet.Felt {
	return starknet.Selector(d.Name)
}

// Handler is invoked by the dispatcher once a matched event's block has
// committed. ctx.Query runs statements on the store's connection pool;
// ctx.Orchestrator is the indexer handle passed for introspection only.
type Handler func(ctx HandlerContext, event DecodedEvent) error

// ReorgHandler is invoked at most once per detected reorg.
type ReorgHandler func(ctx HandlerContext, forkedBlock uint64) error

// OrchestratorHandle is the narrow read-only view of the Orchestrator handed
// to handlers for introspection, spec §4.F: "a reference to the orchestrator
// (for introspection; handlers must not call start/stop from within)". It
// deliberately has no Start/Stop.
type OrchestratorHandle interface {
	// Introspect reports the same liveness the Orchestrator's own
	// healthCheck() exposes (spec §4.G), without leaking lifecycle control.
	Introspect() (ws, rpc, database bool)
}

// HandlerContext is supplied to every invocation; Query exposes the escape
// hatch from spec §4.A on the store's connection pool, never the processor's
// transaction. No transaction is opened for the handler, so its statements
// are not grouped into one atomic unit.
type HandlerContext struct {
	Query        QueryFunc
	Orchestrator OrchestratorHandle
}

// QueryFunc runs a SQL query outside any transaction, on whichever pooled
// connection the store hands out, and returns the raw rows as a slice of
// column maps.
type QueryFunc func(sql string, params ...interface{}) ([]map[string]interface{}, error)

// DecodedEvent is handed to an event handler: the raw keys/data plus,
// when decoding succeeded, the typed field mapping.
type DecodedEvent struct {
	ContractAddress starknet.Felt
	BlockNumber     uint64
	BlockHash       starknet.Felt
	TxHash          starknet.Felt
	EventIndex      int
	Keys            []starknet.Felt
	Data            []starknet.Felt
	Decoded         map[string]interface{}
}
