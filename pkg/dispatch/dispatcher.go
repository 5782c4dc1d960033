// Package dispatch implements the Handler Dispatcher (spec §4.F): strictly
// sequential, event_index-ordered delivery of committed events to the
// handlers registered against their descriptors, plus the at-most-once
// reorg notification.
package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/stark-indexer/strkindexer/internal/logger"
	"github.com/stark-indexer/strkindexer/pkg/abi"
	"github.com/stark-indexer/strkindexer/pkg/errs"
	"github.com/stark-indexer/strkindexer/pkg/store"
)

// QueryOpener opens a fresh, handler-scoped query function, never the
// processor's own transaction, per spec §9's Open Question 2 resolution.
type QueryOpener func(ctx context.Context) (abi.QueryFunc, func(), error)

// Dispatcher delivers decoded events and reorg notifications to the
// handlers registered on the Registry, one at a time, in order.
type Dispatcher struct {
	registry     *abi.Registry
	openQuery    QueryOpener
	reorgHandler abi.ReorgHandler
	orchestrator abi.OrchestratorHandle
	log          *logger.Logger
}

// New builds a Dispatcher. reorgHandler may be nil (no reorg handler
// registered). orchestrator is handed to every handler invocation for
// introspection only, spec §4.F.
func New(registry *abi.Registry, openQuery QueryOpener, reorgHandler abi.ReorgHandler, orchestrator abi.OrchestratorHandle, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry:     registry,
		openQuery:    openQuery,
		reorgHandler: reorgHandler,
		orchestrator: orchestrator,
		log:          log.WithComponent("handler-dispatcher"),
	}
}

// DispatchEvents invokes each matched event's handler in ascending
// event_index order, spec invariant 4. A handler error is wrapped as
// errs.HandlerError, logged, and does not stop the remaining handlers or the
// pipeline (spec §4.F: "handler failures are caught... and logged; they do
// not stop the pipeline").
func (d *Dispatcher) DispatchEvents(ctx context.Context, events []abi.DecodedEvent) {
	ordered := make([]abi.DecodedEvent, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].EventIndex < ordered[j].EventIndex })

	for _, event := range ordered {
		if event.Decoded == nil {
			// persisted raw after a decode failure (spec §4.B/§4.E step 2):
			// no typed payload to hand a handler, so no handler call.
			continue
		}
		sub, ok := d.registry.Lookup(event.ContractAddress, event.Keys[0])
		if !ok || sub.Handler == nil {
			continue
		}
		d.invoke(ctx, sub.Descriptor.Name, event, sub.Handler)
	}
}

func (d *Dispatcher) invoke(ctx context.Context, eventName string, event abi.DecodedEvent, handler abi.Handler) {
	query, closeQuery, err := d.openQuery(ctx)
	if err != nil {
		d.log.Errorw("failed to open handler query connection", "event", eventName, "error", err)
		return
	}
	defer closeQuery()

	hctx := abi.HandlerContext{Query: query, Orchestrator: d.orchestrator}

	defer func() {
		if r := recover(); r != nil {
			herr := errs.NewHandlerError(eventName, fmt.Errorf("handler panicked: %v", r))
			d.log.Errorw("handler failed", "event", eventName, "tx_hash", event.TxHash.Hex(), "error", herr)
		}
	}()

	if err := handler(hctx, event); err != nil {
		herr := errs.NewHandlerError(eventName, err)
		d.log.Errorw("handler failed", "event", eventName, "tx_hash", event.TxHash.Hex(), "error", herr)
	}
}

// DispatchReorg invokes the reorg handler exactly once with the first
// rolled-back block number, spec §9's Open Question 1 resolution. A no-op if
// no reorg handler was registered.
func (d *Dispatcher) DispatchReorg(ctx context.Context, forkedBlock uint64) {
	if d.reorgHandler == nil {
		return
	}

	query, closeQuery, err := d.openQuery(ctx)
	if err != nil {
		d.log.Errorw("failed to open reorg handler query connection", "forked_block", forkedBlock, "error", err)
		return
	}
	defer closeQuery()

	hctx := abi.HandlerContext{Query: query, Orchestrator: d.orchestrator}

	if err := d.reorgHandler(hctx, forkedBlock); err != nil {
		d.log.Errorw("reorg handler failed", "forked_block", forkedBlock, "error", err)
	}
}

// QueryFromStore adapts a store.Store into a QueryOpener: every invocation
// gets a fresh logical connection via Store.Query, which itself routes
// through the pool rather than any in-flight Txn.
func QueryFromStore(st store.Store) QueryOpener {
	return func(ctx context.Context) (abi.QueryFunc, func(), error) {
		fn := func(sqlText string, params ...interface{}) ([]map[string]interface{}, error) {
			return st.Query(ctx, sqlText, params...)
		}
		return fn, func() {}, nil
	}
}
