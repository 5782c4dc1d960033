// Package rpc is the concrete chainsource.Provider adapter: a Starknet
// JSON-RPC client over HTTPS for polling calls, plus a WebSocket connection
// for the live head subscription. It is grounded on the teacher's
// internal/rpc.Client (rpc.DialContext + *rpc.Client, compile-time interface
// assertion, BatchCallContext-style batching), pointed at Starknet's
// JSON-RPC methods instead of Ethereum's — spec names the RPC/WS transport
// as an external collaborator "not specified", so this adapter reuses
// go-ethereum's transport-agnostic JSON-RPC client rather than adding a
// dedicated Starknet SDK dependency (see DESIGN.md).
package rpc

import (
	"context"
	"fmt"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stark-indexer/strkindexer/pkg/chainsource"
	"github.com/stark-indexer/strkindexer/pkg/errs"
	"github.com/stark-indexer/strkindexer/pkg/starknet"
)

var _ chainsource.Provider = (*Client)(nil)

// Client implements chainsource.Provider against a live Starknet node.
type Client struct {
	http *gethrpc.Client
	ws   *gethrpc.Client
}

// NewClient dials both the HTTPS RPC endpoint and the WebSocket endpoint.
func NewClient(ctx context.Context, rpcURL, wsURL string) (*Client, error) {
	httpClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc endpoint: %w", err)
	}

	wsClient, err := gethrpc.DialContext(ctx, wsURL)
	if err != nil {
		httpClient.Close()
		return nil, fmt.Errorf("dial ws endpoint: %w", err)
	}

	return &Client{http: httpClient, ws: wsClient}, nil
}

// Close releases both underlying connections.
func (c *Client) Close() {
	c.http.Close()
	c.ws.Close()
}

// BlockNumber implements chainsource.Provider.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	if err := c.http.CallContext(ctx, &number, "starknet_blockNumber"); err != nil {
		return 0, errs.NewTransientNetworkError("starknet_blockNumber", err)
	}
	return number, nil
}

// BlockHeaderByNumber implements chainsource.Provider, used by the Reorg
// Detector's ancestor walk-back, spec §4.D.
func (c *Client) BlockHeaderByNumber(ctx context.Context, number uint64) (chainsource.Header, error) {
	var header wireHeader
	err := c.http.CallContext(ctx, &header, "starknet_getBlockWithTxHashes", blockIDByNumber{BlockNumber: number})
	if err != nil {
		return chainsource.Header{}, errs.NewTransientNetworkError("starknet_getBlockWithTxHashes", err)
	}
	return header.toHeader(), nil
}

// BlockWithReceipts implements chainsource.Provider, spec §4.C's
// `getBlockWithReceipts`. Events are flattened out of every transaction's
// receipt with a block-wide, ascending event index.
func (c *Client) BlockWithReceipts(ctx context.Context, number uint64) (chainsource.BlockCandidate, error) {
	var block wireBlockWithReceipts
	err := c.http.CallContext(ctx, &block, "starknet_getBlockWithReceipts", blockIDByNumber{BlockNumber: number})
	if err != nil {
		return chainsource.BlockCandidate{}, errs.NewTransientNetworkError("starknet_getBlockWithReceipts", err)
	}

	var events []chainsource.RawEvent
	index := 0
	for _, tx := range block.Transactions {
		txHash := starknet.HexToFelt(tx.Receipt.TransactionHash)
		for _, ev := range tx.Receipt.Events {
			events = append(events, chainsource.RawEvent{
				ContractAddress: starknet.HexToFelt(ev.FromAddress),
				TxHash:          txHash,
				EventIndex:      index,
				Keys:            hexesToFelts(ev.Keys),
				Data:            hexesToFelts(ev.Data),
			})
			index++
		}
	}

	return chainsource.BlockCandidate{Header: block.wireHeader.toHeader(), Events: events}, nil
}

// SubscribeNewHeads implements chainsource.Provider over the WebSocket
// connection, following go-ethereum/rpc's generic namespace-subscribe
// pattern (EthSubscribe's non-Ethereum-specific sibling): it issues
// "starknet_subscribe" with the "newHeads" argument and listens for
// "starknet_subscription" notifications, the same shape eth_subscribe uses
// for "newHeads" against Ethereum nodes.
func (c *Client) SubscribeNewHeads(ctx context.Context) (chainsource.HeadSubscription, error) {
	ch := make(chan wireHeader, 16)
	sub, err := c.ws.Subscribe(ctx, "starknet", ch, "newHeads")
	if err != nil {
		return nil, errs.NewTransientNetworkError("starknet_subscribe(newHeads)", err)
	}

	hs := &headSubscription{
		sub:   sub,
		ch:    ch,
		heads: make(chan chainsource.Header, 16),
		errCh: make(chan error, 1),
		done:  make(chan struct{}),
	}
	go hs.pump()
	return hs, nil
}

type headSubscription struct {
	sub   *gethrpc.ClientSubscription
	ch    chan wireHeader
	heads chan chainsource.Header
	errCh chan error
	done  chan struct{}
}

func (hs *headSubscription) pump() {
	defer close(hs.heads)
	for {
		select {
		case h, ok := <-hs.ch:
			if !ok {
				return
			}
			hs.heads <- h.toHeader()
		case err := <-hs.sub.Err():
			if err != nil {
				hs.errCh <- err
			}
			return
		case <-hs.done:
			return
		}
	}
}

func (hs *headSubscription) Heads() <-chan chainsource.Header { return hs.heads }
func (hs *headSubscription) Err() <-chan error                { return hs.errCh }

func (hs *headSubscription) Unsubscribe() {
	hs.sub.Unsubscribe()
	close(hs.done)
}

// blockIDByNumber is the Starknet JSON-RPC `BLOCK_ID` variant selecting a
// block by number.
type blockIDByNumber struct {
	BlockNumber uint64 `json:"block_number"`
}

type wireHeader struct {
	BlockHash   string `json:"block_hash"`
	ParentHash  string `json:"parent_hash"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   uint64 `json:"timestamp"`
}

func (h wireHeader) toHeader() chainsource.Header {
	return chainsource.Header{
		Number:     h.BlockNumber,
		Hash:       starknet.HexToFelt(h.BlockHash),
		ParentHash: starknet.HexToFelt(h.ParentHash),
		Timestamp:  h.Timestamp,
	}
}

type wireEvent struct {
	FromAddress string   `json:"from_address"`
	Keys        []string `json:"keys"`
	Data        []string `json:"data"`
}

type wireReceipt struct {
	TransactionHash string      `json:"transaction_hash"`
	Events          []wireEvent `json:"events"`
}

type wireTxWithReceipt struct {
	Receipt wireReceipt `json:"receipt"`
}

type wireBlockWithReceipts struct {
	wireHeader
	Transactions []wireTxWithReceipt `json:"transactions"`
}

func hexesToFelts(hexes []string) []starknet.Felt {
	if len(hexes) == 0 {
		return nil
	}
	felts := make([]starknet.Felt, len(hexes))
	for i, h := range hexes {
		felts[i] = starknet.HexToFelt(h)
	}
	return felts
}
