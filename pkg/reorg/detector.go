package reorg

import (
	"context"
	"fmt"

	"github.com/stark-indexer/strkindexer/internal/logger"
)

// HeaderProvider is the narrow RPC surface the walk-back needs: fetch a
// header by number, spec §4.D's `getBlockByNumber`.
type HeaderProvider interface {
	BlockHeaderByNumber(ctx context.Context, number uint64) (BlockRef, error)
}

// Detector owns the CanonicalTail and decides Accept/Reorg for each
// candidate block, spec §4.D.
type Detector struct {
	tail     *CanonicalTail
	provider HeaderProvider
	log      *logger.Logger
}

// NewDetector builds a Detector with reorg window K.
func NewDetector(k int, provider HeaderProvider, log *logger.Logger) *Detector {
	return &Detector{
		tail:     NewCanonicalTail(k),
		provider: provider,
		log:      log.WithComponent("reorg-detector"),
	}
}

// Tail exposes the CanonicalTail for introspection (e.g. healthCheck, tests).
func (d *Detector) Tail() *CanonicalTail { return d.tail }

// Decide validates candidate against the tail (or, if the tail is empty,
// against cursor) per spec §4.D's three branches.
func (d *Detector) Decide(ctx context.Context, candidate BlockRef, cursor BlockRef) (Directive, error) {
	if d.tail.Len() == 0 {
		return d.decideFromCursor(candidate, cursor)
	}

	last, _ := d.tail.Last()
	if last.Hash == candidate.ParentHash && candidate.Number == last.Number+1 {
		d.tail.Append(candidate)
		return Directive{Kind: Accept, Block: candidate}, nil
	}

	return d.resolveFork(ctx, candidate)
}

// decideFromCursor handles the empty-tail branch: attach directly against
// the committed cursor, or walk back one block if the parent hash doesn't
// line up.
func (d *Detector) decideFromCursor(candidate, cursor BlockRef) (Directive, error) {
	if candidate.Number == cursor.Number+1 && candidate.ParentHash == cursor.Hash {
		d.tail.Append(candidate)
		return Directive{Kind: Accept, Block: candidate}, nil
	}

	d.log.Warnf("reorg detected against cursor: candidate_block=%d candidate_parent=%s cursor_block=%d cursor_hash=%s",
		candidate.Number, candidate.ParentHash.Hex(), cursor.Number, cursor.Hash.Hex())

	return Directive{Kind: Reorg, FromBlock: cursor.Number}, nil
}

// resolveFork walks ancestor headers backward from candidate.Number-1,
// comparing against the tail, until it finds the common ancestor or
// exhausts the reorg window, spec §4.D's third branch.
func (d *Detector) resolveFork(ctx context.Context, candidate BlockRef) (Directive, error) {
	window := d.tail.k

	ancestorHash := candidate.ParentHash
	ancestorNumber := candidate.Number - 1

	for steps := 0; steps < window; steps++ {
		if fork, ok := d.tail.FindByHash(ancestorHash); ok {
			d.log.Warnf("reorg detected: candidate_block=%d fork_point=%d", candidate.Number, fork.Number+1)
			return Directive{Kind: Reorg, FromBlock: fork.Number + 1}, nil
		}

		header, err := d.provider.BlockHeaderByNumber(ctx, ancestorNumber)
		if err != nil {
			return Directive{}, fmt.Errorf("failed to fetch ancestor header %d: %w", ancestorNumber, err)
		}
		if header.Hash != ancestorHash {
			return Directive{}, fmt.Errorf("ancestor hash mismatch at block %d: expected %s got %s",
				ancestorNumber, ancestorHash.Hex(), header.Hash.Hex())
		}

		if ancestorNumber == 0 {
			break
		}
		ancestorHash = header.ParentHash
		ancestorNumber--
	}

	return Directive{}, newDeepReorgError(candidate.Number, window)
}
