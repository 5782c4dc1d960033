package reorg

// DirectiveKind discriminates the two outcomes Decide can produce, spec
// §4.D: "Emitted directives: Accept(B) or Reorg(from_block)."
type DirectiveKind int

const (
	Accept DirectiveKind = iota
	Reorg
)

// Directive is the Detector's verdict on one candidate block.
type Directive struct {
	Kind DirectiveKind

	// Block is populated for Accept.
	Block BlockRef

	// FromBlock is populated for Reorg: the first block number no longer on
	// the canonical chain, per §9's "first rolled-back block" resolution.
	FromBlock uint64
}
