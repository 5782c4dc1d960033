package reorg

import "fmt"

// DeepReorgError is fatal: the walk-back exceeded the reorg window without
// finding a common ancestor, spec §4.D/§7. The Orchestrator stops the
// pipeline and requires operator intervention.
type DeepReorgError struct {
	AttemptedBlock uint64
	Window         int
}

func (e *DeepReorgError) Error() string {
	return fmt.Sprintf("deep reorg: no common ancestor found for block %d within window of %d blocks",
		e.AttemptedBlock, e.Window)
}

func newDeepReorgError(attemptedBlock uint64, window int) error {
	return &DeepReorgError{AttemptedBlock: attemptedBlock, Window: window}
}
