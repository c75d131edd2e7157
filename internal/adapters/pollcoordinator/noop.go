package pollcoordinator

import "context"

// Noop always grants the poll, for single-worker or single-process
// deployments where poll staggering serves no purpose.
type Noop struct{}

func (Noop) Acquire(ctx context.Context, workerID string) bool { return true }
