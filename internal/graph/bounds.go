package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/upstarter/engram/internal/storage"
)

// boundsChecker tracks and enforces traversal bounds to prevent
// combinatorial explosion, adapted from the donor's bounds-checking
// discipline to operate directly against this package's own Graph instead
// of a relational neighbor lookup.
type boundsChecker struct {
	bounds       storage.GraphBounds
	nodesVisited int
	edgesVisited int
	startTime    time.Time
}

func newBoundsChecker(bounds storage.GraphBounds) *boundsChecker {
	bounds.Normalize()
	return &boundsChecker{bounds: bounds, startTime: time.Now()}
}

// canContinue checks context, node/edge counts, depth, and elapsed time,
// in that order, and returns ErrGraphBoundsExceeded (or a context error)
// on the first bound hit.
func (b *boundsChecker) canContinue(ctx context.Context, depth int) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled during graph traversal: %w", ctx.Err())
	default:
	}

	if b.nodesVisited >= b.bounds.MaxNodes {
		return fmt.Errorf("%w: max nodes (%d) exceeded", storage.ErrGraphBoundsExceeded, b.bounds.MaxNodes)
	}
	if b.edgesVisited >= b.bounds.MaxEdges {
		return fmt.Errorf("%w: max edges (%d) exceeded", storage.ErrGraphBoundsExceeded, b.bounds.MaxEdges)
	}
	if depth >= b.bounds.MaxHops {
		return fmt.Errorf("%w: max hops (%d) exceeded at depth %d", storage.ErrGraphBoundsExceeded, b.bounds.MaxHops, depth)
	}
	if elapsed := time.Since(b.startTime); elapsed >= b.bounds.Timeout {
		return fmt.Errorf("%w: timeout (%v) exceeded after %v", storage.ErrGraphBoundsExceeded, b.bounds.Timeout, elapsed)
	}
	return nil
}

func (b *boundsChecker) recordNode() { b.nodesVisited++ }
func (b *boundsChecker) recordEdge() { b.edgesVisited++ }
