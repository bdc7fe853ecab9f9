// Package reach computes the reachable set of a frozen reference graph.
package reach

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/corvids/bury/pkg/analyzer/callgraph"
)

// ReachSet tracks visited nodes with a Roaring bitmap for memory-efficient
// sparse membership. Safe for concurrent use.
type ReachSet struct {
	bitmap *roaring.Bitmap
	mu     sync.RWMutex
}

// NewReachSet creates an empty set.
func NewReachSet() *ReachSet {
	return &ReachSet{bitmap: roaring.New()}
}

// Set marks a node as reachable.
func (s *ReachSet) Set(index uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitmap.Add(index)
}

// IsSet checks whether a node is reachable.
func (s *ReachSet) IsSet(index uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bitmap.Contains(index)
}

// Count returns the number of reachable nodes.
func (s *ReachSet) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bitmap.GetCardinality()
}

// SetBatch marks multiple nodes at once.
func (s *ReachSet) SetBatch(indices []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitmap.AddMany(indices)
}

// Result holds one traversal's outcome.
type Result struct {
	// Visited is the reachable set.
	Visited *ReachSet
	// Order records nodes in visit order, reproducible for a given
	// graph and root set.
	Order []uint32
	// Speculative marks nodes admitted only through textual matching of
	// an unresolved reference name rather than a resolved edge. The
	// count of such nodes is surfaced in the run summary.
	Speculative map[uint32]bool
}

// Traverse walks the graph breadth-first from roots, which the caller
// supplies sorted by definition ID. Neighbor order is fixed at Freeze,
// so ties break on the stable identifier and repeated runs yield the
// same visit order. Unresolved references are followed conservatively:
// when a visited node holds one, every definition whose name matches it
// textually is admitted and tagged speculative. The visited check keeps
// cycles from re-enqueueing nodes.
func Traverse(g *callgraph.Graph, roots []uint32) *Result {
	res := &Result{
		Visited:     NewReachSet(),
		Order:       make([]uint32, 0, len(roots)),
		Speculative: make(map[uint32]bool),
	}
	queue := make([]uint32, 0, len(roots))

	admit := func(idx uint32, speculative bool) {
		if res.Visited.IsSet(idx) {
			return
		}
		res.Visited.Set(idx)
		if speculative {
			res.Speculative[idx] = true
		}
		res.Order = append(res.Order, idx)
		queue = append(queue, idx)
	}

	for _, r := range roots {
		admit(r, false)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range g.Outgoing(cur) {
			admit(next, false)
		}
		for _, ref := range g.UnresolvedAt(cur) {
			for _, idx := range g.ByName(ref.Name) {
				admit(idx, true)
			}
		}
	}
	return res
}
