package reach

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/corvids/bury/pkg/analyzer/callgraph"
	"github.com/corvids/bury/pkg/models"
)

func TestReachSet(t *testing.T) {
	s := NewReachSet()
	if s.IsSet(3) {
		t.Error("empty set reports membership")
	}
	s.Set(3)
	s.Set(3)
	if !s.IsSet(3) {
		t.Error("Set(3) not visible")
	}
	if got := s.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
	s.SetBatch([]uint32{1, 2, 3})
	if got := s.Count(); got != 3 {
		t.Errorf("Count() after batch = %d, want 3", got)
	}
}

// chainGraph builds a frozen graph of n nodes named f0..f(n-1) with the
// edges given as index pairs.
func chainGraph(t *testing.T, n int, edges [][2]uint32) *callgraph.Graph {
	t.Helper()
	g := callgraph.NewGraph()
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("f%d", i)
		def := &models.Definition{
			ID:   fmt.Sprintf("g.py:%d:%s", i+1, name),
			Name: name,
			Kind: models.KindFunction,
			File: "g.py",
			Line: uint32(i + 1),
		}
		if _, err := g.AddNode(def, nil); err != nil {
			t.Fatalf("AddNode(%s) error = %v", name, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%v) error = %v", e, err)
		}
	}
	return g
}

func TestTraverseFollowsEdges(t *testing.T) {
	g := chainGraph(t, 4, [][2]uint32{{0, 1}, {1, 2}})
	g.Freeze()

	res := Traverse(g, []uint32{0})
	for _, idx := range []uint32{0, 1, 2} {
		if !res.Visited.IsSet(idx) {
			t.Errorf("node %d not reachable", idx)
		}
	}
	if res.Visited.IsSet(3) {
		t.Error("disconnected node reported reachable")
	}
	if len(res.Speculative) != 0 {
		t.Errorf("resolved edges tagged speculative: %v", res.Speculative)
	}
}

func TestTraverseTerminatesOnCycle(t *testing.T) {
	g := chainGraph(t, 3, [][2]uint32{{0, 1}, {1, 2}, {2, 0}})
	g.Freeze()

	res := Traverse(g, []uint32{0})
	if got := res.Visited.Count(); got != 3 {
		t.Errorf("cycle traversal visited %d nodes, want 3", got)
	}
	if got := len(res.Order); got != 3 {
		t.Errorf("Order has %d entries, want 3", got)
	}
}

func TestTraverseDeterministicOrder(t *testing.T) {
	build := func() *callgraph.Graph {
		g := chainGraph(t, 5, [][2]uint32{{0, 4}, {0, 2}, {0, 1}, {2, 3}})
		g.Freeze()
		return g
	}

	first := Traverse(build(), []uint32{0}).Order
	for i := 0; i < 5; i++ {
		again := Traverse(build(), []uint32{0}).Order
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("visit order varies across runs: %v vs %v", first, again)
		}
	}
	// neighbors of the root come out sorted by definition ID
	want := []uint32{0, 1, 2, 4, 3}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("Order = %v, want %v", first, want)
	}
}

func TestTraverseSpeculativeByName(t *testing.T) {
	g := chainGraph(t, 3, nil)
	ref := &models.Reference{Name: "f1", Kind: models.RefDynamic, File: "g.py", Line: 1}
	if err := g.AddUnresolved(0, ref); err != nil {
		t.Fatalf("AddUnresolved() error = %v", err)
	}
	g.Freeze()

	res := Traverse(g, []uint32{0})
	if !res.Visited.IsSet(1) {
		t.Fatal("name-matched node not admitted")
	}
	if !res.Speculative[1] {
		t.Error("name-matched node not tagged speculative")
	}
	if res.Visited.IsSet(2) {
		t.Error("non-matching node admitted")
	}
}

func TestTraverseResolvedEdgeWinsOverSpeculative(t *testing.T) {
	g := chainGraph(t, 2, [][2]uint32{{0, 1}})
	ref := &models.Reference{Name: "f1", Kind: models.RefDynamic, File: "g.py", Line: 1}
	if err := g.AddUnresolved(0, ref); err != nil {
		t.Fatalf("AddUnresolved() error = %v", err)
	}
	g.Freeze()

	res := Traverse(g, []uint32{0})
	if res.Speculative[1] {
		t.Error("node reached by a resolved edge should not be speculative")
	}
}

func TestTraverseMonotonic(t *testing.T) {
	g := chainGraph(t, 6, [][2]uint32{{0, 1}, {2, 3}, {3, 4}})
	g.Freeze()

	small := Traverse(g, []uint32{0})
	large := Traverse(g, []uint32{0, 2})

	for _, idx := range small.Order {
		if !large.Visited.IsSet(idx) {
			t.Errorf("node %d reachable from subset of roots but not superset", idx)
		}
	}
	if large.Visited.Count() <= small.Visited.Count() {
		t.Errorf("adding a productive root did not grow the set: %d vs %d",
			large.Visited.Count(), small.Visited.Count())
	}
}

func TestTraverseIdempotent(t *testing.T) {
	g := chainGraph(t, 4, [][2]uint32{{0, 1}, {1, 2}, {2, 1}})
	g.Freeze()

	a := Traverse(g, []uint32{0})
	b := Traverse(g, []uint32{0})
	if !reflect.DeepEqual(a.Order, b.Order) {
		t.Errorf("repeated traversal differs: %v vs %v", a.Order, b.Order)
	}
	if a.Visited.Count() != b.Visited.Count() {
		t.Errorf("visited counts differ: %d vs %d", a.Visited.Count(), b.Visited.Count())
	}
}

func TestTraverseDuplicateRoots(t *testing.T) {
	g := chainGraph(t, 2, [][2]uint32{{0, 1}})
	g.Freeze()

	res := Traverse(g, []uint32{0, 0, 0})
	if got := len(res.Order); got != 2 {
		t.Errorf("duplicate roots inflated visit order to %d entries, want 2", got)
	}
}
