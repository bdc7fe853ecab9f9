// Package callgraph assembles extracted definitions and resolved bindings
// into a reference graph. Nodes are definitions plus one synthetic module
// node per file; edges follow calls, member accesses, inheritance, and
// imports. References that resolve to nothing are kept on their source
// node as evidence for the conservative traversal phase.
package callgraph

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/corvids/bury/pkg/models"
)

// ErrInvariant wraps violations of internal graph invariants. It is the
// only error class the analysis treats as fatal.
var ErrInvariant = errors.New("callgraph invariant violated")

// Node is one graph vertex.
type Node struct {
	Index uint32
	Def   *models.Definition
	Unit  *models.SourceUnit
}

// Graph is a dense directed reference graph. It is mutable until Freeze
// and read-only afterwards.
type Graph struct {
	nodes      []Node
	byID       map[string]uint32
	byName     map[string][]uint32 // module nodes excluded
	edgeIndex  map[uint32][]uint32
	edgeSet    map[uint64]bool
	unresolved map[uint32][]*models.Reference
	ambiguous  map[string]bool // names whose resolution was ambiguous
	frozen     bool
}

func NewGraph() *Graph {
	return &Graph{
		byID:       make(map[string]uint32),
		byName:     make(map[string][]uint32),
		edgeIndex:  make(map[uint32][]uint32),
		edgeSet:    make(map[uint64]bool),
		unresolved: make(map[uint32][]*models.Reference),
		ambiguous:  make(map[string]bool),
	}
}

func edgeKey(from, to uint32) uint64 {
	return uint64(from)<<32 | uint64(to)
}

// AddNode registers a definition and returns its index. Re-adding an ID
// returns the existing index.
func (g *Graph) AddNode(def *models.Definition, unit *models.SourceUnit) (uint32, error) {
	if g.frozen {
		return 0, fmt.Errorf("%w: AddNode after Freeze", ErrInvariant)
	}
	if idx, ok := g.byID[def.ID]; ok {
		return idx, nil
	}
	idx := uint32(len(g.nodes))
	g.nodes = append(g.nodes, Node{Index: idx, Def: def, Unit: unit})
	g.byID[def.ID] = idx
	if def.Kind != models.KindModule {
		g.byName[def.Name] = append(g.byName[def.Name], idx)
	}
	return idx, nil
}

// AddEdge links two nodes. Duplicate edges collapse.
func (g *Graph) AddEdge(from, to uint32) error {
	if g.frozen {
		return fmt.Errorf("%w: AddEdge after Freeze", ErrInvariant)
	}
	if int(from) >= len(g.nodes) || int(to) >= len(g.nodes) {
		return fmt.Errorf("%w: edge %d->%d outside %d nodes", ErrInvariant, from, to, len(g.nodes))
	}
	k := edgeKey(from, to)
	if g.edgeSet[k] {
		return nil
	}
	g.edgeSet[k] = true
	g.edgeIndex[from] = append(g.edgeIndex[from], to)
	return nil
}

// AddUnresolved keeps a reference that resolved to nothing on its source
// node.
func (g *Graph) AddUnresolved(from uint32, ref *models.Reference) error {
	if g.frozen {
		return fmt.Errorf("%w: AddUnresolved after Freeze", ErrInvariant)
	}
	if int(from) >= len(g.nodes) {
		return fmt.Errorf("%w: unresolved ref on node %d of %d", ErrInvariant, from, len(g.nodes))
	}
	g.unresolved[from] = append(g.unresolved[from], ref)
	return nil
}

// MarkAmbiguousName records that some resolution of name had several
// candidates.
func (g *Graph) MarkAmbiguousName(name string) {
	if name != "" {
		g.ambiguous[name] = true
	}
}

// Freeze sorts adjacency deterministically by target definition ID and
// seals the graph against further mutation.
func (g *Graph) Freeze() {
	if g.frozen {
		return
	}
	byID := func(idxs []uint32) func(i, j int) bool {
		return func(i, j int) bool {
			return g.nodes[idxs[i]].Def.ID < g.nodes[idxs[j]].Def.ID
		}
	}
	for from, tos := range g.edgeIndex {
		sort.Slice(tos, byID(tos))
		g.edgeIndex[from] = tos
	}
	for name, idxs := range g.byName {
		sort.Slice(idxs, byID(idxs))
		g.byName[name] = idxs
	}
	g.frozen = true
}

func (g *Graph) Frozen() bool { return g.frozen }

func (g *Graph) NumNodes() int { return len(g.nodes) }

// Node returns the vertex at idx.
func (g *Graph) Node(idx uint32) *Node {
	if int(idx) >= len(g.nodes) {
		return nil
	}
	return &g.nodes[idx]
}

// ByID maps a definition ID to its index.
func (g *Graph) ByID(id string) (uint32, bool) {
	idx, ok := g.byID[id]
	return idx, ok
}

// ByName lists indices of real definitions with the given name.
func (g *Graph) ByName(name string) []uint32 {
	return g.byName[name]
}

// Outgoing returns the neighbor indices of idx; sorted by target ID once
// the graph is frozen.
func (g *Graph) Outgoing(idx uint32) []uint32 {
	return g.edgeIndex[idx]
}

// UnresolvedAt returns the unresolved references held by idx.
func (g *Graph) UnresolvedAt(idx uint32) []*models.Reference {
	return g.unresolved[idx]
}

// HasEdge reports whether from links to to.
func (g *Graph) HasEdge(from, to uint32) bool {
	return g.edgeSet[edgeKey(from, to)]
}

// AmbiguousName reports whether any resolution of name was ambiguous.
func (g *Graph) AmbiguousName(name string) bool {
	return g.ambiguous[name]
}

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edgeSet) }

// DetectCycles returns strongly connected components with more than one
// node, plus self-loops, each sorted by index and ordered by smallest
// member.
func (g *Graph) DetectCycles() [][]uint32 {
	if len(g.nodes) == 0 {
		return nil
	}

	dg := simple.NewDirectedGraph()
	for i := range g.nodes {
		dg.AddNode(simple.Node(int64(i)))
	}
	// gonum simple graphs reject self-loops; track those separately
	for from, tos := range g.edgeIndex {
		for _, to := range tos {
			if from == to {
				continue
			}
			dg.SetEdge(simple.Edge{F: simple.Node(int64(from)), T: simple.Node(int64(to))})
		}
	}

	var cycles [][]uint32
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			idx := uint32(scc[0].ID())
			if g.edgeSet[edgeKey(idx, idx)] {
				cycles = append(cycles, []uint32{idx})
			}
			continue
		}
		comp := make([]uint32, 0, len(scc))
		for _, n := range scc {
			comp = append(comp, uint32(n.ID()))
		}
		sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
		cycles = append(cycles, comp)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
