package callgraph

import (
	"errors"
	"testing"

	"github.com/corvids/bury/pkg/models"
)

func defAt(file string, line uint32, name string, kind models.Kind) *models.Definition {
	return &models.Definition{
		ID:   models.DefinitionID(file, line, name),
		Name: name,
		Kind: kind,
		File: file,
		Line: line,
	}
}

func TestAddNodeDeduplicates(t *testing.T) {
	g := NewGraph()
	d := defAt("a.py", 1, "f", models.KindFunction)

	idx1, err := g.AddNode(d, nil)
	if err != nil {
		t.Fatal(err)
	}
	idx2, err := g.AddNode(d, nil)
	if err != nil {
		t.Fatal(err)
	}
	if idx1 != idx2 {
		t.Errorf("re-adding the same ID produced indices %d and %d", idx1, idx2)
	}
	if g.NumNodes() != 1 {
		t.Errorf("NumNodes = %d, want 1", g.NumNodes())
	}
}

func TestAddEdgeDeduplicates(t *testing.T) {
	g := NewGraph()
	a, _ := g.AddNode(defAt("a.py", 1, "f", models.KindFunction), nil)
	b, _ := g.AddNode(defAt("a.py", 5, "g", models.KindFunction), nil)

	if err := g.AddEdge(a, b); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(a, b); err != nil {
		t.Fatal(err)
	}
	if g.NumEdges() != 1 {
		t.Errorf("NumEdges = %d, want 1", g.NumEdges())
	}
	if !g.HasEdge(a, b) {
		t.Error("edge missing after AddEdge")
	}
	if g.HasEdge(b, a) {
		t.Error("reverse edge present")
	}
}

func TestAddEdgeOutOfRange(t *testing.T) {
	g := NewGraph()
	a, _ := g.AddNode(defAt("a.py", 1, "f", models.KindFunction), nil)

	if err := g.AddEdge(a, 42); !errors.Is(err, ErrInvariant) {
		t.Errorf("AddEdge out of range error = %v, want ErrInvariant", err)
	}
}

func TestFreezeSealsGraph(t *testing.T) {
	g := NewGraph()
	a, _ := g.AddNode(defAt("a.py", 1, "f", models.KindFunction), nil)
	g.Freeze()

	if !g.Frozen() {
		t.Fatal("graph not frozen")
	}
	if _, err := g.AddNode(defAt("a.py", 2, "g", models.KindFunction), nil); !errors.Is(err, ErrInvariant) {
		t.Errorf("AddNode after Freeze error = %v, want ErrInvariant", err)
	}
	if err := g.AddEdge(a, a); !errors.Is(err, ErrInvariant) {
		t.Errorf("AddEdge after Freeze error = %v, want ErrInvariant", err)
	}
	if err := g.AddUnresolved(a, &models.Reference{Name: "x"}); !errors.Is(err, ErrInvariant) {
		t.Errorf("AddUnresolved after Freeze error = %v, want ErrInvariant", err)
	}
}

func TestFreezeSortsAdjacencyByID(t *testing.T) {
	g := NewGraph()
	src, _ := g.AddNode(defAt("a.py", 1, "f", models.KindFunction), nil)
	z, _ := g.AddNode(defAt("z.py", 1, "zz", models.KindFunction), nil)
	b, _ := g.AddNode(defAt("b.py", 1, "bb", models.KindFunction), nil)

	g.AddEdge(src, z)
	g.AddEdge(src, b)
	g.Freeze()

	out := g.Outgoing(src)
	if len(out) != 2 {
		t.Fatalf("got %d neighbors, want 2", len(out))
	}
	if out[0] != b || out[1] != z {
		t.Errorf("neighbors = %v, want [%d %d] (sorted by definition ID)", out, b, z)
	}
}

func TestByNameExcludesModules(t *testing.T) {
	g := NewGraph()
	g.AddNode(defAt("a.py", 1, "f", models.KindFunction), nil)
	g.AddNode(&models.Definition{
		ID:   ModuleID("a.py"),
		Name: "a.py",
		Kind: models.KindModule,
		File: "a.py",
	}, nil)

	if got := len(g.ByName("f")); got != 1 {
		t.Errorf("ByName(f) = %d entries, want 1", got)
	}
	if got := len(g.ByName("a.py")); got != 0 {
		t.Errorf("ByName on module name = %d entries, want 0", got)
	}
}

func TestDetectCycles(t *testing.T) {
	g := NewGraph()
	a, _ := g.AddNode(defAt("a.py", 1, "a", models.KindFunction), nil)
	b, _ := g.AddNode(defAt("a.py", 2, "b", models.KindFunction), nil)
	c, _ := g.AddNode(defAt("a.py", 3, "c", models.KindFunction), nil)
	solo, _ := g.AddNode(defAt("a.py", 4, "solo", models.KindFunction), nil)
	rec, _ := g.AddNode(defAt("a.py", 5, "rec", models.KindFunction), nil)

	// a -> b -> c -> a plus a self-loop on rec
	g.AddEdge(a, b)
	g.AddEdge(b, c)
	g.AddEdge(c, a)
	g.AddEdge(solo, a)
	g.AddEdge(rec, rec)
	g.Freeze()

	cycles := g.DetectCycles()
	if len(cycles) != 2 {
		t.Fatalf("got %d cycles %v, want 2", len(cycles), cycles)
	}
	if len(cycles[0]) != 3 {
		t.Errorf("first cycle = %v, want the 3-node component", cycles[0])
	}
	if len(cycles[1]) != 1 || cycles[1][0] != rec {
		t.Errorf("second cycle = %v, want self-loop on %d", cycles[1], rec)
	}
}

func TestModuleID(t *testing.T) {
	if got, want := ModuleID("src/a.py"), "src/a.py:0:(module)"; got != want {
		t.Errorf("ModuleID = %q, want %q", got, want)
	}
}
