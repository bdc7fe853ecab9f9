package entrypoints

import (
	"strings"
	"testing"

	"github.com/corvids/bury/pkg/analyzer/callgraph"
	"github.com/corvids/bury/pkg/analyzer/extract"
	"github.com/corvids/bury/pkg/analyzer/resolve"
	"github.com/corvids/bury/pkg/models"
	"github.com/corvids/bury/pkg/parser"
)

func buildGraph(t *testing.T, files map[string]string) (*callgraph.Graph, []*models.SourceUnit) {
	t.Helper()
	p := parser.New()
	defer p.Close()

	var units []*models.SourceUnit
	for path, src := range files {
		result, err := p.Parse([]byte(src), parser.DetectLanguage(path), path)
		if err != nil {
			t.Fatalf("Parse(%s) error = %v", path, err)
		}
		unit, err := extract.File(result)
		if err != nil {
			t.Fatalf("extract(%s) error = %v", path, err)
		}
		units = append(units, unit)
	}

	table, _ := resolve.Resolve(units, resolve.Options{})
	g, err := callgraph.Build(units, table)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g, units
}

func rootNames(g *callgraph.Graph, roots []uint32) []string {
	names := make([]string, 0, len(roots))
	for _, idx := range roots {
		names = append(names, g.Node(idx).Def.Name)
	}
	return names
}

func hasRoot(g *callgraph.Graph, roots []uint32, id string) bool {
	for _, idx := range roots {
		if g.Node(idx).Def.ID == id {
			return true
		}
	}
	return false
}

func TestResolveFileGlobs(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"cmd/run.py": "def go():\n    pass\n",
		"lib/x.py":   "def helper():\n    pass\n",
	})

	roots, warnings := Resolve(g, units, Spec{FileGlobs: []string{"cmd/**"}})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	names := rootNames(g, roots)
	if len(roots) != 2 {
		t.Fatalf("roots = %v, want module node plus go", names)
	}
	if !hasRoot(g, roots, callgraph.ModuleID("cmd/run.py")) {
		t.Error("glob did not root the file's module node")
	}
	for _, n := range names {
		if n == "helper" {
			t.Error("glob rooted a non-matching file")
		}
	}
}

func TestResolveNamePatterns(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"t.py": "def test_add():\n    pass\n\ndef test_mul():\n    pass\n\ndef other():\n    pass\n",
	})

	roots, _ := Resolve(g, units, Spec{Names: []string{"test_*"}})
	names := rootNames(g, roots)
	if len(roots) != 2 {
		t.Fatalf("roots = %v, want the two test functions", names)
	}
	for _, n := range names {
		if !strings.HasPrefix(n, "test_") {
			t.Errorf("unexpected root %q", n)
		}
	}
}

func TestResolveExactName(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"t.py": "def handle():\n    pass\n\ndef handler():\n    pass\n",
	})

	roots, _ := Resolve(g, units, Spec{Names: []string{"handle"}})
	if len(roots) != 1 || g.Node(roots[0]).Def.Name != "handle" {
		t.Errorf("roots = %v, want exactly handle", rootNames(g, roots))
	}
}

func TestResolveEntryFiles(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"api.py": "def public():\n    pass\n\ndef _internal():\n    pass\n",
	})

	roots, _ := Resolve(g, units, Spec{EntryFiles: []string{"api.py"}})
	names := rootNames(g, roots)

	rooted := map[string]bool{}
	for _, n := range names {
		rooted[n] = true
	}
	if !rooted["public"] {
		t.Error("exported surface not rooted")
	}
	if rooted["_internal"] {
		t.Error("private definition rooted by entry file")
	}
	if !hasRoot(g, roots, callgraph.ModuleID("api.py")) {
		t.Error("entry file's module node not rooted")
	}
}

func TestResolveMissingEntryFileWarns(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"a.py": "def f():\n    pass\n",
	})

	_, warnings := Resolve(g, units, Spec{EntryFiles: []string{"nope.py"}})
	found := false
	for _, w := range warnings {
		if w.File == "nope.py" && strings.Contains(w.Message, "not analyzed") {
			found = true
		}
	}
	if !found {
		t.Errorf("no warning for missing entry file in %v", warnings)
	}
}

func TestResolveConventions(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"cmd/main.go": "package main\n\nfunc main() {\n\trun()\n}\n\nfunc run() {}\n",
		"script.py":   "def work():\n    pass\n\nif __name__ == \"__main__\":\n    work()\n",
	})

	roots, _ := Resolve(g, units, Spec{UseConventions: true})

	mainRooted, mainModRooted, guardModRooted := false, false, false
	for _, idx := range roots {
		d := g.Node(idx).Def
		switch {
		case d.Name == "main" && d.Kind == models.KindFunction:
			mainRooted = true
		case d.ID == callgraph.ModuleID("cmd/main.go"):
			mainModRooted = true
		case d.ID == callgraph.ModuleID("script.py"):
			guardModRooted = true
		}
	}
	if !mainRooted {
		t.Error("main function not rooted by conventions")
	}
	if !mainModRooted {
		t.Error("main's module scope not rooted")
	}
	if !guardModRooted {
		t.Error("__main__ guard module not rooted")
	}
}

func TestResolveConventionsGoInit(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"pkg/hooks.go": "package pkg\n\nfunc init() {\n\tregister()\n}\n\nfunc register() {}\n",
		"script.py":    "def init():\n    pass\n",
	})

	roots, _ := Resolve(g, units, Spec{UseConventions: true})

	initRooted, modRooted, pyInitRooted := false, false, false
	for _, idx := range roots {
		d := g.Node(idx).Def
		switch {
		case d.Name == "init" && d.File == "pkg/hooks.go":
			initRooted = true
		case d.ID == callgraph.ModuleID("pkg/hooks.go"):
			modRooted = true
		case d.Name == "init" && d.File == "script.py":
			pyInitRooted = true
		}
	}
	if !initRooted {
		t.Error("Go init function not rooted by conventions")
	}
	if !modRooted {
		t.Error("init's module scope not rooted")
	}
	if pyInitRooted {
		t.Error("a Python function named init is not a runtime entry")
	}
}

func TestResolveInvalidPatternWarns(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"a.py": "def f():\n    pass\n",
	})

	_, warnings := Resolve(g, units, Spec{FileGlobs: []string{"[bad"}})
	found := false
	for _, w := range warnings {
		if strings.Contains(w.Message, "invalid entry point pattern") {
			found = true
		}
	}
	if !found {
		t.Errorf("no warning for invalid pattern in %v", warnings)
	}
}

func TestResolveEmptyRootsWarns(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"a.py": "def f():\n    pass\n",
	})

	roots, warnings := Resolve(g, units, Spec{})
	if len(roots) != 0 {
		t.Fatalf("zero-value spec rooted %v", rootNames(g, roots))
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w.Message, "no entry points matched") {
			found = true
		}
	}
	if !found {
		t.Errorf("no empty-root warning in %v", warnings)
	}
}

func TestResolveOverlappingRulesUnion(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"cmd/run.py": "def go():\n    pass\n",
	})

	single, _ := Resolve(g, units, Spec{FileGlobs: []string{"cmd/**"}})
	doubled, _ := Resolve(g, units, Spec{FileGlobs: []string{"cmd/**", "cmd/*.py"}, Names: []string{"go"}})
	if len(single) != len(doubled) {
		t.Errorf("overlapping rules changed the root set: %d vs %d", len(single), len(doubled))
	}
}

func TestResolveRootsSortedByID(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"z.py": "def test_z():\n    pass\n",
		"a.py": "def test_a():\n    pass\n",
	})

	roots, _ := Resolve(g, units, Spec{Names: []string{"test_*"}})
	for i := 1; i < len(roots); i++ {
		if g.Node(roots[i-1]).Def.ID >= g.Node(roots[i]).Def.ID {
			t.Fatalf("roots not sorted by definition ID: %v", rootNames(g, roots))
		}
	}
}
