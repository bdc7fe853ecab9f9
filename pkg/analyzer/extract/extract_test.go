package extract

import (
	"errors"
	"testing"

	"github.com/corvids/bury/pkg/models"
	"github.com/corvids/bury/pkg/parser"
)

// extractSource parses src with the language detected from path and
// extracts its unit.
func extractSource(t *testing.T, src, path string) *models.SourceUnit {
	t.Helper()
	p := parser.New()
	defer p.Close()

	result, err := p.Parse([]byte(src), parser.DetectLanguage(path), path)
	if err != nil {
		t.Fatalf("Parse(%s) error = %v", path, err)
	}
	unit, err := File(result)
	if err != nil {
		t.Fatalf("File(%s) error = %v", path, err)
	}
	return unit
}

func findDef(unit *models.SourceUnit, name string) *models.Definition {
	for i := range unit.Definitions {
		if unit.Definitions[i].Name == name {
			return &unit.Definitions[i]
		}
	}
	return nil
}

func hasRef(unit *models.SourceUnit, name string, kind models.RefKind) bool {
	for i := range unit.References {
		r := &unit.References[i]
		if r.Name == name && r.Kind == kind {
			return true
		}
	}
	return false
}

func findBinding(unit *models.SourceUnit, local string) *models.Binding {
	for i := range unit.Bindings {
		if unit.Bindings[i].LocalName == local {
			return &unit.Bindings[i]
		}
	}
	return nil
}

func TestFileNilResult(t *testing.T) {
	if _, err := File(nil); !errors.Is(err, ErrNoTree) {
		t.Errorf("File(nil) error = %v, want ErrNoTree", err)
	}
}

func TestFileUnsupportedLanguage(t *testing.T) {
	p := parser.New()
	defer p.Close()

	result, err := p.Parse([]byte("x = 1"), parser.LangPython, "x.py")
	if err != nil {
		t.Fatal(err)
	}
	result.Language = parser.LangUnknown
	if _, err := File(result); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("File() error = %v, want ErrUnsupportedLanguage", err)
	}
}

func TestMalformedWithSymbolsIsPartial(t *testing.T) {
	// the function extracts; the trailing garbage breaks the tree
	unit := extractSource(t, "def ok():\n    pass\n\ndef broken(:\n", "broken.py")
	if !unit.Partial {
		t.Error("unit with parse errors and symbols should be Partial")
	}
	if findDef(unit, "ok") == nil {
		t.Error("extraction dropped the intact definition")
	}
}

func TestMalformedWithoutSymbolsRejected(t *testing.T) {
	p := parser.New()
	defer p.Close()

	result, err := p.Parse([]byte(")))(((\n"), parser.LangPython, "junk.py")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := File(result); !errors.Is(err, ErrMalformed) {
		t.Errorf("File() error = %v, want ErrMalformed", err)
	}
}
