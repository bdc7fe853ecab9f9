package parser

import (
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"app/main.py", LangPython},
		{"types.pyi", LangPython},
		{"src/index.ts", LangTypeScript},
		{"src/App.tsx", LangTSX},
		{"lib/util.js", LangJavaScript},
		{"lib/Widget.jsx", LangTSX},
		{"cmd/main.go", LangGo},
		{"mod.mjs", LangJavaScript},
		{"README.md", LangUnknown},
		{"Makefile", LangUnknown},
	}

	for _, tt := range tests {
		if got := DetectLanguage(tt.path); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestParsePython(t *testing.T) {
	p := New()
	defer p.Close()

	source := []byte("def hello():\n    return 42\n")
	result, err := p.Parse(source, LangPython, "test.py")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.Tree == nil {
		t.Fatal("Parse() returned nil tree")
	}
	if result.Tree.RootNode().HasError() {
		t.Error("valid source parsed with errors")
	}
	if result.Language != LangPython {
		t.Errorf("Language = %q, want python", result.Language)
	}
}

func TestParseUnknownLanguage(t *testing.T) {
	p := New()
	defer p.Close()

	if _, err := p.Parse([]byte("x"), LangUnknown, "x.bin"); err == nil {
		t.Error("Parse() with unknown language should fail")
	}
}

func TestFindNodesByType(t *testing.T) {
	p := New()
	defer p.Close()

	source := []byte("def a():\n    pass\n\ndef b():\n    pass\n")
	result, err := p.Parse(source, LangPython, "test.py")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	funcs := FindNodesByType(result.Tree.RootNode(), source, "function_definition")
	if len(funcs) != 2 {
		t.Errorf("found %d function_definition nodes, want 2", len(funcs))
	}
}

func TestGetNodeText(t *testing.T) {
	p := New()
	defer p.Close()

	source := []byte("def hello():\n    pass\n")
	result, err := p.Parse(source, LangPython, "test.py")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	funcs := FindNodesByType(result.Tree.RootNode(), source, "function_definition")
	if len(funcs) != 1 {
		t.Fatalf("found %d functions, want 1", len(funcs))
	}
	name := funcs[0].ChildByFieldName("name")
	if got := GetNodeText(name, source); got != "hello" {
		t.Errorf("GetNodeText() = %q, want %q", got, "hello")
	}
	if got := GetNodeText(nil, source); got != "" {
		t.Errorf("GetNodeText(nil) = %q, want empty", got)
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		source string
		want   int
	}{
		{"", 0},
		{"one line", 1},
		{"a\nb\nc", 3},
		{"a\nb\n", 3},
	}

	for _, tt := range tests {
		if got := CountLines([]byte(tt.source)); got != tt.want {
			t.Errorf("CountLines(%q) = %d, want %d", tt.source, got, tt.want)
		}
	}
}
