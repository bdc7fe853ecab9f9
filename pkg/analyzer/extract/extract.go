// Package extract converts parsed syntax trees into language-agnostic
// symbol tables: definitions, references, and import/export bindings.
// Extraction is strictly per-file; no adapter sees another file's facts.
package extract

import (
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/corvids/bury/pkg/models"
	"github.com/corvids/bury/pkg/parser"
)

var (
	// ErrUnsupportedLanguage indicates no extractor is registered for a language.
	ErrUnsupportedLanguage = errors.New("no extractor for language")

	// ErrMalformed indicates a file whose tree was too broken to yield any
	// symbols. The caller records a warning and excludes the file.
	ErrMalformed = errors.New("malformed source")

	// ErrNoTree indicates extraction was invoked without a parsed tree.
	ErrNoTree = errors.New("missing syntax tree")
)

// Extractor converts one file's syntax tree into a SourceUnit.
// Implementations are stateless and safe for concurrent use.
type Extractor interface {
	// Extract enumerates every definition (nested included), every
	// reference, and every import/export binding of one parsed file.
	// Bindings are emitted verbatim as declared; resolution happens later.
	Extract(result *parser.ParseResult) (*models.SourceUnit, error)
}

// ForLanguage returns the extractor handling lang.
func ForLanguage(lang parser.Language) (Extractor, error) {
	switch lang {
	case parser.LangPython:
		return pythonExtractor{}, nil
	case parser.LangTypeScript, parser.LangTSX, parser.LangJavaScript:
		return typescriptExtractor{}, nil
	case parser.LangGo:
		return goExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
}

// File extracts a SourceUnit from an already-parsed file. It performs no
// I/O of its own.
func File(result *parser.ParseResult) (*models.SourceUnit, error) {
	if result == nil || result.Tree == nil {
		return nil, ErrNoTree
	}
	ex, err := ForLanguage(result.Language)
	if err != nil {
		return nil, err
	}
	return ex.Extract(result)
}

// newUnit builds the empty SourceUnit shell all adapters start from.
func newUnit(result *parser.ParseResult) *models.SourceUnit {
	return &models.SourceUnit{
		Path:     result.Path,
		Language: string(result.Language),
		Lines:    parser.CountLines(result.Source),
	}
}

// finishUnit applies the shared malformed-input policy: a tree with parse
// errors but extractable symbols yields a partial unit; a tree with parse
// errors and nothing extractable is rejected.
func finishUnit(result *parser.ParseResult, unit *models.SourceUnit) (*models.SourceUnit, error) {
	root := result.Tree.RootNode()
	if root == nil {
		return nil, ErrNoTree
	}
	if root.HasError() {
		if len(unit.Definitions) == 0 && len(unit.References) == 0 && len(unit.Bindings) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, result.Path)
		}
		unit.Partial = true
	}
	return unit, nil
}

// Tree-sitter rows and columns are zero-based; reported positions are
// one-based.

func line(node *sitter.Node) uint32 {
	return node.StartPoint().Row + 1
}

func column(node *sitter.Node) uint32 {
	return node.StartPoint().Column + 1
}

func endLine(node *sitter.Node) uint32 {
	return node.EndPoint().Row + 1
}
