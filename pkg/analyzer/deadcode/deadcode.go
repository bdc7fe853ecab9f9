// Package deadcode finds definitions that are statically unreachable
// from the configured entry points.
//
// The pipeline runs in phases: per-file symbol extraction (parallel,
// with a join barrier), import resolution, reference graph construction,
// root selection, reachability traversal, and confidence classification.
// Defective files degrade to warnings; only an internal graph invariant
// violation aborts a run.
package deadcode

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/corvids/bury/internal/cache"
	"github.com/corvids/bury/internal/fileproc"
	"github.com/corvids/bury/pkg/analyzer"
	"github.com/corvids/bury/pkg/analyzer/callgraph"
	"github.com/corvids/bury/pkg/analyzer/entrypoints"
	"github.com/corvids/bury/pkg/analyzer/extract"
	"github.com/corvids/bury/pkg/analyzer/reach"
	"github.com/corvids/bury/pkg/analyzer/resolve"
	"github.com/corvids/bury/pkg/models"
	"github.com/corvids/bury/pkg/parser"
)

// Analyzer runs the dead code pipeline over a set of files.
type Analyzer struct {
	entry       entrypoints.Spec
	depth       int
	minConf     models.ConfidenceLevel
	maxFileSize int64
	workers     int
	onProgress  fileproc.ProgressFunc
	cache       *cache.Cache
}

// Compile-time check that Analyzer implements analyzer.FileAnalyzer.
var _ analyzer.FileAnalyzer[*models.DeadCodeAnalysis] = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithEntryPoints sets the root-selection rules.
func WithEntryPoints(spec entrypoints.Spec) Option {
	return func(a *Analyzer) {
		a.entry = spec
	}
}

// WithReexportDepth bounds transitive wildcard re-export expansion.
func WithReexportDepth(depth int) Option {
	return func(a *Analyzer) {
		if depth > 0 {
			a.depth = depth
		}
	}
}

// WithMinConfidence drops findings below the given confidence level.
func WithMinConfidence(level models.ConfidenceLevel) Option {
	return func(a *Analyzer) {
		a.minConf = level
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithWorkers caps extraction parallelism (0 = default pool size).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithProgress installs a callback invoked after each file is extracted.
func WithProgress(fn fileproc.ProgressFunc) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// WithCache reuses extraction results for unchanged files, keyed by
// content hash.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// New creates a dead code analyzer. Without options it applies language
// conventions (main functions, script guards) for entry points and the
// default re-export depth bound.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		entry: entrypoints.Spec{UseConventions: true},
		depth: resolve.DefaultDepth,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {}

// Analyze parses and extracts files in parallel, then runs the
// reachability pipeline over the collected units. A file that fails to
// parse or extract is excluded with a warning and never aborts the run.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*models.DeadCodeAnalysis, error) {
	units, errs := fileproc.MapFilesWithContextN(ctx, files, a.workers, func(psr *parser.Parser, path string) (*models.SourceUnit, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if a.maxFileSize > 0 && int64(len(data)) > a.maxFileSize {
			return nil, fmt.Errorf("file too large: %d bytes (limit: %d)", len(data), a.maxFileSize)
		}

		var hash string
		if a.cache != nil {
			hash = cache.HashBytes(data)
			if cached, ok := a.cache.GetWithHash(path, hash); ok {
				var unit models.SourceUnit
				if err := json.Unmarshal(cached, &unit); err == nil {
					return &unit, nil
				}
			}
		}

		result, err := psr.Parse(data, parser.DetectLanguage(path), path)
		if err != nil {
			return nil, err
		}
		unit, err := extract.File(result)
		if err != nil {
			return nil, err
		}
		if a.cache != nil {
			if encoded, err := json.Marshal(unit); err == nil {
				_ = a.cache.SetWithHash(path, hash, encoded)
			}
		}
		return unit, nil
	}, a.onProgress)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var warnings []models.Warning
	if errs != nil {
		for _, pe := range errs.Errors {
			warnings = append(warnings, models.Warning{File: pe.Path, Message: pe.Err.Error()})
		}
	}

	analysis, err := a.AnalyzeUnits(ctx, units, warnings)
	if err != nil {
		return nil, err
	}
	analysis.Summary.TotalFilesScanned = len(files)
	return analysis, nil
}

// AnalyzeUnits runs the pipeline over already-extracted units. The
// units are an immutable snapshot; prior warnings carry through onto
// the result. Cancellation is checked between phases.
func (a *Analyzer) AnalyzeUnits(ctx context.Context, units []*models.SourceUnit, warnings []models.Warning) (*models.DeadCodeAnalysis, error) {
	sorted := make([]*models.SourceUnit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	table, resolveWarnings := resolve.Resolve(sorted, resolve.Options{Depth: a.depth})
	warnings = append(warnings, resolveWarnings...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g, err := callgraph.Build(sorted, table)
	if err != nil {
		return nil, err
	}

	roots, rootWarnings := entrypoints.Resolve(g, sorted, a.entry)
	warnings = append(warnings, rootWarnings...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := reach.Traverse(g, roots)
	analysis := classify(g, sorted, roots, res, warnings)

	if a.minConf != "" {
		analysis = analysis.FilterByConfidence(a.minConf)
	}
	return analysis, nil
}
