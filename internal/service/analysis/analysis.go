// Package analysis orchestrates dead code analysis for the CLI and MCP
// surfaces.
package analysis

import (
	"context"
	"sort"

	"github.com/corvids/bury/internal/cache"
	"github.com/corvids/bury/internal/fileproc"
	"github.com/corvids/bury/pkg/analyzer/callgraph"
	"github.com/corvids/bury/pkg/analyzer/deadcode"
	"github.com/corvids/bury/pkg/analyzer/entrypoints"
	"github.com/corvids/bury/pkg/analyzer/extract"
	"github.com/corvids/bury/pkg/analyzer/resolve"
	"github.com/corvids/bury/pkg/config"
	"github.com/corvids/bury/pkg/models"
	"github.com/corvids/bury/pkg/parser"
)

// Service orchestrates analysis operations.
type Service struct {
	config *config.Config
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeadCodeOptions configures dead code detection. Zero values defer to
// the loaded configuration.
type DeadCodeOptions struct {
	MinConfidence  models.ConfidenceLevel
	EntryPatterns  []string
	EntryFunctions []string
	EntryFiles     []string
	NoConventions  bool
	ReexportDepth  int
	NoCache        bool
	OnProgress     func()
}

// entrySpec merges configured entry point rules with per-run overrides.
func (s *Service) entrySpec(opts DeadCodeOptions) entrypoints.Spec {
	spec := entrypoints.Spec{
		FileGlobs:      append([]string{}, s.config.EntryPoints.Patterns...),
		Names:          append([]string{}, s.config.EntryPoints.Functions...),
		EntryFiles:     append([]string{}, s.config.EntryPoints.Files...),
		UseConventions: s.config.EntryPoints.Conventions,
	}
	spec.FileGlobs = append(spec.FileGlobs, opts.EntryPatterns...)
	spec.Names = append(spec.Names, opts.EntryFunctions...)
	spec.EntryFiles = append(spec.EntryFiles, opts.EntryFiles...)
	if opts.NoConventions {
		spec.UseConventions = false
	}
	return spec
}

func (s *Service) reexportDepth(opts DeadCodeOptions) int {
	if opts.ReexportDepth > 0 {
		return opts.ReexportDepth
	}
	return s.config.Resolution.ReexportDepth
}

// AnalyzeDeadCode runs the reachability pipeline on the given files.
func (s *Service) AnalyzeDeadCode(ctx context.Context, files []string, opts DeadCodeOptions) (*models.DeadCodeAnalysis, error) {
	analyzerOpts := []deadcode.Option{
		deadcode.WithEntryPoints(s.entrySpec(opts)),
		deadcode.WithReexportDepth(s.reexportDepth(opts)),
	}

	min := opts.MinConfidence
	if min == "" {
		min = models.ParseConfidenceLevel(s.config.Analysis.MinConfidence)
	}
	analyzerOpts = append(analyzerOpts, deadcode.WithMinConfidence(min))

	if s.config.Analysis.Workers > 0 {
		analyzerOpts = append(analyzerOpts, deadcode.WithWorkers(s.config.Analysis.Workers))
	}
	if !opts.NoCache && s.config.Cache.Enabled {
		if c, err := cache.New(s.config.Cache.Dir, s.config.Cache.TTL, true); err == nil {
			analyzerOpts = append(analyzerOpts, deadcode.WithCache(c))
		}
	}
	if opts.OnProgress != nil {
		analyzerOpts = append(analyzerOpts, deadcode.WithProgress(opts.OnProgress))
	}

	dc := deadcode.New(analyzerOpts...)
	defer dc.Close()
	return dc.Analyze(ctx, files)
}

// EntryPoint is one resolved traversal root.
type EntryPoint struct {
	Name string `json:"name" toon:"name"`
	Kind string `json:"kind" toon:"kind"`
	File string `json:"file" toon:"file"`
	Line uint32 `json:"line" toon:"line"`
}

// ListEntryPoints reports which definitions the current entry point
// rules would root, without running the traversal.
func (s *Service) ListEntryPoints(ctx context.Context, files []string, opts DeadCodeOptions) ([]EntryPoint, []models.Warning, error) {
	units, errs := fileproc.MapFilesWithContext(ctx, files, func(psr *parser.Parser, path string) (*models.SourceUnit, error) {
		result, err := psr.ParseFile(path)
		if err != nil {
			return nil, err
		}
		return extract.File(result)
	})
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var warnings []models.Warning
	if errs != nil {
		for _, pe := range errs.Errors {
			warnings = append(warnings, models.Warning{File: pe.Path, Message: pe.Err.Error()})
		}
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })

	table, resolveWarnings := resolve.Resolve(units, resolve.Options{Depth: s.reexportDepth(opts)})
	warnings = append(warnings, resolveWarnings...)

	g, err := callgraph.Build(units, table)
	if err != nil {
		return nil, nil, err
	}

	roots, rootWarnings := entrypoints.Resolve(g, units, s.entrySpec(opts))
	warnings = append(warnings, rootWarnings...)

	eps := make([]EntryPoint, 0, len(roots))
	for _, idx := range roots {
		def := g.Node(idx).Def
		name := def.Name
		if def.Kind == models.KindModule {
			name = "(module)"
		}
		eps = append(eps, EntryPoint{
			Name: name,
			Kind: string(def.Kind),
			File: def.File,
			Line: def.Line,
		})
	}
	return eps, warnings, nil
}
